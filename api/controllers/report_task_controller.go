/*
 * @module api/controllers/report_task_controller
 * @description 报告任务控制器，提供报告生成/打包任务的提交、查询与产物下载接口
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/report_task_req.md
 * @stateFlow HTTP请求 -> 参数验证 -> 任务管理器调用 -> 响应返回
 * @rules 提交后立即返回任务记录，状态由后台轮询协程驱动；产物仅SUCCESS的打包任务可下载
 * @dependencies service/report, service/models
 * @refs api/routes.go
 */

package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"columnqc-service/service"
	"columnqc-service/service/models"
	"columnqc-service/service/report"
)

// ReportTaskController 报告任务控制器
type ReportTaskController struct {
	taskManager *report.TaskManager
}

// NewReportTaskController 创建报告任务控制器
func NewReportTaskController() *ReportTaskController {
	return &ReportTaskController{
		taskManager: service.GlobalTaskManager,
	}
}

// SubmitTaskRequest 提交报告任务请求
type SubmitTaskRequest struct {
	ColumnSNs []string `json:"columnSns,omitempty"`
	Month     string   `json:"month,omitempty" example:"2024-08"`
	Operator  string   `json:"operator" example:"reviewer01"`
}

// SubmitGenerate 提交报告生成任务
// @Summary 提交报告生成任务
// @Description 为选定柱批量生成COA报告，立即返回任务记录，进度由后台跟踪
// @Tags 报告任务管理
// @Accept json
// @Produce json
// @Param request body SubmitTaskRequest true "任务请求"
// @Success 200 {object} APIResponse{data=models.ReportTask} "提交成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /report-tasks/generate [post]
func (c *ReportTaskController) SubmitGenerate(w http.ResponseWriter, r *http.Request) {
	c.submit(w, r, models.ReportTaskTypeGenerate)
}

// SubmitGenerateZip 提交报告生成并打包任务
// @Summary 提交报告生成并打包任务
// @Description 为选定柱生成COA报告并打包为zip
// @Tags 报告任务管理
// @Accept json
// @Produce json
// @Param request body SubmitTaskRequest true "任务请求"
// @Success 200 {object} APIResponse{data=models.ReportTask} "提交成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /report-tasks/generate-zip [post]
func (c *ReportTaskController) SubmitGenerateZip(w http.ResponseWriter, r *http.Request) {
	c.submit(w, r, models.ReportTaskTypeGenerateZip)
}

// SubmitZipExisting 提交已有报告打包任务
// @Summary 提交已有报告打包任务
// @Description 打包指定月份的已有报告
// @Tags 报告任务管理
// @Accept json
// @Produce json
// @Param request body SubmitTaskRequest true "任务请求"
// @Success 200 {object} APIResponse{data=models.ReportTask} "提交成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /report-tasks/zip-existing [post]
func (c *ReportTaskController) SubmitZipExisting(w http.ResponseWriter, r *http.Request) {
	c.submit(w, r, models.ReportTaskTypeZipExisting)
}

func (c *ReportTaskController) submit(w http.ResponseWriter, r *http.Request, taskType string) {
	var req SubmitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}

	task, err := c.taskManager.Submit(r.Context(), taskType, &report.SubmitOptions{
		ColumnSNs: req.ColumnSNs,
		Month:     req.Month,
		Operator:  req.Operator,
	})
	if err != nil {
		render.JSON(w, r, BadRequestResponse("提交报告任务失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("提交报告任务成功", task))
}

// ListTasks 查询报告任务列表
// @Summary 查询报告任务列表
// @Description 分页查询报告任务记录，支持状态与类型过滤
// @Tags 报告任务管理
// @Produce json
// @Param status query string false "状态" Enums(pending,running,success,failed,timeout)
// @Param task_type query string false "任务类型" Enums(generate,generate_zip,zip_existing)
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(20)
// @Success 200 {object} PaginatedResponse{data=[]models.ReportTask}
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /report-tasks [get]
func (c *ReportTaskController) ListTasks(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	filter := report.TaskFilter{
		Status:   r.URL.Query().Get("status"),
		TaskType: r.URL.Query().Get("task_type"),
		Page:     page,
		Size:     size,
	}

	tasks, total, err := c.taskManager.ListTasks(r.Context(), filter)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询报告任务列表失败", err))
		return
	}

	render.JSON(w, r, SuccessPaginatedResponse(tasks, total, filter.Page, filter.Size))
}

// GetTask 查询报告任务详情
// @Summary 查询报告任务详情
// @Description 按任务ID查询本地任务记录，含成功/失败统计与按柱号的失败明细
// @Tags 报告任务管理
// @Produce json
// @Param task_id path string true "任务ID"
// @Success 200 {object} APIResponse{data=models.ReportTask}
// @Failure 404 {object} APIResponse "任务不存在"
// @Router /report-tasks/{task_id} [get]
func (c *ReportTaskController) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")

	task, err := c.taskManager.GetTask(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, report.ErrTaskNotFound) {
			render.JSON(w, r, NotFoundResponse("报告任务不存在"))
			return
		}
		render.JSON(w, r, InternalErrorResponse("查询报告任务失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("", task))
}

// Download 下载任务产物
// @Summary 下载任务产物
// @Description 流式下载打包任务的zip产物，仅SUCCESS的打包任务可下载
// @Tags 报告任务管理
// @Produce application/zip
// @Param task_id path string true "任务ID"
// @Success 200 {file} binary "zip产物"
// @Failure 404 {object} APIResponse "任务不存在"
// @Failure 409 {object} APIResponse "任务产物不可下载"
// @Router /report-tasks/{task_id}/download [get]
func (c *ReportTaskController) Download(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="reports-%s.zip"`, taskID))

	if _, err := c.taskManager.Download(r.Context(), taskID, w); err != nil {
		w.Header().Del("Content-Disposition")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case errors.Is(err, report.ErrTaskNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, NotFoundResponse("报告任务不存在"))
		case errors.Is(err, report.ErrTaskNotDownloadable):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, BadRequestResponse("任务产物不可下载", err))
		default:
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, InternalErrorResponse("下载任务产物失败", err))
		}
	}
}
