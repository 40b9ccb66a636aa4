/*
 * @module api/controllers/column_controller
 * @description 色谱柱控制器，提供不合格柱列表、检测数据编辑保存、变更日志与批量审核接口
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/column_qc_req.md
 * @stateFlow HTTP请求 -> 参数验证 -> 服务调用 -> 响应返回
 * @rules 保存接口一次提交完整检测快照；结论字段由服务端派生，请求中的结论值不被采信
 * @dependencies service/column, service/models, service/meta
 * @refs api/routes.go
 */

package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"columnqc-service/service"
	"columnqc-service/service/column"
	"columnqc-service/service/models"
)

// ColumnController 色谱柱控制器
type ColumnController struct {
	columnService *column.Service
}

// NewColumnController 创建色谱柱控制器
func NewColumnController() *ColumnController {
	return &ColumnController{
		columnService: service.GlobalColumnService,
	}
}

// SaveDetectionRequest 保存检测数据请求
type SaveDetectionRequest struct {
	DetectionData models.DetectionData `json:"detectionData" binding:"required"`
	Operator      string               `json:"operator" example:"reviewer01"`
}

// BatchApproveRequest 批量审核请求
type BatchApproveRequest struct {
	ColumnSNs []string `json:"columnSns" binding:"required,min=1"`
	Reviewer  string   `json:"reviewer" example:"reviewer01"`
}

// ListColumns 查询色谱柱列表
// @Summary 查询色谱柱列表
// @Description 分页查询色谱柱，支持柱号模糊、型号、批号与状态过滤
// @Tags 色谱柱管理
// @Produce json
// @Param column_sn query string false "柱号(模糊匹配)"
// @Param column_model query string false "柱型号"
// @Param batch_no query string false "批号"
// @Param status query string false "状态" Enums(pending,approved,rejected)
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(10)
// @Success 200 {object} PaginatedResponse{data=[]models.ChromatographyColumn}
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /columns [get]
func (c *ColumnController) ListColumns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	filter := column.ListFilter{
		ColumnSN:    r.URL.Query().Get("column_sn"),
		ColumnModel: r.URL.Query().Get("column_model"),
		BatchNo:     r.URL.Query().Get("batch_no"),
		Status:      r.URL.Query().Get("status"),
		Page:        page,
		Size:        size,
	}

	columns, total, err := c.columnService.ListColumns(r.Context(), filter)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询色谱柱列表失败", err))
		return
	}

	render.JSON(w, r, SuccessPaginatedResponse(columns, total, filter.Page, filter.Size))
}

// GetColumn 查询色谱柱详情
// @Summary 查询色谱柱详情
// @Description 按柱号查询色谱柱检测数据
// @Tags 色谱柱管理
// @Produce json
// @Param column_sn path string true "柱号"
// @Success 200 {object} APIResponse{data=models.ChromatographyColumn}
// @Failure 404 {object} APIResponse "色谱柱不存在"
// @Router /columns/{column_sn} [get]
func (c *ColumnController) GetColumn(w http.ResponseWriter, r *http.Request) {
	columnSN := chi.URLParam(r, "column_sn")

	col, err := c.columnService.GetColumn(r.Context(), columnSN)
	if err != nil {
		if errors.Is(err, column.ErrColumnNotFound) {
			render.JSON(w, r, NotFoundResponse("色谱柱不存在"))
			return
		}
		render.JSON(w, r, InternalErrorResponse("查询色谱柱失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("", col))
}

// SaveDetection 保存检测数据
// @Summary 保存检测数据
// @Description 保存编辑后的完整检测数据快照，服务端重算结论并记录变更日志
// @Tags 色谱柱管理
// @Accept json
// @Produce json
// @Param column_sn path string true "柱号"
// @Param detection body SaveDetectionRequest true "检测数据快照"
// @Success 200 {object} APIResponse{data=column.SaveDetectionResult} "保存成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 404 {object} APIResponse "色谱柱不存在"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /columns/{column_sn}/detection [post]
func (c *ColumnController) SaveDetection(w http.ResponseWriter, r *http.Request) {
	columnSN := chi.URLParam(r, "column_sn")

	var req SaveDetectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}
	if len(req.DetectionData) == 0 {
		render.JSON(w, r, BadRequestResponse("检测数据不能为空", nil))
		return
	}

	result, err := c.columnService.SaveDetection(r.Context(), columnSN, req.DetectionData, req.Operator)
	if err != nil {
		if errors.Is(err, column.ErrColumnNotFound) {
			render.JSON(w, r, NotFoundResponse("色谱柱不存在"))
			return
		}
		render.JSON(w, r, InternalErrorResponse("保存检测数据失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("保存检测数据成功", result))
}

// GetChangeLogs 查询变更日志
// @Summary 查询变更日志
// @Description 按柱号查询字段级变更日志，按变更时间倒序
// @Tags 色谱柱管理
// @Produce json
// @Param column_sn path string true "柱号"
// @Success 200 {object} APIResponse{data=[]models.ChangeLogEntry}
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /columns/{column_sn}/change-logs [get]
func (c *ColumnController) GetChangeLogs(w http.ResponseWriter, r *http.Request) {
	columnSN := chi.URLParam(r, "column_sn")

	logs, err := c.columnService.GetChangeLogs(r.Context(), columnSN)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询变更日志失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("", logs))
}

// GetRepeatability 查询重复性原始值
// @Summary 查询重复性原始值
// @Description 查询柱的重复性测试原始测量值，按类别分组
// @Tags 色谱柱管理
// @Produce json
// @Param column_sn path string true "柱号"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse "色谱柱不存在"
// @Router /columns/{column_sn}/repeatability [get]
func (c *ColumnController) GetRepeatability(w http.ResponseWriter, r *http.Request) {
	columnSN := chi.URLParam(r, "column_sn")

	raw, err := c.columnService.GetRepeatability(r.Context(), columnSN)
	if err != nil {
		if errors.Is(err, column.ErrColumnNotFound) {
			render.JSON(w, r, NotFoundResponse("色谱柱不存在"))
			return
		}
		render.JSON(w, r, InternalErrorResponse("查询重复性原始值失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("", raw))
}

// BatchApprove 批量审核通过
// @Summary 批量审核通过
// @Description 批量审核色谱柱，逐柱处理并返回每柱的失败原因
// @Tags 色谱柱管理
// @Accept json
// @Produce json
// @Param request body BatchApproveRequest true "批量审核请求"
// @Success 200 {object} APIResponse{data=column.BatchApproveResult} "审核完成"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /columns/batch-approve [post]
func (c *ColumnController) BatchApprove(w http.ResponseWriter, r *http.Request) {
	var req BatchApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}
	if len(req.ColumnSNs) == 0 {
		render.JSON(w, r, BadRequestResponse("柱号列表不能为空", nil))
		return
	}

	result, err := c.columnService.BatchApprove(r.Context(), req.ColumnSNs, req.Reviewer)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("批量审核失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("批量审核完成", result))
}
