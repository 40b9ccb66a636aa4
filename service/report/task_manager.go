/*
 * @module service/report/task_manager
 * @description 报告任务管理器，提交任务到报告引擎、为每个任务独立起轮询协程跟踪生命周期并落库
 * @architecture 服务层 - 任务编排，多任务并发互不阻塞
 * @documentReference ai_docs/report_task_req.md
 * @stateFlow 提交 -> pending落库 -> 轮询协程跟踪 -> 终态/超时更新记录
 * @rules 单个任务内轮询串行；timeout与failed是不同终态，timeout时引擎侧任务可能仍在执行；失败明细按柱号记录
 * @dependencies gorm.io/gorm, columnqc-service/client, log/slog
 * @refs client/poller.go, api/controllers/report_task_controller.go
 */

package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"columnqc-service/client"
	"columnqc-service/service/models"
)

// ErrTaskNotFound 任务记录不存在
var ErrTaskNotFound = errors.New("报告任务不存在")

// ErrTaskNotDownloadable 任务产物不可下载
var ErrTaskNotDownloadable = errors.New("任务产物不可下载: 任务未成功或无打包产物")

// SubmitOptions 任务提交选项
type SubmitOptions struct {
	ColumnSNs []string `json:"column_sns"`
	Month     string   `json:"month"`    // zip_existing任务打包的月份
	Operator  string   `json:"operator"` // 提交人
}

// TaskManager 报告任务管理器
type TaskManager struct {
	db           *gorm.DB
	client       *client.ReportClient
	pollerConfig *client.PollerConfig
	wg           sync.WaitGroup
}

// NewTaskManager 创建报告任务管理器
func NewTaskManager(db *gorm.DB, reportClient *client.ReportClient, pollerConfig *client.PollerConfig) *TaskManager {
	return &TaskManager{
		db:           db,
		client:       reportClient,
		pollerConfig: pollerConfig,
	}
}

// Submit 提交报告任务并启动后台跟踪
func (m *TaskManager) Submit(ctx context.Context, taskType string, opts *SubmitOptions) (*models.ReportTask, error) {
	req := &client.SubmitRequest{
		ColumnSNs: opts.ColumnSNs,
		Month:     opts.Month,
	}

	var taskID string
	var err error
	switch taskType {
	case models.ReportTaskTypeGenerate:
		if len(opts.ColumnSNs) == 0 {
			return nil, fmt.Errorf("柱号列表不能为空")
		}
		taskID, err = m.client.SubmitGenerate(ctx, req)
	case models.ReportTaskTypeGenerateZip:
		if len(opts.ColumnSNs) == 0 {
			return nil, fmt.Errorf("柱号列表不能为空")
		}
		taskID, err = m.client.SubmitGenerateZip(ctx, req)
	case models.ReportTaskTypeZipExisting:
		if opts.Month == "" {
			return nil, fmt.Errorf("打包月份不能为空")
		}
		taskID, err = m.client.SubmitZipExisting(ctx, req)
	default:
		return nil, fmt.Errorf("不支持的任务类型: %s", taskType)
	}
	if err != nil {
		return nil, fmt.Errorf("提交报告任务失败: %w", err)
	}

	task := &models.ReportTask{
		TaskID:      taskID,
		TaskType:    taskType,
		Status:      models.ReportTaskStatusPending,
		ColumnSNs:   opts.ColumnSNs,
		Month:       opts.Month,
		SubmittedBy: opts.Operator,
		SubmittedAt: time.Now(),
	}
	if task.SubmittedBy == "" {
		task.SubmittedBy = "system"
	}
	if err := m.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, fmt.Errorf("保存任务记录失败: %w", err)
	}

	client.RecordTaskSubmitted(taskType)
	slog.Info("报告任务已提交", "task_id", taskID, "task_type", taskType, "columns", len(opts.ColumnSNs))

	// 每个任务独立协程跟踪，互不阻塞；跟踪生命周期与请求解耦
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.track(taskID)
	}()

	return task, nil
}

// track 轮询任务直到终态并更新本地记录
func (m *TaskManager) track(taskID string) {
	poller := client.NewPoller(m.client, m.pollerConfig)
	poller.OnSnapshot = func(snapshot *client.TaskSnapshot) {
		if snapshot.Status == client.TaskStatusRunning {
			if err := m.markRunning(taskID); err != nil {
				slog.Warn("刷新任务运行状态失败", "task_id", taskID, "error", err)
			}
		}
	}
	snapshot, err := poller.Wait(context.Background(), taskID)

	updates := map[string]interface{}{
		"finished_at": time.Now(),
	}

	switch {
	case err == nil:
		status := strings.ToLower(snapshot.Status)
		updates["status"] = status
		updates["success_count"] = snapshot.Success
		updates["fail_count"] = snapshot.Fail
		if len(snapshot.Failed) > 0 {
			updates["failed_items"] = models.JSONBStringMap(snapshot.Failed)
		}
		client.RecordTaskCompleted(status)
		slog.Info("报告任务完结", "task_id", taskID, "status", status,
			"success", snapshot.Success, "fail", snapshot.Fail)
	case errors.Is(err, client.ErrPollTimeout):
		updates["status"] = models.ReportTaskStatusTimeout
		updates["error_message"] = err.Error()
		client.RecordTaskCompleted(models.ReportTaskStatusTimeout)
		slog.Warn("报告任务轮询超时", "task_id", taskID)
	default:
		updates["status"] = models.ReportTaskStatusFailed
		updates["error_message"] = err.Error()
		client.RecordTaskCompleted(models.ReportTaskStatusFailed)
		slog.Error("报告任务跟踪失败", "task_id", taskID, "error", err)
	}

	if dbErr := m.db.Model(&models.ReportTask{}).
		Where("task_id = ?", taskID).
		Updates(updates).Error; dbErr != nil {
		slog.Error("更新任务记录失败", "task_id", taskID, "error", dbErr)
	}
}

// markRunning 收到引擎侧running快照时刷新本地状态，供前端展示
func (m *TaskManager) markRunning(taskID string) error {
	return m.db.Model(&models.ReportTask{}).
		Where("task_id = ? AND status = ?", taskID, models.ReportTaskStatusPending).
		Update("status", models.ReportTaskStatusRunning).Error
}

// GetTask 查询任务本地记录
func (m *TaskManager) GetTask(ctx context.Context, taskID string) (*models.ReportTask, error) {
	var task models.ReportTask
	err := m.db.WithContext(ctx).Where("task_id = ?", taskID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("查询任务记录失败: %w", err)
	}
	return &task, nil
}

// TaskFilter 任务列表过滤条件
type TaskFilter struct {
	Status   string
	TaskType string
	Page     int
	Size     int
}

// ListTasks 分页查询任务记录
func (m *TaskManager) ListTasks(ctx context.Context, filter TaskFilter) ([]models.ReportTask, int64, error) {
	query := m.db.WithContext(ctx).Model(&models.ReportTask{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TaskType != "" {
		query = query.Where("task_type = ?", filter.TaskType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计任务记录失败: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.Size
	if size < 1 || size > 100 {
		size = 20
	}

	var tasks []models.ReportTask
	err := query.Order("submitted_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询任务记录失败: %w", err)
	}
	return tasks, total, nil
}

// Download 校验任务状态后从报告引擎流式下载产物
func (m *TaskManager) Download(ctx context.Context, taskID string, w io.Writer) (int64, error) {
	task, err := m.GetTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	if !task.CanDownload() {
		return 0, ErrTaskNotDownloadable
	}
	return m.client.Download(ctx, taskID, w)
}

// WaitInflight 等待所有在途跟踪协程退出，供优雅停机与测试使用
func (m *TaskManager) WaitInflight() {
	m.wg.Wait()
}
