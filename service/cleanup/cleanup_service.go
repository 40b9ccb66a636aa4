/*
 * @module service/cleanup/cleanup_service
 * @description 数据保洁服务，归档COA报告完成月份台账，定期清理终态报告任务记录与已丢弃的收件箱报文
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/cleanup_design.md
 * @stateFlow 定时触发 -> 分布式锁防重 -> 归档完成月份 -> 执行清理 -> 记录结果
 * @rules 月份归档先于任务清理，保证任务记录被清理后月份完成状态仍可查；只清理终态记录；保洁失败不影响主流程；多实例部署时同一时刻只有一个实例执行
 * @dependencies gorm.io/gorm, github.com/robfig/cron/v3, columnqc-service/service/distributed_lock
 * @refs service/models/report_task.go, service/models/reported_month.go, service/models/inbox.go
 */

package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"columnqc-service/service/distributed_lock"
	"columnqc-service/service/models"
)

// 默认保留天数
const (
	DefaultTaskRetentionDays  = 90
	DefaultInboxRetentionDays = 30
)

// CleanupService 数据保洁服务
type CleanupService struct {
	db                 *gorm.DB
	executor           *distributed_lock.LockExecutor
	cron               *cron.Cron
	ctx                context.Context
	cancel             context.CancelFunc
	taskRetentionDays  int
	inboxRetentionDays int
	started            bool
}

// NewCleanupService 创建数据保洁服务。
// executor为nil时退化为单实例模式，不做防重。
func NewCleanupService(db *gorm.DB, executor *distributed_lock.LockExecutor) *CleanupService {
	ctx, cancel := context.WithCancel(context.Background())

	return &CleanupService{
		db:                 db,
		executor:           executor,
		cron:               cron.New(cron.WithSeconds()),
		ctx:                ctx,
		cancel:             cancel,
		taskRetentionDays:  DefaultTaskRetentionDays,
		inboxRetentionDays: DefaultInboxRetentionDays,
	}
}

// SetRetention 覆盖默认保留天数
func (s *CleanupService) SetRetention(taskDays, inboxDays int) {
	if taskDays > 0 {
		s.taskRetentionDays = taskDays
	}
	if inboxDays > 0 {
		s.inboxRetentionDays = inboxDays
	}
}

// CleanupExpired 执行一轮保洁：先归档完成月份，再做保留期清理
func (s *CleanupService) CleanupExpired(ctx context.Context) error {
	slog.Info("开始数据保洁")
	startTime := time.Now()

	// 月份归档必须先于任务清理，任务记录被删后月份完成状态要仍可查
	monthsRecorded, err := s.RecordDoneMonths(ctx)
	if err != nil {
		slog.Error("归档报告完成月份失败", "error", err)
	} else if monthsRecorded > 0 {
		slog.Info("归档报告完成月份", "recorded_count", monthsRecorded)
	}

	taskDeleted, err := s.CleanupTerminalTasks(ctx, s.taskRetentionDays)
	if err != nil {
		slog.Error("清理报告任务记录失败", "error", err)
	} else {
		slog.Info("清理报告任务记录完成", "deleted_count", taskDeleted, "retention_days", s.taskRetentionDays)
	}

	inboxDeleted, err := s.CleanupDiscardedMessages(ctx, s.inboxRetentionDays)
	if err != nil {
		slog.Error("清理收件箱报文失败", "error", err)
	} else {
		slog.Info("清理收件箱报文完成", "deleted_count", inboxDeleted, "retention_days", s.inboxRetentionDays)
	}

	slog.Info("数据保洁完成",
		"tasks_deleted", taskDeleted,
		"inbox_deleted", inboxDeleted,
		"duration_ms", time.Since(startTime).Milliseconds())
	return nil
}

// RecordDoneMonths 归档COA报告完成月份：zip_existing任务成功的月份
// 记入台账，幂等，已在台账中的月份跳过。
func (s *CleanupService) RecordDoneMonths(ctx context.Context) (int64, error) {
	var tasks []models.ReportTask
	err := s.db.WithContext(ctx).
		Where("task_type = ? AND status = ? AND month <> ''",
			models.ReportTaskTypeZipExisting, models.ReportTaskStatusSuccess).
		Find(&tasks).Error
	if err != nil {
		return 0, fmt.Errorf("查询已完成的打包任务失败: %w", err)
	}

	var recorded int64
	for _, task := range tasks {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.ReportedMonth{}).
			Where("month = ?", task.Month).Count(&count).Error; err != nil {
			return recorded, fmt.Errorf("查询月份台账失败: %w", err)
		}
		if count > 0 {
			continue
		}

		completedAt := time.Now()
		if task.FinishedAt != nil {
			completedAt = *task.FinishedAt
		}
		entry := &models.ReportedMonth{
			Month:       task.Month,
			TaskID:      task.TaskID,
			CompletedAt: completedAt,
		}
		if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
			return recorded, fmt.Errorf("写入月份台账失败: %w", err)
		}
		recorded++
	}
	return recorded, nil
}

// ListDoneMonths 查询已完成归档的报告月份，按月份倒序
func (s *CleanupService) ListDoneMonths(ctx context.Context) ([]models.ReportedMonth, error) {
	var months []models.ReportedMonth
	err := s.db.WithContext(ctx).Order("month DESC").Find(&months).Error
	if err != nil {
		return nil, fmt.Errorf("查询月份台账失败: %w", err)
	}
	return months, nil
}

// CleanupTerminalTasks 清理超过保留期的终态报告任务记录
func (s *CleanupService) CleanupTerminalTasks(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result := s.db.WithContext(ctx).
		Where("status IN ? AND submitted_at < ?",
			[]string{models.ReportTaskStatusSuccess, models.ReportTaskStatusFailed, models.ReportTaskStatusTimeout},
			cutoff).
		Delete(&models.ReportTask{})
	if result.Error != nil {
		return 0, fmt.Errorf("删除报告任务记录失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CleanupDiscardedMessages 清理超过保留期的已丢弃收件箱报文。
// pending与fixed报文留作审计，不清理。
func (s *CleanupService) CleanupDiscardedMessages(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result := s.db.WithContext(ctx).
		Where("status = ? AND received_at < ?", models.InboxStatusDiscarded, cutoff).
		Delete(&models.DeviceMessageInbox{})
	if result.Error != nil {
		return 0, fmt.Errorf("删除收件箱报文失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// StartScheduledCleanup 启动定时保洁任务，每天凌晨2点执行
func (s *CleanupService) StartScheduledCleanup() error {
	if s.started {
		return fmt.Errorf("保洁调度器已经启动")
	}

	_, err := s.cron.AddFunc("0 0 2 * * *", func() {
		if err := s.runOnce(); err != nil {
			slog.Error("定时保洁任务失败", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("添加定时任务失败: %w", err)
	}

	s.cron.Start()
	s.started = true
	slog.Info("保洁调度器启动成功，将于每天凌晨2点执行")
	return nil
}

// runOnce 在分布式锁保护下执行一轮清理
func (s *CleanupService) runOnce() error {
	if s.executor == nil {
		return s.CleanupExpired(s.ctx)
	}
	return s.executor.ExecuteWithLock(s.ctx, "daily_cleanup", 10*time.Minute, func() error {
		return s.CleanupExpired(s.ctx)
	})
}

// StopScheduledCleanup 停止定时保洁任务
func (s *CleanupService) StopScheduledCleanup() {
	if !s.started {
		return
	}

	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
	}
	s.started = false
	slog.Info("保洁调度器已停止")
}
