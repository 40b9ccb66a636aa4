/*
 * @module service/models/report_task
 * @description 报告任务本地记录模型，跟踪提交到报告引擎的异步任务
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference ai_docs/report_task_req.md
 * @stateFlow 任务提交 -> 待执行 -> 执行中 -> 成功/失败/超时
 * @rules 状态流转由轮询循环驱动，success/failed/timeout为终态；timeout是客户端侧判定，服务端任务可能仍在执行
 * @dependencies gorm.io/gorm, github.com/google/uuid, github.com/lib/pq
 * @refs service/report, client
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// 报告任务类型
const (
	ReportTaskTypeGenerate    = "generate"     // 生成COA报告
	ReportTaskTypeGenerateZip = "generate_zip" // 生成报告并打包
	ReportTaskTypeZipExisting = "zip_existing" // 打包已有报告
)

// 报告任务本地状态
const (
	ReportTaskStatusPending = "pending"
	ReportTaskStatusRunning = "running"
	ReportTaskStatusSuccess = "success"
	ReportTaskStatusFailed  = "failed"
	ReportTaskStatusTimeout = "timeout" // 客户端等待超时，服务端任务可能仍在执行
)

// ReportTask 报告任务本地记录
type ReportTask struct {
	ID           string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	TaskID       string         `json:"task_id" gorm:"not null;uniqueIndex;size:64" example:"rt-20240801-0001"`
	TaskType     string         `json:"task_type" gorm:"not null;size:20" example:"generate_zip"`
	Status       string         `json:"status" gorm:"not null;size:20;default:'pending';index" example:"pending"`
	ColumnSNs    pq.StringArray `json:"column_sns" gorm:"type:text[]"`
	Month        string         `json:"month,omitempty" gorm:"size:7;index" example:"2024-08"` // zip_existing任务打包的月份

	SuccessCount int            `json:"success_count" gorm:"default:0"`
	FailCount    int            `json:"fail_count" gorm:"default:0"`
	FailedItems  JSONBStringMap `json:"failed_items,omitempty" gorm:"type:jsonb"` // 柱号 -> 失败原因
	ErrorMessage string         `json:"error_message,omitempty" gorm:"type:text"`
	SubmittedBy  string         `json:"submitted_by" gorm:"size:100;default:'system'"`
	SubmittedAt  time.Time      `json:"submitted_at" gorm:"not null"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate GORM钩子，创建前生成UUID
func (t *ReportTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.SubmittedAt.IsZero() {
		t.SubmittedAt = time.Now()
	}
	return nil
}

// IsTerminal 判断任务是否处于终态
func (t *ReportTask) IsTerminal() bool {
	terminalStatuses := map[string]bool{
		ReportTaskStatusSuccess: true,
		ReportTaskStatusFailed:  true,
		ReportTaskStatusTimeout: true,
	}
	return terminalStatuses[t.Status]
}

// CanDownload 判断任务产物是否可以下载
func (t *ReportTask) CanDownload() bool {
	return t.Status == ReportTaskStatusSuccess &&
		(t.TaskType == ReportTaskTypeGenerateZip || t.TaskType == ReportTaskTypeZipExisting)
}
