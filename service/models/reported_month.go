/*
 * @module service/models/reported_month
 * @description COA报告完成月份台账模型，记录已成功打包归档的报告月份
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference ai_docs/cleanup_design.md
 * @stateFlow zip_existing任务成功 -> 保洁服务归档月份 -> 台账长期保留
 * @rules 月份唯一；台账独立于任务记录存在，任务记录过保留期清理后月份完成状态仍可查
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/cleanup, service/models/report_task.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportedMonth COA报告完成月份台账
type ReportedMonth struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Month       string    `json:"month" gorm:"not null;uniqueIndex;size:7" example:"2024-08"` // YYYY-MM
	TaskID      string    `json:"task_id" gorm:"not null;size:64"`                            // 完成该月打包的任务ID
	CompletedAt time.Time `json:"completed_at" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate GORM钩子，创建前生成UUID
func (m *ReportedMonth) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
