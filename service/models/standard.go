/*
 * @module service/models/standard
 * @description 参考标准模型，按色谱柱型号维护各检测维度的判定阈值
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference ai_docs/reference_standard_req.md
 * @stateFlow N/A
 * @rules 同一型号仅允许一条启用中的标准；自定义判定脚本仅在范围标准无法表达时使用
 * @dependencies gorm.io/gorm, github.com/google/uuid, github.com/lib/pq
 * @refs service/standard
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ReferenceStandard 参考标准，按柱型号定义各检测维度的合格范围
type ReferenceStandard struct {
	ID               string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ColumnModel      string         `json:"column_model" gorm:"not null;uniqueIndex;size:64" example:"HbA1c-C18"`
	MinTemperature   *float64       `json:"min_temperature,omitempty"`
	MaxTemperature   *float64       `json:"max_temperature,omitempty"`
	MinPressure      *float64       `json:"min_pressure,omitempty"`
	MaxPressure      *float64       `json:"max_pressure,omitempty"`
	MinPeakTime      *float64       `json:"min_peak_time,omitempty"`
	MaxPeakTime      *float64       `json:"max_peak_time,omitempty"`
	MaxCv            *float64       `json:"max_cv,omitempty" example:"1.5"`
	ApplicableModels pq.StringArray `json:"applicable_models,omitempty" gorm:"type:text[]"` // 兼容型号列表
	JudgeScript      string         `json:"judge_script,omitempty" gorm:"type:text"`        // 自定义判定脚本，可选
	IsEnabled        bool           `json:"is_enabled" gorm:"default:true"`
	CreatedAt        time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate GORM钩子，创建前生成UUID
func (s *ReferenceStandard) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// AppliesTo 判断标准是否适用于指定型号
func (s *ReferenceStandard) AppliesTo(columnModel string) bool {
	if s.ColumnModel == columnModel {
		return true
	}
	for _, m := range s.ApplicableModels {
		if m == columnModel {
			return true
		}
	}
	return false
}
