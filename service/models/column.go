/*
 * @module service/models/column
 * @description 色谱柱模型，包含检测数据快照与审核状态
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference ai_docs/column_qc_req.md
 * @stateFlow 待审核 -> 审核通过/审核拒绝
 * @rules 检测数据以JSONB快照存储，结论字段由系统派生，不允许手工直接落库
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/column, service/standard
 */

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 色谱柱审核状态
const (
	ColumnStatusPending  = "pending"
	ColumnStatusApproved = "approved"
	ColumnStatusRejected = "rejected"
)

// 检测结论
const (
	ConclusionPass = "pass"
	ConclusionFail = "fail"
)

// DetectionItem 单个检测维度的数据
// RawValues 仅重复性检测项存在，按类别（如"糖化模式"）分组存放原始重复测量值
type DetectionItem struct {
	Standard   string              `json:"standard"`
	Result     string              `json:"result"`
	Conclusion string              `json:"conclusion"`
	RawValues  map[string][]string `json:"rawValues,omitempty"`
}

// DetectionData 检测数据快照，键为检测维度（temperature/pressure/peakTime/repeatabilityTest）
type DetectionData map[string]DetectionItem

// 实现 Scanner 接口
func (d *DetectionData) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("类型断言失败: 不是 []byte 或 string")
	}
	return json.Unmarshal(bytes, d)
}

// 实现 Valuer 接口
func (d DetectionData) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// Clone 深拷贝检测数据快照，用于差异对比的基线
func (d DetectionData) Clone() DetectionData {
	if d == nil {
		return nil
	}
	cloned := make(DetectionData, len(d))
	for key, item := range d {
		copied := DetectionItem{
			Standard:   item.Standard,
			Result:     item.Result,
			Conclusion: item.Conclusion,
		}
		if item.RawValues != nil {
			copied.RawValues = make(map[string][]string, len(item.RawValues))
			for category, values := range item.RawValues {
				copied.RawValues[category] = append([]string(nil), values...)
			}
		}
		cloned[key] = copied
	}
	return cloned
}

// ChromatographyColumn 色谱柱模型
type ChromatographyColumn struct {
	ID            string        `json:"id" gorm:"primaryKey;type:varchar(36)" example:"550e8400-e29b-41d4-a716-446655440000"`
	ColumnSN      string        `json:"column_sn" gorm:"not null;uniqueIndex;size:64" example:"LC2024-00123"`
	ColumnModel   string        `json:"column_model" gorm:"not null;size:64;index" example:"HbA1c-C18"`
	BatchNo       string        `json:"batch_no" gorm:"size:64;index" example:"B20240801"`
	Status        string        `json:"status" gorm:"not null;size:20;default:'pending';index" example:"pending"` // pending, approved, rejected
	DetectionData DetectionData `json:"detection_data,omitempty" gorm:"type:jsonb"`
	// 仪器上传的重复性原始数据，历史上存在多种形态，查询时统一归一化
	RepeatabilityRaw string     `json:"repeatability_raw,omitempty" gorm:"type:text"`
	Reviewer         string     `json:"reviewer,omitempty" gorm:"size:100"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	Remark           string     `json:"remark,omitempty" gorm:"type:text"`
	CreatedAt        time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate GORM钩子，创建前生成UUID
func (c *ChromatographyColumn) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// CanApprove 判断色谱柱是否可以审核通过
func (c *ChromatographyColumn) CanApprove() bool {
	return c.Status == ColumnStatusPending
}

// IsReviewed 判断色谱柱是否已完成审核
func (c *ChromatographyColumn) IsReviewed() bool {
	return c.Status == ColumnStatusApproved || c.Status == ColumnStatusRejected
}

// ChangeLogEntry 检测数据变更日志
// Source 区分操作员修改（user）与系统派生字段重算（auto），用于审计追溯
type ChangeLogEntry struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ColumnSN  string    `json:"column_sn" gorm:"not null;size:64;index"`
	FieldPath string    `json:"field_path" gorm:"not null;size:255" example:"detectionData.temperature.result"`
	OldValue  string    `json:"old_value" gorm:"type:text"`
	NewValue  string    `json:"new_value" gorm:"type:text"`
	Source    string    `json:"source" gorm:"not null;size:10" example:"user"` // auto, user
	ChangedAt time.Time `json:"changed_at" gorm:"not null;index"`
	ChangedBy string    `json:"changed_by,omitempty" gorm:"size:100"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate GORM钩子，创建前生成UUID
func (e *ChangeLogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// ChangeSource 变更来源常量
const (
	ChangeSourceAuto = "auto"
	ChangeSourceUser = "user"
)
