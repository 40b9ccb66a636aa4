/*
 * @module service/models/inbox
 * @description 设备报文收件箱模型与设备接入凭证模型
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference ai_docs/device_inbox_req.md
 * @stateFlow 报文入箱(pending) -> 人工修复(fixed) / 丢弃(discarded)
 * @rules 原始报文入箱后不可覆盖写，修复结果写入FixedJSON；柱序列号字段只读
 * @dependencies gorm.io/gorm, github.com/google/uuid, golang.org/x/crypto/bcrypt
 * @refs service/inbox, client/connectors
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// 收件箱报文状态
const (
	InboxStatusPending   = "pending"
	InboxStatusFixed     = "fixed"
	InboxStatusDiscarded = "discarded"
)

// 报文来源
const (
	InboxSourceMQTT  = "mqtt"
	InboxSourceKafka = "kafka"
	InboxSourceHTTP  = "http"
)

// DeviceMessageInbox 设备报文收件箱，存放待人工核对的设备遥测报文
type DeviceMessageInbox struct {
	ID         string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DeviceSN   string     `json:"device_sn" gorm:"size:64;index"`
	Source     string     `json:"source" gorm:"not null;size:10" example:"mqtt"` // mqtt, kafka, http
	RawJSON    string     `json:"raw_json" gorm:"type:text;not null"`            // 原始报文，入箱后不再修改
	FixedJSON  string     `json:"fixed_json,omitempty" gorm:"type:text"`         // 人工修复后的报文
	Parseable  bool       `json:"parseable" gorm:"default:true"`                 // 原始报文是否为合法JSON
	Status     string     `json:"status" gorm:"not null;size:20;default:'pending';index"`
	FixedBy    string     `json:"fixed_by,omitempty" gorm:"size:100"`
	FixedAt    *time.Time `json:"fixed_at,omitempty"`
	ReceivedAt time.Time  `json:"received_at" gorm:"not null;index"`
	CreatedAt  time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate GORM钩子，创建前生成UUID
func (m *DeviceMessageInbox) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = time.Now()
	}
	return nil
}

// CanFix 判断报文是否可以修复保存
func (m *DeviceMessageInbox) CanFix() bool {
	return m.Status == InboxStatusPending && m.Parseable
}

// DeviceCredential 设备接入凭证，HTTP直传报文时校验
type DeviceCredential struct {
	ID         string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AccessKey  string     `json:"access_key" gorm:"not null;uniqueIndex;size:64"`
	SecretHash string     `json:"-" gorm:"not null;size:100"` // bcrypt哈希，不对外输出
	DeviceSN   string     `json:"device_sn" gorm:"size:64;index"`
	IsEnabled  bool       `json:"is_enabled" gorm:"default:true"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate GORM钩子，创建前生成UUID
func (c *DeviceCredential) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// SetSecret 设置设备密钥，存储bcrypt哈希
func (c *DeviceCredential) SetSecret(secret string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.SecretHash = string(hashed)
	return nil
}

// VerifySecret 校验设备密钥
func (c *DeviceCredential) VerifySecret(secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.SecretHash), []byte(secret)) == nil
}
