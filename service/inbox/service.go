/*
 * @module service/inbox/service
 * @description 设备报文收件箱业务服务：报文入箱、字段查看、人工修复保存与丢弃
 * @architecture 服务层 - 收件箱生命周期管理
 * @documentReference ai_docs/device_inbox_req.md
 * @stateFlow 接入报文归一化入箱(pending) -> 字段展平查看 -> 修复保存(fixed) / 丢弃(discarded)
 * @rules 原始报文入箱后不可覆盖写；不可解析报文禁止保存修复；HTTP直传必须通过设备凭证校验
 * @dependencies gorm.io/gorm, columnqc-service/service/utils, log/slog
 * @refs service/inbox/mapper.go, client/connectors, api/controllers/inbox_controller.go
 */

package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"columnqc-service/service/models"
	"columnqc-service/service/utils"
)

var (
	// ErrMessageNotFound 报文不存在
	ErrMessageNotFound = errors.New("收件箱报文不存在")
	// ErrMessageNotFixable 报文不可修复保存
	ErrMessageNotFixable = errors.New("报文不可修复: 已处理或原始报文不是合法JSON")
	// ErrCredentialInvalid 设备凭证无效
	ErrCredentialInvalid = errors.New("设备凭证无效或已停用")
)

// Service 收件箱业务服务
type Service struct {
	db *gorm.DB
}

// NewService 创建收件箱业务服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Ingest 接入一条设备报文：字符集归一化后入箱，记录是否为合法JSON
func (s *Service) Ingest(ctx context.Context, deviceSN, source string, payload []byte) (*models.DeviceMessageInbox, error) {
	normalized := utils.NormalizePayload(payload)

	msg := &models.DeviceMessageInbox{
		DeviceSN:   deviceSN,
		Source:     source,
		RawJSON:    string(normalized),
		Parseable:  json.Valid(normalized),
		Status:     models.InboxStatusPending,
		ReceivedAt: time.Now(),
	}

	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("报文入箱失败: %w", err)
	}

	if !msg.Parseable {
		slog.Warn("收到不可解析的设备报文", "device_sn", deviceSN, "source", source, "bytes", len(payload))
	}
	return msg, nil
}

// VerifyCredential 校验HTTP直传的设备凭证并刷新最后使用时间
func (s *Service) VerifyCredential(ctx context.Context, accessKey, secret string) (*models.DeviceCredential, error) {
	var cred models.DeviceCredential
	err := s.db.WithContext(ctx).
		Where("access_key = ? AND is_enabled = ?", accessKey, true).
		First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCredentialInvalid
		}
		return nil, fmt.Errorf("查询设备凭证失败: %w", err)
	}
	if !cred.VerifySecret(secret) {
		return nil, ErrCredentialInvalid
	}

	now := time.Now()
	s.db.WithContext(ctx).Model(&cred).Update("last_used_at", now)
	return &cred, nil
}

// ListFilter 收件箱列表过滤条件
type ListFilter struct {
	Status   string
	DeviceSN string
	Page     int
	Size     int
}

// ListMessages 分页查询收件箱报文
func (s *Service) ListMessages(ctx context.Context, filter ListFilter) ([]models.DeviceMessageInbox, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.DeviceMessageInbox{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DeviceSN != "" {
		query = query.Where("device_sn = ?", filter.DeviceSN)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计收件箱报文失败: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.Size
	if size < 1 || size > 100 {
		size = 20
	}

	var messages []models.DeviceMessageInbox
	err := query.Order("received_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&messages).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询收件箱报文失败: %w", err)
	}
	return messages, total, nil
}

// GetMessage 查询单条报文
func (s *Service) GetMessage(ctx context.Context, id string) (*models.DeviceMessageInbox, error) {
	var msg models.DeviceMessageInbox
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("查询报文失败: %w", err)
	}
	return &msg, nil
}

// MessageFields 报文的可编辑字段视图
type MessageFields struct {
	ID        string            `json:"id"`
	DeviceSN  string            `json:"device_sn"`
	Status    string            `json:"status"`
	Editable  bool              `json:"editable"`           // 结构化可编辑
	Fields    map[string]string `json:"fields,omitempty"`   // 点分路径 -> 值
	ReadOnly  []string          `json:"read_only"`          // 只读字段路径
	RawText   string            `json:"raw_text,omitempty"` // 不可解析时的整体文本
}

// GetFields 展平报文为可编辑字段。已有修复稿时基于修复稿展平；
// 不可解析的报文降级为整体文本视图。
func (s *Service) GetFields(ctx context.Context, id string) (*MessageFields, error) {
	msg, err := s.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := &MessageFields{
		ID:       msg.ID,
		DeviceSN: msg.DeviceSN,
		Status:   msg.Status,
		ReadOnly: []string{ReadOnlyColumnSN},
	}

	source := msg.RawJSON
	if msg.FixedJSON != "" {
		source = msg.FixedJSON
	}

	obj, ok := ParsePayload(source)
	if !ok {
		fields.Editable = false
		fields.RawText = source
		return fields, nil
	}

	fields.Editable = true
	fields.Fields = Flatten(obj)
	return fields, nil
}

// SaveFix 应用人工字段修正并将报文置为fixed。
// 原始报文保持不变，重建结果写入FixedJSON。
func (s *Service) SaveFix(ctx context.Context, id string, edits map[string]string, operator string) (*models.DeviceMessageInbox, error) {
	msg, err := s.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if !msg.CanFix() {
		return nil, ErrMessageNotFixable
	}

	original, ok := ParsePayload(msg.RawJSON)
	if !ok {
		// Parseable标记与实际内容不一致时同样拒绝保存
		return nil, ErrMessageNotFixable
	}

	rebuilt, err := Rebuild(original, edits)
	if err != nil {
		return nil, fmt.Errorf("重建报文失败: %w", err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"fixed_json": rebuilt,
		"status":     models.InboxStatusFixed,
		"fixed_by":   operator,
		"fixed_at":   now,
	}
	if err := s.db.WithContext(ctx).Model(msg).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("保存修复结果失败: %w", err)
	}

	slog.Info("设备报文已修复", "id", id, "device_sn", msg.DeviceSN, "operator", operator)
	return s.GetMessage(ctx, id)
}

// Discard 丢弃报文
func (s *Service) Discard(ctx context.Context, id string, operator string) error {
	msg, err := s.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	if msg.Status != models.InboxStatusPending {
		return fmt.Errorf("报文已处理，当前状态: %s", msg.Status)
	}

	updates := map[string]interface{}{
		"status":   models.InboxStatusDiscarded,
		"fixed_by": operator,
	}
	return s.db.WithContext(ctx).Model(msg).Updates(updates).Error
}
