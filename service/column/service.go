/*
 * @module service/column/service
 * @description 色谱柱业务服务：不合格柱检测数据编辑保存、变更日志、批量审核
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/column_qc_req.md
 * @stateFlow 加载基线 -> 派生重算 -> 差异对比 -> 柱数据与变更日志同事务落库
 * @rules 保存前必须完成派生重算，结论字段永远以重算结果为准；失败的保存不留下部分写入
 * @dependencies gorm.io/gorm
 * @refs service/column/differ.go, service/standard
 */

package column

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"columnqc-service/service/meta"
	"columnqc-service/service/models"
	"columnqc-service/service/standard"
)

// ErrColumnNotFound 色谱柱不存在
var ErrColumnNotFound = errors.New("色谱柱不存在")

// Service 色谱柱业务服务
type Service struct {
	db *gorm.DB
}

// NewService 创建色谱柱业务服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ListFilter 色谱柱列表查询条件
type ListFilter struct {
	ColumnSN    string
	ColumnModel string
	BatchNo     string
	Status      string
	Page        int
	Size        int
}

// ListColumns 分页查询色谱柱列表
func (s *Service) ListColumns(ctx context.Context, filter ListFilter) ([]models.ChromatographyColumn, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Size <= 0 {
		filter.Size = 10
	}

	query := s.db.WithContext(ctx).Model(&models.ChromatographyColumn{})
	if filter.ColumnSN != "" {
		query = query.Where("column_sn LIKE ?", "%"+filter.ColumnSN+"%")
	}
	if filter.ColumnModel != "" {
		query = query.Where("column_model = ?", filter.ColumnModel)
	}
	if filter.BatchNo != "" {
		query = query.Where("batch_no = ?", filter.BatchNo)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计色谱柱数量失败: %w", err)
	}

	var columns []models.ChromatographyColumn
	if err := query.Order("created_at DESC").
		Offset((filter.Page - 1) * filter.Size).
		Limit(filter.Size).
		Find(&columns).Error; err != nil {
		return nil, 0, fmt.Errorf("查询色谱柱列表失败: %w", err)
	}

	return columns, total, nil
}

// GetColumn 按柱号查询色谱柱
func (s *Service) GetColumn(ctx context.Context, columnSN string) (*models.ChromatographyColumn, error) {
	var column models.ChromatographyColumn
	if err := s.db.WithContext(ctx).First(&column, "column_sn = ?", columnSN).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrColumnNotFound
		}
		return nil, fmt.Errorf("查询色谱柱失败: %w", err)
	}
	return &column, nil
}

// SaveDetectionResult 保存检测数据的结果
type SaveDetectionResult struct {
	Column     *models.ChromatographyColumn `json:"column"`
	ChangeLogs []models.ChangeLogEntry      `json:"change_logs"`
}

// SaveDetection 保存编辑后的检测数据快照
// 流程：加载基线 -> 校验维度 -> 派生重算(结果与结论成对更新) -> 差异对比 -> 同事务落库
func (s *Service) SaveDetection(ctx context.Context, columnSN string, edited models.DetectionData, operator string) (*SaveDetectionResult, error) {
	column, err := s.GetColumn(ctx, columnSN)
	if err != nil {
		return nil, err
	}

	for key := range edited {
		if !meta.IsValidDetectionKind(key) {
			return nil, fmt.Errorf("无效的检测维度: %s", key)
		}
	}

	baseline := column.DetectionData.Clone()
	derived := standard.Derive(edited)

	changeLogs := BuildChangeLogs(baseline, derived, time.Now())
	for i := range changeLogs {
		changeLogs[i].ColumnSN = columnSN
		changeLogs[i].ChangedBy = operator
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ChromatographyColumn{}).
			Where("column_sn = ?", columnSN).
			Update("detection_data", derived).Error; err != nil {
			return fmt.Errorf("更新检测数据失败: %w", err)
		}

		if len(changeLogs) > 0 {
			if err := tx.Create(&changeLogs).Error; err != nil {
				return fmt.Errorf("写入变更日志失败: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	column.DetectionData = derived
	return &SaveDetectionResult{Column: column, ChangeLogs: changeLogs}, nil
}

// GetChangeLogs 查询色谱柱的变更日志，按变更时间倒序
func (s *Service) GetChangeLogs(ctx context.Context, columnSN string) ([]models.ChangeLogEntry, error) {
	var logs []models.ChangeLogEntry
	if err := s.db.WithContext(ctx).
		Where("column_sn = ?", columnSN).
		Order("changed_at DESC, field_path").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("查询变更日志失败: %w", err)
	}
	return logs, nil
}

// BatchApproveResult 批量审核结果
type BatchApproveResult struct {
	Success int               `json:"success"`
	Fail    int               `json:"fail"`
	Failed  map[string]string `json:"failed,omitempty"` // 柱号 -> 失败原因
}

// BatchApprove 批量审核通过
// 逐柱处理并累积每柱的失败原因，单柱失败不影响其余柱
func (s *Service) BatchApprove(ctx context.Context, columnSNs []string, reviewer string) (*BatchApproveResult, error) {
	if len(columnSNs) == 0 {
		return nil, errors.New("柱号列表不能为空")
	}

	result := &BatchApproveResult{Failed: make(map[string]string)}
	now := time.Now()

	for _, sn := range columnSNs {
		column, err := s.GetColumn(ctx, sn)
		if err != nil {
			result.Fail++
			result.Failed[sn] = err.Error()
			continue
		}

		if !column.CanApprove() {
			result.Fail++
			result.Failed[sn] = fmt.Sprintf("当前状态不允许审核: %s", column.Status)
			continue
		}

		if hasFailedConclusion(column.DetectionData) {
			result.Fail++
			result.Failed[sn] = "存在不合格的检测结论"
			continue
		}

		updates := map[string]interface{}{
			"status":      models.ColumnStatusApproved,
			"reviewer":    reviewer,
			"reviewed_at": now,
		}
		if err := s.db.WithContext(ctx).Model(&models.ChromatographyColumn{}).
			Where("column_sn = ?", sn).
			Updates(updates).Error; err != nil {
			result.Fail++
			result.Failed[sn] = fmt.Sprintf("更新审核状态失败: %v", err)
			continue
		}

		result.Success++
	}

	if len(result.Failed) == 0 {
		result.Failed = nil
	}
	return result, nil
}

// GetRepeatability 查询柱的重复性原始值，统一归一化为 map[类别][]string
// 优先取检测数据快照中的原始值；快照缺失时回退解析仪器上传的历史形态数据
func (s *Service) GetRepeatability(ctx context.Context, columnSN string) (map[string][]string, error) {
	column, err := s.GetColumn(ctx, columnSN)
	if err != nil {
		return nil, err
	}

	if item, ok := column.DetectionData[meta.DetectionRepeatability]; ok && len(item.RawValues) > 0 {
		return item.RawValues, nil
	}

	if column.RepeatabilityRaw == "" {
		return map[string][]string{}, nil
	}

	normalized, err := standard.NormalizeRawValues(json.RawMessage(column.RepeatabilityRaw))
	if err != nil {
		return nil, fmt.Errorf("归一化重复性原始值失败: %w", err)
	}
	return normalized, nil
}

// hasFailedConclusion 判断检测数据中是否存在不合格结论
func hasFailedConclusion(data models.DetectionData) bool {
	for _, item := range data {
		if item.Conclusion == models.ConclusionFail {
			return true
		}
	}
	return false
}
