/*
 * @module service/standard/service
 * @description 参考标准服务：按柱号/型号查询标准、拼装标准文本、归一化重复性原始值
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/reference_standard_req.md
 * @stateFlow 查询柱信息 -> 缓存/数据库取标准 -> 拼装响应
 * @rules 标准查询以型号为键；重复性原始值容忍三种历史存储形态并归一化为 map[类别][]string
 * @dependencies gorm.io/gorm, github.com/spf13/cast
 * @refs service/standard/cache.go, service/models/standard.go
 */

package standard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cast"
	"gorm.io/gorm"

	"columnqc-service/service/models"
)

// Service 参考标准服务
type Service struct {
	db       *gorm.DB
	cache    Cache
	executor *ScriptExecutor
}

// NewService 创建参考标准服务
func NewService(db *gorm.DB, cache Cache) *Service {
	if cache == nil {
		cache = NewMemoryCache(DefaultCacheTTL)
	}
	return &Service{
		db:       db,
		cache:    cache,
		executor: NewScriptExecutor(),
	}
}

// StandardData 标准查询响应数据，与报表编辑页约定的字段结构
type StandardData struct {
	MinTemperature *float64 `json:"minTemperature"`
	MaxTemperature *float64 `json:"maxTemperature"`
	MinPressure    *float64 `json:"minPressure"`
	MaxPressure    *float64 `json:"maxPressure"`
	MinPeakTime    *float64 `json:"minPeakTime"`
	MaxPeakTime    *float64 `json:"maxPeakTime"`
	MaxCv          *float64 `json:"maxCv"`
}

// GetStandardByColumnSN 按柱号查询适用的参考标准
func (s *Service) GetStandardByColumnSN(ctx context.Context, columnSN string) (*StandardData, error) {
	var column models.ChromatographyColumn
	if err := s.db.WithContext(ctx).First(&column, "column_sn = ?", columnSN).Error; err != nil {
		return nil, fmt.Errorf("查询色谱柱失败: %w", err)
	}

	std, err := s.GetStandardByModel(ctx, column.ColumnModel)
	if err != nil {
		return nil, err
	}

	return &StandardData{
		MinTemperature: std.MinTemperature,
		MaxTemperature: std.MaxTemperature,
		MinPressure:    std.MinPressure,
		MaxPressure:    std.MaxPressure,
		MinPeakTime:    std.MinPeakTime,
		MaxPeakTime:    std.MaxPeakTime,
		MaxCv:          std.MaxCv,
	}, nil
}

// GetStandardByModel 按型号查询启用中的参考标准，优先走缓存
func (s *Service) GetStandardByModel(ctx context.Context, columnModel string) (*models.ReferenceStandard, error) {
	if std, ok := s.cache.Get(ctx, columnModel); ok {
		return std, nil
	}

	var std models.ReferenceStandard
	if err := s.db.WithContext(ctx).
		First(&std, "column_model = ? AND is_enabled = ?", columnModel, true).Error; err != nil {
		return nil, fmt.Errorf("查询参考标准失败: %w", err)
	}

	s.cache.Set(ctx, columnModel, &std)
	return &std, nil
}

// SaveStandard 保存参考标准并失效缓存
func (s *Service) SaveStandard(ctx context.Context, std *models.ReferenceStandard) error {
	if err := s.db.WithContext(ctx).Save(std).Error; err != nil {
		return fmt.Errorf("保存参考标准失败: %w", err)
	}
	s.cache.Invalidate(ctx, std.ColumnModel)
	return nil
}

// ListStandards 查询参考标准列表
func (s *Service) ListStandards(ctx context.Context, columnModel string) ([]models.ReferenceStandard, error) {
	var standards []models.ReferenceStandard
	query := s.db.WithContext(ctx).Order("column_model")
	if columnModel != "" {
		query = query.Where("column_model = ?", columnModel)
	}
	if err := query.Find(&standards).Error; err != nil {
		return nil, fmt.Errorf("查询参考标准列表失败: %w", err)
	}
	return standards, nil
}

// FormatRangeText 将上下界拼装为标准文本，与解析器的写法约定一致
func FormatRangeText(min, max *float64) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("%s ~ %s", formatNumber(*min), formatNumber(*max))
	case min != nil:
		return fmt.Sprintf(">= %s", formatNumber(*min))
	case max != nil:
		return fmt.Sprintf("<= %s", formatNumber(*max))
	default:
		return ""
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// JudgeResult 按参考标准判定数值结果
// 配置了自定义判定脚本时优先走脚本，脚本失败降级为不合格
func (s *Service) JudgeResult(std *models.ReferenceStandard, standardText string, result float64) string {
	if std != nil && std.JudgeScript != "" {
		passed, err := s.executor.Judge(std.JudgeScript, result)
		if err != nil {
			return models.ConclusionFail
		}
		if passed {
			return models.ConclusionPass
		}
		return models.ConclusionFail
	}
	return ComputeConclusionByStandard(standardText, strconv.FormatFloat(result, 'f', -1, 64))
}

// NormalizeRawValues 归一化重复性原始值
// 容忍三种历史形态：类别->数组、类别->JSON字符串、对象数组[{type, values|testValue}]
func NormalizeRawValues(raw json.RawMessage) (map[string][]string, error) {
	if len(raw) == 0 {
		return map[string][]string{}, nil
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("原始值不是合法JSON: %w", err)
	}

	normalized := make(map[string][]string)

	switch v := decoded.(type) {
	case map[string]interface{}:
		for category, entry := range v {
			switch values := entry.(type) {
			case []interface{}:
				normalized[category] = toStringSlice(values)
			case string:
				// 类别值本身是JSON字符串形态
				var nested []interface{}
				if err := json.Unmarshal([]byte(values), &nested); err != nil {
					return nil, fmt.Errorf("类别 %s 的原始值无法解析: %w", category, err)
				}
				normalized[category] = toStringSlice(nested)
			default:
				return nil, fmt.Errorf("类别 %s 的原始值形态不支持", category)
			}
		}

	case []interface{}:
		// 对象数组形态：[{type: 类别, values: [...]}] 或 [{type: 类别, testValue: "..."}]
		for idx, entry := range v {
			obj, ok := entry.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("第 %d 个原始值记录不是对象", idx)
			}
			category := cast.ToString(obj["type"])
			if category == "" {
				return nil, fmt.Errorf("第 %d 个原始值记录缺少类别", idx)
			}
			if values, ok := obj["values"].([]interface{}); ok {
				normalized[category] = append(normalized[category], toStringSlice(values)...)
			} else if tv, ok := obj["testValue"]; ok {
				normalized[category] = append(normalized[category], cast.ToString(tv))
			}
		}

	default:
		return nil, fmt.Errorf("原始值形态不支持")
	}

	return normalized, nil
}

// SortedCategories 返回按字典序排序的类别列表，迭代确定性用
func SortedCategories(rawValues map[string][]string) []string {
	categories := make([]string, 0, len(rawValues))
	for category := range rawValues {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

func toStringSlice(values []interface{}) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		result = append(result, cast.ToString(v))
	}
	return result
}
