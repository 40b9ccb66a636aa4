/*
 * @module service/standard/conclusion
 * @description 结论派生引擎：按标准区间判定检测结果、计算变异系数并派生重复性结论
 * @architecture 分层架构 - 领域计算层
 * @documentReference ai_docs/column_qc_req.md
 * @stateFlow 原始值/标准文本变更 -> Derive一次性重算 -> 结果与结论成对写回
 * @rules 纯函数，相同输入恒产出相同输出；不可解析的标准或结果一律判为不合格
 * @dependencies math, sort, strconv, strings
 * @refs service/standard/parser.go, service/models/column.go
 */

package standard

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"columnqc-service/service/meta"
	"columnqc-service/service/models"
)

// DefaultCVThreshold 重复性标准文本不可解析时的默认CV阈值
const DefaultCVThreshold = 1.5

// cleanNumber 清洗结果文本，仅保留数字、符号与小数点后解析为浮点数
func cleanNumber(text string) (float64, bool) {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' || r == '+' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// ComputeConclusionByStandard 按标准文本判定结果文本的合格结论
// 结果不可解析、或标准不可解析时一律判为不合格
func ComputeConclusionByStandard(standardText, resultText string) string {
	value, ok := cleanNumber(resultText)
	if !ok {
		return models.ConclusionFail
	}

	r := ParseRangeStandard(standardText)
	if r.IsEmpty() {
		// 无法理解的标准永远不可能被满足
		return models.ConclusionFail
	}

	if r.Min != nil && value < *r.Min {
		return models.ConclusionFail
	}
	if r.Max != nil && value > *r.Max {
		return models.ConclusionFail
	}
	return models.ConclusionPass
}

// CalculateCV 计算分组原始值合并后的变异系数（总体标准差/均值×100）
// 有效数值不足2个时返回0，避免除零或产出误导性的统计量；
// 类别按字典序迭代保证确定性，求和对顺序不敏感，同一多重集恒得同一结果
func CalculateCV(rawValues map[string][]string) float64 {
	categories := make([]string, 0, len(rawValues))
	for category := range rawValues {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var values []float64
	for _, category := range categories {
		for _, raw := range rawValues[category] {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
				continue
			}
			values = append(values, v)
		}
	}

	if len(values) < 2 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 0
	}

	var sqSum float64
	for _, v := range values {
		diff := v - mean
		sqSum += diff * diff
	}
	// 总体标准差，除数为n
	stdDev := math.Sqrt(sqSum / float64(len(values)))

	return stdDev / mean * 100
}

// ParseCVThreshold 解析重复性标准文本中的CV阈值
// 仅保留数字与小数点；为空或不可解析时回退默认阈值1.5
func ParseCVThreshold(standardText string) float64 {
	var b strings.Builder
	for _, r := range standardText {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return DefaultCVThreshold
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) {
		return DefaultCVThreshold
	}
	return v
}

// Derive 对检测数据快照执行一次完整的派生重算，返回新快照
// 重复性项的结果文本与结论在同一次返回中成对更新，调用方整体落库，
// 避免界面观察到结果与结论不一致的中间状态
func Derive(data models.DetectionData) models.DetectionData {
	derived := data.Clone()

	for key, item := range derived {
		if key == meta.DetectionRepeatability {
			cv := CalculateCV(item.RawValues)
			threshold := ParseCVThreshold(item.Standard)
			item.Result = fmt.Sprintf("%.2f%%", cv)
			if cv <= threshold {
				item.Conclusion = models.ConclusionPass
			} else {
				item.Conclusion = models.ConclusionFail
			}
		} else {
			item.Conclusion = ComputeConclusionByStandard(item.Standard, item.Result)
		}
		derived[key] = item
	}

	return derived
}
