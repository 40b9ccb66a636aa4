/*
 * @module service/standard/parser
 * @description 标准文本解析器，将人工录入的阈值文本解析为数值上下界
 * @architecture 分层架构 - 领域计算层
 * @documentReference ai_docs/reference_standard_req.md
 * @stateFlow N/A
 * @rules 按 "A ~ B" / ">= A" / "<= A" 顺序匹配；无法识别的文本静默降级为空区间，不抛错
 * @dependencies regexp, strconv
 * @refs service/standard/conclusion.go
 */

package standard

import (
	"regexp"
	"strconv"
)

var (
	rangePattern      = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*~\s*(-?\d+(?:\.\d+)?)`)
	lowerBoundPattern = regexp.MustCompile(`>=\s*(-?\d+(?:\.\d+)?)`)
	upperBoundPattern = regexp.MustCompile(`<=\s*(-?\d+(?:\.\d+)?)`)
)

// Range 标准区间，Min/Max 为 nil 表示该侧无约束
// 两侧均为 nil 表示标准文本无法解析，任何结果与之比较都应判为不合格
type Range struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// IsEmpty 判断区间是否为空（标准不可解析）
func (r Range) IsEmpty() bool {
	return r.Min == nil && r.Max == nil
}

// ParseRangeStandard 解析标准文本为数值区间
// 支持 "20 ~ 30"、">= 10"、"<= 1.5%" 三种写法，其余文本（含空串）返回空区间
func ParseRangeStandard(text string) Range {
	if text == "" {
		return Range{}
	}

	if m := rangePattern.FindStringSubmatch(text); m != nil {
		min, err1 := strconv.ParseFloat(m[1], 64)
		max, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil {
			return Range{Min: &min, Max: &max}
		}
		return Range{}
	}

	if m := lowerBoundPattern.FindStringSubmatch(text); m != nil {
		if min, err := strconv.ParseFloat(m[1], 64); err == nil {
			return Range{Min: &min}
		}
		return Range{}
	}

	if m := upperBoundPattern.FindStringSubmatch(text); m != nil {
		if max, err := strconv.ParseFloat(m[1], 64); err == nil {
			return Range{Max: &max}
		}
		return Range{}
	}

	return Range{}
}
