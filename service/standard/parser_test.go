/*
 * @module service/standard/parser_test
 * @description 标准文本解析器测试
 * @architecture 测试层 - 领域计算验证
 * @documentReference ai_docs/reference_standard_req.md
 * @stateFlow 输入标准文本 -> 解析 -> 断言上下界
 * @rules 覆盖三种合法写法与降级场景
 * @dependencies testing, testify
 * @refs parser.go
 */

package standard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRangeStandard(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantMin *float64
		wantMax *float64
	}{
		{
			name:    "闭区间",
			text:    "20 ~ 30",
			wantMin: floatPtr(20),
			wantMax: floatPtr(30),
		},
		{
			name:    "闭区间无空格",
			text:    "0.5~1.5",
			wantMin: floatPtr(0.5),
			wantMax: floatPtr(1.5),
		},
		{
			name:    "负数闭区间",
			text:    "-5 ~ 5",
			wantMin: floatPtr(-5),
			wantMax: floatPtr(5),
		},
		{
			name:    "仅下界",
			text:    ">= 10",
			wantMin: floatPtr(10),
			wantMax: nil,
		},
		{
			name:    "仅上界",
			text:    "<= 1.5",
			wantMin: nil,
			wantMax: floatPtr(1.5),
		},
		{
			name:    "上界带百分号",
			text:    "<= 1.5%",
			wantMin: nil,
			wantMax: floatPtr(1.5),
		},
		{
			name:    "空文本",
			text:    "",
			wantMin: nil,
			wantMax: nil,
		},
		{
			name:    "无法识别的文本",
			text:    "n/a",
			wantMin: nil,
			wantMax: nil,
		},
		{
			name:    "纯数字不构成区间",
			text:    "25",
			wantMin: nil,
			wantMax: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ParseRangeStandard(tt.text)

			if tt.wantMin == nil {
				assert.Nil(t, r.Min)
			} else {
				assert.NotNil(t, r.Min)
				assert.InDelta(t, *tt.wantMin, *r.Min, 1e-9)
			}

			if tt.wantMax == nil {
				assert.Nil(t, r.Max)
			} else {
				assert.NotNil(t, r.Max)
				assert.InDelta(t, *tt.wantMax, *r.Max, 1e-9)
			}
		})
	}
}

func TestRangeIsEmpty(t *testing.T) {
	assert.True(t, ParseRangeStandard("乱写的标准").IsEmpty())
	assert.False(t, ParseRangeStandard(">= 0").IsEmpty())
}

func floatPtr(v float64) *float64 {
	return &v
}
