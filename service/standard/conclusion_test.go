/*
 * @module service/standard/conclusion_test
 * @description 结论派生引擎测试：标准判定、CV计算与整体派生重算
 * @architecture 测试层 - 领域计算验证
 * @documentReference ai_docs/column_qc_req.md
 * @stateFlow 构造检测数据 -> 派生计算 -> 断言结论
 * @rules 覆盖边界值、不可解析输入与多重集顺序不变性
 * @dependencies testing, testify
 * @refs conclusion.go
 */

package standard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"columnqc-service/service/meta"
	"columnqc-service/service/models"
)

func TestComputeConclusionByStandard(t *testing.T) {
	tests := []struct {
		name     string
		standard string
		result   string
		want     string
	}{
		{"区间内合格", "20 ~ 30", "25", models.ConclusionPass},
		{"区间下界合格", "20 ~ 30", "20", models.ConclusionPass},
		{"区间上界合格", "20 ~ 30", "30", models.ConclusionPass},
		{"超出上界不合格", "20 ~ 30", "31", models.ConclusionFail},
		{"低于下界不合格", "20 ~ 30", "19.9", models.ConclusionFail},
		{"仅下界满足", ">= 10", "10.5", models.ConclusionPass},
		{"仅下界不满足", ">= 10", "9", models.ConclusionFail},
		{"仅上界满足", "<= 1.5", "1.2", models.ConclusionPass},
		{"结果带单位可清洗", "20 ~ 30", "25℃", models.ConclusionPass},
		{"空标准不合格", "", "25", models.ConclusionFail},
		{"不可解析标准不合格", "n/a", "25", models.ConclusionFail},
		{"不可解析结果不合格", "20 ~ 30", "abc", models.ConclusionFail},
		{"空结果不合格", "20 ~ 30", "", models.ConclusionFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeConclusionByStandard(tt.standard, tt.result))
		})
	}
}

func TestComputeConclusionByStandardIdempotent(t *testing.T) {
	// 纯函数：相同输入多次调用结果一致，与调用顺序无关
	first := ComputeConclusionByStandard("20 ~ 30", "25")
	ComputeConclusionByStandard("", "bad")
	second := ComputeConclusionByStandard("20 ~ 30", "25")
	assert.Equal(t, first, second)
}

func TestCalculateCV(t *testing.T) {
	t.Run("零方差两个值", func(t *testing.T) {
		cv := CalculateCV(map[string][]string{"A": {"10", "10"}})
		assert.Equal(t, 0.0, cv)
	})

	t.Run("不足两个有效值返回0", func(t *testing.T) {
		assert.Equal(t, 0.0, CalculateCV(map[string][]string{"A": {"5"}}))
		assert.Equal(t, 0.0, CalculateCV(map[string][]string{}))
		assert.Equal(t, 0.0, CalculateCV(map[string][]string{"A": {"abc", "5"}}))
	})

	t.Run("总体标准差除数为n", func(t *testing.T) {
		// 值 {4, 6}: 均值5，总体标准差1，CV=20
		cv := CalculateCV(map[string][]string{"糖化模式": {"4", "6"}})
		assert.InDelta(t, 20.0, cv, 1e-9)
	})

	t.Run("同一多重集跨类别重排结果不变", func(t *testing.T) {
		a := CalculateCV(map[string][]string{"A": {"4.8", "5.2"}, "B": {"5.0", "5.1"}})
		b := CalculateCV(map[string][]string{"B": {"5.1", "4.8"}, "A": {"5.2", "5.0"}})
		assert.InDelta(t, a, b, 1e-9)
	})

	t.Run("非数值条目被跳过", func(t *testing.T) {
		withJunk := CalculateCV(map[string][]string{"A": {"4", "无效", "6"}})
		clean := CalculateCV(map[string][]string{"A": {"4", "6"}})
		assert.InDelta(t, clean, withJunk, 1e-9)
	})
}

func TestParseCVThreshold(t *testing.T) {
	assert.InDelta(t, 1.5, ParseCVThreshold(""), 1e-9)
	assert.InDelta(t, 1.5, ParseCVThreshold("无标准"), 1e-9)
	assert.InDelta(t, 2.0, ParseCVThreshold("CV <= 2.0%"), 1e-9)
	assert.InDelta(t, 1.2, ParseCVThreshold("1.2"), 1e-9)
}

func TestDerive(t *testing.T) {
	t.Run("范围项与重复性项成对重算", func(t *testing.T) {
		data := models.DetectionData{
			meta.DetectionTemperature: {Standard: "20 ~ 30", Result: "25"},
			meta.DetectionPressure:    {Standard: "<= 10", Result: "12"},
			meta.DetectionRepeatability: {
				Standard:  "1.5",
				RawValues: map[string][]string{"糖化模式": {"5.0", "5.0"}},
			},
		}

		derived := Derive(data)

		assert.Equal(t, models.ConclusionPass, derived[meta.DetectionTemperature].Conclusion)
		assert.Equal(t, models.ConclusionFail, derived[meta.DetectionPressure].Conclusion)
		// 重复性结果与结论在同一快照中成对更新
		assert.Equal(t, "0.00%", derived[meta.DetectionRepeatability].Result)
		assert.Equal(t, models.ConclusionPass, derived[meta.DetectionRepeatability].Conclusion)
	})

	t.Run("CV超阈值判不合格", func(t *testing.T) {
		data := models.DetectionData{
			meta.DetectionRepeatability: {
				Standard:  "1.5",
				RawValues: map[string][]string{"A": {"4", "6"}}, // CV=20
			},
		}

		derived := Derive(data)
		assert.Equal(t, "20.00%", derived[meta.DetectionRepeatability].Result)
		assert.Equal(t, models.ConclusionFail, derived[meta.DetectionRepeatability].Conclusion)
	})

	t.Run("不修改原始快照", func(t *testing.T) {
		data := models.DetectionData{
			meta.DetectionTemperature: {Standard: "20 ~ 30", Result: "25"},
		}

		Derive(data)
		assert.Equal(t, "", data[meta.DetectionTemperature].Conclusion)
	})
}
