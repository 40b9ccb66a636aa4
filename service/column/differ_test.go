/*
 * @module service/column/differ_test
 * @description 检测数据差异对比器测试
 * @architecture 测试层 - 领域计算验证
 * @documentReference ai_docs/column_qc_req.md
 * @stateFlow 构造基线与编辑快照 -> 差异对比 -> 断言变更日志
 * @rules 覆盖幂等、来源分类、原始值增删与时间戳共享
 * @dependencies testing, testify
 * @refs differ.go
 */

package column

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"columnqc-service/service/meta"
	"columnqc-service/service/models"
)

func TestBuildChangeLogsIdenticalSnapshots(t *testing.T) {
	data := models.DetectionData{
		meta.DetectionTemperature: {Standard: "20 ~ 30", Result: "25", Conclusion: models.ConclusionPass},
		meta.DetectionRepeatability: {
			Standard:   "1.5",
			Result:     "0.50%",
			Conclusion: models.ConclusionPass,
			RawValues:  map[string][]string{"糖化模式": {"5.0", "5.1"}},
		},
	}

	logs := BuildChangeLogs(data, data.Clone(), time.Now())
	assert.Empty(t, logs)
}

func TestBuildChangeLogsSingleRawValueEdit(t *testing.T) {
	baseline := models.DetectionData{
		meta.DetectionRepeatability: {
			Standard:   "1.5",
			Result:     "0.50%",
			Conclusion: models.ConclusionPass,
			RawValues:  map[string][]string{"糖化模式": {"4.9", "5.1", "5.0"}},
		},
	}
	current := baseline.Clone()
	item := current[meta.DetectionRepeatability]
	item.RawValues["糖化模式"][2] = "5.2"
	current[meta.DetectionRepeatability] = item

	logs := BuildChangeLogs(baseline, current, time.Now())

	require.Len(t, logs, 1)
	assert.Equal(t, "detectionData.repeatabilityTest.rawValues.糖化模式[2]", logs[0].FieldPath)
	assert.Equal(t, "5.0", logs[0].OldValue)
	assert.Equal(t, "5.2", logs[0].NewValue)
	assert.Equal(t, models.ChangeSourceUser, logs[0].Source)
}

func TestBuildChangeLogsSourceClassification(t *testing.T) {
	baseline := models.DetectionData{
		meta.DetectionTemperature: {Standard: "20 ~ 30", Result: "25", Conclusion: models.ConclusionPass},
		meta.DetectionRepeatability: {
			Standard: "1.5", Result: "0.50%", Conclusion: models.ConclusionPass,
		},
	}
	current := models.DetectionData{
		meta.DetectionTemperature: {Standard: "20 ~ 30", Result: "31", Conclusion: models.ConclusionFail},
		meta.DetectionRepeatability: {
			Standard: "1.5", Result: "2.10%", Conclusion: models.ConclusionFail,
		},
	}

	logs := BuildChangeLogs(baseline, current, time.Now())

	sources := make(map[string]string)
	for _, entry := range logs {
		sources[entry.FieldPath] = entry.Source
	}

	// 操作员录入的结果为user，系统派生的结论与重复性结果/结论为auto
	assert.Equal(t, models.ChangeSourceUser, sources["detectionData.temperature.result"])
	assert.Equal(t, models.ChangeSourceAuto, sources["detectionData.temperature.conclusion"])
	assert.Equal(t, models.ChangeSourceAuto, sources["detectionData.repeatabilityTest.result"])
	assert.Equal(t, models.ChangeSourceAuto, sources["detectionData.repeatabilityTest.conclusion"])
}

func TestBuildChangeLogsRawValueAddedAndRemoved(t *testing.T) {
	baseline := models.DetectionData{
		meta.DetectionRepeatability: {
			RawValues: map[string][]string{"糖化模式": {"5.0"}},
		},
	}
	current := models.DetectionData{
		meta.DetectionRepeatability: {
			RawValues: map[string][]string{"糖化模式": {"5.0", "5.1"}},
		},
	}

	// 新增重复测量值：缺失侧按空字符串对待
	logs := BuildChangeLogs(baseline, current, time.Now())
	require.Len(t, logs, 1)
	assert.Equal(t, "detectionData.repeatabilityTest.rawValues.糖化模式[1]", logs[0].FieldPath)
	assert.Equal(t, "", logs[0].OldValue)
	assert.Equal(t, "5.1", logs[0].NewValue)

	// 删除重复测量值同样计入变更
	logs = BuildChangeLogs(current, baseline, time.Now())
	require.Len(t, logs, 1)
	assert.Equal(t, "5.1", logs[0].OldValue)
	assert.Equal(t, "", logs[0].NewValue)
}

func TestBuildChangeLogsSharedTimestamp(t *testing.T) {
	baseline := models.DetectionData{
		meta.DetectionTemperature: {Result: "25"},
		meta.DetectionPressure:    {Result: "8"},
	}
	current := models.DetectionData{
		meta.DetectionTemperature: {Result: "26"},
		meta.DetectionPressure:    {Result: "9"},
	}

	at := time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)
	logs := BuildChangeLogs(baseline, current, at)

	require.Len(t, logs, 2)
	for _, entry := range logs {
		assert.Equal(t, at, entry.ChangedAt)
	}
}

func TestBuildChangeLogsDeterministicOrder(t *testing.T) {
	baseline := models.DetectionData{
		meta.DetectionPeakTime:    {Result: "1.0"},
		meta.DetectionTemperature: {Result: "25"},
	}
	current := models.DetectionData{
		meta.DetectionPeakTime:    {Result: "1.2"},
		meta.DetectionTemperature: {Result: "26"},
	}

	first := BuildChangeLogs(baseline, current, time.Now())
	second := BuildChangeLogs(baseline, current, time.Now())

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	// 枚举定义顺序：柱温在出峰时间之前
	assert.Equal(t, "detectionData.temperature.result", first[0].FieldPath)
	assert.Equal(t, "detectionData.peakTime.result", first[1].FieldPath)
	for i := range first {
		assert.Equal(t, first[i].FieldPath, second[i].FieldPath)
	}
}

func TestBuildChangeLogsSkipsAbsentFields(t *testing.T) {
	// 两侧都不存在的维度不产生幻影日志
	baseline := models.DetectionData{
		meta.DetectionTemperature: {Result: "25"},
	}
	current := models.DetectionData{
		meta.DetectionTemperature: {Result: "25"},
	}

	logs := BuildChangeLogs(baseline, current, time.Now())
	assert.Empty(t, logs)
}
