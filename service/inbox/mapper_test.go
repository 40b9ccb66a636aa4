/*
 * @module service/inbox/mapper_test
 * @description 设备报文字段映射器测试：展平、重建、往返等价与只读字段保护
 * @architecture 测试层 - 领域计算验证
 * @documentReference ai_docs/device_inbox_req.md
 * @stateFlow 构造报文 -> 展平 -> 编辑 -> 重建 -> 断言结构
 * @rules 数组作为整体叶子；往返无编辑时结构等价；柱序列号永不被改写
 * @dependencies testing, testify
 * @refs mapper.go
 */

package inbox

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
	"device_data": {
		"sn": "DEV-8801",
		"records": {
			"column_sn": "LC2024-001",
			"pressure": 8.5,
			"temperature": null,
			"replicates": ["5.0", "5.1", "4.9"]
		}
	},
	"reported_at": "2024-08-01T10:00:00Z"
}`

func TestFlatten(t *testing.T) {
	obj, ok := ParsePayload(samplePayload)
	require.True(t, ok)

	flat := Flatten(obj)

	assert.Equal(t, "DEV-8801", flat["device_data.sn"])
	assert.Equal(t, "LC2024-001", flat["device_data.records.column_sn"])
	assert.Equal(t, "8.5", flat["device_data.records.pressure"])
	// null叶子转为空串
	assert.Equal(t, "", flat["device_data.records.temperature"])
	// 数组原地序列化为JSON字符串，不下钻
	assert.JSONEq(t, `["5.0","5.1","4.9"]`, flat["device_data.records.replicates"])
	assert.Equal(t, "2024-08-01T10:00:00Z", flat["reported_at"])
	assert.Len(t, flat, 6)
}

func TestRebuildRoundTrip(t *testing.T) {
	obj, ok := ParsePayload(samplePayload)
	require.True(t, ok)

	// 无编辑的往返重建出JSON等价的结构
	rebuilt, err := Rebuild(obj, Flatten(obj))
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(rebuilt), &got))

	// 数组叶子被解析回结构，整体与原报文等价
	assert.JSONEq(t, samplePayload, rebuilt)
}

func TestRebuildAppliesEdits(t *testing.T) {
	obj, ok := ParsePayload(samplePayload)
	require.True(t, ok)

	edits := Flatten(obj)
	edits["device_data.records.pressure"] = "9.2"
	edits["device_data.records.replicates"] = `["5.0", "5.1", "5.2"]`

	rebuilt, err := Rebuild(obj, edits)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(rebuilt), &got))
	records := got["device_data"].(map[string]interface{})["records"].(map[string]interface{})

	// 数值字段以修正后的字符串写回
	assert.Equal(t, "9.2", records["pressure"])
	// 形如JSON的编辑值解析回数组
	assert.Equal(t, []interface{}{"5.0", "5.1", "5.2"}, records["replicates"])
}

func TestRebuildReadOnlyColumnSN(t *testing.T) {
	obj, ok := ParsePayload(samplePayload)
	require.True(t, ok)

	// 界面分组命名与完整路径两种形态的改写都被忽略
	for _, key := range []string{ReadOnlyColumnSN, "device_data.records.column_sn"} {
		rebuilt, err := Rebuild(obj, map[string]string{key: "LC9999-999"})
		require.NoError(t, err)

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(rebuilt), &got))
		records := got["device_data"].(map[string]interface{})["records"].(map[string]interface{})
		assert.Equal(t, "LC2024-001", records["column_sn"])
	}
}

func TestRebuildGroupNameMapping(t *testing.T) {
	obj, ok := ParsePayload(samplePayload)
	require.True(t, ok)

	// 界面的"records.pressure"经固定映射落到device_data.records.pressure
	rebuilt, err := Rebuild(obj, map[string]string{"records.pressure": "7.7"})
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(rebuilt), &got))
	records := got["device_data"].(map[string]interface{})["records"].(map[string]interface{})
	assert.Equal(t, "7.7", records["pressure"])
}

func TestRebuildCreatesIntermediateObjects(t *testing.T) {
	obj := map[string]interface{}{"existing": "value"}

	rebuilt, err := Rebuild(obj, map[string]string{"a.b.c": "deep"})
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(rebuilt), &got))
	assert.Equal(t, "value", got["existing"])
	assert.Equal(t, "deep", got["a"].(map[string]interface{})["b"].(map[string]interface{})["c"])
}

func TestRebuildOverwritesNonObjectOnPath(t *testing.T) {
	obj := map[string]interface{}{"a": "scalar"}

	rebuilt, err := Rebuild(obj, map[string]string{"a.b": "nested"})
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(rebuilt), &got))
	assert.Equal(t, "nested", got["a"].(map[string]interface{})["b"])
}

func TestRebuildDoesNotMutateOriginal(t *testing.T) {
	obj, ok := ParsePayload(samplePayload)
	require.True(t, ok)

	_, err := Rebuild(obj, map[string]string{"device_data.records.pressure": "9.9"})
	require.NoError(t, err)

	records := obj["device_data"].(map[string]interface{})["records"].(map[string]interface{})
	assert.Equal(t, 8.5, records["pressure"])
}

func TestParsePayloadInvalid(t *testing.T) {
	_, ok := ParsePayload(`{"broken": `)
	assert.False(t, ok)

	_, ok = ParsePayload(`not json at all`)
	assert.False(t, ok)
}
