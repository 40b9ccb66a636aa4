/*
 * @module service/standard/service_test
 * @description 参考标准服务测试：原始值形态归一化、标准文本拼装与内存缓存
 * @architecture 测试层 - 业务服务验证
 * @documentReference ai_docs/reference_standard_req.md
 * @stateFlow 构造历史形态数据 -> 归一化 -> 断言统一结构
 * @rules 三种历史存储形态必须归一化为同一结构
 * @dependencies testing, testify
 * @refs service.go
 */

package standard

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"columnqc-service/service/models"
)

func TestNormalizeRawValues(t *testing.T) {
	t.Run("类别到数组形态", func(t *testing.T) {
		raw := json.RawMessage(`{"糖化模式": ["5.0", "5.1"], "总面积模式": [4.9]}`)
		normalized, err := NormalizeRawValues(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"5.0", "5.1"}, normalized["糖化模式"])
		assert.Equal(t, []string{"4.9"}, normalized["总面积模式"])
	})

	t.Run("类别到JSON字符串形态", func(t *testing.T) {
		raw := json.RawMessage(`{"糖化模式": "[\"5.0\", \"5.1\"]"}`)
		normalized, err := NormalizeRawValues(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"5.0", "5.1"}, normalized["糖化模式"])
	})

	t.Run("对象数组values形态", func(t *testing.T) {
		raw := json.RawMessage(`[{"type": "糖化模式", "values": ["5.0", "5.1"]}]`)
		normalized, err := NormalizeRawValues(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"5.0", "5.1"}, normalized["糖化模式"])
	})

	t.Run("对象数组testValue形态逐条累积", func(t *testing.T) {
		raw := json.RawMessage(`[
			{"type": "糖化模式", "testValue": "5.0"},
			{"type": "糖化模式", "testValue": "5.1"}
		]`)
		normalized, err := NormalizeRawValues(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"5.0", "5.1"}, normalized["糖化模式"])
	})

	t.Run("空输入返回空映射", func(t *testing.T) {
		normalized, err := NormalizeRawValues(nil)
		require.NoError(t, err)
		assert.Empty(t, normalized)
	})

	t.Run("非法JSON报错", func(t *testing.T) {
		_, err := NormalizeRawValues(json.RawMessage(`{bad`))
		assert.Error(t, err)
	})

	t.Run("不支持的形态报错", func(t *testing.T) {
		_, err := NormalizeRawValues(json.RawMessage(`"just a string"`))
		assert.Error(t, err)
	})
}

func TestFormatRangeText(t *testing.T) {
	assert.Equal(t, "20 ~ 30", FormatRangeText(floatPtr(20), floatPtr(30)))
	assert.Equal(t, ">= 10", FormatRangeText(floatPtr(10), nil))
	assert.Equal(t, "<= 1.5", FormatRangeText(nil, floatPtr(1.5)))
	assert.Equal(t, "", FormatRangeText(nil, nil))
}

func TestFormatRangeTextRoundTrip(t *testing.T) {
	// 拼装出的标准文本必须可被解析器还原
	r := ParseRangeStandard(FormatRangeText(floatPtr(0.5), floatPtr(2.5)))
	require.NotNil(t, r.Min)
	require.NotNil(t, r.Max)
	assert.InDelta(t, 0.5, *r.Min, 1e-9)
	assert.InDelta(t, 2.5, *r.Max, 1e-9)
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(50 * time.Millisecond)
	std := &models.ReferenceStandard{ColumnModel: "HbA1c-C18"}

	_, ok := cache.Get(ctx, "HbA1c-C18")
	assert.False(t, ok)

	cache.Set(ctx, "HbA1c-C18", std)
	got, ok := cache.Get(ctx, "HbA1c-C18")
	require.True(t, ok)
	assert.Equal(t, "HbA1c-C18", got.ColumnModel)

	cache.Invalidate(ctx, "HbA1c-C18")
	_, ok = cache.Get(ctx, "HbA1c-C18")
	assert.False(t, ok)

	// TTL过期
	cache.Set(ctx, "HbA1c-C18", std)
	time.Sleep(80 * time.Millisecond)
	_, ok = cache.Get(ctx, "HbA1c-C18")
	assert.False(t, ok)
}

func TestScriptExecutor(t *testing.T) {
	executor := NewScriptExecutor()

	script := `
func Judge(result float64) bool {
	return result >= 1.0 && result <= 2.0
}
`
	passed, err := executor.Judge(script, 1.5)
	require.NoError(t, err)
	assert.True(t, passed)

	passed, err = executor.Judge(script, 2.5)
	require.NoError(t, err)
	assert.False(t, passed)

	_, err = executor.Judge("not go code {", 1.0)
	assert.Error(t, err)

	_, err = executor.Judge("", 1.0)
	assert.Error(t, err)
}
