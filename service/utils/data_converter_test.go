/**
 * @module data_converter_test
 * @description 数据转换工具测试：GBK归一化与格式化
 * @architecture 测试层 - 工具函数验证
 * @documentReference ai_docs/device_inbox_req.md
 * @stateFlow 构造输入 -> 转换 -> 断言输出
 * @rules 合法UTF-8原样返回；GBK字节归一化为UTF-8；不可识别字节不丢失
 * @dependencies testing, testify
 * @refs data_converter.go
 */

package utils

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGBKRoundTrip(t *testing.T) {
	original := []byte("糖化模式")

	gbk, err := UTF8ToGBK(original)
	require.NoError(t, err)
	assert.False(t, utf8.Valid(gbk))

	back, err := GBKToUTF8(gbk)
	require.NoError(t, err)
	assert.Equal(t, original, back)
}

func TestNormalizePayload(t *testing.T) {
	// 合法UTF-8原样返回
	utf8Payload := []byte(`{"mode":"糖化模式"}`)
	assert.Equal(t, utf8Payload, NormalizePayload(utf8Payload))

	// GBK报文归一化为UTF-8
	gbk, err := UTF8ToGBK(utf8Payload)
	require.NoError(t, err)
	assert.Equal(t, utf8Payload, NormalizePayload(gbk))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1.23", FormatNumber(1.2345, 2))
	assert.Equal(t, "20.00", FormatNumber(20, 2))
}
