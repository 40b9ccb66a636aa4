/**
 * @module data_converter
 * @description 数据转换工具模块，负责设备报文的字符集归一化与通用类型转换
 * @architecture 工具函数模式，提供无状态转换方法集合
 * @documentReference ai_docs/device_inbox_req.md
 * @stateFlow 无状态转换：输入 -> 转换逻辑 -> 输出
 * @rules
 *   - 老款仪器经串口网关上报GBK编码报文，入箱前必须归一化为UTF-8
 *   - 转换失败时保留原始字节，不丢数据
 * @dependencies
 *   - golang.org/x/text: GBK编解码
 *   - unicode/utf8: 编码探测
 * @refs
 *   - service/inbox: 设备报文收件箱
 */

package utils

import (
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// GBKToUTF8 GBK/GB2312字节序列转UTF-8
func GBKToUTF8(data []byte) ([]byte, error) {
	decoder := simplifiedchinese.GBK.NewDecoder()
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return nil, fmt.Errorf("GBK解码失败: %w", err)
	}
	return result, nil
}

// UTF8ToGBK UTF-8字节序列转GBK，下发指令给老款仪器时使用
func UTF8ToGBK(data []byte) ([]byte, error) {
	encoder := simplifiedchinese.GBK.NewEncoder()
	result, _, err := transform.Bytes(encoder, data)
	if err != nil {
		return nil, fmt.Errorf("GBK编码失败: %w", err)
	}
	return result, nil
}

// NormalizePayload 报文字符集归一化：非法UTF-8按GBK解码重试，
// 解码仍失败时原样返回，交由上层按不可解析处理。
func NormalizePayload(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	if converted, err := GBKToUTF8(data); err == nil && utf8.Valid(converted) {
		return converted
	}
	return data
}

// FormatJSON 格式化为缩进JSON字符串，收件箱详情展示用
func FormatJSON(data interface{}) (string, error) {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("JSON格式化失败: %w", err)
	}
	return string(bytes), nil
}

// FormatNumber 按精度格式化数值
func FormatNumber(value float64, precision int) string {
	return strconv.FormatFloat(value, 'f', precision, 64)
}
