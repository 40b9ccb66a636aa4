/*
 * @module service/inbox/mapper
 * @description 设备报文字段映射器，嵌套JSON与可编辑点分路径键值对之间的双向转换
 * @architecture 纯函数计算层 - 展平与重建互为往返
 * @documentReference ai_docs/device_inbox_req.md
 * @stateFlow 原始报文展平 -> 人工逐字段修正 -> 基于原结构重建
 * @rules 数组视为不可下钻的整体叶子；records.column_sn永久只读；非法JSON降级为不可编辑整体文本
 * @dependencies encoding/json, github.com/spf13/cast
 * @refs service/inbox/service.go
 */

package inbox

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// ReadOnlyColumnSN 柱序列号字段，重建时永不写入
const ReadOnlyColumnSN = "records.column_sn"

// readOnlyResolvedPath 柱序列号在报文内的实际路径
const readOnlyResolvedPath = "device_data.records.column_sn"

// groupPathPrefixes 编辑界面的分组名到报文内实际路径前缀的固定映射
var groupPathPrefixes = map[string]string{
	"records": "device_data.records",
	"device":  "device_data",
}

// ParsePayload 尝试把原始报文解析成结构化对象。
// 解析失败时返回false，报文只能作为整体文本展示且禁止保存。
func ParsePayload(raw string) (map[string]interface{}, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// Flatten 递归展平嵌套对象为点分路径到字符串值的映射。
// 嵌套对象贡献更深的路径；数组原地序列化为JSON字符串不再下钻；null转为空串。
func Flatten(obj map[string]interface{}) map[string]string {
	flat := make(map[string]string)
	flattenInto(flat, "", obj)
	return flat
}

func flattenInto(flat map[string]string, prefix string, obj map[string]interface{}) {
	for key, value := range obj {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		switch v := value.(type) {
		case map[string]interface{}:
			flattenInto(flat, path, v)
		case []interface{}:
			// 数组整体作为一个可编辑单元
			serialized, err := json.Marshal(v)
			if err != nil {
				flat[path] = ""
				continue
			}
			flat[path] = string(serialized)
		case nil:
			flat[path] = ""
		default:
			flat[path] = cast.ToString(v)
		}
	}
}

// Rebuild 基于原始结构的深拷贝应用编辑，返回重建后的报文字符串。
// 未暴露编辑的字段原样保留；与原值相同的编辑跳过，保证无编辑往返结构等价；
// 只读字段的编辑被忽略；编辑值形如JSON时解析回结构。
func Rebuild(original map[string]interface{}, edits map[string]string) (string, error) {
	rebuilt := deepCopy(original)
	baseline := Flatten(original)

	keys := make([]string, 0, len(edits))
	for key := range edits {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		path := resolvePath(key)
		resolved := strings.Join(path, ".")
		// 柱序列号在任何命名形态下都只读
		if key == ReadOnlyColumnSN || resolved == readOnlyResolvedPath {
			continue
		}
		if current, ok := baseline[resolved]; ok && current == edits[key] {
			continue
		}
		setPath(rebuilt, path, parseEditValue(edits[key]))
	}

	serialized, err := json.Marshal(rebuilt)
	if err != nil {
		return "", err
	}
	return string(serialized), nil
}

// resolvePath 把界面的"分组.字段"命名映射为报文内的实际嵌套路径
func resolvePath(key string) []string {
	group, rest, found := strings.Cut(key, ".")
	if found {
		if prefix, ok := groupPathPrefixes[group]; ok {
			return strings.Split(prefix+"."+rest, ".")
		}
	}
	return strings.Split(key, ".")
}

// parseEditValue 形如JSON对象或数组的编辑值解析回结构，否则保留为字符串
func parseEditValue(value string) interface{} {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var structured interface{}
		if err := json.Unmarshal([]byte(trimmed), &structured); err == nil {
			return structured
		}
	}
	return value
}

// setPath 沿路径写入值，按需创建中间对象，路径上的非对象值被覆盖
func setPath(obj map[string]interface{}, path []string, value interface{}) {
	current := obj
	for i, segment := range path {
		if i == len(path)-1 {
			current[segment] = value
			return
		}
		next, ok := current[segment].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			current[segment] = next
		}
		current = next
	}
}

// deepCopy 经JSON往返做深拷贝，保证重建不污染原结构
func deepCopy(obj map[string]interface{}) map[string]interface{} {
	data, err := json.Marshal(obj)
	if err != nil {
		return make(map[string]interface{})
	}
	var copied map[string]interface{}
	if err := json.Unmarshal(data, &copied); err != nil {
		return make(map[string]interface{})
	}
	return copied
}
