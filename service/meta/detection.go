/*
 * @module service/meta/detection
 * @description 检测维度元数据定义，以封闭枚举携带展示元信息，替代字符串查表
 * @architecture 分层架构 - 元数据层
 * @documentReference ai_docs/column_qc_req.md
 * @stateFlow N/A
 * @rules 检测维度为封闭集合，差异对比与派生计算按此处定义的顺序迭代
 * @dependencies 无
 * @refs service/column, service/standard
 */

package meta

// 检测维度键，与检测数据快照中的键一致
const (
	DetectionTemperature   = "temperature"
	DetectionPressure      = "pressure"
	DetectionPeakTime      = "peakTime"
	DetectionRepeatability = "repeatabilityTest"
)

// DetectionKindInfo 检测维度的展示元信息
type DetectionKindInfo struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Unit        string `json:"unit"`
	Icon        string `json:"icon"`
	HasRaw      bool   `json:"has_raw"` // 是否携带原始重复测量值
}

// DetectionKinds 检测维度定义，顺序即差异对比与派生计算的迭代顺序
var DetectionKinds = []DetectionKindInfo{
	{Key: DetectionTemperature, DisplayName: "柱温", Unit: "℃", Icon: "thermometer", HasRaw: false},
	{Key: DetectionPressure, DisplayName: "柱压", Unit: "MPa", Icon: "gauge", HasRaw: false},
	{Key: DetectionPeakTime, DisplayName: "出峰时间", Unit: "min", Icon: "timeline", HasRaw: false},
	{Key: DetectionRepeatability, DisplayName: "重复性", Unit: "%", Icon: "repeat", HasRaw: true},
}

var detectionKindIndex = func() map[string]DetectionKindInfo {
	m := make(map[string]DetectionKindInfo, len(DetectionKinds))
	for _, kind := range DetectionKinds {
		m[kind.Key] = kind
	}
	return m
}()

// IsValidDetectionKind 判断是否为合法的检测维度
func IsValidDetectionKind(key string) bool {
	_, ok := detectionKindIndex[key]
	return ok
}

// GetDetectionKind 获取检测维度元信息
func GetDetectionKind(key string) (DetectionKindInfo, bool) {
	info, ok := detectionKindIndex[key]
	return info, ok
}

// DetectionKindKeys 返回检测维度键列表，保持定义顺序
func DetectionKindKeys() []string {
	keys := make([]string, 0, len(DetectionKinds))
	for _, kind := range DetectionKinds {
		keys = append(keys, kind.Key)
	}
	return keys
}
