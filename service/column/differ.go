/*
 * @module service/column/differ
 * @description 检测数据差异对比器，对比基线快照与编辑快照产出字段级变更日志
 * @architecture 分层架构 - 领域计算层
 * @documentReference ai_docs/column_qc_req.md
 * @stateFlow 基线快照 + 编辑快照 -> 逐字段对比 -> 变更日志列表
 * @rules 仅字符串形式确有差异的字段产出日志；系统派生字段标记auto，其余标记user；
 *        同一次对比共享同一时间戳；输出顺序确定（枚举维度在前，其余键按字典序）
 * @dependencies regexp, sort
 * @refs service/models/column.go, service/meta/detection.go
 */

package column

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"columnqc-service/service/meta"
	"columnqc-service/service/models"
)

// 系统派生字段的路径特征：结论字段与重复性的结果/结论由系统重算产出
var autoFieldPatterns = []*regexp.Regexp{
	regexp.MustCompile(`conclusion$`),
	regexp.MustCompile(`repeatabilityTest\.result$`),
	regexp.MustCompile(`repeatabilityTest\.conclusion$`),
}

// classifySource 按字段路径区分变更来源
func classifySource(fieldPath string) string {
	for _, pattern := range autoFieldPatterns {
		if pattern.MatchString(fieldPath) {
			return models.ChangeSourceAuto
		}
	}
	return models.ChangeSourceUser
}

// BuildChangeLogs 对比两份检测数据快照，产出字段级变更日志
// changedAt 为本次对比的统一时间戳，同一次保存的所有变更共享同一时刻
func BuildChangeLogs(baseline, current models.DetectionData, changedAt time.Time) []models.ChangeLogEntry {
	var logs []models.ChangeLogEntry

	appendChange := func(fieldPath, oldValue, newValue string) {
		if oldValue == newValue {
			return
		}
		logs = append(logs, models.ChangeLogEntry{
			FieldPath: fieldPath,
			OldValue:  oldValue,
			NewValue:  newValue,
			Source:    classifySource(fieldPath),
			ChangedAt: changedAt,
		})
	}

	for _, key := range orderedDetectionKeys(baseline, current) {
		baseItem, baseOK := baseline[key]
		currItem, currOK := current[key]
		if !baseOK && !currOK {
			continue
		}

		prefix := "detectionData." + key

		if key == meta.DetectionRepeatability {
			diffRawValues(prefix, baseItem.RawValues, currItem.RawValues, appendChange)
		}

		appendChange(prefix+".standard", baseItem.Standard, currItem.Standard)
		appendChange(prefix+".result", baseItem.Result, currItem.Result)
		appendChange(prefix+".conclusion", baseItem.Conclusion, currItem.Conclusion)
	}

	return logs
}

// diffRawValues 逐类别逐序号对比重复性原始值
// 一侧缺失的序号按空字符串对待，新增/删除的重复测量值同样计入变更
func diffRawValues(prefix string, baseline, current map[string][]string, appendChange func(string, string, string)) {
	categorySet := make(map[string]bool)
	for category := range baseline {
		categorySet[category] = true
	}
	for category := range current {
		categorySet[category] = true
	}

	categories := make([]string, 0, len(categorySet))
	for category := range categorySet {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		baseValues := baseline[category]
		currValues := current[category]

		count := len(baseValues)
		if len(currValues) > count {
			count = len(currValues)
		}

		for i := 0; i < count; i++ {
			var oldValue, newValue string
			if i < len(baseValues) {
				oldValue = baseValues[i]
			}
			if i < len(currValues) {
				newValue = currValues[i]
			}
			appendChange(fmt.Sprintf("%s.rawValues.%s[%d]", prefix, category, i), oldValue, newValue)
		}
	}
}

// orderedDetectionKeys 返回两份快照键的确定性迭代顺序：枚举维度在前，其余键按字典序
func orderedDetectionKeys(baseline, current models.DetectionData) []string {
	seen := make(map[string]bool)
	var keys []string

	for _, key := range meta.DetectionKindKeys() {
		_, inBase := baseline[key]
		_, inCurr := current[key]
		if inBase || inCurr {
			keys = append(keys, key)
			seen[key] = true
		}
	}

	var extras []string
	for key := range baseline {
		if !seen[key] {
			extras = append(extras, key)
			seen[key] = true
		}
	}
	for key := range current {
		if !seen[key] {
			extras = append(extras, key)
			seen[key] = true
		}
	}
	sort.Strings(extras)

	return append(keys, extras...)
}
