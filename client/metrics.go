/*
 * @module client/metrics
 * @description 报告引擎客户端Prometheus指标
 * @architecture 可观测层 - 进程级指标，经/metrics端点暴露
 * @documentReference ai_docs/report_task_req.md
 * @stateFlow 客户端调用时累加 -> Prometheus周期抓取
 * @dependencies github.com/prometheus/client_golang
 * @refs main.go
 */

package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// tasksSubmittedTotal 已提交的报告任务数，按任务类型区分
	tasksSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "columnqc_report_tasks_submitted_total",
		Help: "Total number of report tasks submitted to the report engine",
	}, []string{"task_type"})

	// tasksCompletedTotal 已完结的报告任务数，按终态区分
	tasksCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "columnqc_report_tasks_completed_total",
		Help: "Total number of report tasks that reached a terminal outcome",
	}, []string{"status"})

	// pollErrorsTotal 任务快照查询失败次数
	pollErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "columnqc_report_poll_errors_total",
		Help: "Total number of failed task snapshot polls",
	})
)

// RecordTaskSubmitted 记录任务提交
func RecordTaskSubmitted(taskType string) {
	tasksSubmittedTotal.WithLabelValues(taskType).Inc()
}

// RecordTaskCompleted 记录任务完结
func RecordTaskCompleted(status string) {
	tasksCompletedTotal.WithLabelValues(status).Inc()
}
