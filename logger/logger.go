/*
 * @module logger
 * @description 全局结构化日志初始化，JSON格式输出到stdout供容器日志采集
 * @architecture 基础设施层 - 进程级单例
 * @documentReference ai_docs/column_qc_req.md
 * @stateFlow main.init时装配为slog默认记录器，各包直接使用slog包级函数
 * @rules 日志级别Debug起步，由采集侧过滤；不写本地文件
 * @dependencies log/slog
 * @refs main.go
 */

package logger

import (
	"log/slog"
	"os"
)

// InitLogger 装配质控服务的全局日志记录器
func InitLogger() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	slog.SetDefault(slog.New(handler))
}
