/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/column_qc_req.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers
 */

package api

import (
	"columnqc-service/api/controllers"
	custommw "columnqc-service/api/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Access-Key", "X-Access-Secret"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 用户令牌鉴权
	r.Use(custommw.NewTokenAuthMiddleware().Handler)

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 色谱柱管理
	r.Route("/columns", func(r chi.Router) {
		columnController := controllers.NewColumnController()
		r.Get("/", columnController.ListColumns)
		r.Post("/batch-approve", columnController.BatchApprove)
		r.Get("/{column_sn}", columnController.GetColumn)
		r.Post("/{column_sn}/detection", columnController.SaveDetection)
		r.Get("/{column_sn}/change-logs", columnController.GetChangeLogs)
		r.Get("/{column_sn}/repeatability", columnController.GetRepeatability)
	})

	// 参考标准管理
	r.Route("/standards", func(r chi.Router) {
		standardController := controllers.NewStandardController()
		r.Get("/", standardController.ListStandards)
		r.Post("/", standardController.SaveStandard)
		r.Get("/by-column/{column_sn}", standardController.GetStandardByColumnSN)
	})

	// 报告任务管理
	r.Route("/report-tasks", func(r chi.Router) {
		reportTaskController := controllers.NewReportTaskController()
		r.Get("/", reportTaskController.ListTasks)
		r.Post("/generate", reportTaskController.SubmitGenerate)
		r.Post("/generate-zip", reportTaskController.SubmitGenerateZip)
		r.Post("/zip-existing", reportTaskController.SubmitZipExisting)
		r.Get("/{task_id}", reportTaskController.GetTask)
		r.Get("/{task_id}/download", reportTaskController.Download)
	})

	// 设备报文收件箱
	r.Route("/inbox", func(r chi.Router) {
		inboxController := controllers.NewInboxController()
		r.Post("/ingest", inboxController.IngestHTTP)
		r.Route("/messages", func(r chi.Router) {
			r.Get("/", inboxController.ListMessages)
			r.Get("/{id}", inboxController.GetMessage)
			r.Get("/{id}/fields", inboxController.GetFields)
			r.Post("/{id}/fix", inboxController.SaveFix)
			r.Post("/{id}/discard", inboxController.Discard)
		})
	})
}
