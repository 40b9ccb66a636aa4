package main

import (
	"columnqc-service/api"
	_ "columnqc-service/docs"
	"columnqc-service/logger"
	"log"
	"net/http"
	"os"
	"strconv"

	_ "columnqc-service/service"

	daprd "github.com/dapr/go-sdk/service/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

var (
	PORT         = 80
	BASE_CONTEXT = ""
)

func init() {
	logger.InitLogger()

	if val := os.Getenv("LISTEN_PORT"); val != "" {
		PORT, _ = strconv.Atoi(val)
	}

	if val := os.Getenv("BASE_CONTEXT"); val != "" {
		BASE_CONTEXT = val
	}
}

// @title 色谱柱质控服务 API
// @version 1.0
// @description 色谱柱出厂质控后台服务，提供不合格柱检测数据复核、报告任务编排与设备报文收件箱功能
// @BasePath /swagger/columnqc-service
func main() {
	mux := chi.NewRouter()

	// 如果有BASE_CONTEXT，则在该路径下挂载所有路由
	if BASE_CONTEXT != "" {
		mux.Route(BASE_CONTEXT, func(r chi.Router) {
			subMux := r.(*chi.Mux)
			api.InitRoute(subMux)
			r.Handle("/metrics", promhttp.Handler())
			r.Handle("/swagger*", httpSwagger.WrapHandler)
		})
	} else {
		api.InitRoute(mux)
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/swagger*", httpSwagger.WrapHandler)
	}

	s := daprd.NewServiceWithMux(":"+strconv.Itoa(PORT), mux)
	if err := s.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("error: %v", err)
	}
}
