/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、依赖装配与后台任务启动
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/column_qc_req.md
 * @stateFlow 应用启动时执行初始化流程：数据库 -> 迁移 -> 依赖装配 -> 后台任务
 * @rules 确保所有依赖服务正常启动后才提供API服务；报告引擎客户端与令牌单元显式构造后注入，不做隐式全局装配
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, github.com/go-redis/redis/v8
 * @refs main.go, api/controllers
 */

package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cast"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"columnqc-service/client"
	"columnqc-service/client/connectors"
	"columnqc-service/service/cleanup"
	"columnqc-service/service/column"
	"columnqc-service/service/distributed_lock"
	"columnqc-service/service/inbox"
	"columnqc-service/service/models"
	"columnqc-service/service/report"
	"columnqc-service/service/standard"
)

var (
	DB                    *gorm.DB
	GlobalColumnService   *column.Service
	GlobalStandardService *standard.Service
	GlobalInboxService    *inbox.Service
	GlobalTaskManager     *report.TaskManager
	GlobalTokenStore      *client.TokenStore
	GlobalCleanupService  *cleanup.CleanupService
	GlobalMQTTConnector   *connectors.MQTTConnector
	GlobalKafkaConnector  *connectors.KafkaConnector
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
	startBackground()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "things2024")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := DB.AutoMigrate(
		&models.ChromatographyColumn{},
		&models.ChangeLogEntry{},
		&models.ReportTask{},
		&models.ReportedMonth{},
		&models.ReferenceStandard{},
		&models.DeviceMessageInbox{},
		&models.DeviceCredential{},
	); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	log.Println("数据库表结构迁移完成")
}

// initServices 初始化服务
func initServices() {
	// 参考标准缓存：Redis可用时走Redis，否则退化为进程内缓存
	var standardCache standard.Cache
	var lockExecutor *distributed_lock.LockExecutor

	if redisClient := newRedisClient(); redisClient != nil {
		standardCache = standard.NewRedisCache(redisClient, standard.DefaultCacheTTL)

		redisLock, err := distributed_lock.NewRedisLock(redisClient)
		if err != nil {
			log.Printf("Redis分布式锁初始化失败，保洁任务退化为单实例模式: %v", err)
		} else {
			lockExecutor = distributed_lock.NewLockExecutor(redisLock)
		}
	}

	GlobalColumnService = column.NewService(DB)
	GlobalStandardService = standard.NewService(DB, standardCache)
	GlobalInboxService = inbox.NewService(DB)

	// 报告引擎客户端与令牌单元显式构造后注入
	GlobalTokenStore = client.NewTokenStore()
	reportClient := client.NewReportClient(&client.ReportClientConfig{
		BaseURL: getEnvWithDefault("REPORT_ENGINE_URL", "http://report-engine:8080"),
		Timeout: 30 * time.Second,
	}, GlobalTokenStore)

	pollerConfig := &client.PollerConfig{
		Interval:       time.Duration(cast.ToInt(getEnvWithDefault("REPORT_POLL_INTERVAL_MS", "1200"))) * time.Millisecond,
		Timeout:        time.Duration(cast.ToInt(getEnvWithDefault("REPORT_POLL_TIMEOUT_MS", "600000"))) * time.Millisecond,
		MaxPollRetries: cast.ToInt(getEnvWithDefault("REPORT_POLL_MAX_RETRIES", "3")),
	}
	GlobalTaskManager = report.NewTaskManager(DB, reportClient, pollerConfig)

	GlobalCleanupService = cleanup.NewCleanupService(DB, lockExecutor)
	GlobalCleanupService.SetRetention(
		cast.ToInt(os.Getenv("TASK_RETENTION_DAYS")),
		cast.ToInt(os.Getenv("INBOX_RETENTION_DAYS")),
	)
}

// newRedisClient 按环境变量创建Redis客户端，未配置或连不上时返回nil
func newRedisClient() *redis.Client {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		return nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, getEnvWithDefault("REDIS_PORT", "6379")),
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           cast.ToInt(os.Getenv("REDIS_DB")),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Redis连接失败，相关能力退化为进程内实现: %v", err)
		return nil
	}
	return redisClient
}

// startBackground 启动后台任务：定时保洁与设备遥测接入
func startBackground() {
	if err := GlobalCleanupService.StartScheduledCleanup(); err != nil {
		log.Printf("启动保洁调度器失败: %v", err)
	}

	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		GlobalMQTTConnector = connectors.NewMQTTConnector(&connectors.MQTTConfig{
			Broker:   broker,
			ClientID: getEnvWithDefault("MQTT_CLIENT_ID", "columnqc-service"),
			Username: os.Getenv("MQTT_USERNAME"),
			Password: os.Getenv("MQTT_PASSWORD"),
			Topic:    os.Getenv("MQTT_TOPIC"),
			QoS:      byte(cast.ToInt(getEnvWithDefault("MQTT_QOS", "1"))),
		}, GlobalInboxService)
		if err := GlobalMQTTConnector.Connect(); err != nil {
			log.Printf("MQTT遥测接入器启动失败: %v", err)
		}
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		GlobalKafkaConnector = connectors.NewKafkaConnector(&connectors.KafkaConfig{
			Brokers: splitAndTrim(brokers),
			Topic:   os.Getenv("KAFKA_TOPIC"),
			GroupID: os.Getenv("KAFKA_GROUP_ID"),
		}, GlobalInboxService)
		if err := GlobalKafkaConnector.Connect(); err != nil {
			log.Printf("Kafka遥测接入器启动失败: %v", err)
		}
	}
}

// splitAndTrim 逗号分隔的broker列表转切片
func splitAndTrim(value string) []string {
	var parts []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
