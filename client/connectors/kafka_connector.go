/*
 * @module KafkaConnector
 * @description Kafka遥测接入器，消费网关汇聚的检测仪上报主题并把报文送入设备报文收件箱
 * @architecture 适配器模式 - 封装第三方Kafka客户端，向收件箱投递
 * @documentReference ai_docs/device_inbox_req.md
 * @stateFlow 连接建立 -> 消费循环 -> 报文入箱 -> 连接断开
 * @rules 消费组内位点自动提交；设备序列号取自消息key；投递失败只记日志，报文已入Kafka不丢失
 * @dependencies github.com/segmentio/kafka-go, log/slog
 * @refs service/inbox/service.go
 */
package connectors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"columnqc-service/service/models"
)

// KafkaConfig Kafka接入配置
type KafkaConfig struct {
	Brokers        []string      `json:"brokers"`
	Topic          string        `json:"topic"` // 默认 device-telemetry
	GroupID        string        `json:"group_id"`
	MinBytes       int           `json:"min_bytes"`
	MaxBytes       int           `json:"max_bytes"`
	MaxWait        time.Duration `json:"max_wait"`
	CommitInterval time.Duration `json:"commit_interval"`
}

// KafkaStats Kafka接入器统计信息
type KafkaStats struct {
	StartedAt        time.Time `json:"started_at"`        // 消费启动时间
	MessagesReceived int64     `json:"messages_received"` // 接收报文数
	BytesReceived    int64     `json:"bytes_received"`    // 接收字节数
	IngestErrors     int64     `json:"ingest_errors"`     // 入箱失败数
	LastError        string    `json:"last_error"`        // 最后错误信息
	mutex            sync.RWMutex
}

// KafkaConnector Kafka遥测接入器
type KafkaConnector struct {
	config      *KafkaConfig
	reader      *kafka.Reader
	sink        TelemetrySink
	mutex       sync.RWMutex
	cancel      context.CancelFunc
	done        chan struct{}
	isConnected bool
	stats       *KafkaStats
}

// NewKafkaConnector 创建Kafka遥测接入器
func NewKafkaConnector(config *KafkaConfig, sink TelemetrySink) *KafkaConnector {
	if config.Topic == "" {
		config.Topic = "device-telemetry"
	}
	if config.GroupID == "" {
		config.GroupID = "columnqc-inbox"
	}
	return &KafkaConnector{
		config: config,
		sink:   sink,
		stats:  &KafkaStats{},
	}
}

// Connect 建立消费者并启动消费循环
func (kc *KafkaConnector) Connect() error {
	kc.mutex.Lock()
	defer kc.mutex.Unlock()

	if kc.isConnected {
		return nil
	}
	if len(kc.config.Brokers) == 0 {
		return fmt.Errorf("Kafka brokers未配置")
	}

	kc.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:        kc.config.Brokers,
		Topic:          kc.config.Topic,
		GroupID:        kc.config.GroupID,
		MinBytes:       kc.config.MinBytes,
		MaxBytes:       kc.config.MaxBytes,
		MaxWait:        kc.config.MaxWait,
		CommitInterval: kc.config.CommitInterval,
	})

	ctx, cancel := context.WithCancel(context.Background())
	kc.cancel = cancel
	kc.done = make(chan struct{})
	kc.isConnected = true
	kc.stats.StartedAt = time.Now()

	go kc.consumeLoop(ctx)

	slog.Info("Kafka遥测接入器已启动", "brokers", kc.config.Brokers,
		"topic", kc.config.Topic, "group_id", kc.config.GroupID)
	return nil
}

// Disconnect 停止消费循环并关闭消费者
func (kc *KafkaConnector) Disconnect() error {
	kc.mutex.Lock()
	defer kc.mutex.Unlock()

	if !kc.isConnected {
		return nil
	}

	kc.cancel()
	<-kc.done

	if err := kc.reader.Close(); err != nil {
		slog.Warn("关闭Kafka消费者失败", "error", err)
	}
	kc.isConnected = false
	slog.Info("Kafka遥测接入器已停止")
	return nil
}

// consumeLoop 消费循环，上下文取消时退出
func (kc *KafkaConnector) consumeLoop(ctx context.Context) {
	defer close(kc.done)

	for {
		msg, err := kc.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			kc.updateError(fmt.Sprintf("读取Kafka消息失败: %v", err))
			slog.Error("读取Kafka消息失败", "topic", kc.config.Topic, "error", err)
			continue
		}

		kc.stats.mutex.Lock()
		kc.stats.MessagesReceived++
		kc.stats.BytesReceived += int64(len(msg.Value))
		kc.stats.mutex.Unlock()

		ingestCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, ingestErr := kc.sink.Ingest(ingestCtx, string(msg.Key), models.InboxSourceKafka, msg.Value)
		cancel()

		if ingestErr != nil {
			kc.stats.mutex.Lock()
			kc.stats.IngestErrors++
			kc.stats.mutex.Unlock()
			slog.Error("遥测报文入箱失败", "topic", kc.config.Topic,
				"device_sn", string(msg.Key), "error", ingestErr)
		}
	}
}

// updateError 更新错误信息
func (kc *KafkaConnector) updateError(errMsg string) {
	kc.stats.mutex.Lock()
	kc.stats.LastError = errMsg
	kc.stats.mutex.Unlock()
}

// IsConnected 检查连接状态
func (kc *KafkaConnector) IsConnected() bool {
	kc.mutex.RLock()
	defer kc.mutex.RUnlock()
	return kc.isConnected
}

// GetStatistics 获取接入器统计信息
func (kc *KafkaConnector) GetStatistics() map[string]interface{} {
	kc.stats.mutex.RLock()
	defer kc.stats.mutex.RUnlock()

	kc.mutex.RLock()
	defer kc.mutex.RUnlock()

	return map[string]interface{}{
		"connected":         kc.isConnected,
		"brokers":           kc.config.Brokers,
		"topic":             kc.config.Topic,
		"group_id":          kc.config.GroupID,
		"started_at":        kc.stats.StartedAt,
		"messages_received": kc.stats.MessagesReceived,
		"bytes_received":    kc.stats.BytesReceived,
		"ingest_errors":     kc.stats.IngestErrors,
		"last_error":        kc.stats.LastError,
	}
}
