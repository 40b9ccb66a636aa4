/*
 * @module MQTTConnector
 * @description MQTT遥测接入器，订阅检测仪上报主题并把报文送入设备报文收件箱
 * @architecture 适配器模式 - 封装第三方MQTT客户端，向收件箱投递
 * @documentReference ai_docs/device_inbox_req.md
 * @stateFlow 连接建立 -> 主题订阅 -> 报文入箱 -> 连接断开
 * @rules 断线自动重连后重新订阅；投递失败只记日志不阻塞接收；设备序列号取自主题段 devices/{sn}/telemetry
 * @dependencies github.com/eclipse/paho.mqtt.golang, log/slog
 * @refs service/inbox/service.go
 */
package connectors

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"columnqc-service/service/models"
)

// TelemetrySink 遥测报文的投递目标
type TelemetrySink interface {
	Ingest(ctx context.Context, deviceSN, source string, payload []byte) (*models.DeviceMessageInbox, error)
}

// MQTTConfig MQTT接入配置
type MQTTConfig struct {
	Broker    string        `json:"broker"`
	ClientID  string        `json:"client_id"`
	Username  string        `json:"username"`
	Password  string        `json:"password"`
	Topic     string        `json:"topic"` // 默认 devices/+/telemetry
	QoS       byte          `json:"qos"`
	KeepAlive time.Duration `json:"keep_alive"`
}

// MQTTStats MQTT接入器统计信息
type MQTTStats struct {
	ConnectedAt      time.Time `json:"connected_at"`      // 连接时间
	MessagesReceived int64     `json:"messages_received"` // 接收报文数
	BytesReceived    int64     `json:"bytes_received"`    // 接收字节数
	IngestErrors     int64     `json:"ingest_errors"`     // 入箱失败数
	ReconnectCount   int       `json:"reconnect_count"`   // 重连次数
	LastError        string    `json:"last_error"`        // 最后错误信息
	mutex            sync.RWMutex
}

// MQTTConnector MQTT遥测接入器
type MQTTConnector struct {
	config      *MQTTConfig
	client      mqtt.Client
	sink        TelemetrySink
	mutex       sync.RWMutex
	isConnected bool
	stats       *MQTTStats
}

// NewMQTTConnector 创建MQTT遥测接入器
func NewMQTTConnector(config *MQTTConfig, sink TelemetrySink) *MQTTConnector {
	if config.Topic == "" {
		config.Topic = "devices/+/telemetry"
	}

	connector := &MQTTConnector{
		config: config,
		sink:   sink,
		stats:  &MQTTStats{},
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	if config.KeepAlive > 0 {
		opts.SetKeepAlive(config.KeepAlive)
	}
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(connector.onConnected)
	opts.SetConnectionLostHandler(connector.onConnectionLost)

	connector.client = mqtt.NewClient(opts)
	return connector
}

// Connect 建立MQTT连接并订阅遥测主题
func (mc *MQTTConnector) Connect() error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if mc.isConnected {
		return nil
	}

	slog.Info("正在连接MQTT broker", "broker", mc.config.Broker)

	if token := mc.client.Connect(); token.Wait() && token.Error() != nil {
		mc.updateError(fmt.Sprintf("MQTT连接失败: %v", token.Error()))
		return fmt.Errorf("MQTT连接失败: %v", token.Error())
	}

	mc.isConnected = true
	mc.stats.ConnectedAt = time.Now()
	return nil
}

// Disconnect 断开MQTT连接
func (mc *MQTTConnector) Disconnect() error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if !mc.isConnected {
		return nil
	}

	if token := mc.client.Unsubscribe(mc.config.Topic); token.Wait() && token.Error() != nil {
		slog.Warn("取消订阅失败", "topic", mc.config.Topic, "error", token.Error())
	}
	mc.client.Disconnect(250) // 等待250ms让在途报文送达

	mc.isConnected = false
	slog.Info("MQTT遥测接入器已断开连接")
	return nil
}

// onConnected 连接建立后订阅遥测主题，重连时同样走这里恢复订阅
func (mc *MQTTConnector) onConnected(client mqtt.Client) {
	mc.mutex.Lock()
	mc.isConnected = true
	mc.stats.ConnectedAt = time.Now()
	mc.mutex.Unlock()

	token := client.Subscribe(mc.config.Topic, mc.config.QoS, mc.messageHandler)
	if token.Wait() && token.Error() != nil {
		mc.updateError(fmt.Sprintf("订阅遥测主题失败: %v", token.Error()))
		slog.Error("订阅遥测主题失败", "topic", mc.config.Topic, "error", token.Error())
		return
	}
	slog.Info("已订阅遥测主题", "topic", mc.config.Topic, "qos", mc.config.QoS)
}

// onConnectionLost 连接丢失处理器
func (mc *MQTTConnector) onConnectionLost(client mqtt.Client, err error) {
	mc.mutex.Lock()
	mc.isConnected = false
	mc.stats.ReconnectCount++
	mc.mutex.Unlock()

	mc.updateError(fmt.Sprintf("MQTT连接丢失: %v", err))
	slog.Warn("MQTT连接丢失，等待自动重连", "error", err)
}

// messageHandler 把收到的遥测报文送入收件箱
func (mc *MQTTConnector) messageHandler(client mqtt.Client, msg mqtt.Message) {
	mc.stats.mutex.Lock()
	mc.stats.MessagesReceived++
	mc.stats.BytesReceived += int64(len(msg.Payload()))
	mc.stats.mutex.Unlock()

	deviceSN := deviceSNFromTopic(msg.Topic())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := mc.sink.Ingest(ctx, deviceSN, models.InboxSourceMQTT, msg.Payload()); err != nil {
		mc.stats.mutex.Lock()
		mc.stats.IngestErrors++
		mc.stats.mutex.Unlock()
		slog.Error("遥测报文入箱失败", "topic", msg.Topic(), "device_sn", deviceSN, "error", err)
	}
}

// deviceSNFromTopic 从 devices/{sn}/telemetry 主题中取设备序列号
func deviceSNFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 && parts[0] == "devices" {
		return parts[1]
	}
	return ""
}

// updateError 更新错误信息
func (mc *MQTTConnector) updateError(errMsg string) {
	mc.stats.mutex.Lock()
	mc.stats.LastError = errMsg
	mc.stats.mutex.Unlock()
}

// IsConnected 检查连接状态
func (mc *MQTTConnector) IsConnected() bool {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()
	return mc.isConnected
}

// GetStatistics 获取接入器统计信息
func (mc *MQTTConnector) GetStatistics() map[string]interface{} {
	mc.stats.mutex.RLock()
	defer mc.stats.mutex.RUnlock()

	mc.mutex.RLock()
	defer mc.mutex.RUnlock()

	return map[string]interface{}{
		"connected":         mc.isConnected,
		"broker":            mc.config.Broker,
		"client_id":         mc.config.ClientID,
		"topic":             mc.config.Topic,
		"connected_at":      mc.stats.ConnectedAt,
		"messages_received": mc.stats.MessagesReceived,
		"bytes_received":    mc.stats.BytesReceived,
		"ingest_errors":     mc.stats.IngestErrors,
		"reconnect_count":   mc.stats.ReconnectCount,
		"last_error":        mc.stats.LastError,
	}
}
