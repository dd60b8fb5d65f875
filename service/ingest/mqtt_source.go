/*
 * @module service/ingest/mqtt_source
 * @description MQTT读数摄入源，订阅传感器主题并把读数送入评分链路
 * @architecture 适配器模式 - 封装第三方MQTT客户端，统一为读数回调
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 连接建立 -> 主题订阅 -> 消息解析 -> 回调处理 -> 连接断开
 * @rules 单条消息解析或处理失败只计数跳过，不中断订阅；支持自动重连
 * @dependencies github.com/eclipse/paho.mqtt.golang, encoding/json
 * @refs service/init.go
 */

package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"anomalens-service/service/models"
	"anomalens-service/service/monitoring"
)

// ReadingHandler 读数处理回调，由评分链路实现
type ReadingHandler func(reading models.SensorReading) error

// MQTTSource MQTT读数摄入源
type MQTTSource struct {
	broker  string
	topic   string
	client  mqtt.Client
	handler ReadingHandler

	mutex       sync.RWMutex
	isConnected bool
	stats       SourceStats
}

// SourceStats 摄入源统计信息
type SourceStats struct {
	ConnectedAt      time.Time `json:"connected_at"`
	MessagesReceived int64     `json:"messages_received"`
	MessagesFailed   int64     `json:"messages_failed"`
	ReconnectCount   int       `json:"reconnect_count"`
	LastError        string    `json:"last_error"`
}

// NewMQTTSource 创建MQTT摄入源
func NewMQTTSource(broker, topic, clientID string, handler ReadingHandler) *MQTTSource {
	source := &MQTTSource{
		broker:  broker,
		topic:   topic,
		handler: handler,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetOnConnectHandler(source.onConnected)
	opts.SetConnectionLostHandler(source.onConnectionLost)

	source.client = mqtt.NewClient(opts)
	return source
}

// Start 建立连接，订阅在连接回调中完成以便重连后自动恢复
func (s *MQTTSource) Start() error {
	slog.Info("正在连接MQTT broker", "broker", s.broker, "topic", s.topic)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT连接失败: %v", token.Error())
	}
	return nil
}

// Stop 断开连接
func (s *MQTTSource) Stop() {
	s.client.Disconnect(250)
	s.mutex.Lock()
	s.isConnected = false
	s.mutex.Unlock()
}

// Stats 返回统计信息快照
func (s *MQTTSource) Stats() SourceStats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.stats
}

// onConnected 连接建立后订阅传感器主题
func (s *MQTTSource) onConnected(client mqtt.Client) {
	s.mutex.Lock()
	if !s.stats.ConnectedAt.IsZero() {
		s.stats.ReconnectCount++
	}
	s.stats.ConnectedAt = time.Now()
	s.isConnected = true
	s.mutex.Unlock()

	if token := client.Subscribe(s.topic, 1, s.onMessage); token.Wait() && token.Error() != nil {
		slog.Error("MQTT主题订阅失败", "topic", s.topic, "error", token.Error())
		return
	}
	slog.Info("MQTT摄入源已就绪", "broker", s.broker, "topic", s.topic)
}

// onConnectionLost 连接丢失记录，自动重连由客户端负责
func (s *MQTTSource) onConnectionLost(client mqtt.Client, err error) {
	s.mutex.Lock()
	s.isConnected = false
	s.stats.LastError = err.Error()
	s.mutex.Unlock()
	slog.Warn("MQTT连接丢失，等待自动重连", "broker", s.broker, "error", err)
}

// onMessage 解析读数并送入评分链路
func (s *MQTTSource) onMessage(client mqtt.Client, msg mqtt.Message) {
	var reading models.SensorReading
	if err := json.Unmarshal(msg.Payload(), &reading); err != nil {
		s.recordFailure(fmt.Sprintf("消息解析失败: %v", err))
		monitoring.IngestMessagesTotal.WithLabelValues("mqtt", "parse_error").Inc()
		slog.Warn("MQTT消息解析失败", "topic", msg.Topic(), "error", err)
		return
	}

	if err := s.handler(reading); err != nil {
		s.recordFailure(err.Error())
		monitoring.IngestMessagesTotal.WithLabelValues("mqtt", "handler_error").Inc()
		slog.Warn("MQTT读数处理失败", "sensor_id", reading.SensorID, "error", err)
		return
	}

	s.mutex.Lock()
	s.stats.MessagesReceived++
	s.mutex.Unlock()
	monitoring.IngestMessagesTotal.WithLabelValues("mqtt", "ok").Inc()
}

func (s *MQTTSource) recordFailure(message string) {
	s.mutex.Lock()
	s.stats.MessagesFailed++
	s.stats.LastError = message
	s.mutex.Unlock()
}
