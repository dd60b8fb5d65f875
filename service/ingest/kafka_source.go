/*
 * @module service/ingest/kafka_source
 * @description Kafka读数摄入源，消费传感器主题并把读数送入评分链路
 * @architecture 适配器模式 - 封装kafka-go消费者，统一为读数回调
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 创建Reader -> 消费循环 -> 消息解析 -> 回调处理 -> 上下文取消退出
 * @rules 单条消息解析或处理失败只计数跳过；消费循环由上下文取消优雅退出
 * @dependencies github.com/segmentio/kafka-go, encoding/json
 * @refs service/init.go
 */

package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"anomalens-service/service/models"
	"anomalens-service/service/monitoring"
)

// KafkaSource Kafka读数摄入源
type KafkaSource struct {
	reader  *kafka.Reader
	handler ReadingHandler

	mutex sync.RWMutex
	stats SourceStats

	cancel context.CancelFunc
	done   chan struct{}
}

// NewKafkaSource 创建Kafka摄入源
func NewKafkaSource(brokers []string, topic, groupID string, handler ReadingHandler) *KafkaSource {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
	return &KafkaSource{
		reader:  reader,
		handler: handler,
		done:    make(chan struct{}),
	}
}

// Start 启动消费循环
func (s *KafkaSource) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.mutex.Lock()
	s.stats.ConnectedAt = time.Now()
	s.mutex.Unlock()

	go s.consumeLoop(ctx)
	slog.Info("Kafka摄入源已启动", "topic", s.reader.Config().Topic)
}

// Stop 取消消费循环并关闭Reader
func (s *KafkaSource) Stop() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return s.reader.Close()
}

// Stats 返回统计信息快照
func (s *KafkaSource) Stats() SourceStats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.stats
}

// consumeLoop 消费循环，上下文取消时退出
func (s *KafkaSource) consumeLoop(ctx context.Context) {
	defer close(s.done)
	for {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("Kafka消费循环退出")
				return
			}
			s.recordFailure(err.Error())
			slog.Warn("Kafka消息读取失败", "error", err)
			continue
		}

		var reading models.SensorReading
		if err := json.Unmarshal(msg.Value, &reading); err != nil {
			s.recordFailure(err.Error())
			monitoring.IngestMessagesTotal.WithLabelValues("kafka", "parse_error").Inc()
			slog.Warn("Kafka消息解析失败", "offset", msg.Offset, "error", err)
			continue
		}

		if err := s.handler(reading); err != nil {
			s.recordFailure(err.Error())
			monitoring.IngestMessagesTotal.WithLabelValues("kafka", "handler_error").Inc()
			slog.Warn("Kafka读数处理失败", "sensor_id", reading.SensorID, "error", err)
			continue
		}

		s.mutex.Lock()
		s.stats.MessagesReceived++
		s.mutex.Unlock()
		monitoring.IngestMessagesTotal.WithLabelValues("kafka", "ok").Inc()
	}
}

func (s *KafkaSource) recordFailure(message string) {
	s.mutex.Lock()
	s.stats.MessagesFailed++
	s.stats.LastError = message
	s.mutex.Unlock()
}
