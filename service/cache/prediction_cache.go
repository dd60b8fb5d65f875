/*
 * @module service/cache/prediction_cache
 * @description Redis预测缓存与告警事件发布，保存每个传感器的最近预测并向订阅方广播告警
 * @architecture 工具层 - 提供缓存与发布订阅能力
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 预测完成 -> 写入最近结果 -> 告警触发 -> 发布到告警频道
 * @rules 缓存写入失败只记录不影响预测响应；缓存键带TTL防止陈旧数据堆积
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/init.go, api/controllers/prediction_controller.go
 */

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"anomalens-service/service/models"
)

const (
	latestKeyPrefix  = "anomalens:latest:"
	alertChannel     = "anomalens:alerts"
	latestResultTTL  = time.Hour
	operationTimeout = 3 * time.Second
)

// PredictionCache Redis预测缓存
type PredictionCache struct {
	client *redis.Client
}

// NewPredictionCache 创建预测缓存并验证连接
func NewPredictionCache(addr, password string, db int) (*PredictionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}

	slog.Info("Redis预测缓存初始化成功", "addr", addr, "db", db)
	return &PredictionCache{client: client}, nil
}

// StoreLatest 保存传感器的最近一次预测结果
func (c *PredictionCache) StoreLatest(result *models.PredictionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("序列化预测结果失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	if err := c.client.Set(ctx, latestKeyPrefix+result.SensorID, data, latestResultTTL).Err(); err != nil {
		return fmt.Errorf("写入预测缓存失败: %w", err)
	}
	return nil
}

// GetLatest 读取传感器的最近一次预测结果，不存在时返回nil
func (c *PredictionCache) GetLatest(sensorID string) (*models.PredictionResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	data, err := c.client.Get(ctx, latestKeyPrefix+sensorID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取预测缓存失败: %w", err)
	}

	var result models.PredictionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("解析预测缓存失败: %w", err)
	}
	return &result, nil
}

// PublishAlert 向告警频道广播告警事件
func (c *PredictionCache) PublishAlert(alert *models.AnomalyAlert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("序列化告警事件失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	if err := c.client.Publish(ctx, alertChannel, data).Err(); err != nil {
		return fmt.Errorf("发布告警事件失败: %w", err)
	}
	return nil
}

// Close 关闭Redis连接
func (c *PredictionCache) Close() error {
	return c.client.Close()
}
