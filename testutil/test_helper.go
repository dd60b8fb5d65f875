/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"anomalens-service/service/models"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.AnomalyAlert{},
		&models.TrainingRun{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"anomaly_alerts",
		"training_runs",
	}
	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// AlertOption 告警选项函数类型
type AlertOption func(*models.AnomalyAlert)

// CreateAlert 创建测试告警
func (f *TestDataFactory) CreateAlert(opts ...AlertOption) *models.AnomalyAlert {
	alert := &models.AnomalyAlert{
		ID:           uuid.New().String(),
		SensorID:     "sensor_001",
		Severity:     "warning",
		AnomalyScore: 0.65,
		Message:      "测试告警",
		Recommendations: []string{
			"Monitor sensor closely",
			"Check for environmental changes",
		},
		TriggeredAt: time.Now(),
	}
	for _, opt := range opts {
		opt(alert)
	}
	f.DB.Create(alert)
	return alert
}

// WithSeverity 设置告警级别
func WithSeverity(severity string, score float64) AlertOption {
	return func(a *models.AnomalyAlert) {
		a.Severity = severity
		a.AnomalyScore = score
	}
}

// WithSensorID 设置传感器ID
func WithSensorID(sensorID string) AlertOption {
	return func(a *models.AnomalyAlert) {
		a.SensorID = sensorID
	}
}

// WithTriggeredAt 设置触发时间
func WithTriggeredAt(at time.Time) AlertOption {
	return func(a *models.AnomalyAlert) {
		a.TriggeredAt = at
	}
}

// NormalReading 构造一条正常工况读数
func NormalReading(sensorID string) models.SensorReading {
	return models.SensorReading{
		SensorID:    sensorID,
		Temperature: 20.5,
		Pressure:    1013.0,
		Humidity:    50.0,
		Vibration:   0.2,
	}
}

// AnomalousReading 构造一条明显异常的读数
func AnomalousReading(sensorID string) models.SensorReading {
	return models.SensorReading{
		SensorID:    sensorID,
		Temperature: 75.0,
		Pressure:    920.0,
		Humidity:    95.0,
		Vibration:   8.5,
	}
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// AssertJSONResponse 断言JSON响应
func (h *HTTPTestHelper) AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	assert.Equal(t, expectedStatus, w.Code)

	if expectedBody != nil {
		var actualBody interface{}
		err := json.Unmarshal(w.Body.Bytes(), &actualBody)
		assert.NoError(t, err)

		expectedJSON, _ := json.Marshal(expectedBody)
		actualJSON, _ := json.Marshal(actualBody)

		assert.JSONEq(t, string(expectedJSON), string(actualJSON))
	}
}
