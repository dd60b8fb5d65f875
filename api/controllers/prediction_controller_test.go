/*
 * @module api/controllers/prediction_controller_test
 * @description 预测与模型控制器单元测试
 * @architecture 测试层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 测试准备 -> 请求构建 -> 响应验证
 * @rules 覆盖未就绪503、校验失败400、批量部分失败与CSV上传
 * @dependencies testing, net/http/httptest, stretchr/testify
 */

package controllers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anomalens-service/service"
	"anomalens-service/service/alerting"
	"anomalens-service/service/config"
	"anomalens-service/service/detector"
	"anomalens-service/service/mlops"
	"anomalens-service/service/models"
	"anomalens-service/service/monitoring"
	"anomalens-service/testutil"
)

// newTestServices 构造测试服务集合，模型未训练
func newTestServices(t *testing.T) *service.Services {
	t.Helper()
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	settings := &config.Settings{
		AppName:              "anomalens-service",
		Version:              "1.0.0",
		DefaultAlgorithm:     "isolation_forest",
		DefaultContamination: 0.1,
		MinTrainingSamples:   10,
		CriticalThreshold:    0.8,
		WarningThreshold:     0.6,
		AlertMinSeverity:     "warning",
		MaxBatchSize:         1000,
		RetrainSamples:       1000,
	}
	require.NoError(t, settings.Validate())

	classifier, err := detector.NewSeverityClassifier(settings.WarningThreshold, settings.CriticalThreshold)
	require.NoError(t, err)
	det := detector.New(classifier, settings.MinTrainingSamples, config.FeatureColumns)

	return &service.Services{
		Config:    settings,
		DB:        tdb.DB,
		Detector:  det,
		Generator: mlops.NewDataGenerator(42),
		Alerts:    alerting.NewService(tdb.DB, settings.AlertMinSeverity, nil, nil, nil),
	}
}

// trainTestModel 用合成数据训练测试模型
func trainTestModel(t *testing.T, svcs *service.Services) {
	t.Helper()
	samples := svcs.Generator.GenerateTrainingData(500, 0.1)
	require.NoError(t, svcs.Detector.Train(detector.AlgorithmIsolationForest, samples, 0.1))
}

func decodeAPIResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var response APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

// TestPredictModelNotReady 测试模型未就绪时返回503
func TestPredictModelNotReady(t *testing.T) {
	svcs := newTestServices(t)
	controller := NewPredictionController(svcs)
	helper := testutil.NewHTTPTestHelper()

	req, err := helper.CreateJSONRequest(http.MethodPost, "/api/v1/predict", testutil.NormalReading("sensor_001"))
	require.NoError(t, err)
	w := httptest.NewRecorder()

	controller.Predict(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	response := decodeAPIResponse(t, w)
	assert.Equal(t, http.StatusServiceUnavailable, response.Status)
}

// TestPredictSuccess 测试单条评分成功
func TestPredictSuccess(t *testing.T) {
	svcs := newTestServices(t)
	trainTestModel(t, svcs)
	controller := NewPredictionController(svcs)
	helper := testutil.NewHTTPTestHelper()

	req, err := helper.CreateJSONRequest(http.MethodPost, "/api/v1/predict", testutil.NormalReading("sensor_001"))
	require.NoError(t, err)
	w := httptest.NewRecorder()

	controller.Predict(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeAPIResponse(t, w)
	assert.Equal(t, 0, response.Status)

	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "sensor_001", data["sensor_id"])
	assert.Contains(t, data, "anomaly_score")
	assert.Contains(t, data, "severity")
	assert.Contains(t, data, "recommendations")
}

// TestPredictValidationError 测试超范围读数返回400
func TestPredictValidationError(t *testing.T) {
	svcs := newTestServices(t)
	trainTestModel(t, svcs)
	controller := NewPredictionController(svcs)
	helper := testutil.NewHTTPTestHelper()

	bad := testutil.NormalReading("sensor_001")
	bad.Temperature = 150

	req, err := helper.CreateJSONRequest(http.MethodPost, "/api/v1/predict", bad)
	require.NoError(t, err)
	w := httptest.NewRecorder()

	controller.Predict(w, req)

	response := decodeAPIResponse(t, w)
	assert.Equal(t, 400, response.Status)
	assert.Contains(t, response.Msg, "temperature")
}

// TestPredictBatchPartialFailure 测试批量中的失败项只影响自身
func TestPredictBatchPartialFailure(t *testing.T) {
	svcs := newTestServices(t)
	trainTestModel(t, svcs)
	controller := NewPredictionController(svcs)
	helper := testutil.NewHTTPTestHelper()

	bad := testutil.NormalReading("sensor_002")
	bad.Vibration = 99

	batch := models.BatchSensorData{Readings: []models.SensorReading{
		testutil.NormalReading("sensor_001"),
		bad,
		testutil.AnomalousReading("sensor_003"),
	}}

	req, err := helper.CreateJSONRequest(http.MethodPost, "/api/v1/predict/batch", batch)
	require.NoError(t, err)
	w := httptest.NewRecorder()

	controller.PredictBatch(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeAPIResponse(t, w)
	assert.Equal(t, 0, response.Status)

	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	summary, ok := data["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 3, summary["total_readings"])
	assert.EqualValues(t, 2, summary["succeeded"])
	assert.EqualValues(t, 1, summary["failed"])
}

// TestPredictBatchDuplicateSensorIDs 测试批内重复sensor_id被拒绝
func TestPredictBatchDuplicateSensorIDs(t *testing.T) {
	svcs := newTestServices(t)
	trainTestModel(t, svcs)
	controller := NewPredictionController(svcs)
	helper := testutil.NewHTTPTestHelper()

	batch := models.BatchSensorData{Readings: []models.SensorReading{
		testutil.NormalReading("sensor_001"),
		testutil.NormalReading("sensor_001"),
	}}

	req, err := helper.CreateJSONRequest(http.MethodPost, "/api/v1/predict/batch", batch)
	require.NoError(t, err)
	w := httptest.NewRecorder()

	controller.PredictBatch(w, req)

	response := decodeAPIResponse(t, w)
	assert.Equal(t, 400, response.Status)
}

// TestPredictUploadCSV 测试CSV上传评分
func TestPredictUploadCSV(t *testing.T) {
	svcs := newTestServices(t)
	trainTestModel(t, svcs)
	controller := NewPredictionController(svcs)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "readings.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(
		"sensor_id,temperature,pressure,humidity,vibration\n" +
			"sensor_001,20.5,1013.0,50.0,0.2\n" +
			"sensor_002,80.0,920.0,95.0,8.5\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()

	controller.PredictUpload(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeAPIResponse(t, w)
	assert.Equal(t, 0, response.Status)

	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	results, ok := data["results"].([]interface{})
	require.True(t, ok)
	assert.Len(t, results, 2)
}

// TestPredictAlertFailureIsolated 测试告警落库失败不影响评分响应且失败被计数
func TestPredictAlertFailureIsolated(t *testing.T) {
	svcs := newTestServices(t)
	trainTestModel(t, svcs)
	// 任何异常都触发告警，便于覆盖落库路径
	svcs.Alerts = alerting.NewService(svcs.DB, "info", nil, nil, nil)
	controller := NewPredictionController(svcs)
	helper := testutil.NewHTTPTestHelper()

	// 关闭底层连接，告警落库必然失败
	sqlDB, err := svcs.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	before := promtestutil.ToFloat64(monitoring.AlertHandleFailuresTotal)

	req, err := helper.CreateJSONRequest(http.MethodPost, "/api/v1/predict",
		testutil.AnomalousReading("sensor_001"))
	require.NoError(t, err)
	w := httptest.NewRecorder()
	controller.Predict(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "告警失败不能影响评分响应")
	response := decodeAPIResponse(t, w)
	assert.Equal(t, 0, response.Status)
	assert.Equal(t, before+1, promtestutil.ToFloat64(monitoring.AlertHandleFailuresTotal),
		"落库失败必须被计数")
}

// TestPredictUploadMissingColumn 测试缺少必需列的CSV被拒绝
func TestPredictUploadMissingColumn(t *testing.T) {
	svcs := newTestServices(t)
	trainTestModel(t, svcs)
	controller := NewPredictionController(svcs)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "readings.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("sensor_id,temperature\nsensor_001,20.5\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()

	controller.PredictUpload(w, req)

	response := decodeAPIResponse(t, w)
	assert.Equal(t, 400, response.Status)
}

// TestHealthAndReady 测试健康与就绪检查
func TestHealthAndReady(t *testing.T) {
	svcs := newTestServices(t)
	controller := NewHealthController(svcs.Detector, svcs.Config.Version)

	w := httptest.NewRecorder()
	controller.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	controller.Ready(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "未训练时就绪检查失败")

	trainTestModel(t, svcs)
	w = httptest.NewRecorder()
	controller.Ready(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
