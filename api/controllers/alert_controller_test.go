/*
 * @module api/controllers/alert_controller_test
 * @description 告警与模型管理控制器单元测试
 * @architecture 测试层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 测试准备 -> 路由挂载 -> 请求构建 -> 响应验证
 * @rules 覆盖告警查询过滤、确认流程与模型训练参数校验
 * @dependencies testing, net/http/httptest, stretchr/testify
 */

package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anomalens-service/service/models"
	"anomalens-service/testutil"
)

// TestAlertList 测试告警查询
func TestAlertList(t *testing.T) {
	svcs := newTestServices(t)
	factory := testutil.NewTestDataFactory(svcs.DB)
	factory.CreateAlert(testutil.WithSensorID("sensor_001"), testutil.WithSeverity("critical", 0.9))
	factory.CreateAlert(testutil.WithSensorID("sensor_002"))

	controller := NewAlertController(svcs)

	w := httptest.NewRecorder()
	controller.List(w, httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeAPIResponse(t, w)
	assert.Equal(t, 0, response.Status)
	data, ok := response.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, data, 2)

	w = httptest.NewRecorder()
	controller.List(w, httptest.NewRequest(http.MethodGet, "/api/v1/alerts?severity=critical", nil))
	response = decodeAPIResponse(t, w)
	data, ok = response.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, data, 1)
}

// TestAlertAcknowledgeFlow 测试通过路由确认告警
func TestAlertAcknowledgeFlow(t *testing.T) {
	svcs := newTestServices(t)
	factory := testutil.NewTestDataFactory(svcs.DB)
	alert := factory.CreateAlert()

	controller := NewAlertController(svcs)
	router := chi.NewRouter()
	router.Post("/api/v1/alerts/{alert_id}/acknowledge", controller.Acknowledge)

	helper := testutil.NewHTTPTestHelper()
	req, err := helper.CreateJSONRequest(http.MethodPost,
		"/api/v1/alerts/"+alert.ID+"/acknowledge", models.AcknowledgeRequest{User: "admin"})
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeAPIResponse(t, w)
	assert.Equal(t, 0, response.Status)

	var stored models.AnomalyAlert
	require.NoError(t, svcs.DB.First(&stored, "id = ?", alert.ID).Error)
	assert.True(t, stored.Acknowledged)
	require.NotNil(t, stored.AcknowledgedBy)
	assert.Equal(t, "admin", *stored.AcknowledgedBy)

	// 不存在的告警返回404
	req, err = helper.CreateJSONRequest(http.MethodPost,
		"/api/v1/alerts/missing-id/acknowledge", models.AcknowledgeRequest{User: "admin"})
	require.NoError(t, err)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestAlertAcknowledgeRequiresUser 测试确认人必填
func TestAlertAcknowledgeRequiresUser(t *testing.T) {
	svcs := newTestServices(t)
	factory := testutil.NewTestDataFactory(svcs.DB)
	alert := factory.CreateAlert()

	controller := NewAlertController(svcs)
	router := chi.NewRouter()
	router.Post("/api/v1/alerts/{alert_id}/acknowledge", controller.Acknowledge)

	helper := testutil.NewHTTPTestHelper()
	req, err := helper.CreateJSONRequest(http.MethodPost,
		"/api/v1/alerts/"+alert.ID+"/acknowledge", models.AcknowledgeRequest{})
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	response := decodeAPIResponse(t, w)
	assert.Equal(t, 400, response.Status)
}

// TestModelInfoNotReady 测试未就绪时查询模型信息返回503
func TestModelInfoNotReady(t *testing.T) {
	svcs := newTestServices(t)
	controller := NewModelController(svcs)

	w := httptest.NewRecorder()
	controller.GetInfo(w, httptest.NewRequest(http.MethodGet, "/api/v1/model", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// TestModelTrainAndInfo 测试训练接口与元信息查询
func TestModelTrainAndInfo(t *testing.T) {
	svcs := newTestServices(t)
	controller := NewModelController(svcs)
	helper := testutil.NewHTTPTestHelper()

	req, err := helper.CreateJSONRequest(http.MethodPost, "/api/v1/model/train",
		models.TrainingRequest{NSamples: 500, Contamination: 0.1, Algorithm: "lof"})
	require.NoError(t, err)
	w := httptest.NewRecorder()
	controller.Train(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeAPIResponse(t, w)
	assert.Equal(t, 0, response.Status)
	require.True(t, svcs.Detector.Ready())

	w = httptest.NewRecorder()
	controller.GetInfo(w, httptest.NewRequest(http.MethodGet, "/api/v1/model", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	response = decodeAPIResponse(t, w)
	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "lof", data["model_type"])
	assert.EqualValues(t, 500, data["n_samples"])
}

// TestModelTrainValidation 测试训练参数校验
func TestModelTrainValidation(t *testing.T) {
	svcs := newTestServices(t)
	controller := NewModelController(svcs)
	helper := testutil.NewHTTPTestHelper()

	cases := []models.TrainingRequest{
		{NSamples: 50, Contamination: 0.1, Algorithm: "isolation_forest"},    // 样本数过小
		{NSamples: 20000, Contamination: 0.1, Algorithm: "isolation_forest"}, // 样本数过大
		{NSamples: 500, Contamination: 0.7, Algorithm: "isolation_forest"},   // 污染率超界
		{NSamples: 500, Contamination: 0.1, Algorithm: "dbscan"},             // 未知算法
	}
	for _, tc := range cases {
		req, err := helper.CreateJSONRequest(http.MethodPost, "/api/v1/model/train", tc)
		require.NoError(t, err)
		w := httptest.NewRecorder()
		controller.Train(w, req)

		response := decodeAPIResponse(t, w)
		assert.Equal(t, 400, response.Status, "case=%+v", tc)
		assert.False(t, svcs.Detector.Ready(), "非法参数不能产生模型")
	}
}

// TestModelSaveLoadEndpoints 测试持久化接口
func TestModelSaveLoadEndpoints(t *testing.T) {
	svcs := newTestServices(t)
	trainTestModel(t, svcs)
	controller := NewModelController(svcs)
	helper := testutil.NewHTTPTestHelper()

	path := t.TempDir() + "/model.json"
	req, err := helper.CreateJSONRequest(http.MethodPost, "/api/v1/model/save",
		models.ModelBundleRequest{Path: path})
	require.NoError(t, err)
	w := httptest.NewRecorder()
	controller.Save(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// 加载到新的服务集合
	fresh := newTestServices(t)
	freshController := NewModelController(fresh)
	req, err = helper.CreateJSONRequest(http.MethodPost, "/api/v1/model/load",
		models.ModelBundleRequest{Path: path})
	require.NoError(t, err)
	w = httptest.NewRecorder()
	freshController.Load(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, fresh.Detector.Ready())
}
