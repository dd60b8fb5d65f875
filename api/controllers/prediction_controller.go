/*
 * @module api/controllers/prediction_controller
 * @description 预测控制器，提供单条评分、批量评分、CSV上传评分与最近结果查询
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 请求解析 -> 校验 -> 评分 -> 缓存与告警 -> 统一响应
 * @rules 校验失败返回400，模型未就绪返回503；批量中单项失败只影响自身
 * @dependencies github.com/go-chi/render, golang.org/x/text
 * @refs service/detector/detector.go, service/alerting/alert_service.go
 */

package controllers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"

	"anomalens-service/service"
	"anomalens-service/service/detector"
	"anomalens-service/service/models"
	"anomalens-service/service/monitoring"
)

// PredictionController 预测控制器
type PredictionController struct {
	services *service.Services
}

// NewPredictionController 创建预测控制器实例
func NewPredictionController(services *service.Services) *PredictionController {
	return &PredictionController{services: services}
}

// Predict 单条读数评分
// @Summary 单条读数异常评分
// @Description 对一条传感器读数做异常评分与严重级别分级
// @Tags 预测
// @Accept json
// @Produce json
// @Param reading body models.SensorReading true "传感器读数"
// @Success 200 {object} APIResponse{data=models.PredictionResult}
// @Failure 400 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/predict [post]
func (c *PredictionController) Predict(w http.ResponseWriter, r *http.Request) {
	var reading models.SensorReading
	if err := render.DecodeJSON(r.Body, &reading); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	start := time.Now()
	result, err := c.services.Detector.Predict(&reading)
	monitoring.PredictionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		c.renderPredictError(w, r, err)
		return
	}

	c.postProcess(result)
	monitoring.PredictionsTotal.WithLabelValues("ok").Inc()
	render.JSON(w, r, SuccessResponse("评分完成", result))
}

// PredictBatch 批量读数评分
// @Summary 批量读数异常评分
// @Description 对一批传感器读数逐条评分，单项失败不影响其他项，返回逐项结果与统计摘要
// @Tags 预测
// @Accept json
// @Produce json
// @Param batch body models.BatchSensorData true "批量读数"
// @Success 200 {object} APIResponse{data=models.BatchPredictionResponse}
// @Failure 400 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Router /api/v1/predict/batch [post]
func (c *PredictionController) PredictBatch(w http.ResponseWriter, r *http.Request) {
	var batch models.BatchSensorData
	if err := render.DecodeJSON(r.Body, &batch); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}
	c.scoreBatch(w, r, batch.Readings)
}

// PredictUpload CSV文件批量评分
// @Summary CSV上传批量评分
// @Description 上传CSV文件批量评分，列为sensor_id,temperature,pressure,humidity,vibration；非UTF-8编码自动按GBK/Latin-1回退解码
// @Tags 预测
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV文件"
// @Success 200 {object} APIResponse{data=models.BatchPredictionResponse}
// @Failure 400 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Router /api/v1/predict/upload [post]
func (c *PredictionController) PredictUpload(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		render.JSON(w, r, BadRequestResponse("读取上传文件失败", err))
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, 10<<20))
	if err != nil {
		render.JSON(w, r, BadRequestResponse("读取上传文件失败", err))
		return
	}

	readings, err := parseReadingsCSV(raw)
	if err != nil {
		render.JSON(w, r, BadRequestResponse("CSV解析失败", err))
		return
	}
	c.scoreBatch(w, r, readings)
}

// GetLatest 查询传感器最近一次预测结果
// @Summary 查询最近预测结果
// @Description 从缓存查询指定传感器的最近一次预测结果
// @Tags 预测
// @Produce json
// @Param sensor_id path string true "传感器ID"
// @Success 200 {object} APIResponse{data=models.PredictionResult}
// @Failure 404 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Router /api/v1/predict/latest/{sensor_id} [get]
func (c *PredictionController) GetLatest(w http.ResponseWriter, r *http.Request) {
	if c.services.Cache == nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, ErrorResponse(http.StatusServiceUnavailable, "预测缓存未启用", nil))
		return
	}

	sensorID := chi.URLParam(r, "sensor_id")
	result, err := c.services.Cache.GetLatest(sensorID)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询预测缓存失败", err))
		return
	}
	if result == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse(http.StatusNotFound, fmt.Sprintf("传感器 %s 没有缓存的预测结果", sensorID), nil))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", result))
}

// scoreBatch 批量评分的共用实现
func (c *PredictionController) scoreBatch(w http.ResponseWriter, r *http.Request, readings []models.SensorReading) {
	batch := models.BatchSensorData{Readings: readings}
	if err := batch.Validate(c.services.Config.MaxBatchSize); err != nil {
		render.JSON(w, r, BadRequestResponse("批量请求校验失败", err))
		return
	}

	start := time.Now()
	results, err := c.services.Detector.PredictBatch(r.Context(), readings)
	if err != nil && len(results) == 0 {
		c.renderPredictError(w, r, err)
		return
	}

	for i := range results {
		if results[i].Prediction != nil {
			c.postProcess(results[i].Prediction)
			monitoring.PredictionsTotal.WithLabelValues("ok").Inc()
		} else {
			monitoring.PredictionsTotal.WithLabelValues("error").Inc()
		}
	}

	response := models.BatchPredictionResponse{
		Results:          results,
		Summary:          models.Summarize(results),
		ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}
	msg := "批量评分完成"
	if err != nil {
		msg = "批量评分被取消，返回部分结果"
	}
	render.JSON(w, r, SuccessResponse(msg, response))
}

// postProcess 评分成功后的缓存写入、异常计数与告警分发
func (c *PredictionController) postProcess(result *models.PredictionResult) {
	if c.services.Cache != nil {
		if err := c.services.Cache.StoreLatest(result); err != nil {
			monitoring.PredictionsTotal.WithLabelValues("cache_error").Inc()
		}
	}
	if result.IsAnomaly {
		monitoring.AnomaliesTotal.WithLabelValues(result.SensorID, result.Severity).Inc()
		if _, err := c.services.Alerts.HandlePrediction(result); err != nil {
			monitoring.AlertHandleFailuresTotal.Inc()
			slog.Error("告警处理失败", "sensor_id", result.SensorID, "error", err)
		}
	}
}

// renderPredictError 评分错误到HTTP状态的映射
func (c *PredictionController) renderPredictError(w http.ResponseWriter, r *http.Request, err error) {
	monitoring.PredictionsTotal.WithLabelValues("error").Inc()

	var validationErr *models.ValidationError
	var notReadyErr *detector.NotReadyError
	switch {
	case errors.As(err, &validationErr):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("读数校验失败", err))
	case errors.As(err, &notReadyErr):
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, ErrorResponse(http.StatusServiceUnavailable, "模型未就绪", err))
	default:
		render.JSON(w, r, InternalErrorResponse("评分失败", err))
	}
}

// parseReadingsCSV 解析CSV为读数列表，非UTF-8时按GBK、Latin-1顺序回退解码
func parseReadingsCSV(raw []byte) ([]models.SensorReading, error) {
	if !utf8.Valid(raw) {
		if decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw); err == nil && utf8.Valid(decoded) {
			raw = decoded
		} else if decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw); err == nil {
			raw = decoded
		} else {
			return nil, fmt.Errorf("无法识别文件编码")
		}
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %v", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, required := range []string{"sensor_id", "temperature", "pressure", "humidity", "vibration"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("缺少必需列: %s", required)
		}
	}

	var readings []models.SensorReading
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("第%d行解析失败: %v", line, err)
		}

		reading := models.SensorReading{SensorID: record[columns["sensor_id"]]}
		for name, target := range map[string]*float64{
			"temperature": &reading.Temperature,
			"pressure":    &reading.Pressure,
			"humidity":    &reading.Humidity,
			"vibration":   &reading.Vibration,
		} {
			value, parseErr := strconv.ParseFloat(record[columns[name]], 64)
			if parseErr != nil {
				return nil, fmt.Errorf("第%d行%s字段非法: %v", line, name, parseErr)
			}
			*target = value
		}
		readings = append(readings, reading)
	}
	return readings, nil
}
