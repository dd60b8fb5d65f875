/*
 * @module api/controllers/model_controller
 * @description 模型管理控制器，提供模型元信息查询、训练、持久化与训练历史查询
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 请求解析 -> 参数校验 -> 训练/持久化 -> 统一响应
 * @rules 训练参数非法返回400；训练失败保留旧模型并返回500
 * @dependencies github.com/go-chi/render
 * @refs service/detector/detector.go, service/scheduler/retrain_scheduler.go
 */

package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"

	"anomalens-service/service"
	"anomalens-service/service/detector"
	"anomalens-service/service/models"
	"anomalens-service/service/monitoring"
)

// ModelController 模型管理控制器
type ModelController struct {
	services *service.Services
}

// NewModelController 创建模型管理控制器实例
func NewModelController(services *service.Services) *ModelController {
	return &ModelController{services: services}
}

// GetInfo 查询模型元信息
// @Summary 查询模型元信息
// @Description 返回当前已加载模型的算法、训练时间、样本量与超参数
// @Tags 模型
// @Produce json
// @Success 200 {object} APIResponse{data=models.ModelInfo}
// @Failure 503 {object} APIResponse
// @Router /api/v1/model [get]
func (c *ModelController) GetInfo(w http.ResponseWriter, r *http.Request) {
	info, err := c.services.Detector.Info()
	if err != nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, ErrorResponse(http.StatusServiceUnavailable, "模型未就绪", err))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", info))
}

// Train 训练模型
// @Summary 训练模型
// @Description 用合成数据训练指定算法的模型，成功后原子替换当前模型
// @Tags 模型
// @Accept json
// @Produce json
// @Param request body models.TrainingRequest true "训练参数"
// @Success 200 {object} APIResponse{data=models.TrainingResponse}
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/model/train [post]
func (c *ModelController) Train(w http.ResponseWriter, r *http.Request) {
	var req models.TrainingRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	if req.NSamples == 0 {
		req.NSamples = c.services.Config.RetrainSamples
	}
	if req.NSamples < 100 || req.NSamples > 10000 {
		render.JSON(w, r, BadRequestResponse("训练样本数必须落在[100,10000]区间", nil))
		return
	}
	if req.Contamination == 0 {
		req.Contamination = c.services.Config.DefaultContamination
	}
	if req.Contamination <= 0 || req.Contamination > 0.5 {
		render.JSON(w, r, BadRequestResponse("污染率必须落在(0,0.5]区间", nil))
		return
	}
	if req.Algorithm == "" {
		req.Algorithm = c.services.Config.DefaultAlgorithm
	}
	algorithm, err := detector.ParseAlgorithm(req.Algorithm)
	if err != nil {
		render.JSON(w, r, BadRequestResponse("算法不受支持", err))
		return
	}

	samples := c.services.Generator.GenerateTrainingData(req.NSamples, req.Contamination)
	if err := c.services.Detector.Train(algorithm, samples, req.Contamination); err != nil {
		var insufficientErr *detector.InsufficientDataError
		if errors.As(err, &insufficientErr) {
			render.JSON(w, r, BadRequestResponse("训练数据不足", err))
			return
		}
		monitoring.TrainingRunsTotal.WithLabelValues("api", "failed").Inc()
		render.JSON(w, r, InternalErrorResponse("模型训练失败", err))
		return
	}

	monitoring.TrainingRunsTotal.WithLabelValues("api", "success").Inc()
	monitoring.ModelReady.Set(1)
	render.JSON(w, r, SuccessResponse("模型训练完成", models.TrainingResponse{
		Success: true,
		ModelID: "model_" + time.Now().UTC().Format("20060102_150405"),
		Message: "模型训练完成",
	}))
}

// Save 持久化模型
// @Summary 持久化模型
// @Description 把当前模型快照写入磁盘，path缺省时使用配置的默认路径
// @Tags 模型
// @Accept json
// @Produce json
// @Param request body models.ModelBundleRequest false "持久化参数"
// @Success 200 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/model/save [post]
func (c *ModelController) Save(w http.ResponseWriter, r *http.Request) {
	path := c.decodePath(r)
	if err := c.services.Detector.Save(path); err != nil {
		var notReadyErr *detector.NotReadyError
		if errors.As(err, &notReadyErr) {
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, ErrorResponse(http.StatusServiceUnavailable, "模型未就绪", err))
			return
		}
		render.JSON(w, r, InternalErrorResponse("模型保存失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("模型已保存", map[string]string{"path": path}))
}

// Load 加载模型
// @Summary 加载模型
// @Description 从磁盘恢复模型快照，持久化包损坏时保留当前模型
// @Tags 模型
// @Accept json
// @Produce json
// @Param request body models.ModelBundleRequest false "加载参数"
// @Success 200 {object} APIResponse{data=models.ModelInfo}
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/model/load [post]
func (c *ModelController) Load(w http.ResponseWriter, r *http.Request) {
	path := c.decodePath(r)
	if err := c.services.Detector.Load(path); err != nil {
		var corruptErr *detector.CorruptStateError
		if errors.As(err, &corruptErr) {
			render.JSON(w, r, BadRequestResponse("模型持久化包损坏", err))
			return
		}
		render.JSON(w, r, InternalErrorResponse("模型加载失败", err))
		return
	}

	monitoring.ModelReady.Set(1)
	info, _ := c.services.Detector.Info()
	render.JSON(w, r, SuccessResponse("模型已加载", info))
}

// TrainingHistory 查询训练历史
// @Summary 查询训练历史
// @Description 返回最近的训练流水线执行记录
// @Tags 模型
// @Produce json
// @Param limit query int false "返回条数上限" default(20)
// @Success 200 {object} APIResponse{data=[]models.TrainingRun}
// @Failure 500 {object} APIResponse
// @Router /api/v1/model/training-history [get]
func (c *ModelController) TrainingHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := parsePositiveInt(v); err == nil {
			limit = parsed
		}
	}

	runs, err := c.services.Scheduler.RecentRuns(limit)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询训练历史失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", runs))
}

// parsePositiveInt 解析正整数查询参数
func parsePositiveInt(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("必须为正整数: %d", v)
	}
	return v, nil
}

// decodePath 解析持久化路径，缺省回落到配置的默认路径
func (c *ModelController) decodePath(r *http.Request) string {
	var req models.ModelBundleRequest
	_ = render.DecodeJSON(r.Body, &req)
	if req.Path == "" {
		return c.services.Config.ModelPath
	}
	return req.Path
}
