/*
 * @module api/controllers/health_controller
 * @description 健康检查控制器，提供服务健康状态与模型就绪检查
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow HTTP请求处理流程
 * @rules /health只反映进程存活；/ready额外反映模型是否可提供预测
 * @dependencies net/http
 * @refs service/detector/detector.go
 */

package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"anomalens-service/service/detector"
)

// HealthController 健康检查控制器
type HealthController struct {
	detector *detector.Detector
	version  string
}

// NewHealthController 创建健康检查控制器实例
func NewHealthController(det *detector.Detector, version string) *HealthController {
	return &HealthController{detector: det, version: version}
}

// HealthResponse 健康检查响应结构
type HealthResponse struct {
	Status     string    `json:"status" example:"ok"`
	Timestamp  time.Time `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	Version    string    `json:"version" example:"1.0.0"`
	Service    string    `json:"service" example:"anomalens-service"`
	ModelReady bool      `json:"model_ready" example:"true"`
}

// Health 健康检查
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:     "ok",
		Timestamp:  time.Now(),
		Version:    c.version,
		Service:    "anomalens-service",
		ModelReady: c.detector.Ready(),
	})
}

// Ready 就绪检查
// @Summary 就绪检查
// @Description 检查服务是否就绪，模型未训练或未加载时返回503
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /ready [get]
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:     "ready",
		Timestamp:  time.Now(),
		Version:    c.version,
		Service:    "anomalens-service",
		ModelReady: c.detector.Ready(),
	}
	if !response.ModelReady {
		response.Status = "not_ready"
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, response)
}
