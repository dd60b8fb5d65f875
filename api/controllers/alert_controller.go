/*
 * @module api/controllers/alert_controller
 * @description 告警控制器，提供告警查询与人工确认
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 请求解析 -> 查询/确认 -> 统一响应
 * @rules 告警只能查询和确认，不提供删除接口
 * @dependencies github.com/go-chi/render, gorm.io/gorm
 * @refs service/alerting/alert_service.go
 */

package controllers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"gorm.io/gorm"

	"anomalens-service/service"
	"anomalens-service/service/models"
)

// AlertController 告警控制器
type AlertController struct {
	services *service.Services
}

// NewAlertController 创建告警控制器实例
func NewAlertController(services *service.Services) *AlertController {
	return &AlertController{services: services}
}

// List 查询最近告警
// @Summary 查询最近告警
// @Description 按时间窗、严重级别和传感器过滤查询最近的告警
// @Tags 告警
// @Produce json
// @Param hours query int false "时间窗（小时）" default(24)
// @Param severity query string false "严重级别" Enums(info,warning,critical)
// @Param sensor_id query string false "传感器ID"
// @Param limit query int false "返回条数上限" default(100)
// @Success 200 {object} APIResponse{data=[]models.AnomalyAlert}
// @Failure 500 {object} APIResponse
// @Router /api/v1/alerts [get]
func (c *AlertController) List(w http.ResponseWriter, r *http.Request) {
	hours, limit := 24, 100
	if v := r.URL.Query().Get("hours"); v != "" {
		if parsed, err := parsePositiveInt(v); err == nil {
			hours = parsed
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := parsePositiveInt(v); err == nil {
			limit = parsed
		}
	}

	alerts, err := c.services.Alerts.RecentAlerts(hours,
		r.URL.Query().Get("severity"), r.URL.Query().Get("sensor_id"), limit)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询告警失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", alerts))
}

// Acknowledge 确认告警
// @Summary 确认告警
// @Description 人工确认指定告警，记录确认人与确认时间
// @Tags 告警
// @Accept json
// @Produce json
// @Param alert_id path string true "告警ID"
// @Param request body models.AcknowledgeRequest true "确认信息"
// @Success 200 {object} APIResponse{data=models.AnomalyAlert}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /api/v1/alerts/{alert_id}/acknowledge [post]
func (c *AlertController) Acknowledge(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alert_id")

	var req models.AcknowledgeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}
	if req.User == "" {
		render.JSON(w, r, BadRequestResponse("确认人不能为空", nil))
		return
	}

	alert, err := c.services.Alerts.Acknowledge(alertID, req.User)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrorResponse(http.StatusNotFound, "告警不存在", nil))
			return
		}
		render.JSON(w, r, InternalErrorResponse("确认告警失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("告警已确认", alert))
}
