/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers, api/middleware
 */

package api

import (
	"anomalens-service/api/controllers"
	authmw "anomalens-service/api/middleware"
	"anomalens-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux, services *service.Services) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API Key鉴权，未配置哈希时关闭
	r.Use(authmw.APIKeyAuth(services.Config.APIKeyHash))

	// 健康检查
	healthController := controllers.NewHealthController(services.Detector, services.Config.Version)
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	predictionController := controllers.NewPredictionController(services)
	modelController := controllers.NewModelController(services)
	alertController := controllers.NewAlertController(services)

	r.Route("/api/v1", func(r chi.Router) {
		// 预测
		r.Post("/predict", predictionController.Predict)
		r.Post("/predict/batch", predictionController.PredictBatch)
		r.Post("/predict/upload", predictionController.PredictUpload)
		r.Get("/predict/latest/{sensor_id}", predictionController.GetLatest)

		// 模型管理
		r.Get("/model", modelController.GetInfo)
		r.Post("/model/train", modelController.Train)
		r.Post("/model/save", modelController.Save)
		r.Post("/model/load", modelController.Load)
		r.Get("/model/training-history", modelController.TrainingHistory)

		// 告警
		r.Get("/alerts", alertController.List)
		r.Post("/alerts/{alert_id}/acknowledge", alertController.Acknowledge)
	})
}
