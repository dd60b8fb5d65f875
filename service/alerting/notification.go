/*
 * @module service/alerting/notification
 * @description 通知渠道接口和实现，为告警服务提供邮件、Webhook、Slack多渠道发送能力
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 渠道配置 -> 告警分发 -> 逐渠道发送 -> 失败计数
 * @rules 单个渠道发送失败只记录不中断，不影响其他渠道和告警落库
 * @dependencies net/smtp, net/http, encoding/json
 * @refs service/alerting/alert_service.go
 */

package alerting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"anomalens-service/service/models"
)

// NotificationSender 通知发送器接口
type NotificationSender interface {
	Send(alert *models.AnomalyAlert) error
	GetChannelType() string
	IsEnabled() bool
}

// SinkDeliveryError 单渠道投递失败，只用于记录与计数，不回传给评分调用方
type SinkDeliveryError struct {
	Channel string
	Err     error
}

func (e *SinkDeliveryError) Error() string {
	return fmt.Sprintf("渠道 %s 投递失败: %v", e.Channel, e.Err)
}

func (e *SinkDeliveryError) Unwrap() error {
	return e.Err
}

// EmailNotificationChannel 邮件通知渠道
type EmailNotificationChannel struct {
	SMTPServer  string   `json:"smtp_server"`
	SMTPPort    int      `json:"smtp_port"`
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	FromAddress string   `json:"from_address"`
	ToAddresses []string `json:"to_addresses"`
	Enabled     bool     `json:"is_enabled"`
}

// Send 发送邮件通知
func (e *EmailNotificationChannel) Send(alert *models.AnomalyAlert) error {
	if !e.Enabled {
		return fmt.Errorf("邮件通知渠道未启用")
	}

	subject := fmt.Sprintf("[%s] 传感器异常: %s", strings.ToUpper(alert.Severity), alert.SensorID)
	body := e.buildEmailBody(alert)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		e.FromAddress, strings.Join(e.ToAddresses, ","), subject, body))

	addr := fmt.Sprintf("%s:%d", e.SMTPServer, e.SMTPPort)
	auth := smtp.PlainAuth("", e.Username, e.Password, e.SMTPServer)
	if err := smtp.SendMail(addr, auth, e.FromAddress, e.ToAddresses, msg); err != nil {
		return fmt.Errorf("发送邮件通知失败: %v", err)
	}
	return nil
}

// GetChannelType 获取渠道类型
func (e *EmailNotificationChannel) GetChannelType() string {
	return "email"
}

// IsEnabled 检查是否启用
func (e *EmailNotificationChannel) IsEnabled() bool {
	return e.Enabled
}

// 构建邮件正文
func (e *EmailNotificationChannel) buildEmailBody(alert *models.AnomalyAlert) string {
	body := fmt.Sprintf(`
告警详情：
- 告警ID: %s
- 传感器: %s
- 严重级别: %s
- 异常分数: %.4f
- 描述: %s
- 触发时间: %s
`, alert.ID, alert.SensorID, alert.Severity, alert.AnomalyScore,
		alert.Message, alert.TriggeredAt.Format(time.RFC3339))

	if len(alert.Recommendations) > 0 {
		body += "\n处置建议:\n"
		for _, rec := range alert.Recommendations {
			body += fmt.Sprintf("- %s\n", rec)
		}
	}
	return body
}

// WebhookNotificationChannel Webhook通知渠道
type WebhookNotificationChannel struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Timeout time.Duration     `json:"timeout"`
	Enabled bool              `json:"is_enabled"`
}

// Send 发送Webhook通知
func (w *WebhookNotificationChannel) Send(alert *models.AnomalyAlert) error {
	if !w.Enabled {
		return fmt.Errorf("Webhook通知渠道未启用")
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("序列化告警数据失败: %v", err)
	}

	method := w.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequest(method, w.URL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("创建HTTP请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.Headers {
		req.Header.Set(k, v)
	}

	timeout := w.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("发送Webhook通知失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("Webhook通知响应错误: %d", resp.StatusCode)
	}
	return nil
}

// GetChannelType 获取渠道类型
func (w *WebhookNotificationChannel) GetChannelType() string {
	return "webhook"
}

// IsEnabled 检查是否启用
func (w *WebhookNotificationChannel) IsEnabled() bool {
	return w.Enabled
}

// SlackNotificationChannel Slack通知渠道，通过incoming webhook发送
type SlackNotificationChannel struct {
	WebhookURL string `json:"webhook_url"`
	Channel    string `json:"channel"`
	Enabled    bool   `json:"is_enabled"`
}

// Send 发送Slack通知
func (s *SlackNotificationChannel) Send(alert *models.AnomalyAlert) error {
	if !s.Enabled {
		return fmt.Errorf("Slack通知渠道未启用")
	}

	text := fmt.Sprintf("*[%s]* 传感器 `%s` 检测到异常 (分数 %.4f)\n%s",
		strings.ToUpper(alert.Severity), alert.SensorID, alert.AnomalyScore, alert.Message)
	payload, err := json.Marshal(map[string]string{
		"channel": s.Channel,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("序列化Slack消息失败: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(s.WebhookURL, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("发送Slack通知失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("Slack通知响应错误: %d", resp.StatusCode)
	}
	return nil
}

// GetChannelType 获取渠道类型
func (s *SlackNotificationChannel) GetChannelType() string {
	return "slack"
}

// IsEnabled 检查是否启用
func (s *SlackNotificationChannel) IsEnabled() bool {
	return s.Enabled
}
