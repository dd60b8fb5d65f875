/*
 * @module service/alerting/script_filter
 * @description 可编程告警过滤器，用Yaegi解释执行用户脚本决定告警是否需要通知
 * @architecture 分层架构 - 业务服务层，脚本沙箱
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 脚本哈希查缓存 -> 未命中则编译 -> 注入告警参数执行 -> 布尔裁决
 * @rules 脚本执行失败时放行告警，过滤器只能收窄通知不能阻断落库
 * @dependencies github.com/traefik/yaegi/interp, github.com/traefik/yaegi/stdlib
 * @refs service/alerting/alert_service.go
 */

package alerting

import (
	"crypto/sha1"
	"fmt"
	"sync"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"anomalens-service/service/models"
)

// ScriptFilter 告警过滤器，脚本返回false时跳过通知
type ScriptFilter struct {
	mu     sync.RWMutex
	script string
	cache  map[string]*compiledFilter
}

// compiledFilter 编译后的过滤函数
type compiledFilter struct {
	fn       func(map[string]interface{}) (interface{}, error)
	compiled time.Time
	hash     string
}

// NewScriptFilter 创建告警过滤器，script为空时过滤器全放行
func NewScriptFilter(script string) *ScriptFilter {
	return &ScriptFilter{
		script: script,
		cache:  make(map[string]*compiledFilter),
	}
}

// ShouldNotify 判断告警是否应触发通知
// 脚本缺失或执行失败都按放行处理
func (f *ScriptFilter) ShouldNotify(alert *models.AnomalyAlert) (bool, error) {
	if f.script == "" {
		return true, nil
	}

	hash := fmt.Sprintf("%x", sha1.Sum([]byte(f.script)))

	f.mu.RLock()
	compiled, ok := f.cache[hash]
	f.mu.RUnlock()

	if !ok {
		var err error
		compiled, err = f.compile(f.script, hash)
		if err != nil {
			return true, fmt.Errorf("告警过滤脚本编译失败: %v", err)
		}
		f.mu.Lock()
		f.cache[hash] = compiled
		f.mu.Unlock()
	}

	params := map[string]interface{}{
		"sensorId": alert.SensorID,
		"severity": alert.Severity,
		"score":    alert.AnomalyScore,
		"message":  alert.Message,
	}
	result, err := compiled.fn(params)
	if err != nil {
		return true, fmt.Errorf("告警过滤脚本执行失败: %v", err)
	}

	decision, ok := result.(bool)
	if !ok {
		return true, fmt.Errorf("告警过滤脚本必须返回bool，实际返回 %T", result)
	}
	return decision, nil
}

// compile 编译脚本为可执行函数
func (f *ScriptFilter) compile(script, hash string) (*compiledFilter, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("加载标准库失败: %w", err)
	}

	// 包装脚本：要求脚本必须实现一个 Run 函数
	wrapped := fmt.Sprintf(`
package main

import (
	"fmt"
	"strings"
)

// 必须提供一个 Run 函数作为入口
func Run(params map[string]interface{}) (interface{}, error) {
	var sensorId interface{}
	if v, exists := params["sensorId"]; exists {
		sensorId = v
	}

	var severity interface{}
	if v, exists := params["severity"]; exists {
		severity = v
	}

	var score interface{}
	if v, exists := params["score"]; exists {
		score = v
	}

	var message interface{}
	if v, exists := params["message"]; exists {
		message = v
	}

	// 脚本内容
%s
}
`, script)

	if _, err := i.Eval(wrapped); err != nil {
		return nil, fmt.Errorf("脚本编译失败: %w", err)
	}

	v, err := i.Eval("Run")
	if err != nil {
		return nil, fmt.Errorf("脚本缺少 Run 函数: %w", err)
	}

	runFunc, ok := v.Interface().(func(map[string]interface{}) (interface{}, error))
	if !ok {
		return nil, fmt.Errorf("Run 函数签名必须是 func(map[string]interface{}) (interface{}, error)")
	}

	return &compiledFilter{
		fn:       runFunc,
		compiled: time.Now(),
		hash:     hash,
	}, nil
}
