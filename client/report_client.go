/*
 * @module client/report_client
 * @description 报告引擎HTTP客户端，提交报告生成/打包任务、查询任务快照、下载产物
 * @architecture 适配器模式 - 封装报告引擎REST接口，显式构造后注入使用
 * @documentReference ai_docs/report_task_req.md
 * @stateFlow 任务提交 -> 快照查询 -> 产物下载
 * @rules 任务状态流转完全由报告引擎侧驱动，客户端只读快照；非2xx响应转换为带服务端errorMsg的错误
 * @dependencies net/http, encoding/json, github.com/spf13/cast
 * @refs client/poller.go, service/report
 */

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// 报告引擎侧任务状态
const (
	TaskStatusPending = "PENDING"
	TaskStatusRunning = "RUNNING"
	TaskStatusSuccess = "SUCCESS"
	TaskStatusFailed  = "FAILED"
)

// TaskSnapshot 报告引擎任务快照
type TaskSnapshot struct {
	TaskID  string            `json:"taskId"`
	Status  string            `json:"status"`
	Success int               `json:"success"`
	Fail    int               `json:"fail"`
	Failed  map[string]string `json:"failed,omitempty"` // 柱号 -> 失败原因
}

// IsTerminal 判断快照是否处于终态
func (s *TaskSnapshot) IsTerminal() bool {
	return s.Status == TaskStatusSuccess || s.Status == TaskStatusFailed
}

// SubmitRequest 任务提交请求
type SubmitRequest struct {
	ColumnSNs []string `json:"columnSns"`
	Month     string   `json:"month,omitempty"` // 打包指定月份的已有报告时使用
}

// ReportClientConfig 报告引擎客户端配置
type ReportClientConfig struct {
	BaseURL string        `json:"base_url"` // 报告引擎服务地址
	Timeout time.Duration `json:"timeout"`  // 单次HTTP请求超时
}

// ClientStats 客户端统计信息
type ClientStats struct {
	RequestCount    int64     `json:"request_count"`     // 请求总数
	SuccessCount    int64     `json:"success_count"`     // 成功请求数
	ErrorCount      int64     `json:"error_count"`       // 错误请求数
	LastRequestTime time.Time `json:"last_request_time"` // 最后请求时间
	mutex           sync.RWMutex
}

// ReportClient 报告引擎HTTP客户端
type ReportClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenStore
	stats      *ClientStats
}

// NewReportClient 创建报告引擎客户端
func NewReportClient(config *ReportClientConfig, tokens *TokenStore) *ReportClient {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ReportClient{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tokens: tokens,
		stats:  &ClientStats{},
	}
}

// SubmitGenerate 提交COA报告生成任务
func (c *ReportClient) SubmitGenerate(ctx context.Context, req *SubmitRequest) (string, error) {
	return c.submit(ctx, "/report/tasks/generate", req)
}

// SubmitGenerateZip 提交报告生成并打包任务
func (c *ReportClient) SubmitGenerateZip(ctx context.Context, req *SubmitRequest) (string, error) {
	return c.submit(ctx, "/report/tasks/generate-zip", req)
}

// SubmitZipExisting 提交已有报告打包任务
func (c *ReportClient) SubmitZipExisting(ctx context.Context, req *SubmitRequest) (string, error) {
	return c.submit(ctx, "/report/tasks/zip-existing", req)
}

// submitResponse 任务提交响应
type submitResponse struct {
	TaskID   string `json:"taskId"`
	ErrorMsg string `json:"errorMsg,omitempty"`
}

func (c *ReportClient) submit(ctx context.Context, path string, req *SubmitRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("序列化任务请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.recordRequest(false)
		return "", fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordRequest(false)
		return "", c.responseError("提交任务失败", resp)
	}

	var submitResp submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitResp); err != nil {
		c.recordRequest(false)
		return "", fmt.Errorf("解析响应失败: %w", err)
	}

	if submitResp.TaskID == "" {
		c.recordRequest(false)
		return "", fmt.Errorf("报告引擎未返回任务ID: %s", submitResp.ErrorMsg)
	}

	c.recordRequest(true)
	return submitResp.TaskID, nil
}

// GetTask 查询任务快照
func (c *ReportClient) GetTask(ctx context.Context, taskID string) (*TaskSnapshot, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/report/tasks/%s", c.baseURL, taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	c.setAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.recordRequest(false)
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordRequest(false)
		return nil, c.responseError("查询任务快照失败", resp)
	}

	var snapshot TaskSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		c.recordRequest(false)
		return nil, fmt.Errorf("解析任务快照失败: %w", err)
	}

	c.recordRequest(true)
	return &snapshot, nil
}

// Download 下载任务产物（zip流），仅任务SUCCESS后可用
func (c *ReportClient) Download(ctx context.Context, taskID string, w io.Writer) (int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/report/tasks/%s/download", c.baseURL, taskID), nil)
	if err != nil {
		return 0, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	c.setAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.recordRequest(false)
		return 0, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordRequest(false)
		return 0, c.responseError("下载任务产物失败", resp)
	}

	written, err := io.Copy(w, resp.Body)
	if err != nil {
		c.recordRequest(false)
		return written, fmt.Errorf("写出任务产物失败: %w", err)
	}

	c.recordRequest(true)
	return written, nil
}

// GetStatistics 获取客户端统计信息
func (c *ReportClient) GetStatistics() map[string]interface{} {
	c.stats.mutex.RLock()
	defer c.stats.mutex.RUnlock()

	return map[string]interface{}{
		"base_url":          c.baseURL,
		"request_count":     c.stats.RequestCount,
		"success_count":     c.stats.SuccessCount,
		"error_count":       c.stats.ErrorCount,
		"last_request_time": c.stats.LastRequestTime,
	}
}

func (c *ReportClient) setAuth(req *http.Request) {
	if c.tokens != nil && c.tokens.HasToken() {
		req.Header.Set("Authorization", "Bearer "+c.tokens.Get())
	}
}

// responseError 将非2xx响应转换为错误，优先使用服务端的errorMsg
func (c *ReportClient) responseError(msg string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var errResp struct {
		ErrorMsg string `json:"errorMsg"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.ErrorMsg != "" {
		return fmt.Errorf("%s: %s", msg, errResp.ErrorMsg)
	}
	return fmt.Errorf("%s: HTTP %d", msg, resp.StatusCode)
}

func (c *ReportClient) recordRequest(success bool) {
	c.stats.mutex.Lock()
	c.stats.RequestCount++
	if success {
		c.stats.SuccessCount++
	} else {
		c.stats.ErrorCount++
	}
	c.stats.LastRequestTime = time.Now()
	c.stats.mutex.Unlock()
}
