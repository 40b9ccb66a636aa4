/*
 * @module client/report_client_test
 * @description 报告引擎客户端测试，使用httptest模拟报告引擎
 * @architecture 测试层 - HTTP客户端验证
 * @documentReference ai_docs/report_task_req.md
 * @stateFlow 启动模拟服务器 -> 客户端调用 -> 断言请求与响应
 * @rules 覆盖提交、快照查询、下载与错误透传
 * @dependencies testing, net/http/httptest, testify
 * @refs report_client.go
 */

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitGenerate(t *testing.T) {
	var gotPath string
	var gotAuth string
	var gotBody SubmitRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"taskId": "task-001"})
	}))
	defer server.Close()

	tokens := NewTokenStore()
	tokens.Set("test-token")
	client := NewReportClient(&ReportClientConfig{BaseURL: server.URL}, tokens)

	taskID, err := client.SubmitGenerate(context.Background(), &SubmitRequest{
		ColumnSNs: []string{"LC2024-001", "LC2024-002"},
	})

	require.NoError(t, err)
	assert.Equal(t, "task-001", taskID)
	assert.Equal(t, "/report/tasks/generate", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, []string{"LC2024-001", "LC2024-002"}, gotBody.ColumnSNs)
}

func TestSubmitZipExistingWithMonth(t *testing.T) {
	var gotPath string
	var gotBody SubmitRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"taskId": "task-002"})
	}))
	defer server.Close()

	client := NewReportClient(&ReportClientConfig{BaseURL: server.URL}, nil)

	taskID, err := client.SubmitZipExisting(context.Background(), &SubmitRequest{Month: "2024-08"})

	require.NoError(t, err)
	assert.Equal(t, "task-002", taskID)
	assert.Equal(t, "/report/tasks/zip-existing", gotPath)
	assert.Equal(t, "2024-08", gotBody.Month)
}

func TestSubmitServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"errorMsg": "柱号列表为空"})
	}))
	defer server.Close()

	client := NewReportClient(&ReportClientConfig{BaseURL: server.URL}, nil)

	_, err := client.SubmitGenerate(context.Background(), &SubmitRequest{})

	// 服务端errorMsg透传进错误信息
	require.Error(t, err)
	assert.Contains(t, err.Error(), "柱号列表为空")
}

func TestGetTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/report/tasks/task-003", r.URL.Path)
		json.NewEncoder(w).Encode(TaskSnapshot{
			TaskID:  "task-003",
			Status:  TaskStatusFailed,
			Success: 2,
			Fail:    1,
			Failed:  map[string]string{"LC2024-003": "模板渲染失败"},
		})
	}))
	defer server.Close()

	client := NewReportClient(&ReportClientConfig{BaseURL: server.URL}, nil)

	snapshot, err := client.GetTask(context.Background(), "task-003")

	require.NoError(t, err)
	assert.Equal(t, TaskStatusFailed, snapshot.Status)
	assert.True(t, snapshot.IsTerminal())
	assert.Equal(t, 2, snapshot.Success)
	assert.Equal(t, "模板渲染失败", snapshot.Failed["LC2024-003"])
}

func TestDownload(t *testing.T) {
	payload := []byte("PK\x03\x04fake-zip-content")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/report/tasks/task-004/download", r.URL.Path)
		w.Header().Set("Content-Type", "application/zip")
		w.Write(payload)
	}))
	defer server.Close()

	client := NewReportClient(&ReportClientConfig{BaseURL: server.URL}, nil)

	var buf bytes.Buffer
	written, err := client.Download(context.Background(), "task-004", &buf)

	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), written)
	assert.Equal(t, payload, buf.Bytes())
}

func TestDownloadNotReady(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"errorMsg": "任务尚未完成"})
	}))
	defer server.Close()

	client := NewReportClient(&ReportClientConfig{BaseURL: server.URL}, nil)

	var buf bytes.Buffer
	_, err := client.Download(context.Background(), "task-005", &buf)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "任务尚未完成")
	assert.Zero(t, buf.Len())
}

func TestClientStatistics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(TaskSnapshot{TaskID: "task-006", Status: TaskStatusRunning})
	}))
	defer server.Close()

	client := NewReportClient(&ReportClientConfig{BaseURL: server.URL}, nil)

	_, err := client.GetTask(context.Background(), "task-006")
	require.NoError(t, err)

	stats := client.GetStatistics()
	assert.Equal(t, int64(1), stats["request_count"])
	assert.Equal(t, int64(1), stats["success_count"])
	assert.Equal(t, int64(0), stats["error_count"])
}
