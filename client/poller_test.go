/*
 * @module client/poller_test
 * @description 报告任务轮询器测试：终态退出、超时、连续查询失败与取消
 * @architecture 测试层 - 轮询生命周期验证
 * @documentReference ai_docs/report_task_req.md
 * @stateFlow 模拟引擎返回状态序列 -> 轮询 -> 断言请求次数与结局
 * @rules 轮询次数必须与状态序列精确对应；超时后不再发出请求
 * @dependencies testing, net/http/httptest, testify
 * @refs poller.go
 */

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statusSequenceServer 按序返回状态序列，超出序列后重复最后一个
func statusSequenceServer(t *testing.T, statuses []string, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(hits, 1)
		idx := int(n) - 1
		if idx >= len(statuses) {
			idx = len(statuses) - 1
		}
		json.NewEncoder(w).Encode(TaskSnapshot{TaskID: "task-poll", Status: statuses[idx]})
	}))
}

func TestPollerStopsOnSuccess(t *testing.T) {
	var hits int32
	server := statusSequenceServer(t, []string{TaskStatusPending, TaskStatusRunning, TaskStatusSuccess}, &hits)
	defer server.Close()

	client := NewReportClient(&ReportClientConfig{BaseURL: server.URL}, nil)
	poller := NewPoller(client, &PollerConfig{Interval: 10 * time.Millisecond, Timeout: time.Second})

	snapshot, err := poller.Wait(context.Background(), "task-poll")

	require.NoError(t, err)
	assert.Equal(t, TaskStatusSuccess, snapshot.Status)
	// PENDING、RUNNING、SUCCESS三次快照对应三次查询
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestPollerStopsOnFailure(t *testing.T) {
	var hits int32
	server := statusSequenceServer(t, []string{TaskStatusPending, TaskStatusFailed}, &hits)
	defer server.Close()

	client := NewReportClient(&ReportClientConfig{BaseURL: server.URL}, nil)
	poller := NewPoller(client, &PollerConfig{Interval: 10 * time.Millisecond, Timeout: time.Second})

	snapshot, err := poller.Wait(context.Background(), "task-poll")

	// FAILED是终态而非错误，快照正常返回供上层读取失败明细
	require.NoError(t, err)
	assert.Equal(t, TaskStatusFailed, snapshot.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestPollerTimeout(t *testing.T) {
	var hits int32
	server := statusSequenceServer(t, []string{TaskStatusRunning}, &hits)
	defer server.Close()

	client := NewReportClient(&ReportClientConfig{BaseURL: server.URL}, nil)
	poller := NewPoller(client, &PollerConfig{Interval: 10 * time.Millisecond, Timeout: 35 * time.Millisecond})

	_, err := poller.Wait(context.Background(), "task-poll")

	require.ErrorIs(t, err, ErrPollTimeout)

	// 超时后不再发出请求
	settled := atomic.LoadInt32(&hits)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, atomic.LoadInt32(&hits))
}

func TestPollerToleratesTransientErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		// 前两次查询失败，第三次返回终态
		if n <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(TaskSnapshot{TaskID: "task-poll", Status: TaskStatusSuccess})
	}))
	defer server.Close()

	client := NewReportClient(&ReportClientConfig{BaseURL: server.URL}, nil)
	poller := NewPoller(client, &PollerConfig{Interval: 10 * time.Millisecond, Timeout: time.Second, MaxPollRetries: 3})

	snapshot, err := poller.Wait(context.Background(), "task-poll")

	require.NoError(t, err)
	assert.Equal(t, TaskStatusSuccess, snapshot.Status)
}

func TestPollerGivesUpAfterConsecutiveErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewReportClient(&ReportClientConfig{BaseURL: server.URL}, nil)
	poller := NewPoller(client, &PollerConfig{Interval: 10 * time.Millisecond, Timeout: time.Second, MaxPollRetries: 2})

	_, err := poller.Wait(context.Background(), "task-poll")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPollTimeout)
}

func TestPollerContextCancellation(t *testing.T) {
	var hits int32
	server := statusSequenceServer(t, []string{TaskStatusRunning}, &hits)
	defer server.Close()

	client := NewReportClient(&ReportClientConfig{BaseURL: server.URL}, nil)
	poller := NewPoller(client, &PollerConfig{Interval: 50 * time.Millisecond, Timeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := poller.Wait(ctx, "task-poll")
	require.ErrorIs(t, err, context.Canceled)
}
