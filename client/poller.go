/*
 * @module client/poller
 * @description 报告任务轮询器，固定间隔查询任务快照直到终态、超时或连续查询失败超限
 * @architecture 同步轮询循环 - 单任务串行轮询，多任务并发由上层各起协程
 * @documentReference ai_docs/report_task_req.md
 * @stateFlow 立即首查 -> 固定间隔轮询 -> 终态/超时/超限退出
 * @rules 超时与任务失败是不同的结局；瞬时查询错误容忍连续MaxPollRetries次后才上抛
 * @dependencies context, time
 * @refs client/report_client.go, service/report
 */

package client

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultPollInterval 默认轮询间隔
	DefaultPollInterval = 1200 * time.Millisecond
	// DefaultPollTimeout 默认轮询总时长上限
	DefaultPollTimeout = 10 * time.Minute
	// DefaultMaxPollRetries 默认连续查询失败容忍次数
	DefaultMaxPollRetries = 3
)

// ErrPollTimeout 轮询总时长超限，任务在引擎侧可能仍在运行
var ErrPollTimeout = errors.New("轮询超时: 任务未在限定时间内到达终态")

// PollerConfig 轮询器配置
type PollerConfig struct {
	Interval       time.Duration `json:"interval"`         // 轮询间隔
	Timeout        time.Duration `json:"timeout"`          // 总时长上限
	MaxPollRetries int           `json:"max_poll_retries"` // 连续查询失败容忍次数
}

// Poller 报告任务轮询器
type Poller struct {
	client   *ReportClient
	interval time.Duration
	timeout  time.Duration
	retries  int

	// OnSnapshot 每次拿到非终态快照时回调，供上层刷新本地状态
	OnSnapshot func(*TaskSnapshot)
}

// NewPoller 创建轮询器
func NewPoller(client *ReportClient, config *PollerConfig) *Poller {
	p := &Poller{
		client:   client,
		interval: DefaultPollInterval,
		timeout:  DefaultPollTimeout,
		retries:  DefaultMaxPollRetries,
	}
	if config != nil {
		if config.Interval > 0 {
			p.interval = config.Interval
		}
		if config.Timeout > 0 {
			p.timeout = config.Timeout
		}
		if config.MaxPollRetries > 0 {
			p.retries = config.MaxPollRetries
		}
	}
	return p
}

// Wait 轮询任务直到终态。返回终态快照；超时返回ErrPollTimeout，
// 连续查询失败超限或上下文取消返回相应错误。
func (p *Poller) Wait(ctx context.Context, taskID string) (*TaskSnapshot, error) {
	deadline := time.Now().Add(p.timeout)
	consecutiveErrors := 0

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		snapshot, err := p.client.GetTask(ctx, taskID)
		if err != nil {
			pollErrorsTotal.Inc()
			consecutiveErrors++
			if consecutiveErrors > p.retries {
				return nil, fmt.Errorf("任务快照连续查询失败%d次: %w", consecutiveErrors, err)
			}
		} else {
			consecutiveErrors = 0
			if snapshot.IsTerminal() {
				return snapshot, nil
			}
			if p.OnSnapshot != nil {
				p.OnSnapshot(snapshot)
			}
		}

		if time.Now().After(deadline) {
			return nil, ErrPollTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
