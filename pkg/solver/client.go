package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sourav-maji/RosterPro/config"
	pkgerrors "github.com/sourav-maji/RosterPro/pkg/errors"
)

const (
	defaultTimeout = 30 * time.Second
	maxResponse    = 8 << 20
)

// RejectedError 求解器返回非成功响应
// Detail 保留远端的结构化错误体（JSON 解析失败时为原始文本）
type RejectedError struct {
	StatusCode int
	Detail     interface{}
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", pkgerrors.ErrSolverRejected.Error(), e.StatusCode)
}

// Unwrap 使 errors.Is(err, ErrSolverRejected) 成立
func (e *RejectedError) Unwrap() error { return pkgerrors.ErrSolverRejected }

// Client 外部求解器 HTTP 客户端
// 单次同步调用，不做内部重试；重试策略由调用方决定
type Client struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient 创建求解器客户端
func NewClient(cfg *config.SolverConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:        cfg.URL,
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Invoke 发送载荷并返回求解结果
//
// 出站请求与调用方的取消信号解耦：客户端断开后调用仍会执行到完成或超时。
func (c *Client) Invoke(ctx context.Context, payload *Payload) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化求解载荷失败: %w", err)
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrSolverUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("求解器调用失败",
			zap.String("url", c.url),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrSolverUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return nil, fmt.Errorf("%w: 读取响应失败: %v", pkgerrors.ErrSolverUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("求解器拒绝请求",
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil, &RejectedError{StatusCode: resp.StatusCode, Detail: decodeDetail(raw)}
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: 响应不是合法 JSON: %v", pkgerrors.ErrInvalidResult, err)
	}
	if result.Status == StatusFailed && len(result.Schedule) == 0 {
		return nil, &RejectedError{StatusCode: resp.StatusCode, Detail: decodeDetail(raw)}
	}

	c.logger.Info("求解完成",
		zap.String("status", result.Status),
		zap.Float64("objective", result.Objective),
		zap.Int("entries", result.Entries()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &result, nil
}

func decodeDetail(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	return string(raw)
}
