package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
)

// =============================================================================
// Client — 对端服务通知客户端
// 机台排队、物料库存、客户反馈三个对端服务共用一个带超时的HTTP客户端。
// 投递是尽力而为：失败只记日志，绝不阻塞或回滚本地事务
// =============================================================================

// Endpoints 对端服务基础地址
type Endpoints struct {
	MachineQueueURL      string
	MaterialInventoryURL string
	FeedbackURL          string
}

// Client 对端通知客户端
type Client struct {
	endpoints  Endpoints
	httpClient *http.Client
}

// NewClient 创建通知客户端，timeout 为单次投递的上限
func NewClient(endpoints Endpoints, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		endpoints: endpoints,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// endpointFor 事件主题到对端端点的映射
func (c *Client) endpointFor(topic string) (string, error) {
	switch topic {
	case entity.TopicQueueAdd:
		return c.endpoints.MachineQueueURL + "/queue/add", nil
	case entity.TopicQueueCancel:
		return c.endpoints.MachineQueueURL + "/queue/cancel", nil
	case entity.TopicReserve:
		return c.endpoints.MaterialInventoryURL + "/inventory/reserve", nil
	case entity.TopicFeedbackStatus:
		return c.endpoints.FeedbackURL + "/feedback/status-update", nil
	case entity.TopicQualityIssue:
		return c.endpoints.FeedbackURL + "/notifications", nil
	}
	return "", fmt.Errorf("未知的事件主题: %s", topic)
}

// Deliver 投递一条出站事件到对应的对端服务
func (c *Client) Deliver(ctx context.Context, topic string, payload entity.JSONB) error {
	url, err := c.endpointFor(topic)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化事件负载失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建通知请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("投递通知失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("对端服务返回 %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}
