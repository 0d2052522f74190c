package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/conky-dev/numba-blasta-sub001/environments"
	"github.com/conky-dev/numba-blasta-sub001/internal/domain"
	"github.com/conky-dev/numba-blasta-sub001/pkg/logger"
)

type Client struct {
	httpClient *resty.Client
	gatewayURL string
}

type sendPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Content string `json:"content"`
}

func NewClient(cfg environments.GatewayConfig) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("x-gateway-auth-key", cfg.AuthKey)

	return &Client{
		httpClient: client,
		gatewayURL: cfg.URL,
	}
}

// Send submits one message to the carrier gateway. There are no client-side
// retries: the dispatch pipeline treats every gateway failure as terminal,
// and a retried request that actually went through would double-send.
func (c *Client) Send(ctx context.Context, from, to, content string) (*domain.GatewaySendResult, error) {
	payload := sendPayload{
		From:    from,
		To:      to,
		Content: content,
	}

	var result domain.GatewaySendResult

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post(c.gatewayURL)

	duration := time.Since(startTime)

	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	logger.Debugf("Gateway request to %s completed in %v (status: %d)", c.gatewayURL, duration, resp.StatusCode())

	if resp.StatusCode() != http.StatusAccepted && resp.StatusCode() != http.StatusOK {
		return nil, &domain.GatewayError{
			Code:   fmt.Sprintf("http_%d", resp.StatusCode()),
			Detail: resp.String(),
		}
	}

	if result.ErrorCode != "" {
		return nil, &domain.GatewayError{Code: result.ErrorCode, Detail: result.Status}
	}

	return &result, nil
}

func (c *Client) GetURL() string {
	return c.gatewayURL
}
