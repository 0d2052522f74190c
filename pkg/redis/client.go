package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/conky-dev/numba-blasta-sub001/environments"
	"github.com/conky-dev/numba-blasta-sub001/pkg/logger"
)

type Client struct {
	client valkey.Client
}

const (
	deliveryKeyPrefix = "dlr_processed:"
	deliveryTTL       = 24 * time.Hour
)

func NewRedisClient(cfg environments.RedisConfig) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return &Client{client: client}, nil
}

// IncrWithTTL increments key and sets its expiry when the key is fresh.
// Returns the value after the increment.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	result := c.client.Do(ctx, c.client.B().Incr().Key(key).Build())
	if result.Error() != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, result.Error())
	}

	n, err := result.AsInt64()
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %w", key, err)
	}

	if n == 1 {
		if err := c.client.Do(ctx, c.client.B().Expire().Key(key).Seconds(int64(ttl.Seconds())).Build()).Error(); err != nil {
			logger.Warnf("Failed to set TTL on %s: %v", key, err)
		}
	}

	return n, nil
}

// GetInt reads an integer key. The second return is false when the key does
// not exist.
func (c *Client) GetInt(ctx context.Context, key string) (int64, bool, error) {
	result := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get %s: %w", key, result.Error())
	}

	n, err := result.AsInt64()
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse counter %s: %w", key, err)
	}

	return n, true, nil
}

func deliveryKey(gatewayMessageID, status string) string {
	return fmt.Sprintf("%s%s:%s", deliveryKeyPrefix, gatewayMessageID, status)
}

// MarkDeliveryProcessed records that a gateway delivery callback has been
// applied, so replays can be skipped without hitting the database.
func (c *Client) MarkDeliveryProcessed(ctx context.Context, gatewayMessageID, status string) error {
	key := deliveryKey(gatewayMessageID, status)

	err := c.client.Do(ctx, c.client.B().Set().Key(key).Value("1").Ex(deliveryTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache delivery callback: %w", err)
	}

	logger.Debugf("Cached delivery callback %s (%s)", gatewayMessageID, status)

	return nil
}

func (c *Client) DeliveryProcessed(ctx context.Context, gatewayMessageID, status string) (bool, error) {
	key := deliveryKey(gatewayMessageID, status)

	result := c.client.Do(ctx, c.client.B().Exists().Key(key).Build())
	if result.Error() != nil {
		return false, fmt.Errorf("failed to check delivery callback: %w", result.Error())
	}

	n, err := result.AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to read exists result: %w", err)
	}

	return n > 0, nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
