package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultInvalidationChannel = "nbc:capabilities:invalidate"
	defaultCloseTimeout        = 5 * time.Second
)

// invalidationMessage is the Pub/Sub payload
type invalidationMessage struct {
	DepartmentID uuid.UUID `json:"department_id"`
	Timestamp    int64     `json:"timestamp"`
}

// RedisCapabilityInvalidator broadcasts capability cache invalidations over Redis Pub/Sub
type RedisCapabilityInvalidator struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger

	mu        sync.Mutex
	cancelFn  context.CancelFunc
	isRunning bool
	doneCh    chan struct{}
	doneOnce  sync.Once
}

// NewRedisCapabilityInvalidator creates an invalidator on an existing client.
// The caller retains ownership of the client.
func NewRedisCapabilityInvalidator(client *redis.Client, logger *zap.Logger) *RedisCapabilityInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCapabilityInvalidator{
		client:  client,
		channel: defaultInvalidationChannel,
		logger:  logger,
		doneCh:  make(chan struct{}),
	}
}

// Publish notifies every subscriber that departmentID's grants changed
func (i *RedisCapabilityInvalidator) Publish(ctx context.Context, departmentID uuid.UUID) error {
	data, err := json.Marshal(invalidationMessage{DepartmentID: departmentID, Timestamp: time.Now().UnixNano()})
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation message: %w", err)
	}
	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		i.logger.Error("Failed to publish capability invalidation",
			zap.String("channel", i.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

// Subscribe invokes callback for every invalidation until ctx is done
func (i *RedisCapabilityInvalidator) Subscribe(ctx context.Context, callback func(departmentID uuid.UUID)) error {
	i.mu.Lock()
	if i.isRunning {
		i.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	i.isRunning = true
	subCtx, cancel := context.WithCancel(ctx)
	i.cancelFn = cancel
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		i.isRunning = false
		i.mu.Unlock()
		i.doneOnce.Do(func() { close(i.doneCh) })
	}()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}
	i.logger.Info("Subscribed to capability invalidation channel", zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("Capability invalidation channel closed")
				return nil
			}
			var m invalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				i.logger.Error("Failed to unmarshal invalidation message",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}
			callback(m.DepartmentID)
		}
	}
}

// Close stops a running subscription
func (i *RedisCapabilityInvalidator) Close() error {
	i.mu.Lock()
	cancelFn := i.cancelFn
	i.mu.Unlock()

	if cancelFn == nil {
		return nil
	}
	cancelFn()
	select {
	case <-i.doneCh:
	case <-time.After(defaultCloseTimeout):
		i.logger.Warn("Timeout waiting for invalidation subscription to stop")
	}
	return nil
}

var _ Invalidator = (*RedisCapabilityInvalidator)(nil)
