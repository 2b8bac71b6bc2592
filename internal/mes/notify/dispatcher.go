package notify

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const leaseKey = "mes:outbox:lease"

// Dispatcher 出站事件调度器
// 周期性地取到期未投递的事件交给 Client 投递；失败累加重试次数并
// 指数退避。多实例部署时通过 redis 租约保证同一时刻只有一个实例在投递
type Dispatcher struct {
	repo       *repository.OutboxRepository
	client     *Client
	rdb        *redis.Client
	logger     *zap.Logger
	instanceID string

	interval  time.Duration
	batchSize int
	baseDelay time.Duration
	maxDelay  time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewDispatcher 创建调度器
func NewDispatcher(repo *repository.OutboxRepository, client *Client, rdb *redis.Client, logger *zap.Logger, instanceID string, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Dispatcher{
		repo:       repo,
		client:     client,
		rdb:        rdb,
		logger:     logger,
		instanceID: instanceID,
		interval:   interval,
		batchSize:  50,
		baseDelay:  5 * time.Second,
		maxDelay:   10 * time.Minute,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start 启动调度循环
func (d *Dispatcher) Start() {
	go d.run()
}

// Stop 停止调度循环并等待当前一轮结束
func (d *Dispatcher) Stop(ctx context.Context) {
	close(d.stop)
	select {
	case <-d.done:
	case <-ctx.Done():
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), d.interval)
			if d.acquireLease(ctx) {
				d.DrainOnce(ctx)
			}
			cancel()
		}
	}
}

// acquireLease 尝试获取投递租约；已持有时续期
func (d *Dispatcher) acquireLease(ctx context.Context) bool {
	if d.rdb == nil {
		return true
	}
	ttl := 2 * d.interval
	ok, err := d.rdb.SetNX(ctx, leaseKey, d.instanceID, ttl).Result()
	if err != nil {
		// redis 不可用时退回单实例行为，投递本身有出站表保底
		d.logger.Warn("Outbox lease check failed", zap.Error(err))
		return true
	}
	if ok {
		return true
	}
	holder, err := d.rdb.Get(ctx, leaseKey).Result()
	if err == nil && holder == d.instanceID {
		d.rdb.Expire(ctx, leaseKey, ttl)
		return true
	}
	return false
}

// DrainOnce 投递一批到期事件，返回成功投递的数量
func (d *Dispatcher) DrainOnce(ctx context.Context) int {
	events, err := d.repo.FindPending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("Failed to load pending outbox events", zap.Error(err))
		return 0
	}

	delivered := 0
	for _, event := range events {
		if err := d.client.Deliver(ctx, event.Topic, event.Payload); err != nil {
			// 投递失败只记日志，下一轮按退避时间重试
			next := time.Now().Add(d.backoff(event.Retries))
			d.logger.Warn("Notification delivery failed",
				zap.String("event_id", event.ID),
				zap.String("topic", event.Topic),
				zap.Int("retries", event.Retries),
				zap.Time("next_attempt", next),
				zap.Error(err),
			)
			if err := d.repo.MarkFailed(ctx, event.ID, err.Error(), next); err != nil {
				d.logger.Error("Failed to record delivery failure", zap.String("event_id", event.ID), zap.Error(err))
			}
			continue
		}

		if err := d.repo.MarkSent(ctx, event.ID); err != nil {
			d.logger.Error("Failed to mark event sent", zap.String("event_id", event.ID), zap.Error(err))
			continue
		}
		delivered++
		d.logger.Info("Notification delivered",
			zap.String("event_id", event.ID),
			zap.String("topic", event.Topic),
		)
	}
	return delivered
}

// backoff 第n次失败后的重试间隔: baseDelay * 2^n，封顶 maxDelay
func (d *Dispatcher) backoff(retries int) time.Duration {
	delay := d.baseDelay
	for i := 0; i < retries && delay < d.maxDelay; i++ {
		delay *= 2
	}
	if delay > d.maxDelay {
		delay = d.maxDelay
	}
	return delay
}
