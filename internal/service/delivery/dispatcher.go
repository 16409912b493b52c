package delivery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"campus-erp/internal/domain"
)

// Dispatcher hands committed notifications to external channels. Delivery
// is best-effort and never blocks or fails the request that created them.
type Dispatcher interface {
	Dispatch(notifs ...domain.Notification)
	Wait()
}

// Channel is one external delivery route such as email or push.
type Channel interface {
	Kind() domain.Channel
	Send(ctx context.Context, notif domain.Notification) error
}

// Gate reports whether the owner wants notifications of a type on a channel.
type Gate interface {
	Allows(ctx context.Context, owner domain.Actor, notifType domain.NotificationType, ch domain.Channel) (bool, error)
}

type dispatcher struct {
	gate     Gate
	channels []Channel
	timeout  time.Duration
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func NewDispatcher(gate Gate, channels []Channel, timeout time.Duration, logger *zap.Logger) Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &dispatcher{
		gate:     gate,
		channels: channels,
		timeout:  timeout,
		logger:   logger,
	}
}

func (d *dispatcher) Dispatch(notifs ...domain.Notification) {
	if len(d.channels) == 0 {
		return
	}
	for _, n := range notifs {
		d.wg.Add(1)
		go func(n domain.Notification) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			d.deliver(ctx, n)
		}(n)
	}
}

func (d *dispatcher) deliver(ctx context.Context, n domain.Notification) {
	owner := n.Owner()
	for _, ch := range d.channels {
		allowed, err := d.gate.Allows(ctx, owner, n.Type, ch.Kind())
		if err != nil {
			d.logger.Warn("failed to check delivery settings",
				zap.String("notification_id", n.ID.String()),
				zap.String("channel", string(ch.Kind())),
				zap.Error(err),
			)
			continue
		}
		if !allowed {
			continue
		}
		if err := ch.Send(ctx, n); err != nil {
			d.logger.Warn("notification delivery failed",
				zap.String("notification_id", n.ID.String()),
				zap.String("channel", string(ch.Kind())),
				zap.String("owner", owner.String()),
				zap.Error(err),
			)
		}
	}
}

// Wait blocks until every in-flight delivery finished.
func (d *dispatcher) Wait() {
	d.wg.Wait()
}

type noopDispatcher struct{}

func NewNoopDispatcher() Dispatcher { return noopDispatcher{} }

func (noopDispatcher) Dispatch(...domain.Notification) {}
func (noopDispatcher) Wait()                           {}
