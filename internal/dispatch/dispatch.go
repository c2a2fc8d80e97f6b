// Package dispatch реализует трекинг курьеров и рассылку изменений заказов подписчикам.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/dkharlamov/dukaorder-system/internal/model"
	"github.com/dkharlamov/dukaorder-system/internal/repository"
)

// Store описывает контракт хранилища, используемый службой трекинга.
type Store interface {
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	ListOrdersByCourier(ctx context.Context, courierID string) ([]model.Order, error)
	SetCourierLocation(ctx context.Context, courierID string, coord model.Coordinates) error
	RelayLocationToOrder(ctx context.Context, orderID string, coord model.Coordinates) error
	Listen(ctx context.Context, handler func(orderID string)) error
}

// Dispatcher связывает курьеров с заказами, принимает их координаты и
// пересылает изменения заказов подписчикам.
type Dispatcher struct {
	store  Store
	logger *zap.Logger

	newBackoff func() retry.Backoff
	resetAfter time.Duration

	mu     sync.Mutex
	nextID int64
	subs   map[int64]*subscriber
}

type subscriber struct {
	orderID string // пустая строка — подписка на все заказы
	fn      func(*model.Order)
}

// Subscription — дескриптор подписки с возможностью отмены.
type Subscription struct {
	id int64
	d  *Dispatcher
}

// Cancel снимает подписку. Повторный вызов безопасен.
func (s *Subscription) Cancel() {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	delete(s.d.subs, s.id)
}

// Сессия, прожившая дольше этого порога, считается здоровой: накопленная
// задержка переподключения после неё сбрасывается.
const listenResetAfter = time.Minute

func listenBackoff() retry.Backoff {
	return retry.WithCappedDuration(30*time.Second, retry.NewExponential(500*time.Millisecond))
}

// NewDispatcher создаёт службу трекинга поверх указанного хранилища.
func NewDispatcher(store Store, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		logger:     logger,
		newBackoff: listenBackoff,
		resetAfter: listenResetAfter,
		subs:       make(map[int64]*subscriber),
	}
}

// Subscribe регистрирует подписку на изменения одного заказа.
func (d *Dispatcher) Subscribe(orderID string, fn func(*model.Order)) *Subscription {
	return d.subscribe(orderID, fn)
}

// SubscribeAll регистрирует подписку на изменения всех заказов (админская панель).
func (d *Dispatcher) SubscribeAll(fn func(*model.Order)) *Subscription {
	return d.subscribe("", fn)
}

func (d *Dispatcher) subscribe(orderID string, fn func(*model.Order)) *Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.subs[id] = &subscriber{orderID: orderID, fn: fn}

	return &Subscription{id: id, d: d}
}

// UpdateCourierLocation обновляет позицию курьера и пересылает её на все его
// заказы, находящиеся в пути.
func (d *Dispatcher) UpdateCourierLocation(ctx context.Context, courierID string, coord model.Coordinates) error {
	if err := d.store.SetCourierLocation(ctx, courierID, coord); err != nil {
		return err
	}

	orders, err := d.store.ListOrdersByCourier(ctx, courierID)
	if err != nil {
		return err
	}

	for _, o := range orders {
		if o.Status != model.OrderStatusInTransit {
			continue
		}
		if err := d.RelayToOrder(ctx, o.ID, coord); err != nil {
			// Заказ мог завершиться между чтением списка и записью координат
			if errors.Is(err, repository.ErrInvalidTransition) || errors.Is(err, repository.ErrOrderNotFound) {
				continue
			}
			return err
		}
	}

	return nil
}

// RelayToOrder записывает координаты курьера на заказ. Допустимо только пока
// заказ находится в пути.
func (d *Dispatcher) RelayToOrder(ctx context.Context, orderID string, coord model.Coordinates) error {
	return d.store.RelayLocationToOrder(ctx, orderID, coord)
}

// Run держит подписку на канал изменений заказов, автоматически восстанавливая
// её при обрыве соединения. Возвращается только при отмене контекста.
func (d *Dispatcher) Run(ctx context.Context) error {
	backoff := d.newBackoff()

	for {
		started := time.Now()
		err := d.store.Listen(ctx, func(orderID string) { d.fanOut(ctx, orderID) })
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.logger.Warn("order change listener interrupted, reconnecting", zap.Error(err))

		if time.Since(started) >= d.resetAfter {
			backoff = d.newBackoff()
		}

		delay, _ := backoff.Next()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// fanOut читает актуальный снимок заказа и доставляет его подписчикам.
// Уведомление несёт только идентификатор, поэтому частые обновления
// схлопываются до последнего значения.
func (d *Dispatcher) fanOut(ctx context.Context, orderID string) {
	order, err := d.store.GetOrder(ctx, orderID)
	if err != nil {
		d.logger.Warn("read changed order", zap.String("orderID", orderID), zap.Error(err))
		return
	}

	d.mu.Lock()
	targets := make([]func(*model.Order), 0, len(d.subs))
	for _, sub := range d.subs {
		if sub.orderID == "" || sub.orderID == orderID {
			targets = append(targets, sub.fn)
		}
	}
	d.mu.Unlock()

	for _, fn := range targets {
		fn(order)
	}
}
