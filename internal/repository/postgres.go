// Package repository содержит реализацию хранилища заказов в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dkharlamov/dukaorder-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// orderChangesChannel — канал pg_notify, в который триггер публикует id изменённых заказов.
const orderChangesChannel = "order_changes"

// ErrOrderNotFound возвращается, если заказ с указанным идентификатором не существует.
var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrCourierNotFound возвращается, если курьер не найден.
	ErrCourierNotFound = errors.New("courier not found")
	// ErrCourierExists возвращается при попытке зарегистрировать курьера с занятым номером телефона.
	ErrCourierExists = errors.New("courier already exists")
	// ErrInvalidTransition возвращается при вызове перехода из состояния, которое его не допускает.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// PostgresRepository предоставляет доступ к хранилищу заказов и курьеров в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

const orderColumns = `id, customer_name, customer_phone, customer_email, items,
	subtotal, delivery_mode, address, delivery_lat, delivery_lng, delivery_fee, total,
	payment_method, payment_ref, result_code, result_desc,
	receipt_amount, receipt_number, paid_at, payer_phone,
	status, cancel_reason, courier_id, courier_lat, courier_lng, courier_seen_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o             model.Order
		itemsRaw      []byte
		deliveryLat   *float64
		deliveryLng   *float64
		receiptAmount *int64
		receiptNumber string
		paidAt        *time.Time
		payerPhone    string
		courierLat    *float64
		courierLng    *float64
	)

	err := row.Scan(
		&o.ID, &o.CustomerName, &o.CustomerPhone, &o.CustomerEmail, &itemsRaw,
		&o.Subtotal, &o.DeliveryMode, &o.Address, &deliveryLat, &deliveryLng, &o.DeliveryFee, &o.Total,
		&o.PaymentMethod, &o.PaymentRef, &o.ResultCode, &o.ResultDesc,
		&receiptAmount, &receiptNumber, &paidAt, &payerPhone,
		&o.Status, &o.CancelReason, &o.CourierID, &courierLat, &courierLng, &o.CourierSeenAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsRaw, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}

	if deliveryLat != nil && deliveryLng != nil {
		o.DeliveryCoord = &model.Coordinates{Lat: *deliveryLat, Lng: *deliveryLng}
	}
	if courierLat != nil && courierLng != nil {
		o.CourierCoord = &model.Coordinates{Lat: *courierLat, Lng: *courierLng}
	}
	if receiptAmount != nil || receiptNumber != "" {
		o.Receipt = &model.PaymentReceipt{
			ReceiptNumber: receiptNumber,
			PayerPhone:    payerPhone,
		}
		if receiptAmount != nil {
			o.Receipt.Amount = *receiptAmount
		}
		if paidAt != nil {
			o.Receipt.PaidAt = *paidAt
		}
	}

	return &o, nil
}

// CreateOrder сохраняет новый заказ со статусом placed и возвращает запись
// с присвоенным идентификатором и временными метками.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) (*model.Order, error) {
	itemsRaw, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal order items: %w", err)
	}

	var deliveryLat, deliveryLng *float64
	if o.DeliveryCoord != nil {
		deliveryLat = &o.DeliveryCoord.Lat
		deliveryLng = &o.DeliveryCoord.Lng
	}

	id := uuid.NewString()

	row := r.pool.QueryRow(ctx,
		`INSERT INTO orders (id, customer_name, customer_phone, customer_email, items,
			subtotal, delivery_mode, address, delivery_lat, delivery_lng, delivery_fee, total,
			payment_method, payment_ref, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING `+orderColumns,
		id, o.CustomerName, o.CustomerPhone, o.CustomerEmail, itemsRaw,
		o.Subtotal, string(o.DeliveryMode), o.Address, deliveryLat, deliveryLng, o.DeliveryFee, o.Total,
		o.PaymentMethod, o.PaymentRef, string(model.OrderStatusPlaced),
	)

	stored, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	return stored, nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return o, nil
}

// ListOrders возвращает последние заказы для административной панели.
func (r *PostgresRepository) ListOrders(ctx context.Context, limit int) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// ListOrdersByCourier возвращает незавершённые заказы, назначенные курьеру.
func (r *PostgresRepository) ListOrdersByCourier(ctx context.Context, courierID string) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE courier_id = $1 AND status IN ($2, $3)
		 ORDER BY updated_at DESC`,
		courierID, string(model.OrderStatusDispatched), string(model.OrderStatusInTransit))
	if err != nil {
		return nil, fmt.Errorf("select courier orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// lockOrderByPaymentRef блокирует строку заказа по платёжной ссылке до конца транзакции.
func lockOrderByPaymentRef(ctx context.Context, tx pgx.Tx, paymentRef string) (string, model.OrderStatus, error) {
	var id string
	var status string
	err := tx.QueryRow(ctx,
		`SELECT id, status FROM orders WHERE payment_ref = $1 FOR UPDATE`, paymentRef,
	).Scan(&id, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", ErrOrderNotFound
		}
		return "", "", fmt.Errorf("lock order by payment ref: %w", err)
	}
	return id, model.OrderStatus(status), nil
}

// lockOrder блокирует строку заказа до конца транзакции. Последовательность переходов
// по одному заказу сериализуется именно этой блокировкой.
func lockOrder(ctx context.Context, tx pgx.Tx, orderID string) (model.OrderStatus, *string, error) {
	var status string
	var courierID *string
	err := tx.QueryRow(ctx,
		`SELECT status, courier_id FROM orders WHERE id = $1 FOR UPDATE`, orderID,
	).Scan(&status, &courierID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrOrderNotFound
		}
		return "", nil, fmt.Errorf("lock order: %w", err)
	}
	return model.OrderStatus(status), courierID, nil
}

// ResolvePayment применяет результат платежа к заказу, найденному по платёжной ссылке.
// Если заказ уже покинул статус placed, возвращает false без изменения записи:
// повторные и запоздавшие вебхуки не меняют состояние и updated_at.
func (r *PostgresRepository) ResolvePayment(ctx context.Context, paymentRef string, success bool, resultCode int, resultDesc string, receipt *model.PaymentReceipt) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	id, status, err := lockOrderByPaymentRef(ctx, tx, paymentRef)
	if err != nil {
		return false, err
	}

	if status != model.OrderStatusPlaced {
		return false, nil
	}

	if success {
		var amount *int64
		var paidAt *time.Time
		var receiptNumber, payerPhone string
		if receipt != nil {
			amount = &receipt.Amount
			receiptNumber = receipt.ReceiptNumber
			payerPhone = receipt.PayerPhone
			if !receipt.PaidAt.IsZero() {
				t := receipt.PaidAt
				paidAt = &t
			}
		}

		_, err = tx.Exec(ctx,
			`UPDATE orders
			 SET status = $2, result_code = $3, result_desc = $4,
			     receipt_amount = $5, receipt_number = $6, paid_at = $7, payer_phone = $8,
			     updated_at = now()
			 WHERE id = $1`,
			id, string(model.OrderStatusConfirmed), resultCode, resultDesc,
			amount, receiptNumber, paidAt, payerPhone,
		)
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE orders
			 SET status = $2, result_code = $3, result_desc = $4, cancel_reason = $4, updated_at = now()
			 WHERE id = $1`,
			id, string(model.OrderStatusCancelled), resultCode, resultDesc,
		)
	}
	if err != nil {
		return false, fmt.Errorf("apply payment result: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}

	return true, nil
}

// AssignCourier назначает курьера на заказ и переводит его в статус dispatched.
// Допустимо только из статусов placed и confirmed при отсутствии назначенного курьера.
func (r *PostgresRepository) AssignCourier(ctx context.Context, orderID, courierID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM couriers WHERE id = $1 AND active)`, courierID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check courier: %w", err)
	}
	if !exists {
		return ErrCourierNotFound
	}

	status, assigned, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}

	if assigned != nil || !model.CanTransition(status, model.OrderStatusDispatched) {
		return fmt.Errorf("%w: assign courier from %s", ErrInvalidTransition, status)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status = $2, courier_id = $3, updated_at = now() WHERE id = $1`,
		orderID, string(model.OrderStatusDispatched), courierID,
	); err != nil {
		return fmt.Errorf("assign courier: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// transitionByCourier выполняет переход заказа, допустимый только для назначенного курьера.
func (r *PostgresRepository) transitionByCourier(ctx context.Context, orderID, courierID string, from, to model.OrderStatus) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	status, assigned, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}

	if status != from {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, to, status)
	}
	if assigned == nil || *assigned != courierID {
		return fmt.Errorf("%w: order is not assigned to courier", ErrInvalidTransition)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`,
		orderID, string(to),
	); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// BeginTrip переводит заказ из dispatched в in_transit.
func (r *PostgresRepository) BeginTrip(ctx context.Context, orderID, courierID string) error {
	return r.transitionByCourier(ctx, orderID, courierID, model.OrderStatusDispatched, model.OrderStatusInTransit)
}

// CompleteDelivery переводит заказ из in_transit в delivered.
func (r *PostgresRepository) CompleteDelivery(ctx context.Context, orderID, courierID string) error {
	return r.transitionByCourier(ctx, orderID, courierID, model.OrderStatusInTransit, model.OrderStatusDelivered)
}

// CancelOrder переводит заказ в статус cancelled из любого неконечного состояния.
func (r *PostgresRepository) CancelOrder(ctx context.Context, orderID, reason string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	status, _, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return err
	}

	if status.IsTerminal() {
		return fmt.Errorf("%w: cancel from %s", ErrInvalidTransition, status)
	}

	// Курьер остаётся указанным только на заказах dispatched/in_transit/delivered
	if _, err := tx.Exec(ctx,
		`UPDATE orders
		    SET status = $2, cancel_reason = $3,
		        courier_id = NULL, courier_lat = NULL, courier_lng = NULL, courier_seen_at = NULL,
		        updated_at = now()
		  WHERE id = $1`,
		orderID, string(model.OrderStatusCancelled), reason,
	); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// RelayLocationToOrder записывает координаты курьера на заказ, находящийся в пути.
// Обновление не затрагивает статусные колонки и updated_at: это отдельный путь записи,
// не конкурирующий с переходами состояний.
func (r *PostgresRepository) RelayLocationToOrder(ctx context.Context, orderID string, coord model.Coordinates) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET courier_lat = $2, courier_lng = $3, courier_seen_at = now()
		 WHERE id = $1 AND status = $4`,
		orderID, coord.Lat, coord.Lng, string(model.OrderStatusInTransit),
	)
	if err != nil {
		return fmt.Errorf("relay location: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if !exists {
			return ErrOrderNotFound
		}
		return fmt.Errorf("%w: order is not in transit", ErrInvalidTransition)
	}

	return nil
}

// RegisterCourier создаёт курьера с уникальным номером телефона.
func (r *PostgresRepository) RegisterCourier(ctx context.Context, name, phone string) (*model.Courier, error) {
	id := uuid.NewString()

	var c model.Courier
	err := r.pool.QueryRow(ctx,
		`INSERT INTO couriers (id, name, phone) VALUES ($1, $2, $3)
		 RETURNING id, name, phone, active, updated_at`,
		id, name, phone,
	).Scan(&c.ID, &c.Name, &c.Phone, &c.Active, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%w: %s", ErrCourierExists, phone)
		}
		return nil, fmt.Errorf("register courier: %w", err)
	}

	return &c, nil
}

// GetCourierByPhone возвращает курьера по подтверждённому номеру телефона.
func (r *PostgresRepository) GetCourierByPhone(ctx context.Context, phone string) (*model.Courier, error) {
	return r.getCourier(ctx, `SELECT id, name, phone, active, lat, lng, updated_at FROM couriers WHERE phone = $1`, phone)
}

// GetCourier возвращает курьера по идентификатору.
func (r *PostgresRepository) GetCourier(ctx context.Context, courierID string) (*model.Courier, error) {
	return r.getCourier(ctx, `SELECT id, name, phone, active, lat, lng, updated_at FROM couriers WHERE id = $1`, courierID)
}

func (r *PostgresRepository) getCourier(ctx context.Context, query string, arg any) (*model.Courier, error) {
	var (
		c   model.Courier
		lat *float64
		lng *float64
	)

	err := r.pool.QueryRow(ctx, query, arg).Scan(&c.ID, &c.Name, &c.Phone, &c.Active, &lat, &lng, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourierNotFound
		}
		return nil, fmt.Errorf("get courier: %w", err)
	}

	if lat != nil && lng != nil {
		c.Coord = &model.Coordinates{Lat: *lat, Lng: *lng}
	}

	return &c, nil
}

// SetCourierLocation обновляет последнюю известную позицию курьера.
func (r *PostgresRepository) SetCourierLocation(ctx context.Context, courierID string, coord model.Coordinates) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE couriers SET lat = $2, lng = $3, updated_at = now() WHERE id = $1`,
		courierID, coord.Lat, coord.Lng,
	)
	if err != nil {
		return fmt.Errorf("set courier location: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrCourierNotFound
	}

	return nil
}

// Listen открывает выделенное соединение и доставляет в handler идентификаторы
// изменённых заказов до отмены контекста или обрыва соединения.
// Политика переподключения принадлежит вызывающей стороне.
func (r *PostgresRepository) Listen(ctx context.Context, handler func(orderID string)) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `LISTEN `+orderChangesChannel); err != nil {
		return fmt.Errorf("listen %s: %w", orderChangesChannel, err)
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("wait for notification: %w", err)
		}

		if strings.TrimSpace(notification.Payload) == "" {
			continue
		}

		handler(notification.Payload)
	}
}
