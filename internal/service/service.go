// Package service реализует жизненный цикл заказа сервиса dukaorder.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkharlamov/dukaorder-system/internal/geo"
	"github.com/dkharlamov/dukaorder-system/internal/model"
	"github.com/dkharlamov/dukaorder-system/internal/payment"
	"github.com/dkharlamov/dukaorder-system/internal/validation"
)

// ErrInvalidCheckout возвращается при некорректных данных оформления заказа.
var (
	ErrInvalidCheckout = errors.New("invalid checkout request")
	// ErrCourierInactive возвращается при попытке входа деактивированного курьера.
	ErrCourierInactive = errors.New("courier is not active")
)

// Repository описывает контракт хранилища заказов, используемый сервисом.
type Repository interface {
	Close() error
	CreateOrder(ctx context.Context, o *model.Order) (*model.Order, error)
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	ListOrders(ctx context.Context, limit int) ([]model.Order, error)
	ListOrdersByCourier(ctx context.Context, courierID string) ([]model.Order, error)
	ResolvePayment(ctx context.Context, paymentRef string, success bool, resultCode int, resultDesc string, receipt *model.PaymentReceipt) (bool, error)
	AssignCourier(ctx context.Context, orderID, courierID string) error
	BeginTrip(ctx context.Context, orderID, courierID string) error
	CompleteDelivery(ctx context.Context, orderID, courierID string) error
	CancelOrder(ctx context.Context, orderID, reason string) error
	RegisterCourier(ctx context.Context, name, phone string) (*model.Courier, error)
	GetCourierByPhone(ctx context.Context, phone string) (*model.Courier, error)
	GetCourier(ctx context.Context, courierID string) (*model.Courier, error)
}

// PaymentInitiator описывает контракт инициации push-платежа.
type PaymentInitiator interface {
	InitiateSTKPush(ctx context.Context, phone string, amount int64, reference, description string) (*payment.STKPushResult, error)
}

// Service содержит бизнес-логику жизненного цикла заказа.
type Service struct {
	repo     Repository
	payments PaymentInitiator

	// координаты магазина — точка отсчёта для стоимости доставки
	originLat float64
	originLng float64
}

// NewService создаёт сервис с указанным хранилищем и платёжным клиентом.
func NewService(repo Repository, payments PaymentInitiator, originLat, originLng float64) *Service {
	return &Service{
		repo:      repo,
		payments:  payments,
		originLat: originLat,
		originLng: originLng,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// CheckoutRequest содержит данные оформления заказа из корзины.
type CheckoutRequest struct {
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	Items         []model.LineItem
	DeliveryMode  model.DeliveryMode
	Address       string
	DeliveryCoord *model.Coordinates
	PaymentMethod string
	Reference     string
}

func (r *CheckoutRequest) validate() error {
	if r.CustomerName == "" {
		return fmt.Errorf("%w: customer name is required", ErrInvalidCheckout)
	}
	if _, ok := validation.NormalizePhone(r.CustomerPhone); !ok {
		return fmt.Errorf("%w: invalid customer phone", ErrInvalidCheckout)
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrInvalidCheckout)
	}
	for _, item := range r.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %q has non-positive quantity", ErrInvalidCheckout, item.ProductID)
		}
		if item.UnitPrice <= 0 {
			return fmt.Errorf("%w: item %q has non-positive price", ErrInvalidCheckout, item.ProductID)
		}
	}
	switch r.DeliveryMode {
	case model.DeliveryModeDelivery:
		if r.DeliveryCoord == nil {
			return fmt.Errorf("%w: delivery coordinates are required", ErrInvalidCheckout)
		}
	case model.DeliveryModeCollect:
	default:
		return fmt.Errorf("%w: unknown delivery mode %q", ErrInvalidCheckout, r.DeliveryMode)
	}
	return nil
}

// DeliveryQuote возвращает расстояние до точки доставки и стоимость доставки.
func (s *Service) DeliveryQuote(destLat, destLng float64) (float64, int64) {
	distance := geo.Distance(s.originLat, s.originLng, destLat, destLng)
	return distance, geo.Fee(distance)
}

// Checkout оформляет заказ: валидирует корзину, считает стоимость, инициирует
// push-платёж и сохраняет заказ в статусе placed. Заказ создаётся только после
// успешной инициации платежа, поэтому каждой записи соответствует платёжный запрос.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*model.Order, *payment.STKPushResult, error) {
	if err := req.validate(); err != nil {
		return nil, nil, err
	}

	var subtotal int64
	for _, item := range req.Items {
		subtotal += int64(item.Quantity) * item.UnitPrice
	}

	var fee int64
	if req.DeliveryMode == model.DeliveryModeDelivery {
		_, fee = s.DeliveryQuote(req.DeliveryCoord.Lat, req.DeliveryCoord.Lng)
	}

	total := subtotal + fee

	reference := req.Reference
	if reference == "" {
		reference = "DukaOrder"
	}

	push, err := s.payments.InitiateSTKPush(ctx, req.CustomerPhone, total, reference, "Duka order payment")
	if err != nil {
		return nil, nil, err
	}

	order := &model.Order{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Items:         req.Items,
		Subtotal:      subtotal,
		DeliveryMode:  req.DeliveryMode,
		Address:       req.Address,
		DeliveryCoord: req.DeliveryCoord,
		DeliveryFee:   fee,
		Total:         total,
		PaymentMethod: req.PaymentMethod,
		PaymentRef:    push.CheckoutRequestID,
	}

	stored, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return nil, nil, err
	}

	return stored, push, nil
}

// ApplyPaymentResult применяет разобранный результат вебхука к заказу.
// Возвращает true, если состояние заказа изменилось. Повторные, запоздавшие
// и опережающие вебхуки являются no-op: ErrOrderNotFound отдаётся вызывающей
// стороне только для логирования, провайдер доставит вебхук повторно.
func (s *Service) ApplyPaymentResult(ctx context.Context, res *payment.CallbackResult) (bool, error) {
	var receipt *model.PaymentReceipt
	if res.Success() {
		receipt = &model.PaymentReceipt{
			ReceiptNumber: res.ReceiptNumber,
			PayerPhone:    res.PayerPhone,
		}
		if res.Amount != nil {
			receipt.Amount = *res.Amount
		}
		if res.PaidAt != nil {
			receipt.PaidAt = *res.PaidAt
		}
	}

	return s.repo.ResolvePayment(ctx, res.CheckoutRequestID, res.Success(), res.ResultCode, res.ResultDesc, receipt)
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// ListOrders возвращает последние заказы для административной панели.
func (s *Service) ListOrders(ctx context.Context, limit int) ([]model.Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListOrders(ctx, limit)
}

// ListCourierOrders возвращает незавершённые заказы курьера.
func (s *Service) ListCourierOrders(ctx context.Context, courierID string) ([]model.Order, error) {
	return s.repo.ListOrdersByCourier(ctx, courierID)
}

// AssignCourier назначает курьера на заказ.
func (s *Service) AssignCourier(ctx context.Context, orderID, courierID string) error {
	return s.repo.AssignCourier(ctx, orderID, courierID)
}

// BeginTrip начинает поездку назначенного курьера по заказу.
func (s *Service) BeginTrip(ctx context.Context, orderID, courierID string) error {
	return s.repo.BeginTrip(ctx, orderID, courierID)
}

// CompleteDelivery завершает доставку заказа.
func (s *Service) CompleteDelivery(ctx context.Context, orderID, courierID string) error {
	return s.repo.CompleteDelivery(ctx, orderID, courierID)
}

// Cancel отменяет заказ с указанием причины.
func (s *Service) Cancel(ctx context.Context, orderID, reason string) error {
	return s.repo.CancelOrder(ctx, orderID, reason)
}

// RegisterCourier регистрирует курьера с подтверждённым номером телефона.
func (s *Service) RegisterCourier(ctx context.Context, name, phone string) (*model.Courier, error) {
	normalized, ok := validation.NormalizePhone(phone)
	if !ok {
		return nil, fmt.Errorf("%w: invalid courier phone", ErrInvalidCheckout)
	}
	return s.repo.RegisterCourier(ctx, name, normalized)
}

// CourierLogin возвращает активного курьера по подтверждённому номеру телефона.
func (s *Service) CourierLogin(ctx context.Context, phone string) (*model.Courier, error) {
	normalized, ok := validation.NormalizePhone(phone)
	if !ok {
		return nil, fmt.Errorf("%w: invalid courier phone", ErrInvalidCheckout)
	}

	courier, err := s.repo.GetCourierByPhone(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if !courier.Active {
		return nil, ErrCourierInactive
	}

	return courier, nil
}
