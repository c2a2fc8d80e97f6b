// Package handler содержит HTTP-обработчики API сервиса dukaorder.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dkharlamov/dukaorder-system/internal/dispatch"
	"github.com/dkharlamov/dukaorder-system/internal/middleware"
	"github.com/dkharlamov/dukaorder-system/internal/model"
	"github.com/dkharlamov/dukaorder-system/internal/payment"
	"github.com/dkharlamov/dukaorder-system/internal/repository"
	"github.com/dkharlamov/dukaorder-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*model.Order, *payment.STKPushResult, error)
	ApplyPaymentResult(ctx context.Context, res *payment.CallbackResult) (bool, error)
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	ListOrders(ctx context.Context, limit int) ([]model.Order, error)
	ListCourierOrders(ctx context.Context, courierID string) ([]model.Order, error)
	AssignCourier(ctx context.Context, orderID, courierID string) error
	BeginTrip(ctx context.Context, orderID, courierID string) error
	CompleteDelivery(ctx context.Context, orderID, courierID string) error
	Cancel(ctx context.Context, orderID, reason string) error
	RegisterCourier(ctx context.Context, name, phone string) (*model.Courier, error)
	CourierLogin(ctx context.Context, phone string) (*model.Courier, error)
	DeliveryQuote(destLat, destLng float64) (float64, int64)
}

// Payments определяет контракт прямой инициации push-платежа.
type Payments interface {
	InitiateSTKPush(ctx context.Context, phone string, amount int64, reference, description string) (*payment.STKPushResult, error)
}

// Tracker определяет контракт службы трекинга, используемый HTTP-обработчиками.
type Tracker interface {
	Subscribe(orderID string, fn func(*model.Order)) *dispatch.Subscription
	UpdateCourierLocation(ctx context.Context, courierID string, coord model.Coordinates) error
}

// Handler реализует HTTP-обработчики API сервиса dukaorder.
type Handler struct {
	service        Service
	payments       Payments
	tracker        Tracker
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, p Payments, t Tracker, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		payments:       p,
		tracker:        t,
		logger:         logger,
		authMiddleware: auth,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type initiateRequest struct {
	PhoneNumber      string `json:"phoneNumber"`
	Amount           int64  `json:"amount"`
	AccountReference string `json:"accountReference"`
	TransactionDesc  string `json:"transactionDesc"`
}

type initiateResponse struct {
	Success             bool   `json:"success"`
	CheckoutRequestID   string `json:"checkoutRequestID"`
	CustomerMessage     string `json:"customerMessage"`
	ResponseCode        string `json:"responseCode"`
	ResponseDescription string `json:"responseDescription"`
}

// InitiatePayment инициирует push-платёж без создания заказа.
func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if req.PhoneNumber == "" || req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "phoneNumber and positive amount are required"})
		return
	}

	res, err := h.payments.InitiateSTKPush(r.Context(), req.PhoneNumber, req.Amount, req.AccountReference, req.TransactionDesc)
	if err != nil {
		h.writePaymentError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, initiateResponse{
		Success:             true,
		CheckoutRequestID:   res.CheckoutRequestID,
		CustomerMessage:     res.CustomerMessage,
		ResponseCode:        res.ResponseCode,
		ResponseDescription: res.ResponseDescription,
	})
}

func (h *Handler) writePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payment.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Details: err.Error()})
	case errors.Is(err, payment.ErrUpstreamTimeout):
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "payment provider timeout", Details: err.Error()})
	case errors.Is(err, payment.ErrCredentialsMissing),
		errors.Is(err, payment.ErrUpstreamAuth),
		errors.Is(err, payment.ErrUpstreamRejected):
		h.logger.Error("payment initiation failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "payment initiation failed", Details: err.Error()})
	default:
		h.logger.Error("payment initiation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

type callbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// PaymentCallback принимает вебхук платёжного провайдера. Ответ всегда успешный,
// иначе провайдер начнёт повторять доставку; все внутренние сбои только логируются.
func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	ack := func() {
		writeJSON(w, http.StatusOK, callbackAck{ResultCode: 0, ResultDesc: "Callback received successfully"})
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.logger.Error("read callback body", zap.Error(err))
		ack()
		return
	}

	res, err := payment.ParseCallback(raw)
	if err != nil {
		h.logger.Warn("malformed payment callback", zap.Error(err), zap.ByteString("payload", raw))
		ack()
		return
	}

	changed, err := h.service.ApplyPaymentResult(r.Context(), res)
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		// Заказ ещё не виден или не существует: провайдер доставит вебхук повторно
		h.logger.Warn("callback for unknown order", zap.String("checkoutRequestID", res.CheckoutRequestID))
	case err != nil:
		h.logger.Error("apply payment result", zap.Error(err), zap.String("checkoutRequestID", res.CheckoutRequestID))
	case !changed:
		h.logger.Info("duplicate payment callback ignored", zap.String("checkoutRequestID", res.CheckoutRequestID))
	default:
		h.logger.Info("payment result applied",
			zap.String("checkoutRequestID", res.CheckoutRequestID),
			zap.Int("resultCode", res.ResultCode))
	}

	ack()
}

type checkoutRequest struct {
	CustomerName  string             `json:"customerName"`
	CustomerPhone string             `json:"customerPhone"`
	CustomerEmail string             `json:"customerEmail,omitempty"`
	Items         []model.LineItem   `json:"items"`
	DeliveryMode  string             `json:"deliveryMode"`
	Address       string             `json:"address,omitempty"`
	DeliveryCoord *model.Coordinates `json:"deliveryCoordinates,omitempty"`
	PaymentMethod string             `json:"paymentMethod,omitempty"`
}

type checkoutResponse struct {
	Order           *orderResponse `json:"order"`
	CustomerMessage string         `json:"customerMessage"`
}

// Checkout оформляет заказ из корзины: инициирует платёж и создаёт запись заказа.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "mpesa"
	}

	order, push, err := h.service.Checkout(r.Context(), service.CheckoutRequest{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Items:         req.Items,
		DeliveryMode:  model.DeliveryMode(req.DeliveryMode),
		Address:       req.Address,
		DeliveryCoord: req.DeliveryCoord,
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCheckout) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid checkout", Details: err.Error()})
			return
		}
		h.writePaymentError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		Order:           toOrderResponse(order),
		CustomerMessage: push.CustomerMessage,
	})
}

type receiptResponse struct {
	Amount        int64  `json:"amount"`
	ReceiptNumber string `json:"receiptNumber"`
	PaidAt        string `json:"paidAt,omitempty"`
	PayerPhone    string `json:"payerPhone,omitempty"`
}

type orderResponse struct {
	ID            string             `json:"id"`
	CustomerName  string             `json:"customerName"`
	CustomerPhone string             `json:"customerPhone"`
	CustomerEmail string             `json:"customerEmail,omitempty"`
	Items         []model.LineItem   `json:"items"`
	Subtotal      int64              `json:"subtotal"`
	DeliveryMode  string             `json:"deliveryMode"`
	Address       string             `json:"address,omitempty"`
	DeliveryCoord *model.Coordinates `json:"deliveryCoordinates,omitempty"`
	DeliveryFee   int64              `json:"deliveryFee"`
	Total         int64              `json:"total"`
	PaymentMethod string             `json:"paymentMethod,omitempty"`
	PaymentRef    string             `json:"paymentRef"`
	Status        string             `json:"status"`
	CancelReason  string             `json:"cancelReason,omitempty"`
	Receipt       *receiptResponse   `json:"receipt,omitempty"`
	CourierID     *string            `json:"courierId,omitempty"`
	CourierCoord  *model.Coordinates `json:"courierLocation,omitempty"`
	CourierSeenAt string             `json:"courierSeenAt,omitempty"`
	CreatedAt     string             `json:"createdAt"`
	UpdatedAt     string             `json:"updatedAt"`
}

func toOrderResponse(o *model.Order) *orderResponse {
	resp := &orderResponse{
		ID:            o.ID,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		CustomerEmail: o.CustomerEmail,
		Items:         o.Items,
		Subtotal:      o.Subtotal,
		DeliveryMode:  string(o.DeliveryMode),
		Address:       o.Address,
		DeliveryCoord: o.DeliveryCoord,
		DeliveryFee:   o.DeliveryFee,
		Total:         o.Total,
		PaymentMethod: o.PaymentMethod,
		PaymentRef:    o.PaymentRef,
		Status:        string(o.Status),
		CancelReason:  o.CancelReason,
		CourierID:     o.CourierID,
		CourierCoord:  o.CourierCoord,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     o.UpdatedAt.Format(time.RFC3339),
	}

	if o.CourierSeenAt != nil {
		resp.CourierSeenAt = o.CourierSeenAt.Format(time.RFC3339)
	}

	if o.Receipt != nil {
		resp.Receipt = &receiptResponse{
			Amount:        o.Receipt.Amount,
			ReceiptNumber: o.Receipt.ReceiptNumber,
			PayerPhone:    o.Receipt.PayerPhone,
		}
		if !o.Receipt.PaidAt.IsZero() {
			resp.Receipt.PaidAt = o.Receipt.PaidAt.Format(time.RFC3339)
		}
	}

	return resp
}

// GetOrder возвращает заказ по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "order not found"})
			return
		}
		h.logger.Error("get order", zap.Error(err), zap.String("orderID", orderID))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// TrackOrder отдаёт поток изменений заказа через server-sent events.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "order not found"})
			return
		}
		h.logger.Error("get order for tracking", zap.Error(err), zap.String("orderID", orderID))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Буфер на одно значение: быстрые обновления схлопываются до последнего
	updates := make(chan *model.Order, 1)
	sub := h.tracker.Subscribe(orderID, func(o *model.Order) {
		for {
			select {
			case updates <- o:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	})
	defer sub.Cancel()

	writeEvent := func(o *model.Order) bool {
		data, err := json.Marshal(toOrderResponse(o))
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !writeEvent(order) {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case o := <-updates:
			if !writeEvent(o) {
				return
			}
		}
	}
}

type quoteRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type quoteResponse struct {
	DistanceKm float64 `json:"distanceKm"`
	Fee        int64   `json:"fee"`
}

// DeliveryQuote возвращает расстояние и стоимость доставки до указанной точки.
func (h *Handler) DeliveryQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	distance, fee := h.service.DeliveryQuote(req.Lat, req.Lng)

	writeJSON(w, http.StatusOK, quoteResponse{DistanceKm: distance, Fee: fee})
}

type courierLoginRequest struct {
	Phone string `json:"phone"`
}

type courierResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type courierLoginResponse struct {
	Token   string          `json:"token"`
	Courier courierResponse `json:"courier"`
}

// CourierLogin выдаёт токен доступа курьеру по подтверждённому номеру телефона.
func (h *Handler) CourierLogin(w http.ResponseWriter, r *http.Request) {
	var req courierLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	courier, err := h.service.CourierLogin(r.Context(), req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCheckout):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid phone"})
		case errors.Is(err, repository.ErrCourierNotFound), errors.Is(err, service.ErrCourierInactive):
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unknown courier"})
		default:
			h.logger.Error("courier login", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		return
	}

	token, err := h.authMiddleware.IssueToken(courier.ID)
	if err != nil {
		h.logger.Error("issue courier token", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, courierLoginResponse{
		Token:   token,
		Courier: courierResponse{ID: courier.ID, Name: courier.Name, Phone: courier.Phone},
	})
}

// CourierOrders возвращает незавершённые заказы текущего курьера.
func (h *Handler) CourierOrders(w http.ResponseWriter, r *http.Request) {
	courierID, ok := middleware.GetCourierIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	orders, err := h.service.ListCourierOrders(r.Context(), courierID)
	if err != nil {
		h.logger.Error("list courier orders", zap.Error(err), zap.String("courierID", courierID))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

func toOrderResponses(orders []model.Order) []*orderResponse {
	resp := make([]*orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	return resp
}

func (h *Handler) courierTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, orderID, courierID string) error) {
	courierID, ok := middleware.GetCourierIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	orderID := chi.URLParam(r, "orderID")

	if err := fn(r.Context(), orderID, courierID); err != nil {
		h.writeTransitionError(w, err, orderID)
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		h.logger.Error("read order after transition", zap.Error(err), zap.String("orderID", orderID))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) writeTransitionError(w http.ResponseWriter, err error, orderID string) {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "order not found"})
	case errors.Is(err, repository.ErrCourierNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "courier not found"})
	case errors.Is(err, repository.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "invalid transition", Details: err.Error()})
	default:
		h.logger.Error("order transition", zap.Error(err), zap.String("orderID", orderID))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// StartTrip начинает поездку курьера по заказу.
func (h *Handler) StartTrip(w http.ResponseWriter, r *http.Request) {
	h.courierTransition(w, r, h.service.BeginTrip)
}

// CompleteTrip завершает доставку заказа.
func (h *Handler) CompleteTrip(w http.ResponseWriter, r *http.Request) {
	h.courierTransition(w, r, h.service.CompleteDelivery)
}

type locationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CourierLocation принимает периодические координаты курьера.
func (h *Handler) CourierLocation(w http.ResponseWriter, r *http.Request) {
	courierID, ok := middleware.GetCourierIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	err := h.tracker.UpdateCourierLocation(r.Context(), courierID, model.Coordinates{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		if errors.Is(err, repository.ErrCourierNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "courier not found"})
			return
		}
		h.logger.Error("update courier location", zap.Error(err), zap.String("courierID", courierID))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	w.WriteHeader(http.StatusOK)
}

// AdminListOrders возвращает последние заказы для панели администратора.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	orders, err := h.service.ListOrders(r.Context(), limit)
	if err != nil {
		h.logger.Error("list orders", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

type assignRequest struct {
	CourierID string `json:"courierId"`
}

// AdminAssignCourier назначает курьера на заказ.
func (h *Handler) AdminAssignCourier(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CourierID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "courierId is required"})
		return
	}

	if err := h.service.AssignCourier(r.Context(), orderID, req.CourierID); err != nil {
		h.writeTransitionError(w, err, orderID)
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		h.logger.Error("read order after assignment", zap.Error(err), zap.String("orderID", orderID))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// AdminCancelOrder отменяет заказ с указанием причины.
func (h *Handler) AdminCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.service.Cancel(r.Context(), orderID, req.Reason); err != nil {
		h.writeTransitionError(w, err, orderID)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type registerCourierRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// AdminRegisterCourier регистрирует нового курьера.
func (h *Handler) AdminRegisterCourier(w http.ResponseWriter, r *http.Request) {
	var req registerCourierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Phone == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name and phone are required"})
		return
	}

	courier, err := h.service.RegisterCourier(r.Context(), req.Name, req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCheckout):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid phone"})
		case errors.Is(err, repository.ErrCourierExists):
			writeJSON(w, http.StatusConflict, errorResponse{Error: "courier already exists"})
		default:
			h.logger.Error("register courier", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, courierResponse{ID: courier.ID, Name: courier.Name, Phone: courier.Phone})
}
