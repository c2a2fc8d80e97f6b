// Package model содержит доменные сущности сервиса dukaorder.
package model

import "time"

// OrderStatus описывает статус жизненного цикла заказа.
type OrderStatus string

const (
	OrderStatusPlaced     OrderStatus = "placed"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusDispatched OrderStatus = "dispatched"
	OrderStatusInTransit  OrderStatus = "in_transit"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsTerminal сообщает, является ли статус конечным.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// DeliveryMode описывает способ получения заказа.
type DeliveryMode string

const (
	DeliveryModeDelivery DeliveryMode = "delivery"
	DeliveryModeCollect  DeliveryMode = "collect"
)

// Coordinates содержит географические координаты точки.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LineItem описывает одну позицию заказа. Позиции неизменяемы после создания заказа.
type LineItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Size      string `json:"size,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

// PaymentReceipt содержит данные квитанции, извлечённые из успешного ответа платёжного шлюза.
type PaymentReceipt struct {
	Amount        int64
	ReceiptNumber string
	PaidAt        time.Time
	PayerPhone    string
}

// Order описывает заказ покупателя.
type Order struct {
	ID            string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	Items         []LineItem
	Subtotal      int64
	DeliveryMode  DeliveryMode
	Address       string
	DeliveryCoord *Coordinates
	DeliveryFee   int64
	Total         int64
	PaymentMethod string
	PaymentRef    string
	ResultCode    *int
	ResultDesc    string
	Receipt       *PaymentReceipt
	Status        OrderStatus
	CancelReason  string
	CourierID     *string
	CourierCoord  *Coordinates
	CourierSeenAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Courier описывает курьера службы доставки.
type Courier struct {
	ID        string
	Name      string
	Phone     string
	Active    bool
	Coord     *Coordinates
	UpdatedAt time.Time
}

// transitions задаёт граф допустимых переходов статусов заказа.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPlaced:     {OrderStatusConfirmed, OrderStatusDispatched, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusDispatched, OrderStatusCancelled},
	OrderStatusDispatched: {OrderStatusInTransit, OrderStatusCancelled},
	OrderStatusInTransit:  {OrderStatusDelivered, OrderStatusCancelled},
}

// CanTransition проверяет допустимость перехода из статуса from в статус to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
