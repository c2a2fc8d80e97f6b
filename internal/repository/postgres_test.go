package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dkharlamov/dukaorder-system/internal/model"
)

func newTestRepository(t *testing.T) *PostgresRepository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URI")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URI is not set")
	}

	repo, err := NewPostgresRepository(dsn)
	if err != nil {
		t.Fatalf("NewPostgresRepository error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func testPhone() string {
	return fmt.Sprintf("2547%08d", time.Now().UnixNano()%100000000)
}

func TestCancelOrder_ClearsCourierAssignment(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	courier, err := repo.RegisterCourier(ctx, "Otieno", testPhone())
	if err != nil {
		t.Fatalf("RegisterCourier error: %v", err)
	}

	paymentRef := "ws_CO_" + uuid.NewString()
	order, err := repo.CreateOrder(ctx, &model.Order{
		CustomerName:  "Wanjiku",
		CustomerPhone: "254712345678",
		Items:         []model.LineItem{{ProductID: "p-1", Name: "Sneakers", Quantity: 1, UnitPrice: 4500}},
		Subtotal:      4500,
		DeliveryMode:  model.DeliveryModeDelivery,
		DeliveryCoord: &model.Coordinates{Lat: -1.2216, Lng: 36.817223},
		DeliveryFee:   300,
		Total:         4800,
		PaymentMethod: "mpesa",
		PaymentRef:    paymentRef,
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	changed, err := repo.ResolvePayment(ctx, paymentRef, true, 0, "ok", &model.PaymentReceipt{
		Amount:        4800,
		ReceiptNumber: "NLJ7RT61SV",
		PaidAt:        time.Now(),
		PayerPhone:    "254712345678",
	})
	if err != nil || !changed {
		t.Fatalf("ResolvePayment changed=%v err=%v", changed, err)
	}

	if err := repo.AssignCourier(ctx, order.ID, courier.ID); err != nil {
		t.Fatalf("AssignCourier error: %v", err)
	}
	if err := repo.BeginTrip(ctx, order.ID, courier.ID); err != nil {
		t.Fatalf("BeginTrip error: %v", err)
	}
	coord := model.Coordinates{Lat: -1.25, Lng: 36.82}
	if err := repo.RelayLocationToOrder(ctx, order.ID, coord); err != nil {
		t.Fatalf("RelayLocationToOrder error: %v", err)
	}

	if err := repo.CancelOrder(ctx, order.ID, "customer unreachable"); err != nil {
		t.Fatalf("CancelOrder error: %v", err)
	}

	got, err := repo.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder error: %v", err)
	}

	if got.Status != model.OrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}
	if got.CancelReason != "customer unreachable" {
		t.Fatalf("cancel reason = %q", got.CancelReason)
	}
	if got.CourierID != nil {
		t.Fatalf("cancelled order still carries courier %s", *got.CourierID)
	}
	if got.CourierCoord != nil || got.CourierSeenAt != nil {
		t.Fatalf("cancelled order still carries courier location")
	}

	remaining, err := repo.ListOrdersByCourier(ctx, courier.ID)
	if err != nil {
		t.Fatalf("ListOrdersByCourier error: %v", err)
	}
	for _, o := range remaining {
		if o.ID == order.ID {
			t.Fatalf("cancelled order still listed for courier")
		}
	}
}
