package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/dkharlamov/dukaorder-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса dukaorder.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/payments/initiate", h.InitiatePayment)
		r.Post("/payments/callback", h.PaymentCallback)

		r.Post("/delivery/quote", h.DeliveryQuote)

		r.Post("/orders", h.Checkout)
		r.Get("/orders/{orderID}", h.GetOrder)
		r.Get("/orders/{orderID}/events", h.TrackOrder)

		r.Post("/courier/login", h.CourierLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/courier/orders", h.CourierOrders)
			r.Post("/courier/orders/{orderID}/start", h.StartTrip)
			r.Post("/courier/orders/{orderID}/complete", h.CompleteTrip)
			r.Post("/courier/location", h.CourierLocation)

			r.Get("/admin/orders", h.AdminListOrders)
			r.Post("/admin/orders/{orderID}/assign", h.AdminAssignCourier)
			r.Post("/admin/orders/{orderID}/cancel", h.AdminCancelOrder)
			r.Post("/admin/couriers", h.AdminRegisterCourier)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
