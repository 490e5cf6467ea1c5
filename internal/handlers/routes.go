package handlers

import (
	"net/http"

	"pickup-market/internal/auth"
	"pickup-market/internal/logger"
	"pickup-market/internal/middleware"
	"pickup-market/internal/services"
)

// Handlers собирает все обработчики для роутера
type Handlers struct {
	Health    *HealthHandler
	Catalog   *CatalogHandler
	Pickups   *PickupHandler
	Couriers  *CourierHandler
	Listings  *ListingHandler
	Orders    *OrderHandler
	Wishlist  *WishlistHandler
	Cache     *CacheHandler
	RateLimit *RateLimitHandler
}

// NewRouter настраивает маршруты HTTP сервера и общий набор middleware
func NewRouter(h Handlers, jwtService *auth.JWTService, rateLimiter *services.RateLimiterService, log *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	user := middleware.RequireRole(log, auth.RoleUser)
	courier := middleware.RequireRole(log, auth.RoleCourier)
	admin := middleware.RequireRole(log, auth.RoleAdmin)

	// Health check endpoints
	mux.HandleFunc("GET /health", h.Health.Health)
	mux.HandleFunc("GET /health/readiness", h.Health.Readiness)
	mux.HandleFunc("GET /health/liveness", h.Health.Liveness)

	// Справочники
	mux.HandleFunc("GET /api/categories", h.Catalog.ListCategories)
	mux.HandleFunc("GET /api/rewards", user(h.Catalog.GetRewards))

	// Заявки на вывоз
	mux.HandleFunc("GET /api/pickups", user(h.Pickups.ListPickups))
	mux.HandleFunc("POST /api/pickups", user(h.Pickups.CreatePickup))
	mux.HandleFunc("GET /api/pickups/{id}", user(h.Pickups.GetPickup))
	mux.HandleFunc("POST /api/pickups/{id}/cancel", user(h.Pickups.CancelPickup))

	// Курьер
	mux.HandleFunc("GET /api/courier/profile", courier(h.Couriers.GetProfile))
	mux.HandleFunc("GET /api/courier/pickups", courier(h.Couriers.ListPickups))
	mux.HandleFunc("PATCH /api/courier/availability", courier(h.Couriers.SetAvailability))
	mux.HandleFunc("PATCH /api/courier/pickups/{id}/status", courier(h.Couriers.UpdatePickupStatus))

	// Диспетчер
	mux.HandleFunc("POST /api/couriers/{id}/assign", admin(h.Couriers.AssignPickup))

	// Маркетплейс
	mux.HandleFunc("GET /api/marketplace", user(h.Listings.ListListings))
	mux.HandleFunc("GET /api/marketplace/mine", user(h.Listings.MyListings))
	mux.HandleFunc("POST /api/marketplace", user(h.Listings.CreateListing))
	mux.HandleFunc("GET /api/marketplace/{id}", user(h.Listings.GetListing))
	mux.HandleFunc("PUT /api/marketplace/{id}", user(h.Listings.UpdateListing))
	mux.HandleFunc("DELETE /api/marketplace/{id}", user(h.Listings.DeleteListing))

	// Заказы
	mux.HandleFunc("GET /api/orders", user(h.Orders.ListOrders))
	mux.HandleFunc("POST /api/orders", user(h.Orders.CreateOrder))
	mux.HandleFunc("GET /api/orders/{id}", user(h.Orders.GetOrder))
	mux.HandleFunc("POST /api/orders/{id}/pay", user(h.Orders.PayOrder))
	mux.HandleFunc("POST /api/orders/{id}/cancel", user(h.Orders.CancelOrder))

	// Закладки
	mux.HandleFunc("GET /api/wishlist", user(h.Wishlist.ListWishlist))
	mux.HandleFunc("POST /api/wishlist/toggle", user(h.Wishlist.Toggle))

	// Служебные
	mux.HandleFunc("GET /api/cache/metrics", admin(h.Cache.GetMetrics))
	mux.HandleFunc("GET /api/rate-limit/status", h.RateLimit.GetStatus)
	mux.HandleFunc("DELETE /api/rate-limit/{subject}", admin(h.RateLimit.Reset))

	return middleware.Chain(mux,
		middleware.Logging(log),
		middleware.CORS,
		middleware.Authenticate(jwtService, log),
		middleware.RateLimit(rateLimiter, log),
	)
}
