package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bahaypares/ordering-backend/api/controllers"
	webhookcontrollers "github.com/bahaypares/ordering-backend/api/controllers/webhooks"
	"github.com/bahaypares/ordering-backend/api/middleware"
	"github.com/bahaypares/ordering-backend/internal/auth"
	"github.com/bahaypares/ordering-backend/internal/cart"
	checkoutsvc "github.com/bahaypares/ordering-backend/internal/checkout"
	"github.com/bahaypares/ordering-backend/internal/menu"
	"github.com/bahaypares/ordering-backend/internal/notifications"
	"github.com/bahaypares/ordering-backend/internal/orders"
	"github.com/bahaypares/ordering-backend/internal/payments"
	"github.com/bahaypares/ordering-backend/internal/pricing"
	"github.com/bahaypares/ordering-backend/internal/reports"
	"github.com/bahaypares/ordering-backend/internal/restaurant"
	"github.com/bahaypares/ordering-backend/pkg/auth/session"
	"github.com/bahaypares/ordering-backend/pkg/config"
	"github.com/bahaypares/ordering-backend/pkg/db"
	"github.com/bahaypares/ordering-backend/pkg/enums"
	"github.com/bahaypares/ordering-backend/pkg/logger"
	"github.com/bahaypares/ordering-backend/pkg/redis"
)

// Services bundles everything the router mounts. Grouping them in a struct
// keeps cmd/api wiring readable as the surface grows.
type Services struct {
	Auth          auth.Service
	Menu          menu.Service
	Cart          cart.Service
	Checkout      checkoutsvc.Service
	Orders        orders.Service
	Payments      payments.Service
	Notifications notifications.Service
	Reports       reports.Service
	Fees          pricing.FeeService
	Restaurant    restaurant.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	staffRoles := []string{string(enums.RoleStaff), string(enums.RoleAdmin)}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(dbP, redisClient, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payment", webhookcontrollers.PaymentCallback(svcs.Payments, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.Register(svcs.Auth, logg))
		r.Post("/login", controllers.Login(svcs.Auth, logg))
		r.Post("/refresh", controllers.Refresh(svcs.Auth, cfg.JWT, logg))
		r.With(middleware.Auth(cfg.JWT, sessions, logg)).Post("/logout", controllers.Logout(svcs.Auth, logg))
	})

	// Public menu browsing needs no account.
	r.Route("/api/v1/menu", func(r chi.Router) {
		r.Get("/", controllers.MenuList(svcs.Menu, logg))
		r.Get("/{category}/{name}", controllers.MenuGet(svcs.Menu, logg))
	})

	r.Get("/api/v1/restaurant", controllers.RestaurantStatus(svcs.Restaurant, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(svcs.Cart, logg))
			r.Post("/", controllers.CartConfirm(svcs.Cart, logg))
			r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
			r.Post("/discount", controllers.CartApplyDiscount(svcs.Cart, logg))
			r.Delete("/discount", controllers.CartResetDiscount(svcs.Cart, logg))
			r.Delete("/", controllers.CartAbandon(svcs.Cart, logg))
		})

		r.Post("/checkout", controllers.Checkout(svcs.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersListMine(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrdersGetMine(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.OrdersCancelMine(svcs.Orders, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationsList(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.NotificationsMarkRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.NotificationsMarkAllRead(svcs.Notifications, logg))
		})
	})

	r.Route("/api/staff/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireRole(logg, staffRoles...))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/menu", func(r chi.Router) {
			r.Post("/", controllers.MenuCreate(svcs.Menu, logg))
			r.Patch("/{itemId}", controllers.MenuUpdate(svcs.Menu, logg))
			r.Delete("/{itemId}", controllers.MenuDelete(svcs.Menu, logg))
			r.Post("/{itemId}/availability", controllers.MenuSetAvailability(svcs.Menu, logg))
			r.Post("/{itemId}/restock", controllers.MenuRestock(svcs.Menu, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrdersGet(svcs.Orders, logg))
			r.Post("/{orderId}/status", controllers.OrdersUpdateStatus(svcs.Orders, logg))
			r.Post("/{orderId}/line-items/cancel", controllers.OrdersCancelLineItem(svcs.Orders, logg))
			r.Post("/{orderId}/attempt", controllers.OrdersAttemptDelivery(svcs.Orders, logg))
		})

		r.Route("/fees", func(r chi.Router) {
			r.Get("/", controllers.FeesList(svcs.Fees, logg))
			r.Put("/", controllers.FeesSet(svcs.Fees, logg))
			r.Delete("/{location}", controllers.FeesRemove(svcs.Fees, logg))
		})

		r.Put("/restaurant", controllers.RestaurantSetStatus(svcs.Restaurant, logg))

		r.Route("/reports", func(r chi.Router) {
			r.Get("/range", controllers.ReportsRange(svcs.Reports, logg))
			r.Get("/daily", controllers.ReportsWindow(svcs.Reports, "daily", logg))
			r.Get("/weekly", controllers.ReportsWindow(svcs.Reports, "weekly", logg))
			r.Get("/monthly", controllers.ReportsWindow(svcs.Reports, "monthly", logg))
			r.Get("/yearly", controllers.ReportsWindow(svcs.Reports, "yearly", logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireRole(logg, string(enums.RoleAdmin)))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/staff", controllers.CreateStaff(svcs.Auth, logg))
		r.Route("/orders", func(r chi.Router) {
			r.Post("/{orderId}/cancel", controllers.OrdersCancelAdmin(svcs.Orders, logg))
			r.Delete("/{orderId}", controllers.OrdersPurge(svcs.Orders, logg))
		})
	})

	return r
}
