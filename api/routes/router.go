package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ferremas/backoffice/api/controllers"
	"github.com/ferremas/backoffice/api/middleware"
	"github.com/ferremas/backoffice/internal/auth"
	"github.com/ferremas/backoffice/internal/orders"
	product "github.com/ferremas/backoffice/internal/products"
	"github.com/ferremas/backoffice/pkg/config"
	"github.com/ferremas/backoffice/pkg/enums"
	"github.com/ferremas/backoffice/pkg/logger"
)

// Dependencies carries every service the HTTP surface routes to.
type Dependencies struct {
	Config     *config.Config
	Logger     *logger.Logger
	Readiness  map[string]controllers.Pinger
	RateLimits middleware.WindowLimiter
	Metrics    http.Handler

	Auth     auth.Service
	Users    controllers.UserService
	Products product.Service
	Orders   orders.Service
	Stock    controllers.StockService
	Payments controllers.PaymentService
	Currency controllers.CurrencyService
	Events   controllers.EventSource
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	authPolicy := middleware.NewAuthRateLimitPolicy("auth", cfg.AuthRateLimit.LoginWindow, cfg.AuthRateLimit.IPLimit)
	staff := []enums.Role{enums.RoleAdmin, enums.RoleVendor, enums.RoleWarehouse, enums.RoleAccountant}
	stockWriters := []enums.Role{enums.RoleAdmin, enums.RoleWarehouse}
	finance := []enums.Role{enums.RoleAdmin, enums.RoleAccountant}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		// Public surface: signup, login, catalog browsing, currency quotes and the gateway return URL.
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthRateLimit(authPolicy, deps.RateLimits, logg))
			r.Post("/auth/register", controllers.AuthRegister(deps.Auth, logg))
			r.Post("/auth/login", controllers.AuthLogin(deps.Auth, logg))
		})
		r.Get("/products", controllers.ListProducts(deps.Products, logg))
		r.Get("/products/{productId}", controllers.GetProduct(deps.Products, logg))
		r.Get("/payments/exchange-rates", controllers.ListExchangeRates(deps.Currency, logg))
		r.Get("/payments/convert", controllers.ConvertAmount(deps.Currency, logg))
		r.Get("/payments/confirm", controllers.ConfirmPayment(deps.Payments, logg))
		r.Post("/payments/confirm", controllers.ConfirmPayment(deps.Payments, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Get("/auth/profile", controllers.AuthProfile(deps.Users, logg))
			admin := r.With(middleware.RequireRoles(logg, enums.RoleAdmin))
			admin.Get("/auth/users", controllers.AdminListUsers(deps.Users, logg))
			admin.Post("/auth/users", controllers.AdminCreateUser(deps.Users, logg))
			admin.Post("/products", controllers.CreateProduct(deps.Products, logg))
			admin.Put("/products/{productId}/price", controllers.SetProductPrice(deps.Products, logg))
			admin.Get("/products/{productId}/price-history", controllers.ProductPriceHistory(deps.Products, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.CreateOrder(deps.Orders, logg))
				r.Get("/", controllers.ListOrders(deps.Orders, logg))
				r.Get("/{orderId}", controllers.GetOrder(deps.Orders, logg))
				r.Put("/{orderId}/status", controllers.UpdateOrderStatus(deps.Orders, logg))
				r.Put("/{orderId}/cancel", controllers.CancelOrder(deps.Orders, logg))
			})

			r.Route("/stock", func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, staff...))
				r.Get("/", controllers.ListStock(deps.Stock, logg))
				r.Get("/alerts", controllers.StockAlerts(deps.Stock, logg))
				r.Get("/product/{productId}/branch/{branchId}", controllers.GetStock(deps.Stock, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRoles(logg, stockWriters...))
					r.Put("/{stockId}", controllers.UpdateStock(deps.Stock, logg))
					r.Post("/transfer", controllers.TransferStock(deps.Stock, logg))
					r.Post("/bulk-update", controllers.BulkUpdateStock(deps.Stock, logg))
					r.Post("/initialize", controllers.InitializeStock(deps.Stock, logg))
				})
			})

			r.Post("/payments/initiate", controllers.InitiatePayment(deps.Payments, logg))
			r.Get("/payments/order/{orderId}", controllers.OrderPayments(deps.Payments, logg))
			r.Get("/payments/{paymentId}", controllers.GetPayment(deps.Payments, logg))
			accounts := r.With(middleware.RequireRoles(logg, finance...))
			accounts.Post("/payments/confirm-transfer", controllers.ConfirmTransfer(deps.Payments, logg))
			accounts.Put("/payments/cancel/{paymentId}", controllers.CancelPayment(deps.Payments, logg))
			accounts.Post("/payments/refund/{paymentId}", controllers.RefundPayment(deps.Payments, logg))
			accounts.Post("/payments/update-rates", controllers.RefreshExchangeRates(deps.Currency, logg))

			r.Get("/events/stream", controllers.EventStream(deps.Events, time.Duration(cfg.Notifier.HeartbeatSeconds)*time.Second, logg))
		})
	})

	return r
}
