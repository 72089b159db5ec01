package router

import (
	"time"

	"github.com/sabasiddique1/meri-dukaan-backend/internal/config"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/handler"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/middleware"
	"github.com/sabasiddique1/meri-dukaan-backend/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services carries the constructed service layer into the router. The
// composition root (cmd/server) builds it so the worker pool and the HTTP
// surface share the same instances.
type Services struct {
	Auth      service.AuthService
	Catalog   service.CatalogService
	Invoice   service.InvoiceService
	Inventory service.InventoryService
	Analytics service.AnalyticsService
	Filters   service.FilterService
}

// New wires the middleware chain and all routes onto a Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, svcs Services) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(svcs.Auth)
	catalogH := handler.NewCatalogHandler(svcs.Catalog)
	posH := handler.NewPOSHandler(svcs.Invoice)
	inventoryH := handler.NewInventoryHandler(svcs.Inventory)
	analyticsH := handler.NewAnalyticsHandler(svcs.Analytics, svcs.Filters)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// POS surface — every role behind a register
		pos := v1.Group("/pos", middleware.RequireRole("cashier", "supervisor"))
		{
			pos.POST("/scan", posH.Scan)
			pos.DELETE("/reservations/:id", posH.ReleaseReservation)
			pos.POST("/invoices", posH.CreateInvoice)
			pos.GET("/invoices", posH.ListInvoices)
			pos.GET("/invoices/:id", posH.GetInvoice)
		}
		// Voids need a supervisor override
		v1.DELETE("/pos/invoices/:id", middleware.RequireRole("supervisor"), posH.VoidInvoice)

		// Catalog — reads for everyone, writes for admins
		v1.GET("/catalog/products", middleware.RequireRole("cashier", "supervisor"), catalogH.List)
		v1.GET("/catalog/products/sku/:sku", middleware.RequireRole("cashier", "supervisor"), catalogH.Lookup)
		v1.GET("/catalog/products/:id", middleware.RequireRole("cashier", "supervisor"), catalogH.Get)
		catalog := v1.Group("/catalog", middleware.RequireRole("admin"))
		{
			catalog.POST("/products", catalogH.Create)
			catalog.PUT("/products/:id", catalogH.Update)
			catalog.DELETE("/products/:id", catalogH.Deactivate)
			catalog.POST("/products/:id/reactivate", catalogH.Reactivate)
			catalog.POST("/reload", catalogH.Reload)
		}

		// Inventory — supervisors run the stockroom
		inv := v1.Group("/inventory", middleware.RequireRole("supervisor"))
		{
			inv.POST("/restock", inventoryH.Restock)
			inv.POST("/adjust", inventoryH.Adjust)
			inv.GET("/deltas", inventoryH.ListDeltas)
			inv.GET("/alerts", inventoryH.Alerts)
			inv.GET("/verify/:sku", inventoryH.Verify)
		}

		// Admin analytics + user administration
		admin := v1.Group("/admin", middleware.RequireRole("admin"))
		{
			admin.GET("/analytics/summary", analyticsH.Summary)
			admin.POST("/analytics/rebuild", analyticsH.Rebuild)
			admin.GET("/filters", analyticsH.Filters)

			admin.POST("/users", authH.CreateUser)
			admin.GET("/users", authH.ListUsers)
			admin.PUT("/users/:id", authH.UpdateUser)
			admin.DELETE("/users/:id", authH.DeactivateUser)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
