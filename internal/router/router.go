package router

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rjnat/cursorpos/internal/cart"
	"github.com/rjnat/cursorpos/internal/config"
	"github.com/rjnat/cursorpos/internal/handler"
	"github.com/rjnat/cursorpos/internal/infra"
	"github.com/rjnat/cursorpos/internal/middleware"
	"github.com/rjnat/cursorpos/internal/repository"
	"github.com/rjnat/cursorpos/internal/service"
	"github.com/rjnat/cursorpos/internal/sync"
	"github.com/rjnat/cursorpos/internal/worker"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← local store / API client
func New(cfg *config.Config, db *gorm.DB, apiClient *infra.APIClient, monitor *sync.Monitor, syncer *sync.Syncer, cb *infra.CircuitBreaker, dispatcher *worker.Dispatcher) *gin.Engine {
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

	// ── Repositories ─────────────────────────────────────────────────────────
	productRepo := repository.NewProductCacheRepository(db)
	queueRepo := repository.NewOrderQueueRepository(db)
	snapshotRepo := repository.NewCartSnapshotRepository(db)
	deadLetterRepo := repository.NewDeadLetterRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	policy := cart.Policy{
		MaxPercent:  decimal.NewFromFloat(cfg.MaxDiscountPercent),
		MaxFraction: decimal.NewFromFloat(cfg.MaxDiscountFraction),
	}
	cartSvc := service.NewCartService(productRepo, snapshotRepo, policy, cfg.TenantID, cfg.StoreID)
	txnSvc := service.NewTransactionService(apiClient, queueRepo, monitor, cfg.TenantID, cfg.StoreID)
	productSvc := service.NewProductService(apiClient, productRepo, monitor, cfg.TenantID)
	approvalSvc := service.NewApprovalService(apiClient)
	receiptSvc := service.NewReceiptService(dispatcher, cfg.BusinessName, cfg.PDFStoragePath)

	// ── Handlers ─────────────────────────────────────────────────────────────
	cartH := handler.NewCartHandler(cartSvc, approvalSvc)
	productsH := handler.NewProductsHandler(productSvc)
	txnsH := handler.NewTransactionsHandler(cartSvc, txnSvc, receiptSvc)
	syncH := handler.NewSyncHandler(syncer, monitor, queueRepo, deadLetterRepo)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(db, monitor, cb))

	v1 := r.Group("/v1")
	{
		cartG := v1.Group("/cart")
		{
			cartG.GET("", cartH.View)
			cartG.POST("/items", cartH.AddItem)
			cartG.PUT("/items/:id", cartH.UpdateQuantity)
			cartG.PATCH("/items/:id/decrement", cartH.DecrementItem)
			cartG.DELETE("/items/:id", cartH.RemoveItem)
			cartG.DELETE("", cartH.Clear)
			cartG.PUT("/customer", cartH.SetCustomer)
			cartG.POST("/discount/check", cartH.CheckDiscount)
			cartG.POST("/discount", cartH.ApplyDiscount)
			cartG.DELETE("/discount", cartH.RemoveDiscount)
		}

		v1.POST("/approvals", cartH.RequestApproval)

		products := v1.Group("/products")
		{
			products.GET("", productsH.Search)
			products.POST("/refresh", productsH.Refresh)
			products.DELETE("/cache", productsH.ClearCache)
		}

		txns := v1.Group("/transactions")
		{
			txns.POST("/checkout", txnsH.Checkout)
			txns.GET("", txnsH.List)
			txns.GET("/:id", txnsH.GetByID)
			txns.GET("/number/:number", txnsH.GetByNumber)
			txns.POST("/:id/cancel", txnsH.Cancel)
		}

		v1.GET("/receipts/:number", txnsH.Receipt)

		syncG := v1.Group("/sync")
		{
			syncG.GET("/status", syncH.Status)
			syncG.POST("/trigger", syncH.Trigger)
			syncG.GET("/queue", syncH.Queue)
			syncG.GET("/dead-letters", syncH.DeadLetters)
		}
	}

	return r
}
