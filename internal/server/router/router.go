package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/server/handlers"
)

// Handlers groups the HTTP adapters. Chat is nil when WhatsApp is disabled; archive
// routes are only mounted when Sales has an archive.
type Handlers struct {
	Inventory   *handlers.InventoryHandler
	Recipes     *handlers.RecipeHandler
	Products    *handlers.ProductHandler
	Sales       *handlers.SalesHandler
	Chat        *handlers.ChatHandler
	WithArchive bool
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	api := r.Group("/api")

	ingredients := api.Group("/ingredients")
	ingredients.GET("", h.Inventory.List)
	ingredients.POST("", h.Inventory.Create)
	ingredients.GET("/:id", h.Inventory.Get)
	ingredients.PUT("/:id", h.Inventory.Update)
	ingredients.DELETE("/:id", h.Inventory.Delete)
	ingredients.POST("/:id/restock", h.Inventory.Restock)

	recipes := api.Group("/recipes")
	recipes.GET("", h.Recipes.List)
	recipes.POST("", h.Recipes.Create)
	recipes.GET("/:id", h.Recipes.Get)
	recipes.PUT("/:id", h.Recipes.Update)
	recipes.DELETE("/:id", h.Recipes.Delete)
	recipes.POST("/:id/lines", h.Recipes.AddLine)
	recipes.PUT("/:id/lines/:ingredientID", h.Recipes.UpdateLine)
	recipes.DELETE("/:id/lines/:ingredientID", h.Recipes.RemoveLine)
	recipes.POST("/:id/prepare", h.Recipes.Prepare)

	api.GET("/productions", h.Recipes.Productions)
	api.GET("/productions/summary", h.Recipes.ProductionSummary)

	products := api.Group("/products")
	products.GET("", h.Products.List)
	products.POST("", h.Products.Create)
	products.GET("/:id", h.Products.Get)
	products.PUT("/:id", h.Products.Update)
	products.DELETE("/:id", h.Products.Delete)
	products.POST("/:id/deactivate", h.Products.Deactivate)

	sales := api.Group("/sales")
	sales.GET("", h.Sales.List)
	sales.POST("", h.Sales.Create)
	sales.POST("/checkout", h.Sales.Checkout)
	sales.GET("/report", h.Sales.Report)

	api.GET("/dashboard", h.Sales.Dashboard)
	if h.WithArchive {
		api.GET("/reports/daily", h.Sales.DailyReports)
	}

	if h.Chat != nil {
		r.GET("/webhook", h.Chat.Verify)
		r.POST("/webhook", h.Chat.Receive)
		api.POST("/messages", h.Chat.Send)
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	logger.Info("router initialized", zap.Bool("whatsapp", h.Chat != nil), zap.Bool("archive", h.WithArchive))

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
