package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lecoq-erp/config"
	"lecoq-erp/internal/database"
	"lecoq-erp/internal/database/models"
	"lecoq-erp/internal/events"
	"lecoq-erp/internal/gateway/handlers"
	"lecoq-erp/internal/gateway/middleware"
	"lecoq-erp/internal/services/distribution"
	"lecoq-erp/internal/services/inventory"
	"lecoq-erp/internal/services/maquila"
	"lecoq-erp/internal/services/orders"
	"lecoq-erp/internal/services/users"
)

func main() {
	cfg := config.LoadConfig()
	gin.SetMode(cfg.HTTP.GinMode)

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient := config.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	var publisher *events.Publisher
	if cfg.Events.AMQPURL != "" {
		publisher, err = events.NewPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			log.Printf("Warning: event publisher unavailable: %v", err)
		} else {
			defer publisher.Close()
		}
	}

	inventorySvc := inventory.NewService(db, redisClient)
	orderSvc := orders.NewService(db, inventorySvc, publisher)
	distributionSvc := distribution.NewService(db, orderSvc, publisher)
	maquilaSvc := maquila.NewService(db, inventorySvc, publisher)
	userSvc := users.NewService(db, []byte(cfg.Auth.JWTSecret), time.Duration(cfg.Auth.TokenTTL)*time.Hour)

	userHandler := handlers.NewUserHTTPHandler(userSvc)
	inventoryHandler := handlers.NewInventoryHTTPHandler(inventorySvc)
	orderHandler := handlers.NewOrderHTTPHandler(orderSvc)
	distributionHandler := handlers.NewDistributionHTTPHandler(distributionSvc)
	maquilaHandler := handlers.NewMaquilaHTTPHandler(maquilaSvc)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit("300-M"))
	r.Use(middleware.Prometheus())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", userHandler.Login)
		auth.POST("/logout", userHandler.Logout)
		auth.POST("/validate", userHandler.Validate)
	}

	jwtAuth := middleware.JWTAuth([]byte(cfg.Auth.JWTSecret))
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleSales, models.RoleMaquila)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	adminOrSales := middleware.RequireRoles(models.RoleAdmin, models.RoleSales)
	adminOrMaquila := middleware.RequireRoles(models.RoleAdmin, models.RoleMaquila)

	productos := r.Group("/api/productos", jwtAuth)
	{
		productos.GET("", anyRole, inventoryHandler.ListProducts)
		productos.GET("/:id", anyRole, inventoryHandler.GetProduct)
		productos.GET("/buscar", anyRole, inventoryHandler.SearchProducts)
		productos.GET("/stock-bajo", anyRole, inventoryHandler.ListLowStock)
		productos.GET("/con-stock", anyRole, inventoryHandler.ListInStock)
		productos.POST("", adminOnly, inventoryHandler.CreateProduct)
		productos.PUT("/:id", adminOnly, inventoryHandler.UpdateProduct)
		productos.PUT("/:id/stock", adminOnly, inventoryHandler.AdjustStock)
		productos.PUT("/:id/activar", adminOnly, inventoryHandler.ActivateProduct)
		productos.PUT("/:id/desactivar", adminOnly, inventoryHandler.DeactivateProduct)
		productos.DELETE("/:id", adminOnly, inventoryHandler.DeleteProduct)
	}

	pedidos := r.Group("/api/pedidos", jwtAuth, adminOrSales)
	{
		pedidos.GET("", orderHandler.ListOrders)
		pedidos.GET("/activos", orderHandler.ListActiveOrders)
		pedidos.GET("/mis-pedidos", orderHandler.ListMyOrders)
		pedidos.GET("/:id", orderHandler.GetOrder)
		pedidos.GET("/:id/detalles", orderHandler.GetOrderDetails)
		pedidos.GET("/numero/:number", orderHandler.GetOrderByNumber)
		pedidos.GET("/estado/:status", orderHandler.ListOrdersByStatus)
		pedidos.GET("/cliente", orderHandler.SearchOrdersByCustomer)
		pedidos.GET("/fecha", orderHandler.ListOrdersByDateRange)
		pedidos.POST("", orderHandler.CreateOrder)
		pedidos.PUT("/:id", orderHandler.UpdateOrder)
		pedidos.PUT("/:id/estado", orderHandler.ChangeOrderStatus)
		pedidos.DELETE("/:id", adminOnly, orderHandler.DeleteOrder)
	}

	distribuciones := r.Group("/api/distribuciones", jwtAuth, adminOrSales)
	{
		distribuciones.GET("", distributionHandler.ListDeliveries)
		distribuciones.GET("/activas", distributionHandler.ListActiveDeliveries)
		distribuciones.GET("/:id", distributionHandler.GetDelivery)
		distribuciones.GET("/pedido/:orderId", distributionHandler.GetDeliveryByOrder)
		distribuciones.GET("/estado/:status", distributionHandler.ListDeliveriesByStatus)
		distribuciones.GET("/chofer", distributionHandler.SearchDeliveriesByDriver)
		distribuciones.GET("/vehiculo/:plate", distributionHandler.ListDeliveriesByPlate)
		distribuciones.GET("/fecha", distributionHandler.ListDeliveriesByDateRange)
		distribuciones.POST("", distributionHandler.CreateDelivery)
		distribuciones.PUT("/:id", distributionHandler.UpdateDelivery)
		distribuciones.PUT("/:id/estado", distributionHandler.ChangeDeliveryStatus)
		distribuciones.PUT("/:id/entregar", distributionHandler.MarkDelivered)
		distribuciones.PUT("/:id/en-ruta", distributionHandler.MarkInTransit)
		distribuciones.PUT("/:id/fallido", distributionHandler.MarkFailed)
		distribuciones.DELETE("/:id", adminOnly, distributionHandler.DeleteDelivery)
	}

	maquilados := r.Group("/api/maquilados", jwtAuth, adminOrMaquila)
	{
		maquilados.GET("", maquilaHandler.ListMaquilaOrders)
		maquilados.GET("/activos", maquilaHandler.ListActiveMaquilaOrders)
		maquilados.GET("/:id", maquilaHandler.GetMaquilaOrder)
		maquilados.GET("/:id/detalles", maquilaHandler.GetMaquilaDetails)
		maquilados.GET("/numero/:number", maquilaHandler.GetMaquilaOrderByNumber)
		maquilados.GET("/estado/:status", maquilaHandler.ListMaquilaOrdersByStatus)
		maquilados.GET("/proveedor", maquilaHandler.SearchMaquilaOrdersBySupplier)
		maquilados.GET("/fecha", maquilaHandler.ListMaquilaOrdersByDateRange)
		maquilados.POST("", maquilaHandler.CreateMaquilaOrder)
		maquilados.PUT("/:id", maquilaHandler.UpdateMaquilaOrder)
		maquilados.PUT("/:id/estado", maquilaHandler.ChangeMaquilaStatus)
		maquilados.PUT("/:id/en-proceso", maquilaHandler.MarkEnProcess)
		maquilados.PUT("/:id/finalizar", maquilaHandler.MarkFinalized)
		maquilados.PUT("/:id/cancelar", maquilaHandler.MarkCancelled)
		maquilados.PUT("/:id/recibir", maquilaHandler.ReceiveMaquilaOrder)
		maquilados.PUT("/:id/cantidades-recibidas", maquilaHandler.UpdateReceivedQuantities)
		maquilados.DELETE("/:id", adminOnly, maquilaHandler.DeleteMaquilaOrder)
	}

	usuarios := r.Group("/api/usuarios", jwtAuth, adminOnly)
	{
		usuarios.GET("", userHandler.ListUsers)
		usuarios.GET("/:id", userHandler.GetUser)
		usuarios.POST("", userHandler.CreateUser)
		usuarios.PUT("/:id", userHandler.UpdateUser)
		usuarios.PUT("/:id/activar", userHandler.ActivateUser)
		usuarios.PUT("/:id/desactivar", userHandler.DeactivateUser)
		usuarios.DELETE("/:id", userHandler.DeleteUser)
	}

	log.Printf("HTTP server listening on :%s", cfg.HTTP.Port)
	if err := r.Run(":" + cfg.HTTP.Port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
