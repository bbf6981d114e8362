package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/davidsmithrojas/storefront/internal/config"
	"github.com/davidsmithrojas/storefront/internal/handler"
	"github.com/davidsmithrojas/storefront/internal/repository"
	"github.com/davidsmithrojas/storefront/internal/service"
	customvalidator "github.com/davidsmithrojas/storefront/internal/validator"
	"github.com/davidsmithrojas/storefront/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogger(cfg)

	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if cfg.DB.MigrateOnStart {
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply database schema")
		}
		log.Info().Msg("database schema applied")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Storefront",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())

	validate := customvalidator.New()

	couponRepo := repository.NewCouponRepository(pool)
	usageRepo := repository.NewUsageRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	inventoryRepo := repository.NewInventoryRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)

	couponService := service.NewCouponService(pool, couponRepo, usageRepo, orderRepo)
	inventoryService := service.NewInventoryService(pool, productRepo, inventoryRepo)
	productService := service.NewProductService(pool, productRepo, inventoryService)
	orderService := service.NewOrderService(pool, productRepo, orderRepo, couponService, inventoryService, cfg.Order.ShippingCost)

	healthHandler := handler.NewHealthHandler(pool)
	couponHandler := handler.NewCouponHandler(couponService, validate)
	productHandler := handler.NewProductHandler(productService, inventoryService, validate)
	inventoryHandler := handler.NewInventoryHandler(inventoryService, validate)
	orderHandler := handler.NewOrderHandler(orderService, validate)

	app.Get("/health", healthHandler.Check)

	api := app.Group("/api")

	coupons := api.Group("/coupons")
	coupons.Post("/validate", couponHandler.ValidateCoupon)
	coupons.Post("/apply", couponHandler.ApplyCoupon)
	coupons.Post("/", couponHandler.CreateCoupon)
	coupons.Get("/", couponHandler.ListCoupons)
	coupons.Get("/:id/stats", couponHandler.CouponStats)
	coupons.Get("/:code", couponHandler.GetCoupon)
	coupons.Put("/:id", couponHandler.UpdateCoupon)
	coupons.Delete("/:id", couponHandler.DeactivateCoupon)

	products := api.Group("/products")
	products.Post("/", productHandler.CreateProduct)
	products.Get("/", productHandler.ListProducts)
	products.Get("/:id", productHandler.GetProduct)
	products.Put("/:id", productHandler.UpdateProduct)
	products.Put("/:id/stock", productHandler.SetStock)
	products.Get("/:id/stock-check", productHandler.StockCheck)

	inventory := api.Group("/inventory")
	inventory.Post("/movements", inventoryHandler.RecordMovement)
	inventory.Get("/movements/recent", inventoryHandler.RecentMovements)
	inventory.Get("/products/:id/history", inventoryHandler.ProductHistory)
	inventory.Get("/stats", inventoryHandler.MovementStats)

	orders := api.Group("/orders")
	orders.Post("/", orderHandler.PlaceOrder)
	orders.Get("/", orderHandler.ListOrders)
	orders.Get("/:id", orderHandler.GetOrder)
	orders.Patch("/:id/status", orderHandler.UpdateOrderStatus)

	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("shipping_cost", cfg.Order.ShippingCost.String()).
			Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// In-flight requests finish before the pool goes away
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	pool.Close()
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
		return
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
