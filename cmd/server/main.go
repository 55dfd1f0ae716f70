package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yogesh832/dumpsexpert-checkout/internal/cache"
	"github.com/yogesh832/dumpsexpert-checkout/internal/cart"
	"github.com/yogesh832/dumpsexpert-checkout/internal/checkout"
	"github.com/yogesh832/dumpsexpert-checkout/internal/coupon"
	"github.com/yogesh832/dumpsexpert-checkout/internal/gateway"
	"github.com/yogesh832/dumpsexpert-checkout/internal/httpapi"
	"github.com/yogesh832/dumpsexpert-checkout/internal/order"
	"github.com/yogesh832/dumpsexpert-checkout/internal/publisher"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	GatewayTimeout  time.Duration
	ShutdownTimeout time.Duration

	MongoURI    string
	MongoDBName string
	RedisAddr   string

	DBHost                 string
	DBPort                 int
	DBUser                 string
	DBPassword             string
	DBName                 string
	CheckoutMigrationsPath string
	OrdersMigrationsPath   string

	KafkaBrokers []string

	RazorpayBaseURL   string
	RazorpayKeyID     string
	RazorpayKeySecret string

	PayPalBaseURL      string
	PayPalClientID     string
	PayPalClientSecret string

	// Fixed INR->USD divisor used when pricing the international gateway.
	INRPerUSD float64

	PendingIntentTTL time.Duration
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadConfig() *Config {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		log.Fatalf("Invalid DB_PORT: %v", err)
	}

	rate, err := strconv.ParseFloat(getEnv("INR_USD_RATE", "83"), 64)
	if err != nil || rate <= 0 {
		log.Fatalf("Invalid INR_USD_RATE: %v", err)
	}

	pendingTTL, err := time.ParseDuration(getEnv("PENDING_INTENT_TTL", "30m"))
	if err != nil {
		log.Fatalf("Invalid PENDING_INTENT_TTL: %v", err)
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  30 * time.Second,
		GatewayTimeout:  15 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "dumpsexpert"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),

		DBHost:                 getEnv("DB_HOST", "localhost"),
		DBPort:                 dbPort,
		DBUser:                 getEnv("DB_USER", "postgres"),
		DBPassword:             getEnv("DB_PASSWORD", "postgres"),
		DBName:                 getEnv("DB_NAME", "dumpsexpert"),
		CheckoutMigrationsPath: getEnv("CHECKOUT_MIGRATIONS_PATH", "./migrations/checkout"),
		OrdersMigrationsPath:   getEnv("ORDERS_MIGRATIONS_PATH", "./migrations/orders"),

		KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),

		RazorpayBaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		RazorpayKeyID:     getEnv("RAZORPAY_KEY_ID", "rzp_test_7kAotmP1o8JR8V"),
		RazorpayKeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),

		PayPalBaseURL:      getEnv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
		PayPalClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
		PayPalClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),

		INRPerUSD: rate,

		PendingIntentTTL: pendingTTL,
	}
}

func main() {
	log.Println("checkout server starting...")

	cfg := loadConfig()
	ctx := context.Background()

	// MongoDB holds carts and coupons
	mongoDB, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	cartRepo := cart.NewMongoRepository(mongoDB)
	couponRepo := coupon.NewMongoRepository(mongoDB)
	if err := cart.EnsureIndexes(ctx, mongoDB); err != nil {
		log.Fatalf("Failed to create cart indexes: %v", err)
	}
	if err := coupon.EnsureIndexes(ctx, mongoDB); err != nil {
		log.Fatalf("Failed to create coupon indexes: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	cartCache := cache.NewRedisCache(redisClient)

	cartService := cart.NewCartService(cartRepo, cartCache)
	couponValidator := coupon.NewValidator(couponRepo)

	// Postgres holds payment intents, the outbox and orders
	checkoutCreds := &checkout.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.CheckoutMigrationsPath,
	}
	checkoutRepo, err := checkout.NewRepository(checkoutCreds)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer checkoutRepo.Close()
	if err := checkoutRepo.RunMigrations(checkoutCreds); err != nil {
		log.Fatalf("Failed to run checkout migrations: %v", err)
	}

	orderCreds := &order.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.OrdersMigrationsPath,
	}
	orderRepo, err := order.NewRepository(orderCreds)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer orderRepo.Close()
	if err := orderRepo.RunMigrations(orderCreds); err != nil {
		log.Fatalf("Failed to run orders migrations: %v", err)
	}
	log.Println("Database migrations completed")

	razorpayFlow := gateway.NewRazorpayFlow(
		cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.GatewayTimeout)
	paypalFlow := gateway.NewPayPalFlow(
		cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.INRPerUSD, cfg.GatewayTimeout)

	orchestrator := checkout.NewOrchestrator(
		checkoutRepo,
		cartService,
		couponValidator,
		orderRepo,
		razorpayFlow,
		paypalFlow,
	)

	// Outbox publishing and intent recovery run until shutdown
	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	defer pollerCancel()
	poller := publisher.NewOutboxPoller(checkoutRepo, orchestrator, cfg.PendingIntentTTL, cfg.KafkaBrokers...)
	go poller.Run(pollerCtx)

	couponHandler := httpapi.NewCouponHandler(couponValidator, cfg.RequestTimeout)
	cartHandler := httpapi.NewCartHandler(cartService, cfg.RequestTimeout)
	paymentHandler := httpapi.NewPaymentHandler(orchestrator, cfg.RequestTimeout)
	ordersHandler := httpapi.NewOrdersHandler(orderRepo, cfg.RequestTimeout)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httpapi.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(httpapi.MockAuthMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/coupons/validate", couponHandler.Validate)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Put("/", cartHandler.ReplaceCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/razorpay/create-order", paymentHandler.CreateRazorpayOrder)
			r.Post("/razorpay/verify", paymentHandler.VerifyRazorpay)
			r.Post("/paypal/create-order", paymentHandler.CreatePayPalOrder)
			r.Post("/paypal/verify", paymentHandler.VerifyPayPal)
			r.Post("/cancel", paymentHandler.CancelPayment)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.ListOrders)
			r.Get("/{order_id}", ordersHandler.GetOrder)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "checkout-server"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Checkout server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	pollerCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
