package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/cafeorder/api/internal/auth"
	"github.com/cafeorder/api/internal/cart"
	"github.com/cafeorder/api/internal/catalog"
	"github.com/cafeorder/api/internal/messaging"
	"github.com/cafeorder/api/internal/orders"
	"github.com/cafeorder/api/internal/payments"
	"github.com/cafeorder/api/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := telemetry.NewLogger()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "cafe-orders-api", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("cafe-orders-api", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	stripeAPIKey := os.Getenv("STRIPE_API_KEY")
	if stripeAPIKey == "" {
		logger.Error("STRIPE_API_KEY environment variable is required")
		os.Exit(1)
	}

	stripeWebhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if stripeWebhookSecret == "" {
		logger.Error("STRIPE_WEBHOOK_SECRET environment variable is required")
		os.Exit(1)
	}

	currency := os.Getenv("CURRENCY")
	if currency == "" {
		currency = "nzd"
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var createdProducer, paymentProducer *messaging.Producer
	var createdPublisher, paymentPublisher orders.Publisher
	var webhookPublisher payments.Publisher
	if kafkaBrokers := os.Getenv("KAFKA_BROKERS"); kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		createdProducer = messaging.NewProducer(brokers, messaging.TopicOrderCreated)
		defer func() { _ = createdProducer.Close() }()
		paymentProducer = messaging.NewProducer(brokers, messaging.TopicOrderPayment)
		defer func() { _ = paymentProducer.Close() }()

		createdPublisher = createdProducer
		paymentPublisher = paymentProducer
		webhookPublisher = paymentProducer
	}

	middleware := auth.NewMiddleware([]byte(jwtSecret), logger)
	customer := middleware.RequireRole(auth.RoleCustomer)
	admin := middleware.RequireRole(auth.RoleAdmin)
	anyUser := middleware.RequireRole(auth.RoleCustomer, auth.RoleAdmin)

	catalogHandler := catalog.NewHandler(catalog.NewProductRepository(db), logger)
	cartHandler := cart.NewHandler(cart.NewCartRepository(db), logger)

	orderRepo := orders.NewOrderRepository(db)
	orderHandler, err := orders.NewHandler(orderRepo, createdPublisher, paymentPublisher, logger)
	if err != nil {
		logger.Error("failed to create order handler", "error", err)
		os.Exit(1)
	}

	gateway := payments.NewStripeGateway(stripeAPIKey, currency)
	paymentHandler := payments.NewHandler(orderRepo, gateway, logger)
	webhookHandler := payments.NewWebhookHandler(orderRepo, stripeWebhookSecret, webhookPublisher, logger)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metricsHandler)

	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(catalogHandler.HandleList))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleGet))

	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(customer(cartHandler.HandleGet)))
	mux.HandleFunc("POST /cart/items", telemetry.WithHTTPRoute(customer(cartHandler.HandleAddItem)))
	mux.HandleFunc("PUT /cart/items/{id}", telemetry.WithHTTPRoute(customer(cartHandler.HandleUpdateItem)))
	mux.HandleFunc("DELETE /cart/items/{id}", telemetry.WithHTTPRoute(customer(cartHandler.HandleRemoveItem)))

	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(customer(orderHandler.HandleCreate)))
	mux.HandleFunc("GET /orders/my", telemetry.WithHTTPRoute(customer(orderHandler.HandleListMine)))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(admin(orderHandler.HandleListAll)))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(anyUser(orderHandler.HandleGet)))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(admin(orderHandler.HandleUpdateStatus)))

	mux.HandleFunc("POST /payments/intent", telemetry.WithHTTPRoute(anyUser(paymentHandler.HandleCreateIntent)))
	mux.HandleFunc("POST /webhooks/stripe", telemetry.WithHTTPRoute(webhookHandler.HandleEvent))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "cafe-orders-api",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting cafe orders api", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
