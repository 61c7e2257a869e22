package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cafeorder/api/internal/messaging"
	"github.com/cafeorder/api/internal/notifier"
	"github.com/cafeorder/api/internal/telemetry"
)

func main() {
	logger := telemetry.NewLogger()

	shutdownTracer, err := telemetry.InitTracerProvider(context.Background(), "cafe-orders-notifier", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	emailServiceURL := os.Getenv("EMAIL_SERVICE_URL")
	if emailServiceURL == "" {
		logger.Error("EMAIL_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	brokers := strings.Split(kafkaBrokers, ",")

	createdConsumer := messaging.NewConsumer(brokers, messaging.TopicOrderCreated, "notifier")
	defer func() { _ = createdConsumer.Close() }()

	paymentConsumer := messaging.NewConsumer(brokers, messaging.TopicOrderPayment, "notifier")
	defer func() { _ = paymentConsumer.Close() }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	sender := notifier.NewHTTPEmailSender(emailServiceURL, httpClient)
	handler := notifier.NewHandler(sender, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting notifier", "brokers", brokers)

	errCh := make(chan error, 2)
	go func() { errCh <- createdConsumer.Consume(ctx, handler.HandleOrderCreated) }()
	go func() { errCh <- paymentConsumer.Consume(ctx, handler.HandleOrderPayment) }()

	if err := <-errCh; err != nil {
		if ctx.Err() == context.Canceled {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
