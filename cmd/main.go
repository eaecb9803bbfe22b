package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order-fulfillment/internal/catalog"
	"order-fulfillment/internal/clients"
	"order-fulfillment/internal/config"
	"order-fulfillment/internal/database"
	"order-fulfillment/internal/fulfillment"
	"order-fulfillment/internal/logger"
	"order-fulfillment/internal/messaging"
	"order-fulfillment/internal/orchestrator"
	"order-fulfillment/internal/services/order"
	"order-fulfillment/internal/services/payment"
	"order-fulfillment/internal/services/results"
	"order-fulfillment/internal/services/shipping"
)

func main() {
	var (
		mode       = flag.String("mode", "", "service mode: order-service, payment-worker, shipping-worker")
		port       = flag.Int("port", 3000, "HTTP port for order-service mode")
		configPath = flag.String("config", "config.yaml", "path to config file")
		strategy   = flag.String("strategy", "async", "order-service fulfillment strategy: sync or async")
		workers    = flag.Int("workers", 0, "override the configured worker count")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintln(os.Stderr, "Usage: order-fulfillment --mode=<order-service|payment-worker|shipping-worker> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log := logger.New(*mode)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("config_load_failed", "Failed to load configuration", "startup", err, nil)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "order-service":
		err = runOrderService(ctx, cfg, log, *port, *strategy)
	case "payment-worker":
		err = runPaymentWorker(ctx, cfg, log, *workers)
	case "shipping-worker":
		err = runShippingWorker(ctx, cfg, log, *workers)
	default:
		log.Error("invalid_mode", fmt.Sprintf("Unknown mode: %s", *mode), "startup", nil, nil)
		os.Exit(1)
	}

	if err != nil {
		log.Error("service_failed", "Service terminated with error", "", err, nil)
		os.Exit(1)
	}
}

// runOrderService starts the HTTP API with the selected strategy. The
// async strategy additionally runs the results subscriber that advances
// saga records and triggers shipping.
func runOrderService(ctx context.Context, cfg *config.Config, log *logger.Logger, port int, strategyName string) error {
	pricer, err := buildPricer(cfg)
	if err != nil {
		return err
	}
	orders := clients.NewOrdersClient(cfg.Services)

	var (
		strategy orchestrator.Strategy
		store    fulfillment.Store
		consumer *messaging.Consumer
		handler  messaging.MessageHandler
	)

	switch strategyName {
	case "sync":
		strategy = orchestrator.NewSyncStrategy(
			clients.NewPaymentsClient(cfg.Services),
			clients.NewShippingClient(cfg.Services),
		)
	case "async":
		db, err := database.New(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		if err := db.RunMigrations(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		conn, err := messaging.New(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer conn.Close()

		publisher, err := messaging.NewPublisher(conn, log)
		if err != nil {
			return fmt.Errorf("failed to create publisher: %w", err)
		}
		defer publisher.Close()

		store = fulfillment.NewPostgresStore(db)
		strategy = orchestrator.NewAsyncStrategy(store, publisher, log)

		subscriber := results.NewSubscriber(store, publisher, log)
		consumer = messaging.NewConsumer(conn, log, messaging.ResultsQueue, "order-service-results", 1)
		handler = subscriber.HandleMessage
	default:
		return fmt.Errorf("unknown strategy %q, want sync or async", strategyName)
	}

	orch := orchestrator.New(pricer, orders, strategy, log)
	api := order.NewHandler(orch, store, log)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: api.Routes(),
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("server_started", fmt.Sprintf("Order service listening on port %d", port), "startup", map[string]interface{}{
			"port":     port,
			"strategy": strategyName,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	if consumer != nil {
		go func() {
			if err := consumer.StartConsuming(ctx, handler); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("results subscriber failed: %w", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server_stopping", "Shutting down order service", "shutdown", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// runPaymentWorker consumes payment required events with a worker pool.
func runPaymentWorker(ctx context.Context, cfg *config.Config, log *logger.Logger, workerOverride int) error {
	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer conn.Close()

	publisher, err := messaging.NewPublisher(conn, log)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}
	defer publisher.Close()

	gateway := payment.NewSimulatedGateway(cfg.Services.PaymentSuccessRatio,
		rand.New(rand.NewSource(time.Now().UnixNano())))
	service := payment.NewService(payment.NewPostgresRepository(db), gateway, publisher, log)

	workers := clampWorkers(workerOverride, cfg.Workers.PaymentWorkers, cfg.Workers.PaymentWorkersMax)
	consumer := messaging.NewConsumer(conn, log, messaging.PaymentsQueue, "payment-worker", workers)

	log.Info("worker_started", "Payment worker started", "startup", map[string]interface{}{
		"workers": workers,
	})
	return consumer.StartConsuming(ctx, service.HandleMessage)
}

// runShippingWorker consumes shipping required events with a worker pool.
func runShippingWorker(ctx context.Context, cfg *config.Config, log *logger.Logger, workerOverride int) error {
	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer conn.Close()

	publisher, err := messaging.NewPublisher(conn, log)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}
	defer publisher.Close()

	dispatcher := shipping.NewCarrierDispatcher(cfg.Services.Carrier)
	service := shipping.NewService(shipping.NewPostgresRepository(db), dispatcher, publisher,
		cfg.Services.Carrier, log)

	workers := clampWorkers(workerOverride, cfg.Workers.ShippingWorkers, cfg.Workers.ShippingWorkersMax)
	consumer := messaging.NewConsumer(conn, log, messaging.ShippingQueue, "shipping-worker", workers)

	log.Info("worker_started", "Shipping worker started", "startup", map[string]interface{}{
		"workers": workers,
	})
	return consumer.StartConsuming(ctx, service.HandleMessage)
}

// buildPricer uses the external catalog service when one is configured,
// otherwise the in-process price book from the config's catalog section.
func buildPricer(cfg *config.Config) (orchestrator.Pricer, error) {
	if cfg.Services.CatalogURL != "" {
		return clients.NewPricingClient(cfg.Services), nil
	}

	if len(cfg.Catalog) == 0 {
		return orchestrator.LocalPricer{Books: catalog.Seed()}, nil
	}
	books, err := catalog.FromConfig(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog prices: %w", err)
	}
	return orchestrator.LocalPricer{Books: books}, nil
}

// clampWorkers applies the override within the configured bounds.
func clampWorkers(override, configured, max int) int {
	workers := configured
	if override > 0 {
		workers = override
	}
	if max > 0 && workers > max {
		workers = max
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
