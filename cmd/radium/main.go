package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/radium-data/radium/internal/logger"
	"github.com/radium-data/radium/internal/ratelimiter"
	"github.com/radium-data/radium/pkg/acl"
	"github.com/radium-data/radium/pkg/config"
	"github.com/radium-data/radium/pkg/dispatch"
	"github.com/radium-data/radium/pkg/gc"
	"github.com/radium-data/radium/pkg/namespace"
	"github.com/radium-data/radium/pkg/notification"
	"github.com/radium-data/radium/pkg/notification/mqtt"
	"github.com/radium-data/radium/pkg/payload"
	"github.com/radium-data/radium/pkg/principal"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override the configured log level (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := setupLogging(&cfg.Logging); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	fmt.Println("Radium - hierarchical data namespace")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	if err := run(cfg); err != nil {
		logger.Error("Fatal: %v", err)
		os.Exit(1)
	}
}

func setupLogging(cfg *config.LoggingConfig) error {
	logger.SetLevel(cfg.Level)
	switch cfg.Output {
	case "stdout", "":
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", cfg.Output, err)
		}
		logger.SetOutput(f)
	}
	return nil
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsResult := config.InitializeMetrics(cfg)

	// Stores
	nodes, err := config.CreateNodeStore(ctx, &cfg.Node)
	if err != nil {
		return fmt.Errorf("failed to create node store: %w", err)
	}
	defer closeQuietly("node store", nodes.Close)

	blobs, err := config.CreateBlobStore(ctx, &cfg.Blob)
	if err != nil {
		return fmt.Errorf("failed to create blob store: %w", err)
	}
	defer closeQuietly("blob store", blobs.Close)

	events, err := config.CreateEventStore(ctx, &cfg.Event)
	if err != nil {
		return fmt.Errorf("failed to create event store: %w", err)
	}
	defer closeQuietly("event store", events.Close)

	principals, err := config.CreatePrincipalStore(ctx, &cfg.Principal)
	if err != nil {
		return fmt.Errorf("failed to create principal store: %w", err)
	}
	defer closeQuietly("principal store", principals.Close)

	pub, err := config.CreatePublisher(&cfg.Broker)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}
	defer closeQuietly("publisher", pub.Close)

	// Services
	bus := notification.NewBus(events, pub, notification.BusConfig{
		Sender:  cfg.Namespace.SystemSender,
		Metrics: metricsResult.Notification,
	})
	pr := principal.NewService(principals, bus,
		principal.BcryptHasher{Cost: cfg.Principal.BcryptCost}, cfg.Namespace.SystemSender)
	ns := namespace.NewService(nodes, blobs, bus,
		acl.GroupResolverFunc(pr.ResolveGroup), config.NamespaceOptions(&cfg.Namespace))
	d := dispatch.NewDispatcher(ns, pr, bus, metricsResult.Dispatch)

	if err := config.Bootstrap(ctx, ns, pr, &cfg.Bootstrap); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	collector, err := gc.NewCollector(nodes, blobs, gc.Config{
		Enabled:  cfg.GC.Enabled,
		Interval: cfg.GC.Interval,
		DryRun:   cfg.GC.DryRun,
		Scheme:   cfg.Namespace.Scheme,
	})
	if err != nil {
		return fmt.Errorf("failed to create garbage collector: %w", err)
	}
	collector.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := collector.Stop(stopCtx); err != nil {
			logger.Warn("failed to stop garbage collector: %v", err)
		}
	}()

	var wg sync.WaitGroup

	if metricsResult.Server != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	if cfg.Broker.Enabled {
		listener, err := mqtt.NewMQTTListener(mqtt.MQTTListenerConfig{
			BrokerURL:      cfg.Broker.URL,
			ClientID:       cfg.Broker.ClientID + "-listener",
			Username:       cfg.Broker.Username,
			Password:       cfg.Broker.Password,
			ConnectTimeout: cfg.Broker.ConnectTimeout,
			DefaultSender:  cfg.Namespace.SystemSender,
		})
		if err != nil {
			return fmt.Errorf("failed to create request listener: %w", err)
		}
		defer closeQuietly("request listener", listener.Close)

		limiter := ratelimiter.New(cfg.Broker.RequestsPerSecond, cfg.Broker.Burst)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.Listen(ctx, func(ctx context.Context, p *payload.Payload) {
				if !limiter.Allow() {
					logger.Warn("dropping %s/%s request for %q: rate limit exceeded",
						p.OpName(), p.ObjType(), p.ObjectKey())
					return
				}
				res := d.Handle(ctx, p)
				if !res.OK {
					logger.Warn("rejected %s/%s request for %q: %s",
						p.OpName(), p.ObjType(), p.ObjectKey(), res.Message)
				}
			}); err != nil {
				logger.Error("Request listener error: %v", err)
			}
		}()
	} else {
		logger.Info("Broker disabled: requests are only accepted through the library API")
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")
	<-ctx.Done()

	logger.Info("Shutting down server...")
	wg.Wait()
	return nil
}

func closeQuietly(name string, close func() error) {
	if err := close(); err != nil {
		logger.Warn("failed to close %s: %v", name, err)
	}
}
