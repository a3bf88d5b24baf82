package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/webhook-relay/internal/api/http"
	"github.com/spec-kit/webhook-relay/internal/api/http/handlers"
	"github.com/spec-kit/webhook-relay/internal/chat"
	"github.com/spec-kit/webhook-relay/internal/config"
	"github.com/spec-kit/webhook-relay/internal/dedup"
	"github.com/spec-kit/webhook-relay/internal/events"
	"github.com/spec-kit/webhook-relay/internal/helpdesk"
	"github.com/spec-kit/webhook-relay/internal/observability"
	"github.com/spec-kit/webhook-relay/internal/persistence"
	"github.com/spec-kit/webhook-relay/internal/retry"
	"github.com/spec-kit/webhook-relay/internal/service"
	"github.com/spec-kit/webhook-relay/internal/worker"
)

const maxWebhookBody = 1 << 20

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var store dedup.Store
	if redis != nil {
		store = dedup.NewRedisStore(redis.Client, cfg.Dedup.TTL)
	} else {
		store = dedup.NewMemoryStore(cfg.Dedup.Capacity, cfg.Dedup.TTL)
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAuditWorker(dispatcher, logger, metrics)

	httpClient := &http.Client{Timeout: cfg.App.ClientTimeout}
	gateway := helpdesk.NewGateway(helpdesk.Config{
		BaseURL:      cfg.Helpdesk.APIBase,
		TicketPath:   cfg.Helpdesk.TicketPath,
		APIKeyHeader: cfg.Helpdesk.APIKeyHeader,
		WrapArray:    cfg.Helpdesk.TicketArray,
		RefreshSkew:  cfg.Helpdesk.TokenSkew,
	}, authStrategy(cfg.Helpdesk, httpClient), httpClient, logger)
	gateway.OnRefresh(metrics.RecordTokenRefresh)

	chatClient := chat.NewClient(cfg.Chat.APIBase, cfg.Chat.BotToken, cfg.App.ClientTimeout, logger)

	fetchRetry := retry.DefaultConfig()
	fetchRetry.MaxAttempts = cfg.Relay.RetryMaxAttempts

	relay := service.NewRelayService(service.RelayConfig{
		TicketSummary:      cfg.Relay.TicketSummary,
		TicketTypeID:       cfg.Helpdesk.TicketTypeID,
		ConfirmationPrefix: cfg.Relay.ConfirmationPrefix,
		FetchRetry:         fetchRetry,
	}, service.RelayDependencies{
		Normalizer: service.NewNormalizer(cfg.Chat.BotPersonID, cfg.Chat.BotEmail),
		Chat:       chatClient,
		Tickets:    gateway,
		Dedup:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    maxWebhookBody,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.App.RequestTimeout() + 5*time.Second,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, redis),
		Webhook:       handlers.NewWebhookHandler(relay),
		Metrics:       metrics,
		WebhookSecret: cfg.Chat.WebhookSecret,
	})

	logger.Info("relay starting",
		zap.String("addr", cfg.App.Addr()),
		zap.String("helpdesk_auth", cfg.Helpdesk.AuthMode),
		zap.Bool("shared_dedup", redis != nil),
	)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.ShutdownWithTimeout(10 * time.Second)
}

// authStrategy picks the helpdesk credential flow once at startup.
func authStrategy(cfg config.HelpdeskConfig, httpClient *http.Client) helpdesk.AuthStrategy {
	if cfg.AuthMode == config.AuthModeAPIKey {
		return helpdesk.NewAPIKeyStrategy(cfg.ClientSecret)
	}
	return helpdesk.NewOAuthStrategy(helpdesk.OAuthConfig{
		TokenURL:     cfg.AuthURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		DefaultTTL:   cfg.TokenTTL,
	}, httpClient)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
