package main

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"chatshop/pkg/config"
	"chatshop/pkg/conversation"
	"chatshop/pkg/domain/model"
	"chatshop/pkg/domain/service"
	"chatshop/pkg/infrastructure/events"
	"chatshop/pkg/infrastructure/memory"
	"chatshop/pkg/infrastructure/metrics"
	"chatshop/pkg/infrastructure/mysql"
	"chatshop/pkg/infrastructure/redis"
	"chatshop/pkg/infrastructure/telegram"
	"chatshop/pkg/infrastructure/transport"
)

const shutdownTimeout = 10 * time.Second

type repositories interface {
	Categories() model.CategoryRepository
	Products() model.ProductRepository
	CartLines() model.CartRepository
	Orders() model.OrderRepository
	OrderLines() model.OrderLineRepository
	Users() model.UserRepository
}

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log.SetLevel(cfg.Level())
	logger := log.StandardLogger()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	killSignalChan := getKillSignalChan()
	defer signal.Stop(killSignalChan)
	go func(ctx context.Context) {
		waitForKillSignalChan(ctx, killSignalChan)
		cancel()
	}(ctx)

	checks := map[string]transport.Checker{}

	repos, closeRepos, err := openRepositories(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeRepos()

	states, closeStates, err := openStates(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeStates()

	m := metrics.New()
	dispatcher := events.NewDispatcher(logger, m)

	bot, err := telegram.NewBot(cfg.BotToken)
	if err != nil {
		return err
	}
	adapter := telegram.NewAdapter(bot, m, cfg.Workers, logger)

	catalog := service.NewCatalogService(repos.Categories(), repos.Products(), dispatcher)
	cart := service.NewCartService(repos.CartLines(), repos.Products())
	users := service.NewUserService(repos.Users(), cfg.Admins())
	orders := service.NewOrderService(
		repos.Orders(),
		repos.OrderLines(),
		repos.Products(),
		cart,
		conversation.NewNotifier(adapter),
		dispatcher,
		cfg.NotifiedAdmin(),
		logger,
	)
	adapter.Bind(conversation.NewEngine(catalog, cart, orders, users, states, logger))

	routerConfig := transport.RouterConfig{Checks: checks, Metrics: m}
	if cfg.Transport == config.TransportWebhook {
		routerConfig.WebhookPath = cfg.WebhookPath
		routerConfig.Webhook = adapter.WebhookHandler()
	}
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: transport.Router(routerConfig)}

	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return errors.Wrap(err, "listen grpc")
	}
	health := transport.NewHealthServer(checks, cfg.HealthInterval)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(log.Fields{"addr": cfg.HTTPAddr}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "serve http")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		log.WithFields(log.Fields{"addr": cfg.GRPCAddr}).Info("Starting grpc health service")
		return health.Serve(ctx, grpcListener)
	})
	g.Go(func() error {
		if cfg.Transport == config.TransportWebhook {
			if err := adapter.RegisterWebhook(cfg.WebhookURL); err != nil {
				return err
			}
			return adapter.ServeWebhook(ctx)
		}
		return adapter.Poll(ctx)
	})

	return g.Wait()
}

func openRepositories(ctx context.Context, cfg *config.Config, checks map[string]transport.Checker) (repositories, func(), error) {
	if cfg.Storage == config.BackendMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	db, err := mysql.Open(ctx, cfg.MySQLDSN)
	if err != nil {
		return nil, nil, err
	}
	if cfg.AutoMigrate {
		if err := mysql.Migrate(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	checks["mysql"] = transport.CheckerFunc(db.PingContext)
	return mysql.NewStore(db), func() { _ = db.Close() }, nil
}

func openStates(ctx context.Context, cfg *config.Config, checks map[string]transport.Checker) (model.ConversationStore, func(), error) {
	if cfg.StateBackend == config.BackendMemory {
		return memory.NewConversationStore(), func() {}, nil
	}

	client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	store := redis.NewConversationStore(client, "chatshop:state:", cfg.StateTTL)
	if err := store.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrap(err, "connect to redis")
	}
	checks["redis"] = store
	return store, func() { _ = client.Close() }, nil
}
