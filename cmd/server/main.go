package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/benbjohnson/clock"
	"github.com/jackc/pgx/v5/pgxpool"
	goRedis "github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/reminders/api/handler"
	"github.com/fastygo/reminders/internal/config"
	"github.com/fastygo/reminders/internal/infrastructure/buffer"
	"github.com/fastygo/reminders/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/reminders/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/reminders/internal/infrastructure/redis"
	sqliteInfra "github.com/fastygo/reminders/internal/infrastructure/sqlite"
	"github.com/fastygo/reminders/internal/mail"
	"github.com/fastygo/reminders/internal/middleware"
	"github.com/fastygo/reminders/internal/router"
	"github.com/fastygo/reminders/internal/services"
	"github.com/fastygo/reminders/internal/services/lifecycle"
	"github.com/fastygo/reminders/internal/token"
	"github.com/fastygo/reminders/pkg/httpcontext"
	"github.com/fastygo/reminders/pkg/logger"
	"github.com/fastygo/reminders/repository"
	pgRepo "github.com/fastygo/reminders/repository/postgres"
	sqliteRepo "github.com/fastygo/reminders/repository/sqlite"
	clientUC "github.com/fastygo/reminders/usecase/client"
	completionUC "github.com/fastygo/reminders/usecase/completion"
	"github.com/fastygo/reminders/usecase/notify"
	reminderUC "github.com/fastygo/reminders/usecase/reminder"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	var (
		clientRepo   repository.ClientRepository
		reminderRepo repository.ReminderRepository
		storePinger  monitor.Pinger
	)
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		if cfg.Migrations.Enabled {
			if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
				zapLogger.Fatal("migrations failed", zap.Error(err))
			}
		}
		pool, err := pgInfra.NewPool(appCtx, cfg.Store.Postgres, zapLogger)
		if err != nil {
			zapLogger.Fatal("postgres connection failed", zap.Error(err))
		}
		manager.Register("postgres", func(ctx context.Context) error {
			pool.Close()
			return nil
		})
		clientRepo, reminderRepo, storePinger = postgresStores(pool)
	default:
		db, err := sqliteInfra.Open(appCtx, cfg.Store.SQLitePath, cfg.Migrations.Enabled, zapLogger)
		if err != nil {
			zapLogger.Fatal("sqlite open failed", zap.Error(err))
		}
		manager.Register("sqlite", func(ctx context.Context) error {
			return db.Close()
		})
		clientRepo, reminderRepo, storePinger = sqliteStores(db)
	}

	var (
		redisClient *goRedis.Client
		cycleLock   services.CycleLock = &services.LocalLock{}
	)
	if cfg.Scheduler.Lock == config.LockModeRedis {
		redisClient, err = redisInfra.NewClient(appCtx, cfg.Redis)
		if err != nil {
			zapLogger.Fatal("redis connection failed", zap.Error(err))
		}
		manager.Register("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})
		cycleLock = redisInfra.NewLock(redisClient, cfg.AppName+":scheduler:cycle", cfg.Scheduler.LockTTL)
	}

	bufferStore, err := buffer.Open(cfg.Buffer.Path, "deliveries")
	if err != nil {
		zapLogger.Fatal("failed to open buffer store", zap.Error(err))
	}
	manager.Register("buffer", func(ctx context.Context) error {
		return bufferStore.Close()
	})

	mon := monitor.New(storePinger, cfg.Store.Driver, redisClient, bufferStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	tokens, err := token.New(cfg.Token.Secret, cfg.Token.Context, token.WithMaxAge(cfg.Token.MaxAge))
	if err != nil {
		zapLogger.Fatal("token service init failed", zap.Error(err))
	}

	sender, err := mail.NewSMTPSender(cfg.SMTP)
	if err != nil {
		zapLogger.Fatal("smtp sender init failed", zap.Error(err))
	}

	bufferProcessor := services.NewBufferProcessor(
		bufferStore,
		mon,
		reminderRepo,
		zapLogger,
		services.ProcessorConfig{
			BatchSize:    cfg.Buffer.BatchSize,
			MaxRetries:   cfg.Buffer.MaxRetry,
			Retention:    time.Duration(cfg.Buffer.RetentionHours) * time.Hour,
			StoreTimeout: cfg.Scheduler.StoreTimeout,
		},
	)
	bufferBridge := services.NewBufferBridge(bufferProcessor)

	dispatcher := notify.NewDispatcher(
		reminderRepo,
		tokens,
		mail.NewRenderer(cfg.AppName),
		sender,
		bufferBridge,
		clock.New(),
		notify.Config{
			BaseURL:      cfg.Token.BaseURL,
			Location:     cfg.Location(),
			StoreTimeout: cfg.Scheduler.StoreTimeout,
			SendTimeout:  cfg.Scheduler.SendTimeout,
		},
		zapLogger.Named("dispatcher"),
	)

	if cfg.Scheduler.Enabled {
		scheduler := services.NewScheduler(
			reminderRepo,
			dispatcher,
			bufferProcessor,
			cycleLock,
			clock.New(),
			services.SchedulerConfig{
				Interval:     cfg.Scheduler.Interval,
				Workers:      cfg.Scheduler.Workers,
				PageSize:     cfg.Scheduler.PageSize,
				StoreTimeout: cfg.Scheduler.StoreTimeout,
				Location:     cfg.Location(),
			},
			zapLogger.Named("scheduler"),
		)
		scheduler.OnFatal(func(err error) { manager.Fail("scheduler", err) })
		if err := scheduler.Start(); err != nil {
			zapLogger.Fatal("scheduler start failed", zap.Error(err))
		}
		manager.Register("scheduler", scheduler.Stop)
	} else {
		zapLogger.Warn("scheduler disabled; only the HTTP surface is running")
	}

	completionUseCase := completionUC.New(reminderRepo, tokens, cfg.Scheduler.StoreTimeout, zapLogger)
	clientUseCase := clientUC.New(clientRepo, zapLogger)
	reminderUseCase := reminderUC.New(reminderRepo, clientRepo, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(appCtx, cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Completion: apiHandler.NewCompletionHandler(completionUseCase, ctxAdapter, zapLogger),
		Client:     apiHandler.NewClientHandler(clientUseCase, ctxAdapter, zapLogger),
		Reminder:   apiHandler.NewReminderHandler(reminderUseCase, ctxAdapter, zapLogger),
		Mail:       apiHandler.NewMailHandler(sender, ctxAdapter, zapLogger),
		Health:     apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			manager.Fail("http_server", err)
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
	if err := manager.Err(); err != nil {
		zapLogger.Error("exiting after component failure", zap.Error(err))
		_ = zapLogger.Sync()
		os.Exit(1)
	}
}

func postgresStores(pool *pgxpool.Pool) (repository.ClientRepository, repository.ReminderRepository, monitor.Pinger) {
	return pgRepo.NewClientRepository(pool), pgRepo.NewReminderRepository(pool), pool
}

func sqliteStores(db *sql.DB) (repository.ClientRepository, repository.ReminderRepository, monitor.Pinger) {
	return sqliteRepo.NewClientRepository(db), sqliteRepo.NewReminderRepository(db), monitor.PingFunc(db.PingContext)
}
