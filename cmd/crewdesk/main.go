package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/crewdesk/crewdesk/internal/app"
	"github.com/crewdesk/crewdesk/internal/attach"
	"github.com/crewdesk/crewdesk/internal/auth"
	"github.com/crewdesk/crewdesk/internal/company"
	"github.com/crewdesk/crewdesk/internal/directory"
	"github.com/crewdesk/crewdesk/internal/issue"
	"github.com/crewdesk/crewdesk/internal/observability"
	"github.com/crewdesk/crewdesk/internal/order"
	"github.com/crewdesk/crewdesk/internal/platform/db"
	"github.com/crewdesk/crewdesk/internal/project"
	"github.com/crewdesk/crewdesk/internal/roles"
	"github.com/crewdesk/crewdesk/internal/universal"
	"github.com/crewdesk/crewdesk/internal/users"
	"github.com/crewdesk/crewdesk/jobs"
	"github.com/crewdesk/crewdesk/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	signer := auth.NewTokenSigner(cfg.TokenSecret, cfg.TokenTTL)
	authRepo := auth.NewRepository(pool)
	authenticator := auth.NewAuthenticator(signer, authRepo)
	guard := auth.Guard{Authenticator: authenticator, Logger: logger}

	provider := auth.NewOIDCProvider(auth.OIDCConfig{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		AuthURL:      cfg.OAuthAuthURL,
		TokenURL:     cfg.OAuthTokenURL,
		RedirectURL:  cfg.OAuthRedirectURL,
	})
	states := auth.NewStateStore(redisClient, 10*time.Minute)
	authService := auth.NewService(authRepo, provider, states, logger, cfg.BootstrapAdminList())
	authHandler := auth.NewHandler(logger, authService, signer, guard, cfg.FrontendURL, cfg.IsProduction())

	attachRepo := attach.NewRepository(pool)
	store := attach.NewStore(cfg.UploadRoot, attachRepo, logger)

	companyRepo := company.NewRepository(pool)
	companyHandler := company.NewHandler(logger, companyRepo, guard)

	issueRepo := issue.NewRepository(pool)
	issueService := issue.NewService(issueRepo, store, logger)
	issueHandler := issue.NewHandler(logger, issueService, guard)

	orderRepo := order.NewRepository(pool)
	orderService := order.NewService(orderRepo, store, logger)
	orderHandler := order.NewHandler(logger, orderService, guard)

	projectRepo := project.NewRepository(pool)
	projectService := project.NewService(projectRepo, store, issueRepo, logger)
	reportClient := report.NewClient(cfg.GotenbergURL)
	reporter := project.NewReporter(projectService, issueService, reportClient)
	projectHandler := project.NewHandler(logger, projectService, reporter, guard)

	tokens := auth.NewServiceTokenCache(auth.ClientCredentialsFetcher(
		cfg.OAuthClientID, cfg.OAuthClientSecret, cfg.OAuthTokenURL, nil))
	dirClient := directory.NewClient(cfg.DirectoryBaseURL, tokens)
	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, dirClient, logger, cfg.FrontendURL)
	usersHandler := users.NewHandler(logger, usersService, guard)

	rolesRepo := roles.NewRepository(pool)
	rolesHandler := roles.NewHandler(logger, rolesRepo, guard)

	universalHandler := universal.NewHandler(logger, store, guard)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Guard:            guard,
		AuthHandler:      authHandler,
		CompanyHandler:   companyHandler,
		ProjectHandler:   projectHandler,
		IssueHandler:     issueHandler,
		OrderHandler:     orderHandler,
		UsersHandler:     usersHandler,
		RolesHandler:     rolesHandler,
		UniversalHandler: universalHandler,
		JobsHandler:      jobsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
