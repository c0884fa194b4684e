package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/quantiva/customers-api/internal/config"
	"github.com/quantiva/customers-api/internal/logging"
	"github.com/quantiva/customers-api/internal/repository/postgres"
	"github.com/quantiva/customers-api/internal/service"
	transporthttp "github.com/quantiva/customers-api/internal/transport/http"
	"github.com/quantiva/customers-api/internal/transport/mail"
	"github.com/quantiva/customers-api/internal/util"
)

const (
	shutdownTimeout = 10 * time.Second
	swaggerDocPath  = "docs/swagger.yaml"
)

type app struct {
	cfg        config.Config
	logger     *zap.Logger
	syncLogs   func() error
	db         *sqlx.DB
	dispatcher *mail.Dispatcher
	echo       *echo.Echo
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatalf("start: %v", err)
	}
	if err := a.run(ctx); err != nil {
		a.logger.Error("server stopped", zap.Error(err))
		a.close()
		os.Exit(1)
	}
	a.close()
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger, syncLogs, err := logging.New(logging.Options{
		Level:        cfg.LogLevel,
		Format:       cfg.LogFormat,
		LogstashAddr: cfg.LogstashTCPAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := postgres.New(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		logger.Error("database unavailable", zap.Error(err))
		releaseLogger(logger, syncLogs)
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.DBAutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			releaseLogger(logger, syncLogs)
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	var sender mail.Sender = mail.DisabledSender{}
	if cfg.MailEnabled() {
		sender = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, cfg.MailFromName, cfg.SMTPUseTLS)
	} else {
		logger.Warn("SMTP not configured; customer emails will not be delivered")
	}
	dispatcher := mail.NewDispatcher(sender, logger.Named("mail"))
	mailer := mail.NewCustomerMailer(dispatcher, mail.CustomerMailerConfig{
		Brand:           cfg.MailFromName,
		ResetURL:        cfg.FrontendResetURL,
		VerificationTTL: cfg.VerificationCodeTTL,
		ResetTTL:        cfg.PasswordResetTTL,
	})

	clock := util.SystemClock{}
	customers := service.NewCustomerService(
		postgres.NewCustomerRepo(db),
		util.NewPasswordHasher(cfg.BcryptCost),
		util.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiresIn, clock),
		util.NewResetTokenManager(),
		mailer,
		clock,
		logger.Named("customers"),
		service.CustomerServiceConfig{
			VerificationTTL:   cfg.VerificationCodeTTL,
			CodeLength:        cfg.VerificationCodeLength,
			ResetTTL:          cfg.PasswordResetTTL,
			MinPasswordLength: cfg.PasswordMinLength,
		},
	)
	health := service.NewHealthService(postgres.NewHealthRepo(db))

	e := transporthttp.NewRouter(cfg.AllowOrigins, logger.Named("http"))
	transporthttp.RegisterCustomers(e, customers, logger.Named("http"))
	transporthttp.RegisterHealth(e, health, logger.Named("http"))
	transporthttp.RegisterSwagger(e, swaggerDocPath, logger.Named("http"))

	return &app{
		cfg:        cfg,
		logger:     logger,
		syncLogs:   syncLogs,
		db:         db,
		dispatcher: dispatcher,
		echo:       e,
	}, nil
}

func (a *app) run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("port", a.cfg.Port))
		if err := a.echo.Start(":" + a.cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.echo.Shutdown(shutdownCtx)
}

func (a *app) close() {
	a.dispatcher.Close()
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", zap.Error(err))
	}
	releaseLogger(a.logger, a.syncLogs)
}

// releaseLogger flushes logger and closes its Logstash connection, if any.
func releaseLogger(logger *zap.Logger, closeLogs func() error) {
	_ = logger.Sync()
	_ = closeLogs()
}
