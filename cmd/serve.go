package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"citizen-kiosk/internal/adaptor"
	"citizen-kiosk/internal/audit"
	"citizen-kiosk/internal/data/repository"
	"citizen-kiosk/internal/data/repository/memory"
	"citizen-kiosk/internal/gateway"
	"citizen-kiosk/internal/usecase"
	"citizen-kiosk/internal/wire"
	"citizen-kiosk/pkg/database"
	"citizen-kiosk/pkg/utils"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kiosk HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	config, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	if serveMigrate {
		if err := database.Migrate(cmd.Context(), db, logger); err != nil {
			return err
		}
	}

	// Connect to redis, optional
	rdb, err := database.InitRedis(config.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	repos := repository.NewRepository(db, otpStore(rdb, logger), rateLimitStore(rdb, config.RateLimit, logger), logger)

	deps := usecase.Deps{
		Gateway: paymentGateway(config.Payment, logger),
	}

	if config.Payment.WebhookSecret == "" {
		logger.Warn("PAYMENT_WEBHOOK_SECRET not set, webhook signatures are not checked")
	}

	var shipper *audit.KafkaShipper
	if config.Kafka.Enabled {
		shipper, err = audit.NewKafkaShipper(audit.ShipperConfig{
			Brokers: config.Kafka.Brokers,
			Topic:   config.Kafka.AuditTopic,
		}, logger)
		if err != nil {
			return err
		}
		shipper.Start()
		deps.Publisher = shipper
	}

	service := usecase.NewService(repos, deps, config, logger)
	app := wire.Wiring(service, healthChecks(db, rdb), config, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = APIServer(ctx, app.Router, config.App.Port, logger)

	if shipper != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if stopErr := shipper.Stop(stopCtx); stopErr != nil {
			logger.Warn("Audit shipper did not drain", zap.Error(stopErr))
		}
	}

	return err
}

// ==================== HELPER METHODS ====================

func otpStore(rdb *redis.Client, log *zap.Logger) repository.OTPStore {
	if rdb == nil {
		log.Warn("REDIS_ADDR not set, OTP records are kept in process memory")
		return memory.NewOTPStore()
	}
	return repository.NewRedisOTPStore(rdb, log)
}

func rateLimitStore(rdb *redis.Client, config utils.RateLimitConfig, log *zap.Logger) repository.RateLimitStore {
	if rdb == nil {
		return memory.NewRateLimitStore()
	}
	longest := max(config.OTPWindowMinutes, config.LoginWindowMinutes)
	// a blocked record must outlive its two-window block
	retention := time.Duration(3*longest) * time.Minute
	return repository.NewRedisRateLimitStore(rdb, retention, log)
}

func paymentGateway(config utils.PaymentConfig, log *zap.Logger) gateway.PaymentGateway {
	if config.GatewayURL == "" {
		log.Warn("PAYMENT_GATEWAY_URL not set, using sandbox gateway")
		return gateway.NewSandboxGateway(config.KeyID)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return gateway.NewHTTPGateway(config.GatewayURL, config.KeyID, config.KeySecret, client, log)
}

func healthChecks(db database.PgxIface, rdb *redis.Client) map[string]adaptor.HealthCheck {
	checks := map[string]adaptor.HealthCheck{
		"postgres": db.Ping,
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}
	return checks
}
