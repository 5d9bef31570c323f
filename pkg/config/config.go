package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"slotwise/pkg/client"
	"slotwise/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RequestTimeout time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	IdentityBaseURL     string
	PaymentBaseURL      string
	NotificationBaseURL string

	BookingHorizonDays      int
	SlotMinutes             int
	DefaultHourlyRate       float64
	MinDurationHours        float64
	MaxDurationHours        float64
	SlotLockTTL             time.Duration
	RefundOnRequesterCancel bool

	IntentTopic       string
	IntentDLQTopic    string
	DispatcherGroupID string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		IdentityBaseURL:     getEnvStr(EnvIdentityBaseURL, DefaultIdentityBaseURL),
		PaymentBaseURL:      getEnvStr(EnvPaymentBaseURL, DefaultPaymentBaseURL),
		NotificationBaseURL: getEnvStr(EnvNotificationBaseURL, DefaultNotificationBaseURL),

		BookingHorizonDays:      getEnvNum(EnvBookingHorizonDays, DefaultBookingHorizonDays),
		SlotMinutes:             getEnvNum(EnvSlotMinutes, DefaultSlotMinutes),
		DefaultHourlyRate:       getEnvFloat(EnvDefaultHourlyRate, DefaultHourlyRate),
		MinDurationHours:        getEnvFloat(EnvMinDurationHours, DefaultMinDurationHours),
		MaxDurationHours:        getEnvFloat(EnvMaxDurationHours, DefaultMaxDurationHours),
		SlotLockTTL:             getEnvDuration(EnvSlotLockTTL, DefaultSlotLockTTL),
		RefundOnRequesterCancel: getEnvBool(EnvRefundOnRequesterCancel, DefaultRefundOnRequesterCancel),

		IntentTopic:       getEnvStr(EnvIntentTopic, DefaultIntentTopic),
		IntentDLQTopic:    getEnvStr(EnvIntentDLQTopic, DefaultIntentDLQTopic),
		DispatcherGroupID: getEnvStr(EnvDispatcherGroupID, DefaultDispatcherGroupID),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.FormatJSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

var mongoURIRegex = regexp.MustCompile(`^mongodb(\+srv)?://`)

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" || !mongoURIRegex.MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}

	for name, d := range map[string]time.Duration{
		"MongoConnTimeout": cfg.MongoConnTimeout,
		"RequestTimeout":   cfg.RequestTimeout,
		"ReadTimeout":      cfg.ReadTimeout,
		"WriteTimeout":     cfg.WriteTimeout,
		"IdleTimeout":      cfg.IdleTimeout,
		"ShutdownTimeout":  cfg.ShutdownTimeout,
		"SlotLockTTL":      cfg.SlotLockTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %s", name, d))
		}
	}

	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.BookingHorizonDays <= 0 {
		errs = append(errs, fmt.Sprintf("BookingHorizonDays must be positive, got: %d", cfg.BookingHorizonDays))
	}
	if cfg.SlotMinutes <= 0 || cfg.SlotMinutes > 24*60 {
		errs = append(errs, fmt.Sprintf("SlotMinutes must be within one day, got: %d", cfg.SlotMinutes))
	}
	if cfg.DefaultHourlyRate <= 0 {
		errs = append(errs, fmt.Sprintf("DefaultHourlyRate must be positive, got: %v", cfg.DefaultHourlyRate))
	}
	if cfg.MinDurationHours <= 0 {
		errs = append(errs, fmt.Sprintf("MinDurationHours must be positive, got: %v", cfg.MinDurationHours))
	}
	if cfg.MaxDurationHours < cfg.MinDurationHours {
		errs = append(errs, fmt.Sprintf("MaxDurationHours (%v) must be >= MinDurationHours (%v)", cfg.MaxDurationHours, cfg.MinDurationHours))
	}
	if cfg.IntentTopic == "" {
		errs = append(errs, "IntentTopic cannot be empty")
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, e := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"identity_base_url", cfg.IdentityBaseURL,
		"payment_base_url", cfg.PaymentBaseURL,
		"notification_base_url", cfg.NotificationBaseURL,
		"booking_horizon_days", cfg.BookingHorizonDays,
		"slot_minutes", cfg.SlotMinutes,
		"default_hourly_rate", cfg.DefaultHourlyRate,
		"min_duration_hours", cfg.MinDurationHours,
		"max_duration_hours", cfg.MaxDurationHours,
		"slot_lock_ttl", cfg.SlotLockTTL,
		"refund_on_requester_cancel", cfg.RefundOnRequesterCancel,
		"intent_topic", cfg.IntentTopic,
		"intent_dlq_topic", cfg.IntentDLQTopic,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
