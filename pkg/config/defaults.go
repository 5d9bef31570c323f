package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "slotwise"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultIdentityBaseURL     = "http://localhost:8081"
	DefaultPaymentBaseURL      = "http://localhost:8082"
	DefaultNotificationBaseURL = "http://localhost:8083"

	// Bookings must be strictly in the future and at most this many days out.
	DefaultBookingHorizonDays = 90

	// Width of generated availability slots.
	DefaultSlotMinutes = 60

	// Flat hourly rate applied when a provider has none configured.
	DefaultHourlyRate = 800

	DefaultMinDurationHours = 0.5
	DefaultMaxDurationHours = 8

	DefaultSlotLockTTL = 10 * time.Second

	// The observed upstream behavior refunds only provider-initiated
	// cancellations. The policy is explicit and configurable here instead of
	// silently asymmetric.
	DefaultRefundOnRequesterCancel = false

	DefaultIntentTopic       = "booking-intents"
	DefaultIntentDLQTopic    = "booking-intents-dlq"
	DefaultDispatcherGroupID = "slotwise-dispatcher"

	DefaultPaginationLimit = 50
)
