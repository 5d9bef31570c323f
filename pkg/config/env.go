package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvIdentityBaseURL     = "IDENTITY_BASE_URL"
	EnvPaymentBaseURL      = "PAYMENT_BASE_URL"
	EnvNotificationBaseURL = "NOTIFICATION_BASE_URL"

	EnvBookingHorizonDays      = "BOOKING_HORIZON_DAYS"
	EnvSlotMinutes             = "SLOT_MINUTES"
	EnvDefaultHourlyRate       = "DEFAULT_HOURLY_RATE"
	EnvMinDurationHours        = "MIN_DURATION_HOURS"
	EnvMaxDurationHours        = "MAX_DURATION_HOURS"
	EnvSlotLockTTL             = "SLOT_LOCK_TTL"
	EnvRefundOnRequesterCancel = "REFUND_ON_REQUESTER_CANCEL"

	EnvIntentTopic         = "INTENT_TOPIC"
	EnvIntentDLQTopic      = "INTENT_DLQ_TOPIC"
	EnvDispatcherGroupID   = "DISPATCHER_GROUP_ID"
)
