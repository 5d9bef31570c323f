package main

import (
	"slotwise/internal/availability"
	"slotwise/internal/bookings/handler"
	"slotwise/internal/bookings/repository"
	"slotwise/internal/bookings/service"
	"slotwise/internal/bookings/validator"
	"slotwise/internal/dispatch"
	"slotwise/pkg/app"
	"slotwise/pkg/config"
	"slotwise/pkg/kafka"
	kafka_config "slotwise/pkg/kafka/config"
	kafka_middleware "slotwise/pkg/kafka/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.Client.SetCollaborators(cfg.IdentityBaseURL, cfg.PaymentBaseURL, cfg.NotificationBaseURL)
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service")

	producer := initProducer(cfg)
	defer func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close intent producer", "error", err)
		}
	}()

	publisher := dispatch.NewPublisher(producer, ServiceName, cfg.Log)
	bookingService, availabilityService := initServices(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewBookingHandler(bookingService, availabilityService, publisher, cfg.Log),
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
	)
	serverApp.Run()
}

func initProducer(cfg *config.Config) *kafka.Producer {
	kafkaCfg := kafka_config.Load()
	producer, err := kafka.NewProducer(kafkaCfg, cfg.IntentTopic, cfg.IntentDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create intent producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))

	cfg.Log.Info("Intent producer initialized",
		"topic", cfg.IntentTopic,
		"dlq_topic", cfg.IntentDLQTopic,
	)
	return producer
}

func initServices(cfg *config.Config) (service.BookingService, availability.Service) {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	lockRepo := repository.NewSlotLockRepository(cfg)

	bookingService := service.NewBookingService(
		bookingRepo,
		lockRepo,
		bookingValidator,
		cfg.Client.Identity,
		cfg.Client.Payment,
		cfg,
	)
	availabilityService := availability.NewService(cfg.Client.Identity, bookingRepo, cfg)

	cfg.Log.Info("Booking services initialized", "database", cfg.MongoDatabaseName)
	return bookingService, availabilityService
}
