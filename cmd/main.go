package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fabwatch/fabwatch-backend/internal/db"
	"github.com/fabwatch/fabwatch-backend/internal/handlers"
	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/realtime/bus"
	"github.com/fabwatch/fabwatch-backend/internal/repos"
	"github.com/fabwatch/fabwatch-backend/internal/server"
	"github.com/fabwatch/fabwatch-backend/internal/services"
	"github.com/fabwatch/fabwatch-backend/internal/sse"
	"github.com/fabwatch/fabwatch-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	recalcWindow := utils.GetEnvAsInt("RECALC_WINDOW", 100, log)
	recalcMinSamples := utils.GetEnvAsInt("RECALC_MIN_SAMPLES", 20, log)
	redisAddr := utils.GetEnv("REDIS_ADDR", "", log)
	redisChannel := utils.GetEnv("REDIS_EVENT_CHANNEL", "spc-events", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	characteristicRepo := repos.NewCharacteristicRepo(thePG, log)
	sampleRepo := repos.NewSampleRepo(thePG, log)
	sampleEditRepo := repos.NewSampleEditRepo(thePG, log)
	controlLimitsRepo := repos.NewControlLimitsRepo(thePG, log)
	violationRepo := repos.NewViolationRepo(thePG, log)
	annotationRepo := repos.NewAnnotationRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewSSEHub(log)

	// Event relay: local hub by default, Redis fan-out when configured so
	// violations raised on one API instance reach dashboards on another.
	var emitter services.SSEEmitter = &services.HubEmitter{Hub: sseHub}
	if redisAddr != "" {
		eventBus, err := bus.NewRedisBus(log, redisAddr, redisChannel)
		if err != nil {
			log.Error("Could not init Redis event bus", "error", err)
			os.Exit(1)
		}
		defer eventBus.Close()
		if err := eventBus.StartForwarder(context.Background(), sseHub.Broadcast); err != nil {
			log.Error("Could not start Redis event forwarder", "error", err)
			os.Exit(1)
		}
		emitter = &services.RedisEmitter{Bus: eventBus}
	}

	// Services
	log.Info("Setting up Services from main...")
	locker := services.NewCharacteristicLocker()
	notifier := services.NewChartNotifier(emitter)
	detectorService := services.NewDetectorService(thePG, log, sampleRepo, controlLimitsRepo, violationRepo)
	characteristicService := services.NewCharacteristicService(thePG, log, characteristicRepo)
	sampleService := services.NewSampleService(thePG, log, locker, characteristicRepo, sampleRepo, sampleEditRepo, detectorService, notifier)
	limitsService := services.NewLimitsService(thePG, log, locker, characteristicRepo, sampleRepo, controlLimitsRepo, notifier, recalcWindow, recalcMinSamples)
	violationService := services.NewViolationService(thePG, log, violationRepo, sampleRepo, sampleService)
	annotationService := services.NewAnnotationService(thePG, log, characteristicRepo, sampleRepo, annotationRepo)
	chartService := services.NewChartService(thePG, log, characteristicRepo, sampleRepo, controlLimitsRepo, violationRepo, annotationRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	healthHandler := handlers.NewHealthHandler(log, thePG)
	characteristicHandler := handlers.NewCharacteristicHandler(log, characteristicService)
	sampleHandler := handlers.NewSampleHandler(log, sampleService)
	limitsHandler := handlers.NewLimitsHandler(log, limitsService, detectorService)
	violationHandler := handlers.NewViolationHandler(log, violationService)
	annotationHandler := handlers.NewAnnotationHandler(log, annotationService)
	chartHandler := handlers.NewChartHandler(log, chartService)
	streamHandler := handlers.NewStreamHandler(log, sseHub)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		HealthHandler:         healthHandler,
		CharacteristicHandler: characteristicHandler,
		SampleHandler:         sampleHandler,
		LimitsHandler:         limitsHandler,
		ViolationHandler:      violationHandler,
		AnnotationHandler:     annotationHandler,
		ChartHandler:          chartHandler,
		StreamHandler:         streamHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
