package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"beyondrounds_server/config"
	"beyondrounds_server/routes"
	"beyondrounds_server/services"
	"beyondrounds_server/socket"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()

	// DynamoDB client and base service
	dynamoClient, err := services.InitializeDynamoDBClient(context.Background(), cfg.AWSRegion)
	if err != nil {
		logger.Fatal("failed to initialize DynamoDB client", zap.Error(err))
	}
	dynamoService := &services.DynamoService{Client: dynamoClient}
	logger.Info("DynamoDB client initialized", zap.String("region", cfg.AWSRegion))

	// Socket hub for realtime pushes
	hub := socket.NewHub(logger)
	go func() {
		if err := hub.Server.Serve(); err != nil {
			logger.Error("socket server stopped", zap.Error(err))
		}
	}()
	defer hub.Server.Close()

	var recruitRand *rand.Rand
	if cfg.RecruitSeed != 0 {
		recruitRand = rand.New(rand.NewSource(cfg.RecruitSeed))
	}

	// Services
	userProfileService := &services.UserProfileService{
		Dynamo: dynamoService,
		Cache:  services.NewProfileCache(cfg.ProfileCacheTTL),
		Log:    logger,
	}
	eligibilityService := &services.EligibilityService{Dynamo: dynamoService, Log: logger}
	historyService := &services.MatchHistoryService{
		Dynamo:               dynamoService,
		Log:                  logger,
		AvoidRatingThreshold: cfg.Weights.AvoidRatingThreshold,
	}
	scorer := &services.Scorer{Weights: cfg.Weights}
	partitioner := &services.Partitioner{
		Scorer:         scorer,
		MinSize:        cfg.GroupMinSize,
		MaxSize:        cfg.GroupMaxSize,
		CooldownEpochs: cfg.CooldownEpochs,
	}
	materializerService := &services.MaterializerService{
		Dynamo:  dynamoService,
		Log:     logger,
		MinSize: cfg.GroupMinSize,
		MaxSize: cfg.GroupMaxSize,
	}
	notificationService := &services.NotificationService{
		Dynamo:      dynamoService,
		Log:         logger,
		Broadcaster: hub,
	}
	groupService := &services.GroupService{Dynamo: dynamoService, Log: logger}
	feedbackService := &services.FeedbackService{
		Dynamo: dynamoService,
		Groups: groupService,
		Log:    logger,
	}
	groupChatService := &services.GroupChatService{
		Dynamo:        dynamoService,
		Groups:        groupService,
		Notifications: notificationService,
		Log:           logger,
	}
	matchRunService := &services.MatchRunService{
		Dynamo:         dynamoService,
		Eligibility:    eligibilityService,
		History:        historyService,
		Partitioner:    partitioner,
		Materializer:   materializerService,
		Notifications:  notificationService,
		Groups:         groupService,
		Log:            logger,
		CooldownEpochs: cfg.CooldownEpochs,
		ProposeMatches: cfg.ProposeMatches,
		TargetSize:     cfg.GroupTargetSize,
		Rand:           recruitRand,
	}
	matchActionService := &services.MatchActionService{
		Dynamo:        dynamoService,
		Eligibility:   eligibilityService,
		Materializer:  materializerService,
		Notifications: notificationService,
		Log:           logger,
		TargetSize:    cfg.GroupTargetSize,
		Rand:          recruitRand,
	}

	// Router
	r := mux.NewRouter()

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Welcome to BeyondRounds")
	}).Methods("GET")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}).Methods("GET")

	r.Handle("/socket.io/", hub.Server)

	routes.RegisterUserProfileRoutes(r, userProfileService)
	routes.RegisterMatchRunRoutes(r, matchRunService, cfg.MatchRunSecret)
	routes.RegisterMatchRoutes(r, matchActionService)
	routes.RegisterGroupChatRoutes(r, groupChatService)
	routes.RegisterGroupRoutes(r, groupService, feedbackService)
	routes.RegisterNotificationRoutes(r, notificationService)

	if cfg.S3Bucket != "" {
		s3Service, err := services.NewS3Service(context.Background(), cfg.AWSRegion, cfg.S3Bucket)
		if err != nil {
			logger.Fatal("failed to initialize S3 service", zap.Error(err))
		}
		routes.RegisterS3Routes(r, s3Service)
	} else {
		logger.Warn("S3_BUCKET_NAME not set, photo upload routes disabled")
	}

	// Optional in-process weekly trigger alongside the external scheduler
	if cfg.MatchCronSpec != "" {
		scheduler := cron.New()
		_, err := scheduler.AddFunc(cfg.MatchCronSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if _, err := matchRunService.RunEpoch(ctx, ""); err != nil {
				logger.Error("scheduled match run failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Fatal("invalid MATCH_CRON_SPEC", zap.String("spec", cfg.MatchCronSpec), zap.Error(err))
		}
		scheduler.Start()
		defer scheduler.Stop()
		logger.Info("weekly match run scheduled", zap.String("spec", cfg.MatchCronSpec))
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Match-Run-Secret"},
		AllowCredentials: true,
	}).Handler(r)

	logger.Info("starting server", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, corsHandler); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
