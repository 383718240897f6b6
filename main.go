package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"settlement-service/config"
	"settlement-service/controllers"
	"settlement-service/database"
	"settlement-service/kafka"
	"settlement-service/middleware"
	"settlement-service/models"
	"settlement-service/repository"
	"settlement-service/routes"
	"settlement-service/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("[SettlementService] Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("[SettlementService] Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg, logger,
		&models.Payment{}, &models.Installment{}, &models.Enrollment{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
	})
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable, course lookups will skip the cache", zap.Error(err))
			rdb = nil
		}
		cancel()
	}

	producer := kafka.NewEnrollmentEventProducer(
		strings.Split(cfg.KafkaBrokers, ","), cfg.EnrollmentTopic, logger)
	defer producer.Close()

	paymentRepo := repository.NewGormPaymentRepo(db)
	enrollmentRepo := repository.NewGormEnrollmentRepo(db)
	gatewayClient := services.NewGatewayClient(cfg.Gateway, logger)
	courseCatalog := services.NewCourseCatalog(cfg.CourseServiceURL, rdb, logger)
	userDirectory := services.NewUserDirectory(cfg.UserServiceURL)

	initiator := services.NewPaymentInitiator(paymentRepo, gatewayClient, courseCatalog, userDirectory, logger)
	processor := services.NewWebhookProcessor(paymentRepo, gatewayClient, producer, courseCatalog, logger)
	verifier := services.NewVerificationService(paymentRepo, enrollmentRepo, gatewayClient, courseCatalog, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.MetricsMiddleware())

	pc := &controllers.PaymentController{
		Initiator: initiator,
		Verifier:  verifier,
		Processor: processor,
		Logger:    logger,
	}
	routes.RegisterPaymentRoutes(r, pc, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Settlement service running", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
}
