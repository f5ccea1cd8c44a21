package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrcolv86/bierserv/config"
	"github.com/mrcolv86/bierserv/internal/api"
	"github.com/mrcolv86/bierserv/internal/broker"
	"github.com/mrcolv86/bierserv/internal/push"
	"github.com/mrcolv86/bierserv/internal/service"
	"github.com/mrcolv86/bierserv/internal/store"
	"github.com/mrcolv86/bierserv/internal/util"
	"github.com/mrcolv86/bierserv/internal/worker"
	"github.com/mrcolv86/bierserv/internal/ws"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting bierserv")

	tp, err := util.InitTracer("bierserv", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	pushGateway, err := push.NewGateway(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PushChannel)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer pushGateway.Close()
	log.Println("Push gateway connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	registry := ws.NewRegistry(cfg.Realtime.SendTimeout)
	router := ws.NewRouter(registry)
	orderService := service.NewOrderService(db, router, pushGateway, eventPublisher)
	classifier := ws.NewClassifier(registry, orderService)
	wsHandler := ws.NewHandler(registry, classifier, cfg.Realtime.ReadBufferSize, cfg.Realtime.WriteBufferSize)

	heartbeatCtx, heartbeatCancel := context.WithCancel(context.Background())
	defer heartbeatCancel()
	go registry.RunHeartbeat(heartbeatCtx, cfg.Realtime.HeartbeatInterval)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	reportConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	reportWorker := worker.NewReportingWorker(reportConsumer, db)
	go func() {
		if err := reportWorker.Start(workerCtx); err != nil {
			log.Printf("Reporting worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	handler := api.NewHandler(orderService, db, wsHandler)
	handler.SetupRoutes(engine)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: engine,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	heartbeatCancel()
	registry.CloseAll()

	workerCancel()
	reportWorker.Stop()

	log.Println("Server exited")
}
