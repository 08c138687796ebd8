package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/gymcrm-sync/internal/bootstrap"
	"github.com/xavierca1/gymcrm-sync/internal/config"
	"github.com/xavierca1/gymcrm-sync/internal/infra/http/handlers"
	metrics "github.com/xavierca1/gymcrm-sync/internal/infra/http/middleware"
	"github.com/xavierca1/gymcrm-sync/internal/infra/queue"
	"github.com/xavierca1/gymcrm-sync/internal/infra/worker"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env não encontrado, usando variáveis do ambiente")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuração inválida: %v", err)
	}
	if cfg.WebhookAPIKey == "" {
		log.Println("⚠️ WEBHOOK_API_KEY vazio: todos os webhooks serão recusados")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Dependências
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{WithQueue: true})
	if err != nil {
		log.Fatalf("❌ Falha ao iniciar: %v", err)
	}
	defer app.Close()

	if err := app.EnsureTables(ctx); err != nil {
		log.Fatalf("❌ %v", err)
	}

	// 2. Sync agendado
	scheduler := worker.NewSyncScheduler(app.Sync, cfg.SyncInterval, cfg.SyncOnStart)
	go scheduler.Start(ctx)

	// 3. Worker de boas-vindas (consome os eventos de lead)
	if app.RabbitMQ != nil {
		welcome := queue.NewWorker(app.RabbitMQ.Ch, app.Mailer, cfg.ChallengeLengthWeeks)
		go func() {
			if err := welcome.Start(ctx, queue.QueueName); err != nil {
				log.Printf("❌ Worker de eventos parou: %v", err)
			}
		}()
	}

	// 4. Handlers
	webhookHandler := handlers.NewWebhookHandler(app.Webhook)
	syncHandler := handlers.NewSyncHandler(scheduler, cfg.WebhookAPIKey)
	healthHandler := handlers.NewHealthHandler(version, app.HealthDependencies())

	// 5. Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.CORSOrigin},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	r.Post("/webhook", webhookHandler.Handle)
	r.Post("/sync", syncHandler.Handle)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🔥 GymCRM sync rodando em %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Servidor caiu: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Desligando...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Shutdown incompleto: %v", err)
	}
}
