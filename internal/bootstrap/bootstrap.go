package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/xavierca1/gymcrm-sync/internal/config"
	"github.com/xavierca1/gymcrm-sync/internal/entity"
	"github.com/xavierca1/gymcrm-sync/internal/infra/http/handlers"
	"github.com/xavierca1/gymcrm-sync/internal/infra/integration/highlevel"
	"github.com/xavierca1/gymcrm-sync/internal/infra/lock"
	"github.com/xavierca1/gymcrm-sync/internal/infra/mail"
	"github.com/xavierca1/gymcrm-sync/internal/infra/queue"
	"github.com/xavierca1/gymcrm-sync/internal/infra/rowstore"
	"github.com/xavierca1/gymcrm-sync/internal/infra/storage"
	"github.com/xavierca1/gymcrm-sync/internal/usecase"
)

// App reúne as dependências montadas a partir da configuração. É usado
// pela API e pela CLI.
type App struct {
	Config config.Config

	Store     entity.RowStore
	DB        *sql.DB
	Locker    usecase.Locker
	Redis     *lock.RedisLocker
	CRM       *highlevel.Client
	Documents usecase.DocumentProvisioner
	Minio     *storage.MinioProvisioner
	RabbitMQ  *queue.RabbitMQ
	Publisher usecase.EventPublisher
	Mailer    *mail.EmailSender

	Rows     *usecase.RowWriter
	Effects  *usecase.StatusEffects
	Archiver *usecase.Archiver
	Pricing  *usecase.PricingView
	Webhook  *usecase.ProcessWebhookLeadUseCase
	Sync     *usecase.SyncHighLevelUseCase
}

// Options desliga peças que a CLI não precisa.
type Options struct {
	WithQueue bool
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}

	// 1. Row store
	store, db, err := rowstore.New(ctx, rowstore.Config{Driver: cfg.StoreDriver, DSN: cfg.StoreDSN})
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir row store: %w", err)
	}
	app.Store, app.DB = store, db
	log.Printf("✅ Row store: %s", cfg.StoreDriver)

	// 2. Lock
	if cfg.RedisURL != "" {
		redisLocker, err := lock.NewRedisLocker(cfg.RedisURL)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Redis, app.Locker = redisLocker, redisLocker
		log.Println("✅ Lock distribuído via Redis")
	} else {
		app.Locker = lock.NewLocalLocker()
		log.Println("⚠️ REDIS_URL vazio: lock só dentro deste processo")
	}

	// 3. HighLevel
	app.CRM = highlevel.NewClient(highlevel.Options{BaseURL: cfg.HighLevelBaseURL, APIKey: cfg.HighLevelAPIKey})

	// 4. Documentos
	if cfg.MinioEnabled() {
		minioProvisioner, err := storage.NewMinioProvisioner(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Minio, app.Documents = minioProvisioner, minioProvisioner
	} else {
		app.Documents = storage.NewLocalProvisioner(cfg.DocumentsDir)
	}

	// 5. Eventos
	app.Publisher = usecase.NoopPublisher{}
	if opts.WithQueue && cfg.RabbitMQURL != "" {
		rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.RabbitMQ = rabbit
		app.Publisher = queue.NewProducer(rabbit.Ch)
		log.Println("✅ Eventos de lead via RabbitMQ")
	}
	app.Mailer = mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom, cfg.GymName)

	// 6. Core
	calendar := usecase.NewCalendar(cfg.Location)
	tables := cfg.Tables
	app.Rows = usecase.NewRowWriter(store, app.Locker, cfg.LockWait)
	ledger := &usecase.AccountabilityLedger{
		Store:      store,
		Schema:     tables.Accountability,
		Documents:  app.Documents,
		TemplateID: cfg.TemplatePath,
		Calendar:   calendar,
	}
	app.Effects = &usecase.StatusEffects{
		Calendar:             calendar,
		ChallengeLengthWeeks: cfg.ChallengeLengthWeeks,
		Ledger:               ledger,
		Locker:               app.Locker,
		LockWait:             cfg.LockWait,
		Store:                store,
		CRM:                  tables.CRM,
	}
	app.Archiver = usecase.NewArchiver(store, tables, app.Rows)
	app.Pricing = usecase.NewPricingView(store, tables, app.Rows)

	app.Webhook = usecase.NewProcessWebhookLeadUseCase(
		cfg.WebhookAPIKey, store, tables, app.CRM, app.Rows, app.Effects, app.Archiver, app.Pricing, app.Publisher, calendar,
	)
	app.Sync = usecase.NewSyncHighLevelUseCase(
		app.CRM, store, tables, cfg.PipelineID, app.Rows, app.Effects, app.Archiver, app.Pricing, app.Publisher, calendar,
	)
	return app, nil
}

// EnsureTables cria as tabelas que faltam e completa headers.
func (a *App) EnsureTables(ctx context.Context) error {
	for _, schema := range a.Config.Tables.All() {
		if err := a.Store.EnsureTable(ctx, schema); err != nil {
			return fmt.Errorf("erro ao preparar %s: %w", schema.Name, err)
		}
		log.Printf("✅ Tabela %s pronta", schema.Name)
	}
	return nil
}

// HealthDependencies devolve as dependências para o /health. Entradas nil
// aparecem como "not configured".
func (a *App) HealthDependencies() map[string]handlers.Pinger {
	deps := map[string]handlers.Pinger{
		"store":    nil,
		"redis":    nil,
		"rabbitmq": nil,
		"minio":    nil,
	}
	if a.DB != nil {
		deps["store"] = handlers.PingFunc(a.DB.PingContext)
	}
	if a.Redis != nil {
		deps["redis"] = a.Redis
	}
	if a.RabbitMQ != nil {
		rabbit := a.RabbitMQ
		deps["rabbitmq"] = handlers.PingFunc(func(context.Context) error {
			if !rabbit.Healthy() {
				return fmt.Errorf("connection closed")
			}
			return nil
		})
	}
	if a.Minio != nil {
		deps["minio"] = a.Minio
	}
	return deps
}

func (a *App) Close() {
	if a.RabbitMQ != nil {
		if err := a.RabbitMQ.Close(); err != nil {
			log.Printf("⚠️ erro ao fechar RabbitMQ: %v", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Printf("⚠️ erro ao fechar Redis: %v", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Printf("⚠️ erro ao fechar banco: %v", err)
		}
	}
}
