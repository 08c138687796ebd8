package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

type Config struct {
	Addr          string
	WebhookAPIKey string
	CORSOrigin    string

	// HighLevel
	HighLevelAPIKey  string
	HighLevelBaseURL string
	PipelineID       string

	// Regras da academia
	GymName              string
	ChallengeLengthWeeks int
	Timezone             string
	Location             *time.Location

	// Row store
	StoreDriver string
	StoreDSN    string
	Tables      entity.Tables

	// Lock
	RedisURL string
	LockWait time.Duration

	// Sync agendado
	SyncInterval time.Duration
	SyncOnStart  bool

	// Eventos
	RabbitMQURL string

	// Documentos dos challengers
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	TemplatePath   string
	DocumentsDir   string

	// SMTP - email desabilitado se não configurado
	MailHost string
	MailPort int
	MailUser string
	MailPass string
	MailFrom string
}

// Load lê o ambiente (o .env já deve ter sido carregado) e aplica o arquivo
// YAML de GYMCRM_CONFIG_FILE, se houver.
func Load() (Config, error) {
	cfg := Config{
		Addr:          getenv("API_ADDR", ":8080"),
		WebhookAPIKey: getenv("WEBHOOK_API_KEY", ""),
		CORSOrigin:    getenv("CORS_ORIGIN", "*"),

		HighLevelAPIKey:  getenv("HIGHLEVEL_API_KEY", ""),
		HighLevelBaseURL: getenv("HIGHLEVEL_BASE_URL", "https://rest.gohighlevel.com/v1"),
		PipelineID:       getenv("HIGHLEVEL_PIPELINE_ID", ""),

		GymName:              getenv("GYM_NAME", ""),
		ChallengeLengthWeeks: getenvInt("CHALLENGE_LENGTH_WEEKS", 6),
		Timezone:             getenv("TIMEZONE", "America/New_York"),

		StoreDriver: getenv("STORE_DRIVER", "memory"),
		StoreDSN:    getenv("STORE_DSN", ""),
		Tables:      entity.DefaultTables(),

		RedisURL: getenv("REDIS_URL", ""),
		LockWait: time.Duration(getenvInt("LOCK_WAIT_SECONDS", 30)) * time.Second,

		SyncInterval: time.Duration(getenvInt("SYNC_INTERVAL_MINUTES", 60)) * time.Minute,
		SyncOnStart:  getenvBool("SYNC_ON_START", false),

		RabbitMQURL: getenv("RABBITMQ_URL", ""),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "gymcrm"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),
		TemplatePath:   getenv("CHALLENGE_TRACKER_TEMPLATE", "templates/challenge-tracker.xlsx"),
		DocumentsDir:   getenv("DOCUMENTS_DIR", "./data/challengers"),

		MailHost: getenv("MAIL_HOST", ""),
		MailPort: getenvInt("MAIL_PORT", 587),
		MailUser: getenv("MAIL_USER", ""),
		MailPass: getenv("MAIL_PASS", ""),
		MailFrom: getenv("MAIL_FROM", ""),
	}

	if path := getenv("GYMCRM_CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, err
		}
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return cfg, fmt.Errorf("timezone inválido %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	if cfg.ChallengeLengthWeeks <= 0 {
		cfg.ChallengeLengthWeeks = 6
	}
	return cfg, nil
}

// MinioEnabled indica se os documentos vão para o MinIO (senão, disco local).
func (c Config) MinioEnabled() bool {
	return c.MinioEndpoint != ""
}

type tableFile struct {
	Name         string   `yaml:"name"`
	HeaderRow    int      `yaml:"header_row"`
	DataStartRow int      `yaml:"data_start_row"`
	Headers      []string `yaml:"headers"`
}

type fileConfig struct {
	GymName              string `yaml:"gym_name"`
	Timezone             string `yaml:"timezone"`
	ChallengeLengthWeeks int    `yaml:"challenge_length_weeks"`
	PipelineID           string `yaml:"pipeline_id"`
	Tables               struct {
		CRM            *tableFile `yaml:"crm"`
		Archive        *tableFile `yaml:"archive"`
		Accountability *tableFile `yaml:"accountability"`
		Pricing        *tableFile `yaml:"pricing"`
		Staff          *tableFile `yaml:"staff"`
	} `yaml:"tables"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("erro ao ler %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("erro ao interpretar %s: %w", path, err)
	}

	if fc.GymName != "" {
		c.GymName = fc.GymName
	}
	if fc.Timezone != "" {
		c.Timezone = fc.Timezone
	}
	if fc.ChallengeLengthWeeks > 0 {
		c.ChallengeLengthWeeks = fc.ChallengeLengthWeeks
	}
	if fc.PipelineID != "" {
		c.PipelineID = fc.PipelineID
	}

	overrideTable(&c.Tables.CRM, fc.Tables.CRM)
	overrideTable(&c.Tables.Archive, fc.Tables.Archive)
	overrideTable(&c.Tables.Accountability, fc.Tables.Accountability)
	overrideTable(&c.Tables.Pricing, fc.Tables.Pricing)
	overrideTable(&c.Tables.Staff, fc.Tables.Staff)
	return nil
}

func overrideTable(dst *entity.TableSchema, src *tableFile) {
	if src == nil {
		return
	}
	if strings.TrimSpace(src.Name) != "" {
		dst.Name = strings.TrimSpace(src.Name)
	}
	if src.HeaderRow > 0 {
		dst.HeaderRow = src.HeaderRow
	}
	if src.DataStartRow > 0 {
		dst.DataStartRow = src.DataStartRow
	}
	if len(src.Headers) > 0 {
		dst.Headers = src.Headers
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
