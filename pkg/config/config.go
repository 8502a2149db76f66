// Package config loads the service settings from CHATSHOP_* environment
// variables.
package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"chatshop/pkg/domain/model"
)

const prefix = "chatshop"

const (
	TransportPolling = "polling"
	TransportWebhook = "webhook"

	BackendMySQL  = "mysql"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	BotToken  string  `envconfig:"bot_token"`
	AdminIDs  []int64 `envconfig:"admin_ids"`
	Transport string  `envconfig:"transport" default:"polling"`

	WebhookURL  string `envconfig:"webhook_url"`
	WebhookPath string `envconfig:"webhook_path" default:"/telegram/webhook"`
	HTTPAddr    string `envconfig:"http_addr" default:":8080"`
	GRPCAddr    string `envconfig:"grpc_addr" default:":8081"`

	Storage     string `envconfig:"storage" default:"mysql"`
	MySQLDSN    string `envconfig:"mysql_dsn" default:"chatshop:chatshop@tcp(localhost:3306)/chatshop"`
	AutoMigrate bool   `envconfig:"auto_migrate" default:"true"`

	StateBackend string `envconfig:"state_backend" default:"redis"`
	RedisAddr    string `envconfig:"redis_addr" default:"localhost:6379"`
	RedisDB      int    `envconfig:"redis_db" default:"0"`
	// StateTTL expires stored dialogs. Zero keeps them until the dialog ends.
	StateTTL time.Duration `envconfig:"state_ttl" default:"0"`

	Workers        int           `envconfig:"workers" default:"16"`
	HealthInterval time.Duration `envconfig:"health_interval" default:"10s"`
	LogLevel       string        `envconfig:"log_level" default:"info"`
}

var (
	ErrMissingToken        = errors.New("bot token is required")
	ErrMissingWebhookURL   = errors.New("webhook url is required in webhook mode")
	ErrUnknownTransport    = errors.New("unknown transport")
	ErrUnknownStorage      = errors.New("unknown storage backend")
	ErrUnknownStateBackend = errors.New("unknown state backend")
	ErrInvalidWorkers      = errors.New("workers must be positive")
)

func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process(prefix, c); err != nil {
		return nil, errors.Wrap(err, "read environment")
	}
	c.Transport = strings.ToLower(c.Transport)
	c.Storage = strings.ToLower(c.Storage)
	c.StateBackend = strings.ToLower(c.StateBackend)
	return c, nil
}

// Validate checks the settings needed to serve. The migrate command only
// needs the DSN and skips it.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return ErrMissingToken
	}
	switch c.Transport {
	case TransportPolling:
	case TransportWebhook:
		if c.WebhookURL == "" {
			return ErrMissingWebhookURL
		}
	default:
		return errors.Wrap(ErrUnknownTransport, c.Transport)
	}
	if c.Storage != BackendMySQL && c.Storage != BackendMemory {
		return errors.Wrap(ErrUnknownStorage, c.Storage)
	}
	if c.StateBackend != BackendRedis && c.StateBackend != BackendMemory {
		return errors.Wrap(ErrUnknownStateBackend, c.StateBackend)
	}
	if c.Workers < 1 {
		return ErrInvalidWorkers
	}
	return nil
}

func (c *Config) Admins() []model.UserID {
	admins := make([]model.UserID, 0, len(c.AdminIDs))
	for _, id := range c.AdminIDs {
		admins = append(admins, model.UserID(id))
	}
	return admins
}

// NotifiedAdmin receives new-order notices. Zero when no admin is configured.
func (c *Config) NotifiedAdmin() model.UserID {
	if len(c.AdminIDs) == 0 {
		return 0
	}
	return model.UserID(c.AdminIDs[0])
}

func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
