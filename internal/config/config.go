package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"autoscout-escrow"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"autoscout"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	JWT struct {
		Secret string `envconfig:"JWT_SECRET" required:"true"`
	}

	// Escrow is the bank account buyers transfer into.
	Escrow struct {
		AccountHolder  string `envconfig:"ESCROW_ACCOUNT_HOLDER" default:"AutoScout Escrow GmbH"`
		IBAN           string `envconfig:"ESCROW_IBAN"`
		BIC            string `envconfig:"ESCROW_BIC"`
		BankName       string `envconfig:"ESCROW_BANK_NAME"`
		CommissionRate string `envconfig:"ESCROW_COMMISSION_RATE" default:"0.05"`
	}

	Contracts struct {
		URL   string `envconfig:"CONTRACTS_URL" default:"http://localhost:9090"`
		Token string `envconfig:"CONTRACTS_TOKEN"`
	}

	Storage struct {
		Dir string `envconfig:"STORAGE_DIR" default:"./data/documents"`
	}

	Notify struct {
		WebhookURL string `envconfig:"NOTIFY_WEBHOOK_URL"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// CommissionRate parses the configured default commission rate.
func (c *Config) CommissionRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.Escrow.CommissionRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid commission rate %q: %w", c.Escrow.CommissionRate, err)
	}

	return rate, nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
