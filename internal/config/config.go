package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
	} `yaml:"email"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`

	Frontend struct {
		URL string `yaml:"url"`
	} `yaml:"frontend"`

	Events struct {
		AMQPURL string `yaml:"amqp_url"`
	} `yaml:"events"`

	Payments struct {
		Mode          string `yaml:"mode"` // "gateway" or "mock"
		KeyID         string `yaml:"key_id"`
		KeySecret     string `yaml:"key_secret"`
		WebhookSecret string `yaml:"webhook_secret"`
		AmountINR     int64  `yaml:"amount_inr"`
		Credits       int    `yaml:"credits"`
		PlanID        string `yaml:"plan_id"`
	} `yaml:"payments"`

	AI struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"ai"`

	Signup struct {
		CreditGrant int `yaml:"credit_grant"`
	} `yaml:"signup"`

	FirstAdminEmail    string `yaml:"first_admin_email"`
	FirstAdminPassword string `yaml:"first_admin_password"`

	DevExposeResetLink bool `yaml:"dev_expose_reset_link"`
}

var AppConfig *Config

// LoadConfig reads config.yaml unless DATABASE_URL is set, in which case the
// whole configuration comes from environment variables (test/deploy mode).
func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL = 60

	cfg.Email.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.Email.SMTPPort, _ = strconv.Atoi(os.Getenv("SMTP_PORT"))
	cfg.Email.SMTPUsername = os.Getenv("SMTP_USER")
	cfg.Email.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.Email.FromEmail = os.Getenv("MAIL_FROM")

	cfg.Frontend.URL = os.Getenv("FRONTEND_URL")
	cfg.CORS.AllowedOrigins = splitOrigins(os.Getenv("CORS_ORIGIN"))

	cfg.Events.AMQPURL = os.Getenv("AMQP_URL")

	cfg.Payments.Mode = strings.ToLower(os.Getenv("PAYMENT_MODE"))
	cfg.Payments.KeyID = os.Getenv("RAZORPAY_KEY_ID")
	cfg.Payments.KeySecret = os.Getenv("RAZORPAY_KEY_SECRET")
	cfg.Payments.WebhookSecret = os.Getenv("RAZORPAY_WEBHOOK_SECRET")
	cfg.Payments.AmountINR, _ = strconv.ParseInt(os.Getenv("RAZORPAY_SUBSCRIPTION_AMOUNT_INR"), 10, 64)
	cfg.Payments.Credits, _ = strconv.Atoi(os.Getenv("SUBSCRIPTION_CREDITS"))
	cfg.Payments.PlanID = os.Getenv("SUBSCRIPTION_PLAN_ID")

	cfg.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	cfg.AI.Model = os.Getenv("GEMINI_MODEL")

	cfg.FirstAdminEmail = os.Getenv("FIRST_ADMIN_EMAIL")
	cfg.FirstAdminPassword = os.Getenv("FIRST_ADMIN_PASSWORD")
	cfg.DevExposeResetLink = os.Getenv("DEV_EXPOSE_RESET_LINK") != "false"

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.JWT.TTL == 0 {
		cfg.JWT.TTL = 60
	}
	if cfg.Frontend.URL == "" {
		cfg.Frontend.URL = "http://localhost:5173"
	}
	if cfg.Payments.Mode == "" {
		cfg.Payments.Mode = "gateway"
	}
	if cfg.Payments.AmountINR == 0 {
		cfg.Payments.AmountINR = 499
	}
	if cfg.Payments.Credits == 0 {
		cfg.Payments.Credits = 25
	}
	if cfg.Payments.PlanID == "" {
		cfg.Payments.PlanID = "starter-monthly"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gemini-2.5-flash"
	}
	if cfg.Signup.CreditGrant == 0 {
		cfg.Signup.CreditGrant = 5
	}
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}
