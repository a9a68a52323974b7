package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"portal_leads/logging"
)

type Config struct {
	Portal    PortalConfig
	CRM       CRMConfig
	Store     StoreConfig
	S3        S3Config
	Scheduler SchedulerConfig
	AMQPURL   string
	HTTPAddr  string
	LogDir    string
	LogLevel  string
	CodesFile string
}

type PortalConfig struct {
	AuthToken string
	Since     string
	ProxyURL  string
	BaseURLs  map[string]string
}

type CRMConfig struct {
	WebhookURL           string
	DefaultOwnerID       int
	UnassignedOwnerID    int
	CallOwnerPolicy      string
	ExcludedUserIDs      []int
	ListingsEntityTypeID int
}

type StoreConfig struct {
	Backend     string
	LeadFile    string
	DBPath      string
	PostgresURL string
	RedisURL    string
	RedisKey    string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether recordings should be archived to S3.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

const (
	CallOwnerKeep                 = "keep"
	CallOwnerSubstituteUnassigned = "substitute-unassigned"
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Portal: PortalConfig{
			AuthToken: os.Getenv("PORTAL_AUTH_TOKEN"),
			Since:     os.Getenv("LEADS_SINCE"),
			ProxyURL:  os.Getenv("PORTAL_PROXY_URL"),
			BaseURLs: map[string]string{
				"bayut":    getEnv("BAYUT_API_URL", "https://www.bayut.com/api-v7/stats/website-client-leads"),
				"dubizzle": getEnv("DUBIZZLE_API_URL", "https://dubizzle.com/profolio/api-v7/stats/website-client-leads"),
			},
		},
		CRM: CRMConfig{
			WebhookURL:           os.Getenv("BITRIX_WEBHOOK_URL"),
			DefaultOwnerID:       getEnvInt("DEFAULT_ASSIGNED_USER_ID", 1593),
			UnassignedOwnerID:    getEnvInt("UNASSIGNED_USER_ID", 0),
			CallOwnerPolicy:      getEnv("CALL_OWNER_POLICY", CallOwnerKeep),
			ListingsEntityTypeID: getEnvInt("LISTINGS_ENTITY_TYPE_ID", 1084),
		},
		Store: StoreConfig{
			Backend:     getEnv("STORE_BACKEND", StoreFile),
			LeadFile:    getEnv("LEAD_FILE", "processed_leads.txt"),
			DBPath:      getEnv("DB_PATH", "leads.db"),
			PostgresURL: os.Getenv("DATABASE_URL"),
			RedisURL:    os.Getenv("REDIS_URL"),
			RedisKey:    getEnv("REDIS_LEADS_KEY", "portal_leads:processed"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("INGEST_CRON"),
		},
		AMQPURL:   os.Getenv("AMQP_URL"),
		HTTPAddr:  os.Getenv("HTTP_ADDR"),
		LogDir:    getEnv("LOG_DIR", "logs"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		CodesFile: getEnv("CODES_FILE", "config/codes.yaml"),
	}

	excluded, err := parseIntList(getEnv("EXCLUDED_USER_IDS", "3,268,1945"))
	if err != nil {
		return nil, fmt.Errorf("EXCLUDED_USER_IDS: %w", err)
	}
	cfg.CRM.ExcludedUserIDs = excluded

	if interval := os.Getenv("INGEST_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case StoreFile, StoreSQLite:
	case StorePostgres:
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	switch c.CRM.CallOwnerPolicy {
	case CallOwnerKeep, CallOwnerSubstituteUnassigned:
	default:
		return fmt.Errorf("unknown CALL_OWNER_POLICY %q", c.CRM.CallOwnerPolicy)
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func parseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}
