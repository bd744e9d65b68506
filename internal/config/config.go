// Package config loads storefront settings: built-in defaults, an optional
// YAML file, a .env file and finally environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/pricing"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env       string `yaml:"env"`
	HTTPPort  string `yaml:"http_port"`
	GRPCPort  string `yaml:"grpc_port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	RequestTimeout     time.Duration `yaml:"request_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`

	Shop     Shop     `yaml:"shop"`
	Auth     Auth     `yaml:"auth"`
	Backends Backends `yaml:"backends"`
}

// Shop holds the business rules. They are demo values, not invariants.
type Shop struct {
	Currency              string `yaml:"currency"`
	FreeShippingThreshold string `yaml:"free_shipping_threshold"`
	FlatShippingFee       string `yaml:"flat_shipping_fee"`
	LowStockThreshold     int    `yaml:"low_stock_threshold"`
	PointsUnit            string `yaml:"points_unit"`
	Tiers                 []Tier `yaml:"tiers"`
	MaxLineQuantity       int    `yaml:"max_line_quantity"`
	SeedDemoData          bool   `yaml:"seed_demo_data"`
}

type Tier struct {
	Name      string `yaml:"name"`
	MinPoints int    `yaml:"min_points"`
}

type Auth struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	DemoEmail     string        `yaml:"demo_email"`
	DemoPassword  string        `yaml:"demo_password"`
	AdminUsername string        `yaml:"admin_username"`
	AdminPassword string        `yaml:"admin_password"`
}

type Backends struct {
	Catalog       string   `yaml:"catalog"`
	CatalogDBPath string   `yaml:"catalog_db_path"`
	Cart          string   `yaml:"cart"`
	MongoURI      string   `yaml:"mongo_uri"`
	MongoDBName   string   `yaml:"mongo_db_name"`
	Orders        string   `yaml:"orders"`
	Postgres      Postgres `yaml:"postgres"`
	RedisAddr     string   `yaml:"redis_addr"`
	RedisPassword string   `yaml:"redis_password"`
	KafkaBrokers  []string `yaml:"kafka_brokers"`
	KafkaTopic    string   `yaml:"kafka_topic"`
}

type Postgres struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"db_name"`
}

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

func Default() *Config {
	return &Config{
		Env:                "dev",
		HTTPPort:           "8080",
		GRPCPort:           "50050",
		LogLevel:           "info",
		LogFormat:          "json",
		RequestTimeout:     30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 1 << 20, // 1MB
		Shop: Shop{
			Currency:              "ZAR",
			FreeShippingThreshold: "500",
			FlatShippingFee:       "50",
			LowStockThreshold:     5,
			PointsUnit:            "10",
			Tiers: []Tier{
				{Name: "bronze", MinPoints: 0},
				{Name: "silver", MinPoints: 1000},
				{Name: "gold", MinPoints: 2000},
				{Name: "platinum", MinPoints: 3000},
			},
			MaxLineQuantity: 99,
			SeedDemoData:    true,
		},
		Auth: Auth{
			JWTSecret:     "storefront-dev-secret",
			TokenTTL:      7 * 24 * time.Hour,
			DemoEmail:     "demo@example.com",
			DemoPassword:  "demo123",
			AdminUsername: "admin",
			AdminPassword: "admin123",
		},
		Backends: Backends{
			Catalog:       BackendMemory,
			CatalogDBPath: "./storefront.db",
			Cart:          BackendMemory,
			MongoURI:      "mongodb://localhost:27017",
			MongoDBName:   "storefront",
			Orders:        BackendMemory,
			Postgres: Postgres{
				Host:     "localhost",
				Port:     5432,
				User:     "postgres",
				Password: "postgres",
				DBName:   "storefront",
			},
			KafkaTopic: "storefront-orders",
		},
	}
}

// Load builds the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("STOREFRONT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Env = getEnv("APP_ENV", c.Env)
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.GRPCPort = getEnv("GRPC_PORT", c.GRPCPort)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.Shop.Currency = getEnv("SHOP_CURRENCY", c.Shop.Currency)
	c.Shop.FreeShippingThreshold = getEnv("FREE_SHIPPING_THRESHOLD", c.Shop.FreeShippingThreshold)
	c.Shop.FlatShippingFee = getEnv("FLAT_SHIPPING_FEE", c.Shop.FlatShippingFee)
	c.Shop.PointsUnit = getEnv("LOYALTY_POINTS_UNIT", c.Shop.PointsUnit)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.DemoEmail = getEnv("DEMO_EMAIL", c.Auth.DemoEmail)
	c.Auth.DemoPassword = getEnv("DEMO_PASSWORD", c.Auth.DemoPassword)
	c.Auth.AdminUsername = getEnv("ADMIN_USERNAME", c.Auth.AdminUsername)
	c.Auth.AdminPassword = getEnv("ADMIN_PASSWORD", c.Auth.AdminPassword)

	c.Backends.Catalog = getEnv("CATALOG_BACKEND", c.Backends.Catalog)
	c.Backends.CatalogDBPath = getEnv("CATALOG_DB_PATH", c.Backends.CatalogDBPath)
	c.Backends.Cart = getEnv("CART_BACKEND", c.Backends.Cart)
	c.Backends.MongoURI = getEnv("MONGO_URI", c.Backends.MongoURI)
	c.Backends.MongoDBName = getEnv("MONGO_DB_NAME", c.Backends.MongoDBName)
	c.Backends.Orders = getEnv("ORDERS_BACKEND", c.Backends.Orders)
	c.Backends.Postgres.Host = getEnv("DB_HOST", c.Backends.Postgres.Host)
	c.Backends.Postgres.User = getEnv("DB_USER", c.Backends.Postgres.User)
	c.Backends.Postgres.Password = getEnv("DB_PASSWORD", c.Backends.Postgres.Password)
	c.Backends.Postgres.DBName = getEnv("DB_NAME", c.Backends.Postgres.DBName)
	c.Backends.RedisAddr = getEnv("REDIS_ADDR", c.Backends.RedisAddr)
	c.Backends.RedisPassword = getEnv("REDIS_PASSWORD", c.Backends.RedisPassword)
	c.Backends.KafkaTopic = getEnv("KAFKA_TOPIC", c.Backends.KafkaTopic)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Backends.KafkaBrokers = strings.Split(brokers, ",")
	}

	if v := os.Getenv("DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT: %w", err)
		}
		c.Backends.Postgres.Port = port
	}
	if v := os.Getenv("LOW_STOCK_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LOW_STOCK_THRESHOLD: %w", err)
		}
		c.Shop.LowStockThreshold = n
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}
	if v := os.Getenv("SEED_DEMO_DATA"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SEED_DEMO_DATA: %w", err)
		}
		c.Shop.SeedDemoData = b
	}
	return nil
}

// Validate checks that money values parse and backend names are known.
func (c *Config) Validate() error {
	if _, err := c.PricingRules(); err != nil {
		return err
	}
	if _, err := decimal.NewFromString(c.Shop.PointsUnit); err != nil {
		return fmt.Errorf("invalid points_unit %q: %w", c.Shop.PointsUnit, err)
	}
	if len(c.Shop.Tiers) == 0 {
		return fmt.Errorf("at least one loyalty tier is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret must not be empty")
	}
	switch c.Backends.Catalog {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown catalog backend %q", c.Backends.Catalog)
	}
	switch c.Backends.Cart {
	case BackendMemory, BackendMongo:
	default:
		return fmt.Errorf("unknown cart backend %q", c.Backends.Cart)
	}
	switch c.Backends.Orders {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("unknown orders backend %q", c.Backends.Orders)
	}
	return nil
}

func (c *Config) PricingRules() (pricing.Rules, error) {
	threshold, err := decimal.NewFromString(c.Shop.FreeShippingThreshold)
	if err != nil {
		return pricing.Rules{}, fmt.Errorf("invalid free_shipping_threshold %q: %w", c.Shop.FreeShippingThreshold, err)
	}
	fee, err := decimal.NewFromString(c.Shop.FlatShippingFee)
	if err != nil {
		return pricing.Rules{}, fmt.Errorf("invalid flat_shipping_fee %q: %w", c.Shop.FlatShippingFee, err)
	}
	return pricing.Rules{
		FreeShippingThreshold: threshold,
		FlatShippingFee:       fee,
		Currency:              c.Shop.Currency,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
