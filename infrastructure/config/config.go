package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Table entity names. The physical name is derived by TableName.
const (
	EntityOrganisation      = "organisation"
	EntityLocation          = "location"
	EntityHealthcareService = "healthcare-service"
	EntityState             = "data-migration-state"
	EntityVersionHistory    = "version-history"
)

// Config holds all application configuration
type Config struct {
	Environment string `yaml:"environment" validate:"required"`
	Workspace   string `yaml:"workspace"`
	LogLevel    string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// AWS configuration
	AWSRegion        string `yaml:"aws_region" validate:"required"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint" validate:"omitempty,url"`
	EventBusName     string `yaml:"event_bus_name"`
	MetricsNamespace string `yaml:"metrics_namespace" validate:"required"`

	// Table name overrides. Empty names are derived from the environment.
	Tables Tables `yaml:"tables"`

	// Source is validated by the entry points that read DoS.
	Source Source `yaml:"source" validate:"-"`

	MetadataCacheTTL time.Duration `yaml:"metadata_cache_ttl" validate:"min=0"`

	// Feature flags
	EnableMetrics bool `yaml:"enable_metrics"`
	EnableTracing bool `yaml:"enable_tracing"`
	EnableEvents  bool `yaml:"enable_events"`
}

// Tables names every table the migration touches.
type Tables struct {
	Organisation      string `yaml:"organisation"`
	Location          string `yaml:"location"`
	HealthcareService string `yaml:"healthcare_service"`
	State             string `yaml:"state"`
	VersionHistory    string `yaml:"version_history"`
}

// Source configures the DoS database connection.
type Source struct {
	Host     string `yaml:"host" validate:"required_without=DSN"`
	Port     int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	// DSN overrides the individual connection settings.
	DSN string `yaml:"dsn"`

	MaxOpenConns int `yaml:"max_open_conns" validate:"min=1"`

	// Circuit breaker around source reads.
	BreakerFailures uint32        `yaml:"breaker_failures" validate:"min=1"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
}

// ConnectionString returns the lib/pq connection string.
func (s Source) ConnectionString() string {
	if s.DSN != "" {
		return s.DSN
	}
	parts := []string{
		"host=" + s.Host,
		"port=" + strconv.Itoa(s.Port),
		"dbname=" + s.Database,
		"sslmode=" + s.SSLMode,
	}
	if s.User != "" {
		parts = append(parts, "user="+s.User)
	}
	if s.Password != "" {
		parts = append(parts, "password="+s.Password)
	}
	return strings.Join(parts, " ")
}

func defaults() *Config {
	return &Config{
		Environment:      "local",
		LogLevel:         "info",
		AWSRegion:        "eu-west-2",
		MetricsNamespace: "FtrsDoS/DataMigration",
		MetadataCacheTTL: 15 * time.Minute,
		Source: Source{
			Port:            5432,
			Database:        "pathwaysdos",
			SSLMode:         "require",
			MaxOpenConns:    4,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		EnableEvents: true,
	}
}

// LoadConfig loads configuration from, in increasing priority, built in
// defaults, the YAML file named by CONFIG_FILE and environment variables.
// A .env file in the working directory is read into the environment first
// without overriding variables that are already set.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadEnvironment()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnvironment() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.Workspace = getEnv("WORKSPACE", c.Workspace)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", c.DynamoDBEndpoint)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)
	c.MetricsNamespace = getEnv("METRICS_NAMESPACE", c.MetricsNamespace)

	c.Tables.Organisation = getEnv("ORGANISATION_TABLE", c.Tables.Organisation)
	c.Tables.Location = getEnv("LOCATION_TABLE", c.Tables.Location)
	c.Tables.HealthcareService = getEnv("HEALTHCARE_SERVICE_TABLE", c.Tables.HealthcareService)
	c.Tables.State = getEnv("STATE_TABLE", c.Tables.State)
	c.Tables.VersionHistory = getEnv("VERSION_HISTORY_TABLE", c.Tables.VersionHistory)

	c.Source.Host = getEnv("SOURCE_DB_HOST", c.Source.Host)
	c.Source.Port = getEnvInt("SOURCE_DB_PORT", c.Source.Port)
	c.Source.User = getEnv("SOURCE_DB_USER", c.Source.User)
	c.Source.Password = getEnv("SOURCE_DB_PASSWORD", c.Source.Password)
	c.Source.Database = getEnv("SOURCE_DB_NAME", c.Source.Database)
	c.Source.SSLMode = getEnv("SOURCE_DB_SSLMODE", c.Source.SSLMode)
	c.Source.DSN = getEnv("SOURCE_DB_DSN", c.Source.DSN)
	c.Source.MaxOpenConns = getEnvInt("SOURCE_DB_MAX_OPEN_CONNS", c.Source.MaxOpenConns)
	c.Source.BreakerFailures = uint32(getEnvInt("SOURCE_DB_BREAKER_FAILURES", int(c.Source.BreakerFailures)))
	c.Source.BreakerTimeout = getEnvDuration("SOURCE_DB_BREAKER_TIMEOUT", c.Source.BreakerTimeout)

	c.MetadataCacheTTL = getEnvDuration("METADATA_CACHE_TTL", c.MetadataCacheTTL)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableEvents = getEnvBool("ENABLE_EVENTS", c.EnableEvents)
}

var validate = validator.New()

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Validate checks the source connection settings
func (s Source) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid source configuration: %w", err)
	}
	return nil
}

// TableName returns the physical name of an entity table, honouring any
// override.
func (c *Config) TableName(entity string) string {
	var override string
	switch entity {
	case EntityOrganisation:
		override = c.Tables.Organisation
	case EntityLocation:
		override = c.Tables.Location
	case EntityHealthcareService:
		override = c.Tables.HealthcareService
	case EntityState:
		override = c.Tables.State
	case EntityVersionHistory:
		override = c.Tables.VersionHistory
	}
	if override != "" {
		return override
	}
	return TableName(entity, c.Environment, c.Workspace)
}

// TableName builds ftrs-dos-{env}-database-{entity}, suffixed with the
// workspace when one is set.
func TableName(entity, env, workspace string) string {
	name := fmt.Sprintf("ftrs-dos-%s-database-%s", env, entity)
	if workspace != "" {
		name += "-" + workspace
	}
	return name
}

// IsLocal reports whether the migration runs outside AWS.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
