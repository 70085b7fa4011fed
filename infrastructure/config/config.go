package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Backend selection values.
const (
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

// Config holds all application configuration. It is read once at process
// startup; nothing reloads it mid-run.
type Config struct {
	// Server configuration
	ServerAddress     string `yaml:"serverAddress"`
	Environment       string `yaml:"environment"`
	ReadTimeoutSecs   int    `yaml:"readTimeoutSecs"`
	WriteTimeoutSecs  int    `yaml:"writeTimeoutSecs"`
	ShutdownGraceSecs int    `yaml:"shutdownGraceSecs"`

	// Storage backend selection: "dynamodb" or "memory"
	DataBackend string `yaml:"dataBackend"`

	// DynamoDB configuration
	AWSRegion    string `yaml:"awsRegion"`
	TableName    string `yaml:"tableName"`
	GSI1Name     string `yaml:"gsi1Name"` // episodes by form
	GSI2Name     string `yaml:"gsi2Name"` // episodes by submitter
	Endpoint     string `yaml:"endpoint"` // non-empty for DynamoDB Local
	CreateTables bool   `yaml:"createTables"`

	// Authentication
	JWTSecret string `yaml:"jwtSecret"`
	JWTIssuer string `yaml:"jwtIssuer"`

	// Logging and features
	LogLevel   string `yaml:"logLevel"`
	EnableCORS bool   `yaml:"enableCors"`
}

// LoadConfig loads configuration from environment variables, optionally
// overlaid on a YAML file named by CONFIG_FILE. Environment variables win.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:     ":8080",
		Environment:       "development",
		ReadTimeoutSecs:   15,
		WriteTimeoutSecs:  15,
		ShutdownGraceSecs: 30,
		DataBackend:       BackendMemory,
		AWSRegion:         "eu-west-2",
		TableName:         "app_core",
		GSI1Name:          "GSI1",
		GSI2Name:          "GSI2",
		JWTIssuer:         "carelog-backend",
		LogLevel:          "info",
		EnableCORS:        true,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.ReadTimeoutSecs = getEnvInt("SERVER_READ_TIMEOUT_SECS", cfg.ReadTimeoutSecs)
	cfg.WriteTimeoutSecs = getEnvInt("SERVER_WRITE_TIMEOUT_SECS", cfg.WriteTimeoutSecs)
	cfg.ShutdownGraceSecs = getEnvInt("SERVER_SHUTDOWN_GRACE_SECS", cfg.ShutdownGraceSecs)
	cfg.DataBackend = getEnv("DATA_BACKEND", cfg.DataBackend)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.TableName = getEnv("TABLE_NAME", getEnv("DDB_TABLE", cfg.TableName))
	cfg.GSI1Name = getEnv("DDB_GSI1", cfg.GSI1Name)
	cfg.GSI2Name = getEnv("DDB_GSI2", cfg.GSI2Name)
	cfg.Endpoint = getEnv("DDB_ENDPOINT", cfg.Endpoint)
	cfg.CreateTables = getEnvBool("DDB_CREATE_TABLES", cfg.CreateTables)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.EnableCORS = getEnvBool("ENABLE_CORS", cfg.EnableCORS)

	// Legacy flag from early deployments; DATA_BACKEND supersedes it.
	if getEnvBool("USE_DYNAMODB", false) {
		cfg.DataBackend = BackendDynamoDB
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.DataBackend {
	case BackendDynamoDB, BackendMemory:
	default:
		return fmt.Errorf("DATA_BACKEND must be %q or %q, got %q", BackendDynamoDB, BackendMemory, c.DataBackend)
	}

	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.DataBackend == BackendDynamoDB && c.TableName == "" {
			return fmt.Errorf("TABLE_NAME is required")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
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
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
