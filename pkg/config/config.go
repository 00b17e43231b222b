package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	AutoDeploy AutoDeployConfig
	Deployer   DeployerConfig
	Feed       FeedConfig
	Metadata   MetadataConfig
	Seed       SeedConfig
	Tracing    TracingConfig
	Metrics    MetricsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
	AllowedOrigins  []string
}

// DatabaseConfig holds target storage configuration
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds the secret store configuration. An empty URL disables it.
type RedisConfig struct {
	URL       string
	Password  string
	DB        int
	KeyPrefix string
}

// AutoDeployConfig holds the poll loop timings
type AutoDeployConfig struct {
	Enabled           bool
	StartupDelay      time.Duration
	DefaultTimeout    time.Duration
	EmptyTargetsDelay time.Duration
	MetadataTimeout   time.Duration
	AfterDeployDelay  time.Duration
	MaxConcurrency    int
}

// DeployerConfig holds external deployer settings
type DeployerConfig struct {
	ExecutablePath string
	TempRoot       string
	LogLevel       string
	NuGetExePath   string
}

// FeedConfig holds package feed settings
type FeedConfig struct {
	BaseURL  string
	Timeout  time.Duration
	Username string
	Password string
}

// MetadataConfig holds target metadata endpoint settings
type MetadataConfig struct {
	Path    string
	Timeout time.Duration
}

// SeedConfig holds startup seeding settings
type SeedConfig struct {
	TargetsFile string
	Timeout     time.Duration
}

// TracingConfig holds distributed tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	SampleRate     float64
	Insecure       bool
}

// MetricsConfig holds prometheus settings
type MetricsConfig struct {
	Namespace string
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from the given file, or from config.yaml in
// the working directory when path is empty
func LoadFile(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	// Set defaults
	setDefaults()

	// Read config file (optional unless given explicitly)
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables, e.g. AUTODEPLOY_STARTUP_DELAY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config := &Config{
		Server: ServerConfig{
			Port:            viper.GetString("server.port"),
			ReadTimeout:     viper.GetDuration("server.read_timeout"),
			WriteTimeout:    viper.GetDuration("server.write_timeout"),
			ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
			LogLevel:        viper.GetString("server.log_level"),
			AllowedOrigins:  viper.GetStringSlice("server.allowed_origins"),
		},
		Database: DatabaseConfig{
			Driver:          viper.GetString("database.driver"),
			Host:            viper.GetString("database.host"),
			Port:            viper.GetInt("database.port"),
			User:            viper.GetString("database.user"),
			Password:        viper.GetString("database.password"),
			DBName:          viper.GetString("database.dbname"),
			SSLMode:         viper.GetString("database.sslmode"),
			SQLitePath:      viper.GetString("database.sqlite_path"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: viper.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			URL:       viper.GetString("redis.url"),
			Password:  viper.GetString("redis.password"),
			DB:        viper.GetInt("redis.db"),
			KeyPrefix: viper.GetString("redis.key_prefix"),
		},
		AutoDeploy: AutoDeployConfig{
			Enabled:           viper.GetBool("autodeploy.enabled"),
			StartupDelay:      viper.GetDuration("autodeploy.startup_delay"),
			DefaultTimeout:    viper.GetDuration("autodeploy.default_timeout"),
			EmptyTargetsDelay: viper.GetDuration("autodeploy.empty_targets_delay"),
			MetadataTimeout:   viper.GetDuration("autodeploy.metadata_timeout"),
			AfterDeployDelay:  viper.GetDuration("autodeploy.after_deploy_delay"),
			MaxConcurrency:    viper.GetInt("autodeploy.max_concurrency"),
		},
		Deployer: DeployerConfig{
			ExecutablePath: viper.GetString("deployer.executable_path"),
			TempRoot:       viper.GetString("deployer.temp_root"),
			LogLevel:       viper.GetString("deployer.log_level"),
			NuGetExePath:   viper.GetString("deployer.nuget_exe_path"),
		},
		Feed: FeedConfig{
			BaseURL:  viper.GetString("feed.base_url"),
			Timeout:  viper.GetDuration("feed.timeout"),
			Username: viper.GetString("feed.username"),
			Password: viper.GetString("feed.password"),
		},
		Metadata: MetadataConfig{
			Path:    viper.GetString("metadata.path"),
			Timeout: viper.GetDuration("metadata.timeout"),
		},
		Seed: SeedConfig{
			TargetsFile: viper.GetString("seed.targets_file"),
			Timeout:     viper.GetDuration("seed.timeout"),
		},
		Tracing: TracingConfig{
			Enabled:        viper.GetBool("tracing.enabled"),
			ServiceName:    viper.GetString("tracing.service_name"),
			ServiceVersion: viper.GetString("tracing.service_version"),
			Environment:    viper.GetString("tracing.environment"),
			OTLPEndpoint:   viper.GetString("tracing.otlp_endpoint"),
			SampleRate:     viper.GetFloat64("tracing.sample_rate"),
			Insecure:       viper.GetBool("tracing.insecure"),
		},
		Metrics: MetricsConfig{
			Namespace: viper.GetString("metrics.namespace"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("server.shutdown_timeout", 30*time.Second)
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("server.allowed_origins", []string{"*"})

	// Database defaults
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.host", "127.0.0.1")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "deployer")
	viper.SetDefault("database.password", "deployer_dev_password")
	viper.SetDefault("database.dbname", "auto_deployer")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.sqlite_path", "data/auto-deployer.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Redis defaults
	viper.SetDefault("redis.url", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.key_prefix", "auto-deployer:secrets")

	// Auto-deploy defaults
	viper.SetDefault("autodeploy.enabled", true)
	viper.SetDefault("autodeploy.startup_delay", 10*time.Second)
	viper.SetDefault("autodeploy.default_timeout", 30*time.Second)
	viper.SetDefault("autodeploy.empty_targets_delay", 30*time.Second)
	viper.SetDefault("autodeploy.metadata_timeout", 10*time.Second)
	viper.SetDefault("autodeploy.after_deploy_delay", 30*time.Second)
	viper.SetDefault("autodeploy.max_concurrency", 8)

	// Deployer defaults
	viper.SetDefault("deployer.executable_path", "tools/Milou.Deployer.ConsoleClient.exe")
	viper.SetDefault("deployer.temp_root", "")
	viper.SetDefault("deployer.log_level", "")
	viper.SetDefault("deployer.nuget_exe_path", "")

	// Feed defaults
	viper.SetDefault("feed.base_url", "https://api.nuget.org/v3-flatcontainer")
	viper.SetDefault("feed.timeout", 30*time.Second)
	viper.SetDefault("feed.username", "")
	viper.SetDefault("feed.password", "")

	// Metadata defaults
	viper.SetDefault("metadata.path", "applicationmetadata.json")
	viper.SetDefault("metadata.timeout", 10*time.Second)

	// Seed defaults
	viper.SetDefault("seed.targets_file", "")
	viper.SetDefault("seed.timeout", 10*time.Second)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.service_name", "auto-deployer")
	viper.SetDefault("tracing.service_version", "1.0.0")
	viper.SetDefault("tracing.environment", "development")
	viper.SetDefault("tracing.otlp_endpoint", "localhost:4318")
	viper.SetDefault("tracing.sample_rate", 1.0)
	viper.SetDefault("tracing.insecure", true)

	// Metrics defaults
	viper.SetDefault("metrics.namespace", "auto_deployer")
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.AutoDeploy.MaxConcurrency < 1 {
		return fmt.Errorf("autodeploy.max_concurrency must be at least 1")
	}

	for name, d := range map[string]time.Duration{
		"autodeploy.startup_delay":       c.AutoDeploy.StartupDelay,
		"autodeploy.default_timeout":     c.AutoDeploy.DefaultTimeout,
		"autodeploy.empty_targets_delay": c.AutoDeploy.EmptyTargetsDelay,
		"autodeploy.metadata_timeout":    c.AutoDeploy.MetadataTimeout,
		"autodeploy.after_deploy_delay":  c.AutoDeploy.AfterDeployDelay,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	if c.AutoDeploy.DefaultTimeout == 0 || c.AutoDeploy.MetadataTimeout == 0 {
		return fmt.Errorf("autodeploy timeouts must be positive")
	}

	return nil
}

// GetDatabaseDSN returns the PostgreSQL connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}
