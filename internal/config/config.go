package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Pairing   PairingConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	MQTT      MQTTConfig
	Bridge    BridgeConfig
	Sequencer SequencerConfig
	Agent     AgentConfig
	Bootstrap BootstrapConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c *DatabaseConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, sslMode)
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type PairingConfig struct {
	// TokenTTL bounds how long a generated pairing token can be redeemed.
	TokenTTL time.Duration
	// RequireAdminRole gates pairing-token generation on the admin role.
	// Off by default to support single-tenant deployments where any
	// authenticated user manages the hotel.
	RequireAdminRole bool
}

type RateLimitConfig struct {
	GeneralRPS   float64
	GeneralBurst int
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         int
}

// BridgeConfig describes how to reach the local USB/HID bridge process and
// how long each reader operation may take before it is treated as hung.
type BridgeConfig struct {
	BaseURL          string
	HealthTimeout    time.Duration
	StatusTimeout    time.Duration
	ReconnectTimeout time.Duration
	DetectTimeout    time.Duration
	ProgramTimeout   time.Duration
	SequenceTimeout  time.Duration
}

// SequencerConfig holds the operator-facing pacing of the 5-card sequence.
// The delays are empirical card-swap constants, not protocol requirements.
type SequencerConfig struct {
	SettleDelay    time.Duration
	InterCardDelay time.Duration
}

type AgentConfig struct {
	ServerURL    string
	LocalPort    string
	PollInterval time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	// StateDir holds the persisted agent identity (fingerprint + credential).
	StateDir string
}

// BootstrapConfig seeds the initial admin account on first server start.
// Both fields empty disables bootstrapping.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(homeDir)
	}
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		var pathError *os.PathError
		if !errors.As(err, &configFileNotFoundError) && !errors.As(err, &pathError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Printf("Warning: config file not found: %v. Falling back to environment variables only.", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port:        viper.GetString("SERVER_PORT"),
			Host:        viper.GetString("SERVER_HOST"),
			Environment: viper.GetString("ENVIRONMENT"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: viper.GetInt("JWT_EXPIRY_HOURS"),
		},
		Pairing: PairingConfig{
			TokenTTL:         viper.GetDuration("PAIRING_TOKEN_TTL"),
			RequireAdminRole: viper.GetBool("PAIRING_REQUIRE_ADMIN_ROLE"),
		},
		RateLimit: RateLimitConfig{
			GeneralRPS:   viper.GetFloat64("RATE_LIMIT_GENERAL_RPS"),
			GeneralBurst: viper.GetInt("RATE_LIMIT_GENERAL_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods:   viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders:   viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
			ExposedHeaders:   viper.GetStringSlice("CORS_EXPOSED_HEADERS"),
			AllowCredentials: viper.GetBool("CORS_ALLOW_CREDENTIALS"),
			MaxAge:           viper.GetInt("CORS_MAX_AGE"),
		},
		MQTT: MQTTConfig{
			Broker:      viper.GetString("MQTT_BROKER"),
			ClientID:    viper.GetString("MQTT_CLIENT_ID"),
			Username:    viper.GetString("MQTT_USERNAME"),
			Password:    viper.GetString("MQTT_PASSWORD"),
			TopicPrefix: viper.GetString("MQTT_TOPIC_PREFIX"),
			QoS:         viper.GetInt("MQTT_QOS"),
		},
		Bridge: BridgeConfig{
			BaseURL:          viper.GetString("BRIDGE_BASE_URL"),
			HealthTimeout:    viper.GetDuration("BRIDGE_HEALTH_TIMEOUT"),
			StatusTimeout:    viper.GetDuration("BRIDGE_STATUS_TIMEOUT"),
			ReconnectTimeout: viper.GetDuration("BRIDGE_RECONNECT_TIMEOUT"),
			DetectTimeout:    viper.GetDuration("BRIDGE_DETECT_TIMEOUT"),
			ProgramTimeout:   viper.GetDuration("BRIDGE_PROGRAM_TIMEOUT"),
			SequenceTimeout:  viper.GetDuration("BRIDGE_SEQUENCE_TIMEOUT"),
		},
		Sequencer: SequencerConfig{
			SettleDelay:    viper.GetDuration("SEQUENCER_SETTLE_DELAY"),
			InterCardDelay: viper.GetDuration("SEQUENCER_INTER_CARD_DELAY"),
		},
		Agent: AgentConfig{
			ServerURL:    viper.GetString("AGENT_SERVER_URL"),
			LocalPort:    viper.GetString("AGENT_LOCAL_PORT"),
			PollInterval: viper.GetDuration("AGENT_POLL_INTERVAL"),
			MaxRetries:   viper.GetInt("AGENT_MAX_RETRIES"),
			RetryDelay:   viper.GetDuration("AGENT_RETRY_DELAY"),
			StateDir:     viper.GetString("AGENT_STATE_DIR"),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    viper.GetString("BOOTSTRAP_ADMIN_EMAIL"),
			AdminPassword: viper.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
		},
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")

	viper.SetDefault("JWT_EXPIRY_HOURS", 24)

	viper.SetDefault("RATE_LIMIT_GENERAL_RPS", 50.0)
	viper.SetDefault("RATE_LIMIT_GENERAL_BURST", 100)

	viper.SetDefault("CORS_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-Agent-Token"})
	viper.SetDefault("CORS_EXPOSED_HEADERS", []string{"X-Request-ID"})
	viper.SetDefault("CORS_ALLOW_CREDENTIALS", false)
	viper.SetDefault("CORS_MAX_AGE", 43200)

	viper.SetDefault("PAIRING_TOKEN_TTL", 5*time.Minute)
	viper.SetDefault("PAIRING_REQUIRE_ADMIN_ROLE", false)

	viper.SetDefault("MQTT_TOPIC_PREFIX", "roomkey")
	viper.SetDefault("MQTT_QOS", 1)

	viper.SetDefault("BRIDGE_BASE_URL", "http://127.0.0.1:3001")
	viper.SetDefault("BRIDGE_HEALTH_TIMEOUT", 3*time.Second)
	viper.SetDefault("BRIDGE_STATUS_TIMEOUT", 5*time.Second)
	viper.SetDefault("BRIDGE_RECONNECT_TIMEOUT", 10*time.Second)
	viper.SetDefault("BRIDGE_DETECT_TIMEOUT", 10*time.Second)
	viper.SetDefault("BRIDGE_PROGRAM_TIMEOUT", 30*time.Second)
	viper.SetDefault("BRIDGE_SEQUENCE_TIMEOUT", 180*time.Second)

	viper.SetDefault("SEQUENCER_SETTLE_DELAY", 500*time.Millisecond)
	viper.SetDefault("SEQUENCER_INTER_CARD_DELAY", 1000*time.Millisecond)

	viper.SetDefault("AGENT_SERVER_URL", "http://localhost:8080")
	viper.SetDefault("AGENT_LOCAL_PORT", "8443")
	viper.SetDefault("AGENT_POLL_INTERVAL", 15*time.Second)
	viper.SetDefault("AGENT_MAX_RETRIES", 3)
	viper.SetDefault("AGENT_RETRY_DELAY", 2*time.Second)
	viper.SetDefault("AGENT_STATE_DIR", ".roomkey-agent")
}
