package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	// Import godotenv for loading .env files
	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	JWT      JWTConfig      `json:"jwt"`
	Recorder RecorderConfig `json:"recorder"`
	Security SecurityConfig `json:"security"`
}

type ServerConfig struct {
	Port         int           `json:"port"`
	Host         string        `json:"host"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
	URI      string `json:"uri"` // Full connection URI
}

type JWTConfig struct {
	SecretKey  string        `json:"secret_key"`
	Expiration time.Duration `json:"expiration"`
}

// RecorderConfig holds everything the capture supervisor and clip engine need:
// tool paths, the artifact directory and the validation thresholds.
type RecorderConfig struct {
	DownloadDir   string        `json:"download_dir"`
	YtDlpPath     string        `json:"ytdlp_path"`
	FFmpegPath    string        `json:"ffmpeg_path"`
	Timezone      string        `json:"timezone"`        // timestamps in capture filenames
	MinClipBytes  int64         `json:"min_clip_bytes"`  // smallest plausible clip output
	TitleTimeout  time.Duration `json:"title_timeout"`   // one-shot title lookup bound
	StopKillAfter time.Duration `json:"stop_kill_after"` // SIGKILL escalation after a stop signal
}

type SecurityConfig struct {
	CORSOrigins []string      `json:"cors_origins"`
	RateLimit   int           `json:"rate_limit"`
	RateWindow  time.Duration `json:"rate_window"`
}

// Load builds the configuration from environment variables and the .env file.
func Load() (*Config, error) {
	config := &Config{}

	if err := config.loadServerConfig(); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	config.loadDatabaseConfig()
	config.loadRecorderConfig()
	config.loadSecurityConfig()

	if err := config.loadJWTConfig(); err != nil {
		return nil, fmt.Errorf("failed to load jwt config: %w", err)
	}

	return config, nil
}

func (c *Config) loadServerConfig() error {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}

	c.Server = ServerConfig{
		Port:         port,
		Host:         getEnv("HOST", "0.0.0.0"),
		ReadTimeout:  getDurationEnv("READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getDurationEnv("WRITE_TIMEOUT", 10*time.Second),
		IdleTimeout:  getDurationEnv("IDLE_TIMEOUT", 10*time.Second),
	}
	return nil
}

func (c *Config) loadDatabaseConfig() {
	c.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "27017"),
		Name:     getEnv("DB_NAME", "streamvault"),
		Username: getEnv("DB_USERNAME", ""),
		Password: getEnv("DB_PASSWORD", ""),
		URI:      getEnv("DB_URI", ""),
	}

	if c.Database.URI == "" {
		if c.Database.Username != "" && c.Database.Password != "" {
			c.Database.URI = fmt.Sprintf("mongodb://%s:%s@%s:%s", c.Database.Username, c.Database.Password, c.Database.Host, c.Database.Port)
		} else {
			c.Database.URI = fmt.Sprintf("mongodb://%s:%s", c.Database.Host, c.Database.Port)
		}
	}
}

func (c *Config) loadJWTConfig() error {
	secretKey := getEnv("JWT_SECRET", "")
	if secretKey == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}

	c.JWT = JWTConfig{
		SecretKey:  secretKey,
		Expiration: getDurationEnv("JWT_EXPIRATION", 24*time.Hour),
	}
	return nil
}

func (c *Config) loadRecorderConfig() {
	c.Recorder = RecorderConfig{
		DownloadDir:   getEnv("RECORDER_DOWNLOAD_DIR", "downloads"),
		YtDlpPath:     getEnv("RECORDER_YTDLP_PATH", "yt-dlp"),
		FFmpegPath:    getEnv("RECORDER_FFMPEG_PATH", "ffmpeg"),
		Timezone:      getEnv("RECORDER_TIMEZONE", "Asia/Kolkata"),
		MinClipBytes:  getInt64Env("RECORDER_MIN_CLIP_BYTES", 1000),
		TitleTimeout:  getDurationEnv("RECORDER_TITLE_TIMEOUT", 15*time.Second),
		StopKillAfter: getDurationEnv("RECORDER_STOP_KILL_AFTER", 30*time.Second),
	}
}

func (c *Config) loadSecurityConfig() {
	corsOriginsStr := getEnv("CORS_ORIGINS", "*")
	var corsOrigins []string
	if corsOriginsStr != "*" {
		for _, origin := range strings.Split(corsOriginsStr, ",") {
			corsOrigins = append(corsOrigins, strings.TrimSpace(origin))
		}
	} else {
		corsOrigins = []string{"*"}
	}

	c.Security = SecurityConfig{
		CORSOrigins: corsOrigins,
		RateLimit:   getIntEnv("RATE_LIMIT", 100),
		RateWindow:  getDurationEnv("RATE_WINDOW", 1*time.Minute),
	}
}

func getEnv(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.URI == "" {
		return fmt.Errorf("database uri is required")
	}
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("jwt secret key is required")
	}
	if c.Recorder.DownloadDir == "" {
		return fmt.Errorf("recorder download dir is required")
	}
	if c.Recorder.MinClipBytes <= 0 {
		return fmt.Errorf("recorder min clip bytes must be positive")
	}
	if _, err := time.LoadLocation(c.Recorder.Timezone); err != nil {
		return fmt.Errorf("invalid recorder timezone %q: %w", c.Recorder.Timezone, err)
	}
	return nil
}
