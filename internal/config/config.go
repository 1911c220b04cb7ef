package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvProduction = "production"

// Config contains runtime configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DiagAddr        string
	ShutdownTimeout time.Duration

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ViewWindow time.Duration
	ViewLimit  int

	UploadDir      string
	MaxImageBytes  int64
	AuthUserHeader string
	AuthRoleHeader string

	FeedURLs     []string
	FeedSchedule string
	FeedTimeout  time.Duration

	LogLevel string
	LogFile  string
}

func (c *Config) Production() bool {
	return c.Env == EnvProduction
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("diag.addr", ":9090")
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("database.url", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("views.window", time.Hour)
	v.SetDefault("views.limit", 1)
	v.SetDefault("uploads.dir", "./uploads")
	v.SetDefault("uploads.max_bytes", 5<<20)
	v.SetDefault("auth.user_header", "X-User-ID")
	v.SetDefault("auth.role_header", "X-User-Role")
	v.SetDefault("feed.urls", "")
	v.SetDefault("feed.schedule", "@every 30m")
	v.SetDefault("feed.timeout", 15*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load reads .env (if present), then the optional config file at path, then
// BLOG_* environment variables. Later sources win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("BLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Env:             strings.ToLower(strings.TrimSpace(v.GetString("env"))),
		HTTPAddr:        v.GetString("http.addr"),
		DiagAddr:        v.GetString("diag.addr"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		DatabaseURL:     v.GetString("database.url"),
		RedisAddr:       v.GetString("redis.addr"),
		RedisPassword:   v.GetString("redis.password"),
		RedisDB:         v.GetInt("redis.db"),
		ViewWindow:      v.GetDuration("views.window"),
		ViewLimit:       v.GetInt("views.limit"),
		UploadDir:       v.GetString("uploads.dir"),
		MaxImageBytes:   v.GetInt64("uploads.max_bytes"),
		AuthUserHeader:  v.GetString("auth.user_header"),
		AuthRoleHeader:  v.GetString("auth.role_header"),
		FeedURLs:        splitList(v.GetStringSlice("feed.urls")),
		FeedSchedule:    v.GetString("feed.schedule"),
		FeedTimeout:     v.GetDuration("feed.timeout"),
		LogLevel:        v.GetString("log.level"),
		LogFile:         v.GetString("log.file"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ViewWindow <= 0 {
		return fmt.Errorf("views.window must be positive, got %s", c.ViewWindow)
	}
	if c.ViewLimit <= 0 {
		return fmt.Errorf("views.limit must be positive, got %d", c.ViewLimit)
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("uploads.max_bytes must be positive, got %d", c.MaxImageBytes)
	}
	if c.UploadDir == "" {
		return errors.New("uploads.dir is required")
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.FeedTimeout <= 0 {
		c.FeedTimeout = 15 * time.Second
	}
	return nil
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
