package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	DatabaseConfig struct {
		// Path of the snapshot file; empty keeps the database in memory only.
		Path string `mapstructure:"path"`
	}

	SessionConfig struct {
		Path string        `mapstructure:"path"`
		TTL  time.Duration `mapstructure:"ttl"`
	}

	ServerConfig struct {
		Host            string        `mapstructure:"host"`
		DebugHost       string        `mapstructure:"debugHost"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
		RequireAuth     bool          `mapstructure:"requireAuth"`
	}

	AdminConfig struct {
		Email    string `mapstructure:"email"`
		Password string `mapstructure:"password"`
		FullName string `mapstructure:"fullName"`
	}

	GoogleConfig struct {
		ClientID string `mapstructure:"clientId"`
	}

	SyncConfig struct {
		BatchSize int `mapstructure:"batchSize"`
	}

	Config struct {
		Env          string `mapstructure:"-"`
		Debug        bool   `mapstructure:"debug"`
		TestMode     bool   `mapstructure:"testMode"`
		AppName      string `mapstructure:"appName"`
		Build        string `mapstructure:"build"`
		SecretKey    string `mapstructure:"secretKey"`
		RollbarToken string `mapstructure:"rollbarToken"`
		DataDir      string `mapstructure:"dataDir"`

		Database DatabaseConfig `mapstructure:"database"`
		Session  SessionConfig  `mapstructure:"session"`
		Server   ServerConfig   `mapstructure:"server"`
		Admin    AdminConfig    `mapstructure:"admin"`
		Google   GoogleConfig   `mapstructure:"google"`
		Sync     SyncConfig     `mapstructure:"sync"`
	}
)

// NewConfig reads the configuration from defaults, an optional config/.env.<env> file and the environment.
// Environment variables are prefixed with the upper-cased env name, eg. DEV_DATABASE_PATH.
func NewConfig() *Config {
	conf := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, PROD
	if env == "" {
		env = "DEV"
	}

	dataDir := defaultDataDir()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", env != "PROD")
	conf.SetDefault("testMode", env == "TEST")
	conf.SetDefault("appName", "Tamkeen")
	conf.SetDefault("build", "develop")
	conf.SetDefault("secretKey", "t4mk33n-l0c4l-$ecret-ch4nge-me-in-pr0d")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("dataDir", dataDir)
	conf.SetDefault("database.path", filepath.Join(dataDir, "tamkeen.db"))
	conf.SetDefault("session.path", filepath.Join(dataDir, "session.db"))
	conf.SetDefault("session.ttl", 30*24*time.Hour)
	conf.SetDefault("server.host", "127.0.0.1:4580")
	conf.SetDefault("server.debugHost", "127.0.0.1:4581")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.requireAuth", true)
	conf.SetDefault("admin.email", "admin@tamkeen.local")
	conf.SetDefault("admin.password", "admin123")
	conf.SetDefault("admin.fullName", "Administrateur")
	conf.SetDefault("google.clientId", "")
	conf.SetDefault("sync.batchSize", 50)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	conf.AutomaticEnv()

	cfg := new(Config)
	if err := conf.Unmarshal(cfg); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	cfg.Env = env
	if cfg.Sync.BatchSize <= 0 {
		cfg.Sync.BatchSize = 50
	}
	return cfg
}

// defaultDataDir is the per-user application data directory.
func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "Tamkeen")
}
