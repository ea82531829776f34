// Package ops loads runtime configuration: a JSON file for structure,
// environment variables (optionally from a .env file) for credentials.
package ops

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"main/internal/engine"
	"main/pkg/conn"

	"github.com/joho/godotenv"
	"github.com/yanun0323/errors"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Database  DatabaseConfig  `json:"database"`
	Engine    EngineConfig    `json:"engine"`
	Intake    IntakeConfig    `json:"intake"`
	Profiling ProfilingConfig `json:"profiling"`
}

// DatabaseConfig selects and parameterizes the store backend.
type DatabaseConfig struct {
	Driver   string `json:"driver"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode"`
	DSN      string `json:"dsn"`
}

// EngineConfig parameterizes the poll loop.
type EngineConfig struct {
	TickSeconds          int     `json:"tickSeconds"`
	ResubscribeSeconds   int     `json:"resubscribeSeconds"`
	ErrorBackoffSeconds  int     `json:"errorBackoffSeconds"`
	SubmitTimeoutSeconds int     `json:"submitTimeoutSeconds"`
	PriceTolerance       float64 `json:"priceTolerance"`
	MaxPosition          int     `json:"maxPosition"`
	DefaultMultiplier    float64 `json:"defaultMultiplier"`
}

// IntakeConfig parameterizes the HTTP surface.
type IntakeConfig struct {
	Addr string `json:"addr"`
}

// ProfilingConfig controls continuous profiling.
type ProfilingConfig struct {
	Enabled       bool   `json:"enabled"`
	ServerAddress string `json:"serverAddress"`
}

// Loaded is the resolved configuration ready for wiring.
type Loaded struct {
	Conn              conn.Option
	Engine            engine.Config
	DefaultMultiplier float64
	IntakeAddr        string
	Profiling         ProfilingConfig
}

// Load reads the JSON config (path may be empty), merges .env and
// process environment overrides, and resolves defaults.
func Load(path string) (Loaded, error) {
	_ = godotenv.Load()

	var cfg FileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, errors.Wrap(err, "read config file")
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, errors.Wrap(err, "parse config file")
		}
	}
	applyEnv(&cfg)

	loaded := Loaded{
		Conn: conn.Option{
			Driver:     cfg.Database.Driver,
			Host:       cfg.Database.Host,
			Port:       cfg.Database.Port,
			User:       cfg.Database.User,
			Password:   cfg.Database.Password,
			Database:   cfg.Database.Database,
			SSLMode:    cfg.Database.SSLMode,
			ConnString: cfg.Database.DSN,
		},
		Engine: engine.Config{
			Tick:             time.Duration(cfg.Engine.TickSeconds) * time.Second,
			ResubscribeEvery: time.Duration(cfg.Engine.ResubscribeSeconds) * time.Second,
			ErrorBackoff:     time.Duration(cfg.Engine.ErrorBackoffSeconds) * time.Second,
			SubmitTimeout:    time.Duration(cfg.Engine.SubmitTimeoutSeconds) * time.Second,
			PriceTolerance:   cfg.Engine.PriceTolerance,
			MaxPosition:      cfg.Engine.MaxPosition,
		},
		DefaultMultiplier: cfg.Engine.DefaultMultiplier,
		IntakeAddr:        cfg.Intake.Addr,
		Profiling:         cfg.Profiling,
	}

	if loaded.Conn.Driver == "" {
		loaded.Conn.Driver = conn.DriverSQLite
	}
	if loaded.Engine.PriceTolerance == 0 {
		loaded.Engine.PriceTolerance = 0.002
	}
	if loaded.DefaultMultiplier <= 0 {
		loaded.DefaultMultiplier = 1
	}
	if loaded.IntakeAddr == "" {
		loaded.IntakeAddr = ":8080"
	}
	return loaded, nil
}

func applyEnv(cfg *FileConfig) {
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Database, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSLMODE")
	setString(&cfg.Database.DSN, "DB_DSN")
	setString(&cfg.Intake.Addr, "INTAKE_ADDR")
	setString(&cfg.Profiling.ServerAddress, "PYROSCOPE_SERVER")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
