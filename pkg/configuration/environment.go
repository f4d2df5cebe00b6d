package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/configitems/pkg/logging"
)

const Production = "production"

const (
	DriverPgx    = "pgx"
	DriverPQ     = "postgres"
	DriverSQLite = "sqlite"
)

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the env files found in the working directory. When none exist there,
// the nearest parent directory holding a go.mod is tried instead.
func LoadEnv(envFiles []string) (int, error) {
	existing := existingFiles("", envFiles)
	if len(existing) == 0 {
		if root, ok := moduleRoot(); ok {
			existing = existingFiles(root, envFiles)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func existingFiles(dir string, envFiles []string) []string {
	out := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		path := file
		if dir != "" {
			path = filepath.Join(dir, file)
		}
		if fs.FileExists(path) {
			out = append(out, path)
		}
	}
	return out
}

func moduleRoot() (string, bool) {
	wd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for dir := wd; ; dir = filepath.Dir(dir) {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir, true
		}
		if filepath.Dir(dir) == dir {
			return "", false
		}
	}
}

type DatabaseOptions struct {
	Opts       string `env:"-"`
	Driver     string `env:"DB_DRIVER" envDefault:"pgx"`
	Name       string `env:"DB_NAME" envDefault:"configitems"`
	Host       string `env:"DB_HOST" envDefault:"localhost"`
	Port       string `env:"DB_PORT" envDefault:"5432"`
	User       string `env:"DB_USER" envDefault:"postgres"`
	Password   string `env:"DB_PASSWORD" envDefault:"postgres"`
	SQLitePath string `env:"DB_SQLITE_PATH" envDefault:"./data/configitems.db"`
}

// ConnectionString returns the DSN understood by the configured driver.
func (d *DatabaseOptions) ConnectionString() string {
	if d.Driver == DriverSQLite {
		return d.SQLitePath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

func (d *DatabaseOptions) Validate() error {
	switch d.Driver {
	case DriverPgx, DriverPQ, DriverSQLite:
	default:
		return fmt.Errorf("invalid DB_DRIVER=%q (expected pgx|postgres|sqlite)", d.Driver)
	}
	if d.Driver == DriverSQLite && strings.TrimSpace(d.SQLitePath) == "" {
		return fmt.Errorf("DB_SQLITE_PATH is required when DB_DRIVER=sqlite")
	}
	return nil
}

type ImportOptions struct {
	CreateModules bool          `env:"IMPORT_CREATE_MODULES" envDefault:"false"`
	MaxItemDepth  int           `env:"IMPORT_MAX_ITEM_DEPTH" envDefault:"0"`
	LockBackend   string        `env:"IMPORT_LOCK_BACKEND" envDefault:"memory"` // memory or redis
	LockTTL       time.Duration `env:"IMPORT_LOCK_TTL" envDefault:"30s"`
}

// Validate checks the import configuration for errors
func (o *ImportOptions) Validate(redisURL string) error {
	if o.MaxItemDepth < 0 {
		return fmt.Errorf("IMPORT_MAX_ITEM_DEPTH must be non-negative, got %d", o.MaxItemDepth)
	}
	if o.LockBackend != "memory" && o.LockBackend != "redis" {
		return fmt.Errorf("IMPORT_LOCK_BACKEND must be 'memory' or 'redis', got '%s'", o.LockBackend)
	}
	if o.LockBackend == "redis" && redisURL == "" {
		return fmt.Errorf("REDIS_URL is required when IMPORT_LOCK_BACKEND is 'redis'")
	}
	if o.LockTTL <= 0 {
		return fmt.Errorf("IMPORT_LOCK_TTL must be positive, got %s", o.LockTTL)
	}
	return nil
}

type Configuration struct {
	Database DatabaseOptions
	Import   ImportOptions

	RedisURL         string `env:"REDIS_URL" envDefault:""`
	OTLPEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ServiceName      string `env:"OTEL_SERVICE_NAME" envDefault:"cidist"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"text"`
	LogPath          string `env:"LOG_PATH" envDefault:""`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

// Load builds a configuration outside the process-wide singleton.
func Load(envFiles []string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if err := c.Database.Validate(); err != nil {
		return err
	}
	c.Import.LockBackend = strings.ToLower(strings.TrimSpace(c.Import.LockBackend))
	if err := c.Import.Validate(c.RedisURL); err != nil {
		return fmt.Errorf("import configuration error: %w", err)
	}
	if err := c.validateLogFormat(); err != nil {
		return err
	}

	if c.LogPath != "" {
		f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogFormat, c.LogPath)
		if err != nil {
			return err
		}
		c.logFile = f
		c.logger = logger
	} else {
		c.logger = logging.ConsoleLogger(c.LogrusLogLevel(), c.LogFormat)
	}

	c.Database.Opts = c.Database.ConnectionString()
	return nil
}

func (c *Configuration) validateLogFormat() error {
	format := strings.ToLower(strings.TrimSpace(c.LogFormat))
	if format == "" {
		format = logging.FormatText
	}
	switch format {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid LOG_FORMAT=%q (expected text|json)", c.LogFormat)
	}
	c.LogFormat = format
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
		c.logFile = nil
	}
}
