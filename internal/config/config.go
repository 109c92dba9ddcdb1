package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"nutrition-tracker/internal/logging"
	"nutrition-tracker/internal/nutrition"
)

const (
	ModeTUI   = "tui"
	ModeStdio = "stdio"
)

// Config captures the runtime configuration of the tracker.
type Config struct {
	Mode     string
	Foods    FoodsConfig
	Save     SaveConfig
	Database DatabaseConfig
	Log      LogConfig
	Version  bool
}

// FoodsConfig locates the food database and says how to read it.
type FoodsConfig struct {
	Path   string
	Format nutrition.Format
	Watch  bool
}

// SaveConfig is the ledger save file.
type SaveConfig struct {
	Path string
}

// DatabaseConfig is the optional SQLite archive. An empty path disables it.
type DatabaseConfig struct {
	Path string
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string
	File  string
}

// LoadDotEnv reads a .env file into the environment. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load parses command line args; flags default to environment values.
func Load(args []string) (Config, error) {
	flags := flag.NewFlagSet("nutrition-tracker", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)

	cfg := Config{}
	var format string

	flags.StringVar(&cfg.Mode, "mode", firstNonEmpty(os.Getenv("NUTRITION_MODE"), ModeTUI), "Front end: tui or stdio")
	flags.StringVar(&cfg.Foods.Path, "foods", firstNonEmpty(os.Getenv("NUTRITION_FOOD_DB"), "res/database.json"), "Food database path")
	flags.StringVar(&format, "food-format", firstNonEmpty(os.Getenv("NUTRITION_FOOD_FORMAT"), string(nutrition.FormatPerUnit)), "Food database format: per-unit or weighted")
	flags.BoolVar(&cfg.Foods.Watch, "watch", envBool("NUTRITION_WATCH"), "Reload the food database when it changes")
	flags.StringVar(&cfg.Save.Path, "save", firstNonEmpty(os.Getenv("NUTRITION_SAVE_PATH"), "res/day0.json"), "Ledger save file")
	flags.StringVar(&cfg.Database.Path, "db-path", os.Getenv("NUTRITION_DB_PATH"), "SQLite archive path (empty disables the archive)")
	flags.StringVar(&cfg.Log.Level, "log-level", firstNonEmpty(os.Getenv("NUTRITION_LOG_LEVEL"), "info"), "Log level")
	flags.StringVar(&cfg.Log.File, "log-file", firstNonEmpty(os.Getenv("NUTRITION_LOG_FILE"), "nutrition-tracker.log"), "Log file used by the tui front end")
	flags.BoolVar(&cfg.Version, "version", false, "Show version")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	if cfg.Mode != ModeTUI && cfg.Mode != ModeStdio {
		return Config{}, fmt.Errorf("unknown mode: %s", cfg.Mode)
	}

	f, err := nutrition.ParseFormat(strings.TrimSpace(format))
	if err != nil {
		return Config{}, err
	}
	cfg.Foods.Format = f

	if strings.TrimSpace(cfg.Foods.Path) == "" {
		return Config{}, fmt.Errorf("food database path must not be empty")
	}
	if strings.TrimSpace(cfg.Save.Path) == "" {
		return Config{}, fmt.Errorf("save path must not be empty")
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}
