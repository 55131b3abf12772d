package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dshills/jsettings/internal/settings/backup"
)

// envPrefix is the prefix of the environment variables read for flags.
// --backup-slots becomes JSETTINGS_BACKUP_SLOTS.
const envPrefix = "JSETTINGS"

// Config holds the global command options.
type Config struct {
	BackupSlots int           `mapstructure:"backup-slots"`
	NoBackup    bool          `mapstructure:"no-backup"`
	LogLevel    string        `mapstructure:"log-level"`
	Debounce    time.Duration `mapstructure:"debounce"`
}

// DefaultConfig returns the options used when nothing is set.
func DefaultConfig() Config {
	return Config{
		BackupSlots: backup.DefaultSlots,
		LogLevel:    "warn",
		Debounce:    100 * time.Millisecond,
	}
}

func registerFlags(fs *pflag.FlagSet) {
	def := DefaultConfig()
	fs.Int("backup-slots", def.BackupSlots, "number of rotated backups kept on save")
	fs.Bool("no-backup", def.NoBackup, "save without rotating backups")
	fs.String("log-level", def.LogLevel, "log level (debug, info, warn, error)")
	fs.Duration("debounce", def.Debounce, "quiet period before a file change is reported")
}

// loadConfig reads the options from flags, falling back to JSETTINGS_*
// environment variables.
func loadConfig(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.BackupSlots < 0 {
		return Config{}, fmt.Errorf("backup-slots must not be negative, got %d", cfg.BackupSlots)
	}
	return cfg, nil
}

// Backup returns the backup policy selected by the options.
func (c Config) Backup() backup.Options {
	return backup.Options{Enabled: !c.NoBackup, Slots: c.BackupSlots}
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}
