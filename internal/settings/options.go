package settings

import (
	"log/slog"
	"time"

	"github.com/dshills/jsettings/internal/settings/backup"
	"github.com/dshills/jsettings/internal/settings/metrics"
	"github.com/dshills/jsettings/internal/settings/serialize"
)

// DefaultPath is the document path used when none is configured.
const DefaultPath = "settings.json"

// LoadOptions tunes Load.
type LoadOptions struct {
	// AttemptLoadFromTemporaryFile retries a failed load from the
	// "<path>.tmp" file left by an interrupted save, then writes the
	// recovered document back to the primary path.
	AttemptLoadFromTemporaryFile bool
}

type managerConfig struct {
	path       string
	saveMethod SaveMethod
	backup     backup.Options
	load       LoadOptions
	rounding   serialize.Rounding
	logger     *slog.Logger
	metrics    *metrics.Collector
	watch      bool
	debounce   time.Duration
}

func defaultManagerConfig() managerConfig {
	return managerConfig{
		path:       DefaultPath,
		saveMethod: SaveManually,
		backup:     backup.DefaultOptions(),
		rounding:   serialize.RoundNearest,
		debounce:   100 * time.Millisecond,
	}
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

// WithPath sets the document file path.
func WithPath(path string) ManagerOption {
	return func(c *managerConfig) {
		if path != "" {
			c.path = path
		}
	}
}

// WithSaveMethod sets when the manager saves on its own.
func WithSaveMethod(method SaveMethod) ManagerOption {
	return func(c *managerConfig) {
		c.saveMethod = method
	}
}

// WithBackup sets the backup rotation used by Save.
func WithBackup(opts backup.Options) ManagerOption {
	return func(c *managerConfig) {
		if opts.Slots < 0 {
			opts.Slots = 0
		}
		c.backup = opts
	}
}

// WithLoadOptions sets the load behavior.
func WithLoadOptions(opts LoadOptions) ManagerOption {
	return func(c *managerConfig) {
		c.load = opts
	}
}

// WithRounding sets how floating point values narrow into integer settings.
func WithRounding(mode serialize.Rounding) ManagerOption {
	return func(c *managerConfig) {
		c.rounding = mode
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(c *managerConfig) {
		c.logger = logger
	}
}

// WithMetrics records load, save and write counters in collector.
func WithMetrics(collector *metrics.Collector) ManagerOption {
	return func(c *managerConfig) {
		c.metrics = collector
	}
}

// WithWatch reloads the document when its file is changed by another
// process. Events closer together than debounce are coalesced.
func WithWatch(debounce time.Duration) ManagerOption {
	return func(c *managerConfig) {
		c.watch = true
		if debounce > 0 {
			c.debounce = debounce
		}
	}
}
