// Package cli implements the jsettings command line tool.
package cli

import (
	"io"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/dshills/jsettings/internal/settings"
	"github.com/dshills/jsettings/internal/settings/backup"
	"github.com/dshills/jsettings/internal/settings/fsutil"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfg    Config
	logger *slog.Logger
}

// NewRootCommand builds the jsettings command tree. Logs go to stderr.
func NewRootCommand(stderr io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "jsettings",
		Short:         "Inspect and edit JSON settings files",
		Long:          `Read, write and watch JSON settings documents addressed by JSON Pointer, saving through atomic writes with rotated backups.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			level, err := cfg.Level()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	registerFlags(root.PersistentFlags())

	root.AddCommand(
		newGetCmd(a),
		newSetCmd(a),
		newRmCmd(a),
		newCatCmd(a),
		newWatchCmd(a),
		newImportCmd(a),
	)
	return root
}

// open creates a manager for path and loads it. A missing file yields an
// empty document unless a temporary file from an interrupted save exists.
func (a *app) open(path string, opts ...settings.ManagerOption) (*settings.Manager, error) {
	base := []settings.ManagerOption{
		settings.WithPath(path),
		settings.WithLogger(a.logger),
		settings.WithBackup(a.cfg.Backup()),
		settings.WithLoadOptions(settings.LoadOptions{AttemptLoadFromTemporaryFile: true}),
	}
	m := settings.NewManager(append(base, opts...)...)

	if !fsutil.Exists(path) && !fsutil.Exists(backup.TempPath(path)) {
		a.logger.Debug("Settings file does not exist, starting empty", "path", path)
		return m, nil
	}
	if err := m.Load(); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

// closeManager closes m and adds its error to err.
func closeManager(m *settings.Manager, err *error) {
	if cerr := m.Close(); cerr != nil {
		*err = multierror.Append(*err, cerr).ErrorOrNil()
	}
}
