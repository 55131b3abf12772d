package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/dshills/jsettings/internal/settings"
	"github.com/dshills/jsettings/internal/settings/jsondoc"
)

var prettyOptions = &pretty.Options{Width: 80, Indent: jsondoc.Indent}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get FILE POINTER",
		Short: "Print the JSON value at POINTER",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			m, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer closeManager(m, &err)

			r, ok := m.Get(args[1])
			if !ok {
				return fmt.Errorf("no value at %s", args[1])
			}
			_, err = cmd.OutOrStdout().Write(formatValue(r))
			return err
		},
	}
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set FILE POINTER VALUE",
		Short: "Write VALUE at POINTER and save",
		Long:  `Write VALUE at POINTER and save. VALUE is JSON text; anything that does not parse as JSON is stored as a string.`,
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) (err error) {
			m, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer closeManager(m, &err)

			raw := args[2]
			if !gjson.Valid(raw) {
				raw = string(gjson.AppendJSONString(nil, raw))
			}
			if err := m.Set(args[1], raw, settings.SourceSetter); err != nil {
				return err
			}
			return m.Save()
		},
	}
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm FILE POINTER",
		Short: "Remove POINTER and everything below it, then save",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) (err error) {
			m, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer closeManager(m, &err)

			if !m.Remove(args[1]) {
				return fmt.Errorf("no value at %s", args[1])
			}
			return m.Save()
		},
	}
}

func newCatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cat FILE",
		Short: "Print the whole document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			m, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer closeManager(m, &err)

			_, err = cmd.OutOrStdout().Write(m.Pretty())
			return err
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	var env string

	cmd := &cobra.Command{
		Use:   "import FILE TOMLFILE",
		Short: "Merge a TOML file into the document and save",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) (err error) {
			m, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer closeManager(m, &err)

			if err := m.ImportTOML(args[1]); err != nil {
				return err
			}
			if env != "" {
				if err := m.ApplyEnvironment(env); err != nil {
					return err
				}
			}
			return m.Save()
		},
	}
	cmd.Flags().StringVar(&env, "env-prefix", "", "also apply environment variables with this prefix")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch FILE",
		Short: "Print the document every time another process changes it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m, err := a.open(args[0], settings.WithWatch(a.cfg.Debounce))
			if err != nil {
				return err
			}
			defer closeManager(m, &err)
			if !m.Watching() {
				return fmt.Errorf("cannot watch %s", args[0])
			}

			out := cmd.OutOrStdout()
			m.OnLoad(func(sa settings.SignalArgs) {
				if sa.Source != settings.SourceExternal {
					return
				}
				fmt.Fprintf(out, "# %s %s\n", time.Now().Format(time.RFC3339), args[0])
				_, _ = out.Write(m.Pretty())
			})
			a.logger.Info("Watching settings file", "path", args[0])
			<-ctx.Done()
			return nil
		},
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// formatValue renders containers indented and scalars as raw JSON.
func formatValue(r gjson.Result) []byte {
	if r.IsObject() || r.IsArray() {
		return pretty.PrettyOptions([]byte(r.Raw), prettyOptions)
	}
	return []byte(r.Raw + "\n")
}
