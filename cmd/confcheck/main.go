// FILE: lixenwraith/confclass/cmd/confcheck/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	config "github.com/lixenwraith/confclass"
)

var version = "0.1.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "confcheck",
		Short:         "Resolve a configuration schema against its sources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "confcheck v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newResolveCommand(&logLevel))
	root.AddCommand(newWatchCommand(&logLevel))
	return root
}

func newResolveCommand(logLevel *string) *cobra.Command {
	var (
		schemaPath string
		format     string
		sf         sourceFlags
	)

	cmd := &cobra.Command{
		Use:   "resolve --schema schema.yaml [source flags] [-- --FIELD value ...]",
		Short: "Resolve once and print the values or every field failure",
		Long: `Resolve loads the schema, reads the selected sources and prints each field
with the source it came from. Arguments after "--" are read as --FIELD flags
and take precedence over every other source.

Example:
  confcheck resolve --schema app.yaml --file app.toml -- --PORT 9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := config.NewRegistry(config.WithLogger(newLogger(*logLevel)))
			defer reg.Teardown()

			inst, err := loadShape(cmd.Context(), reg, schemaPath, &sf, args)
			if err != nil {
				return err
			}
			return printInstance(cmd.OutOrStdout(), inst, format)
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "Schema YAML file (required)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, toml, debug)")
	_ = cmd.MarkFlagRequired("schema")
	sf.register(cmd.Flags())
	return cmd
}

func newWatchCommand(logLevel *string) *cobra.Command {
	var (
		schemaPath string
		interval   time.Duration
		sf         sourceFlags
	)

	cmd := &cobra.Command{
		Use:   "watch --schema schema.yaml [source flags]",
		Short: "Reload periodically and print changed fields until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := config.NewRegistry(config.WithLogger(newLogger(*logLevel)))
			defer reg.Teardown()

			inst, err := loadShape(ctx, reg, schemaPath, &sf, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := printInstance(out, inst, "text"); err != nil {
				return err
			}

			opts := config.DefaultWatchOptions()
			opts.PollInterval = interval
			if err := reg.AutoReload(inst.Schema().Key(), opts); err != nil {
				return err
			}
			changes, err := reg.Watch(inst.Schema().Key())
			if err != nil {
				return err
			}

			return watchLoop(ctx, reg, inst.Schema().Key(), changes, out)
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "Schema YAML file (required)")
	cmd.Flags().DurationVar(&interval, "interval", config.DefaultPollInterval, "Reload interval")
	_ = cmd.MarkFlagRequired("schema")
	sf.register(cmd.Flags())
	return cmd
}

// loadShape builds the shape described by the flags and resolves it
func loadShape(ctx context.Context, reg *config.Registry, schemaPath string, sf *sourceFlags, passthrough []string) (*config.Instance, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	schema, err := loadSchema(schemaPath)
	if err != nil {
		return nil, err
	}

	sources, err := sf.build(ctx, passthrough)
	if err != nil {
		return nil, err
	}

	shape, err := config.NewShape(schema, sources...)
	if err != nil {
		return nil, err
	}
	return reg.Load(ctx, shape)
}

func watchLoop(ctx context.Context, reg *config.Registry, key string, changes <-chan string, out io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case name, ok := <-changes:
			if !ok {
				return errors.New("watch channel closed")
			}
			if inst, loaded := reg.Current(key); loaded {
				if value, found := inst.Get(name); found {
					origin, _ := inst.Origin(name)
					fmt.Fprintf(out, "changed %s=%v (%s, generation %d)\n", name, value, origin, inst.Generation())
					continue
				}
			}
			// Notices such as reload_error:<msg>
			fmt.Fprintln(out, name)
		}
	}
}

func printInstance(w io.Writer, inst *config.Instance, format string) error {
	switch format {
	case "toml":
		return config.DumpTOML(w, inst)
	case "debug":
		_, err := io.WriteString(w, config.Debug(inst))
		return err
	case "text", "":
		for _, name := range inst.Fields() {
			value, _ := inst.Get(name)
			origin, _ := inst.Origin(name)
			if _, err := fmt.Fprintf(w, "%s=%v\t(%s)\n", name, value, origin); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
