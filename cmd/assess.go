package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/tank-risk/internal/assess"
	"github.com/sells-group/tank-risk/internal/config"
	"github.com/sells-group/tank-risk/internal/sink"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Score the asset layer against the selected risk layers",
	Long: `Discovers the selected risk layers, validates their attribute columns,
scores every facility against each known factor, and writes the result table
to the configured outputs.

Layers come from config (layers.provider) unless --layer is given, in which
case the listed sources are used as a static selection.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := applyAssessFlags(cmd, cfg); err != nil {
			return err
		}

		env, err := initAssess(ctx, cfg, "assess")
		if err != nil {
			return err
		}
		defer env.Close()

		out, err := buildSinks(cfg, env.Pool, time.Now())
		if err != nil {
			return err
		}

		rep, runErr := runAssessment(ctx, cfg, env, out)
		if rep != nil {
			printReport(cmd.OutOrStdout(), rep)
		}
		if path := cfg.Metrics.Textfile; path != "" {
			if err := prometheus.WriteToTextfile(path, env.Registry); err != nil {
				zap.L().Warn("assess: write metrics textfile", zap.String("path", path), zap.Error(err))
			}
		}
		return runErr
	},
}

// applyAssessFlags overlays command-line flags on the loaded config.
func applyAssessFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("assets") {
		c.Assets.Layer, _ = flags.GetString("assets")
	}
	if flags.Changed("layer") {
		sources, err := flags.GetStringSlice("layer")
		if err != nil {
			return eris.Wrap(err, "parse --layer")
		}
		c.Layers.Provider = "static"
		c.Layers.Sources = sources
	}
	if flags.Changed("workers") {
		c.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("format") {
		formats, err := flags.GetStringSlice("format")
		if err != nil {
			return eris.Wrap(err, "parse --format")
		}
		c.Output.Formats = formats
	}
	if flags.Changed("out") {
		c.Output.Dir, _ = flags.GetString("out")
	}
	return nil
}

// runAssessment runs one assessment of c.Assets.Layer, writing to out.
func runAssessment(ctx context.Context, c *config.Config, env *assessEnv, out sink.Sink, opts ...assess.Option) (*assess.Report, error) {
	opts = append([]assess.Option{
		assess.WithWorkers(c.Workers),
		assess.WithMetrics(env.Metrics),
		assess.WithIDField(c.Assets.IDField),
	}, opts...)

	orch := assess.New(env.Catalog, env.Provider, env.Service, out, c.Assets.Layer, opts...)
	return orch.Run(ctx)
}

func printReport(out io.Writer, rep *assess.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", rep.RunID)
	_, _ = fmt.Fprintf(w, "State:\t%s\n", rep.State)
	_, _ = fmt.Fprintf(w, "Assets:\t%d\n", len(rep.Rows))
	_, _ = fmt.Fprintf(w, "Factors:\t%d\n", len(rep.Factors))
	_, _ = fmt.Fprintf(w, "Duration:\t%s\n", rep.Duration.Round(time.Millisecond))
	_ = w.Flush()

	if len(rep.Messages) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LEVEL\tMESSAGE")
	_, _ = fmt.Fprintln(w, "-----\t-------")
	for _, m := range rep.Messages {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", m.Level, m.Text)
	}
	_ = w.Flush()
}

func addAssessFlags(fs *pflag.FlagSet) {
	fs.String("assets", "", "asset layer (default from config)")
	fs.StringSlice("layer", nil, "risk layer source; repeat to select several")
	fs.Int("workers", 1, "parallel factor workers; 0 uses twice the CPU count")
	fs.StringSlice("format", nil, "output formats: csv, xlsx, sqlite, postgres")
	fs.String("out", "", "output directory for file formats")
}

func init() {
	addAssessFlags(assessCmd.Flags())
	rootCmd.AddCommand(assessCmd)
}

