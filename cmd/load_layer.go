package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tank-risk/internal/db"
	"github.com/sells-group/tank-risk/internal/factor"
	"github.com/sells-group/tank-risk/internal/shapeload"
)

var loadLayerCmd = &cobra.Command{
	Use:   "load-layer <shapefile>...",
	Short: "Load shapefile layers into PostGIS",
	Long: `Loads each shapefile into a PostGIS table (gid, attributes, geom in SRID 4326)
and builds a GIST index on the geometry, replacing any existing table.

The table name defaults to the layer name in --schema, case preserved so
it resolves to its factor. Pass --table to name it explicitly when loading
a single file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("load-layer"); err != nil {
			return err
		}

		schema, _ := cmd.Flags().GetString("schema")
		table, _ := cmd.Flags().GetString("table")
		if table != "" && len(args) > 1 {
			return eris.New("--table can only be used with a single shapefile")
		}

		pool, err := db.Connect(ctx, cfg.Database.URL, db.PoolConfig{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return err
		}
		defer pool.Close()

		log := zap.L().With(zap.String("command", "load-layer"))
		for _, path := range args {
			name := table
			if name == "" {
				name = layerTable(schema, path)
			}
			n, err := shapeload.Load(ctx, pool, path, name)
			if err != nil {
				return err
			}
			log.Info("layer loaded", zap.String("table", name), zap.Int64("rows", n))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d rows)\n", path, name, n)
		}
		return nil
	},
}

// layerTable derives the table a shapefile loads into. The name keeps its
// case; identifiers are always quoted.
func layerTable(schema, path string) string {
	name := factor.ParseName(path)
	if schema == "" {
		return name
	}
	return schema + "." + name
}

func init() {
	loadLayerCmd.Flags().String("schema", "public", "target schema")
	loadLayerCmd.Flags().String("table", "", "target table (schema-qualified)")
	rootCmd.AddCommand(loadLayerCmd)
}
