package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tank-risk/internal/assess"
	"github.com/sells-group/tank-risk/internal/config"
	"github.com/sells-group/tank-risk/internal/db"
	"github.com/sells-group/tank-risk/internal/factor"
	"github.com/sells-group/tank-risk/internal/layers"
	"github.com/sells-group/tank-risk/internal/proximity"
	"github.com/sells-group/tank-risk/internal/resilience"
	"github.com/sells-group/tank-risk/internal/sink"
)

// assessEnv holds everything an assessment run needs besides its sink.
type assessEnv struct {
	Catalog  *factor.Catalog
	Provider layers.Provider
	Service  *proximity.Resilient
	Pool     *pgxpool.Pool // nil unless a database is configured
	Registry *prometheus.Registry
	Metrics  *assess.Metrics
}

// Close releases resources held by the environment.
func (e *assessEnv) Close() {
	if e.Pool != nil {
		e.Pool.Close()
	}
}

// initAssess validates config for mode and builds the catalog, layer
// provider, and proximity service. Callers should defer env.Close().
func initAssess(ctx context.Context, c *config.Config, mode string) (*assessEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	catalog, err := loadCatalog(c)
	if err != nil {
		return nil, err
	}

	provider, err := buildProvider(c)
	if err != nil {
		return nil, err
	}

	env := &assessEnv{Catalog: catalog, Provider: provider}
	if c.Database.URL != "" {
		pool, err := db.Connect(ctx, c.Database.URL, db.PoolConfig{
			MaxConns: c.Database.MaxConns,
			MinConns: c.Database.MinConns,
		})
		if err != nil {
			return nil, err
		}
		env.Pool = pool
	}

	var svc proximity.Service
	switch c.Proximity.Backend {
	case "files":
		svc = proximity.NewFiles(c.Proximity.NearDir, c.Assets.IDField)
	default:
		svc = proximity.NewPostGIS(env.Pool, proximity.PostGISConfig{AssetIDColumn: c.Assets.IDField})
	}
	env.Service = proximity.NewResilient(svc, resilientConfig(c.Proximity))

	env.Registry = prometheus.NewRegistry()
	env.Metrics = assess.NewMetrics(env.Registry)

	zap.L().Debug("assessment environment ready",
		zap.String("backend", c.Proximity.Backend),
		zap.String("layers", c.Layers.Provider),
		zap.Int("factors", len(catalog.Definitions())),
	)
	return env, nil
}

// loadCatalog returns the default catalog merged with the configured factors
// file, if any.
func loadCatalog(c *config.Config) (*factor.Catalog, error) {
	base := factor.Default()
	if c.Factors.File == "" {
		return base, nil
	}
	catalog, err := factor.LoadFile(c.Factors.File, base)
	if err != nil {
		return nil, eris.Wrap(err, "load factors")
	}
	return catalog, nil
}

func buildProvider(c *config.Config) (layers.Provider, error) {
	switch c.Layers.Provider {
	case "static":
		return layers.Static(c.Layers.Sources), nil
	case "project":
		return layers.Project{Path: c.Layers.Project}, nil
	case "dir":
		return layers.Dir{Path: c.Layers.Dir}, nil
	default:
		return nil, eris.Errorf("unknown layer provider %q", c.Layers.Provider)
	}
}

func resilientConfig(p config.ProximityConfig) proximity.ResilientConfig {
	return proximity.ResilientConfig{
		RatePerSecond: p.RatePerSecond,
		Burst:         p.Burst,
		Retry: resilience.FromRetryConfig(
			p.Retry.MaxAttempts, p.Retry.InitialBackoffMs, p.Retry.MaxBackoffMs, p.Retry.Multiplier,
		),
		Breaker: resilience.FromCircuitConfig(p.Circuit.FailureThreshold, p.Circuit.ResetTimeoutSecs),
	}
}

// buildSinks returns one sink per configured output format, all stamped with
// the same run time.
func buildSinks(c *config.Config, pool *pgxpool.Pool, now time.Time) (sink.Multi, error) {
	stamp := sink.Stamp(now)
	var out sink.Multi
	for _, f := range c.Output.Formats {
		switch f {
		case "csv":
			out = append(out, sink.NewCSV(c.Output.Dir, stamp))
		case "xlsx":
			out = append(out, sink.NewXLSX(c.Output.Dir, stamp))
		case "sqlite":
			out = append(out, sink.NewSQLite(c.Output.SQLitePath, stamp))
		case "postgres":
			if pool == nil {
				return nil, eris.New("postgres output requires database.url")
			}
			r := c.Proximity.Retry
			retry := resilience.FromRetryConfig(r.MaxAttempts, r.InitialBackoffMs, r.MaxBackoffMs, r.Multiplier)
			out = append(out, sink.NewPostgres(pool, c.Output.Schema, stamp, retry))
		default:
			return nil, eris.Errorf("unknown output format %q", f)
		}
	}
	return out, nil
}
