package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tank-risk/internal/assess"
	"github.com/sells-group/tank-risk/internal/config"
	"github.com/sells-group/tank-risk/internal/factor"
)

func newAssessFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "assess"}
	addAssessFlags(cmd.Flags())
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestApplyAssessFlags(t *testing.T) {
	c := &config.Config{}
	c.Layers.Provider = "project"
	c.Workers = 1
	c.Output.Formats = []string{"csv"}

	cmd := newAssessFlags(t,
		"--assets", "gis.tanks",
		"--layer", "gis.Wetlands", "--layer", "gis.Soils",
		"--workers", "0",
		"--format", "csv,xlsx",
		"--out", "/tmp/out",
	)
	require.NoError(t, applyAssessFlags(cmd, c))

	assert.Equal(t, "gis.tanks", c.Assets.Layer)
	assert.Equal(t, "static", c.Layers.Provider)
	assert.Equal(t, []string{"gis.Wetlands", "gis.Soils"}, c.Layers.Sources)
	assert.Equal(t, 0, c.Workers)
	assert.Equal(t, []string{"csv", "xlsx"}, c.Output.Formats)
	assert.Equal(t, "/tmp/out", c.Output.Dir)
}

func TestApplyAssessFlags_Unchanged(t *testing.T) {
	c := &config.Config{}
	c.Layers.Provider = "dir"
	c.Workers = 3

	require.NoError(t, applyAssessFlags(newAssessFlags(t), c))
	assert.Equal(t, "dir", c.Layers.Provider)
	assert.Equal(t, 3, c.Workers)
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &assess.Report{
		RunID:    uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		State:    assess.Done,
		Factors:  []string{"LakesNHDHighRes"},
		Rows:     [][]any{{"e1", 40.0, 5}},
		Duration: 1500 * time.Millisecond,
		Messages: []assess.Message{{Level: assess.LevelWarn, Text: "unknown factor Volcanoes; skipping"}},
	})

	out := buf.String()
	assert.Contains(t, out, "6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "LEVEL")
	assert.Contains(t, out, "unknown factor Volcanoes; skipping")
}

func TestPrintFactors(t *testing.T) {
	var buf bytes.Buffer
	printFactors(&buf, factor.Default())
	assert.Contains(t, buf.String(), "NAME")
	assert.Contains(t, buf.String(), "CensusTracts2010")
	assert.Contains(t, buf.String(), "POP100,AREALAND")

	buf.Reset()
	printAliases(&buf, factor.Default())
	assert.Contains(t, buf.String(), "ALIAS")
	assert.Contains(t, buf.String(), "LakesNHDHighRes")
}
