// Package layers discovers the layers selected for an assessment run.
package layers

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Provider lists the layers selected for a run.
type Provider interface {
	SelectedLayers(ctx context.Context) (Selection, error)
}

// Selection holds the source identifiers of the selected layers, in the order
// they should be processed, and the layers that were left out.
type Selection struct {
	Sources []string
	Skipped []Skipped
}

// Skipped is a layer a provider could not select.
type Skipped struct {
	Name   string
	Reason string
}

// ReasonNoSource marks a layer without a data source.
const ReasonNoSource = "layer has no data source"

// Static is a fixed list of layer sources.
type Static []string

// SelectedLayers implements Provider.
func (s Static) SelectedLayers(context.Context) (Selection, error) {
	out := make([]string, len(s))
	copy(out, s)
	return Selection{Sources: out}, nil
}

// Project reads a project file listing map layers with their data sources
// and visibility. Only visible layers are selected.
type Project struct {
	Path string
}

// ProjectFile is the on-disk form of a project.
type ProjectFile struct {
	Layers []ProjectLayer `yaml:"layers"`
}

// ProjectLayer is one map layer. Visible defaults to true.
type ProjectLayer struct {
	Name    string `yaml:"name"`
	Source  string `yaml:"source"`
	Visible *bool  `yaml:"visible"`
}

// SelectedLayers implements Provider.
func (p Project) SelectedLayers(context.Context) (Selection, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return Selection{}, eris.Wrapf(err, "layers: read project %s", p.Path)
	}

	var pf ProjectFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return Selection{}, eris.Wrapf(err, "layers: decode project %s", p.Path)
	}

	var sel Selection
	for _, l := range pf.Layers {
		if l.Visible != nil && !*l.Visible {
			continue
		}
		if strings.TrimSpace(l.Source) == "" {
			zap.L().Debug("layers: layer has no data source", zap.String("layer", l.Name))
			sel.Skipped = append(sel.Skipped, Skipped{Name: l.Name, Reason: ReasonNoSource})
			continue
		}
		sel.Sources = append(sel.Sources, l.Source)
	}
	return sel, nil
}

// Dir selects every shapefile in a directory, sorted by file name.
type Dir struct {
	Path string
}

// SelectedLayers implements Provider.
func (d Dir) SelectedLayers(context.Context) (Selection, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return Selection{}, eris.Wrapf(err, "layers: read dir %s", d.Path)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".shp") {
			continue
		}
		out = append(out, filepath.Join(d.Path, e.Name()))
	}
	sort.Strings(out)
	return Selection{Sources: out}, nil
}
