package factor

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
)

// Catalog is an immutable registry of risk factor definitions. It is safe for
// concurrent readers.
type Catalog struct {
	defs    []Definition
	byName  map[string]int
	aliases map[string]string
}

// NewCatalog builds a catalog from defs in registration order. Field pairs
// declared by more than one definition are marked Shared. aliases maps
// alternate source names (matched case-insensitively) to definition names.
func NewCatalog(defs []Definition, aliases map[string]string) (*Catalog, error) {
	c := &Catalog{
		defs:    make([]Definition, 0, len(defs)),
		byName:  make(map[string]int, len(defs)),
		aliases: make(map[string]string, len(aliases)),
	}

	for _, d := range defs {
		if i, ok := c.byName[d.Name]; ok {
			c.defs[i] = d
			continue
		}
		c.byName[d.Name] = len(c.defs)
		c.defs = append(c.defs, d)
	}

	owners := make(map[FieldPair]int)
	for _, d := range c.defs {
		owners[d.Fields()]++
	}
	for i := range c.defs {
		c.defs[i].Shared = owners[c.defs[i].Fields()] > 1
		c.defs[i].Required = append([]string(nil), c.defs[i].Required...)
	}

	for alias, name := range aliases {
		if _, ok := c.byName[name]; !ok {
			return nil, eris.Errorf("factor: alias %q points at unknown factor %q", alias, name)
		}
		c.aliases[fold(alias)] = name
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Merge returns a new catalog with defs added; a definition with an existing
// name replaces the old one in place.
func (c *Catalog) Merge(defs []Definition, aliases map[string]string) (*Catalog, error) {
	all := append(c.Definitions(), defs...)
	merged := make(map[string]string, len(c.aliases)+len(aliases))
	for k, v := range c.aliases {
		merged[k] = v
	}
	for k, v := range aliases {
		merged[k] = v
	}
	return NewCatalog(all, merged)
}

// Lookup returns the definition registered under name.
func (c *Catalog) Lookup(name string) (Definition, error) {
	i, ok := c.byName[name]
	if !ok {
		return Definition{}, &UnknownFactorError{Name: name}
	}
	return c.defs[i], nil
}

// Resolve maps a layer source to a definition. The full source and the parsed
// name are tried as aliases before the parsed name is looked up directly.
func (c *Catalog) Resolve(source string) (Definition, error) {
	if name, ok := c.aliases[fold(source)]; ok {
		return c.Lookup(name)
	}
	parsed := ParseName(source)
	if _, ok := c.byName[parsed]; ok {
		return c.Lookup(parsed)
	}
	if name, ok := c.aliases[fold(parsed)]; ok {
		return c.Lookup(name)
	}
	return Definition{}, &UnknownFactorError{Name: parsed}
}

// Definitions returns a copy of all definitions in registration order.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Aliases returns the alias table keyed by folded alias.
func (c *Catalog) Aliases() map[string]string {
	out := make(map[string]string, len(c.aliases))
	for k, v := range c.aliases {
		out[k] = v
	}
	return out
}

// Validate checks that every definition is complete and consistent.
func (c *Catalog) Validate() error {
	var errs []string

	for _, d := range c.defs {
		if strings.TrimSpace(d.Name) == "" {
			errs = append(errs, "definition with empty name")
			continue
		}
		if d.Kind < InPolygon || d.Kind > Attribute {
			errs = append(errs, fmt.Sprintf("%s: unknown kind %d", d.Name, d.Kind))
		}
		if d.ValueField == "" || d.SeverityField == "" {
			errs = append(errs, fmt.Sprintf("%s: value and severity fields are required", d.Name))
		}
		if d.ValueField != "" && d.ValueField == d.SeverityField {
			errs = append(errs, fmt.Sprintf("%s: value and severity fields must differ", d.Name))
		}
		if d.Kind == Attribute && len(d.Required) == 0 {
			errs = append(errs, fmt.Sprintf("%s: attribute factors need required columns", d.Name))
		}
		if d.Score == nil {
			errs = append(errs, fmt.Sprintf("%s: no scoring rule", d.Name))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("factor: catalog validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
