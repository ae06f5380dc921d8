// Package result aggregates scored factor updates per asset and builds the
// ordered output table.
package result

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/tank-risk/internal/factor"
)

// DefaultIDField is the asset id column of the output table.
const DefaultIDField = "FACILITYID"

// Cell is the scored value held for one asset and one output field pair.
type Cell struct {
	Factor   string
	Value    any
	Severity int
}

type asset struct {
	id    string
	cells map[factor.FieldPair]Cell
}

// Store holds per-asset results for a single run. It is not safe for
// concurrent writers; callers funnel all updates through one goroutine.
type Store struct {
	catalog *factor.Catalog
	idField string
	order   []*asset
	byID    map[string]*asset
}

// New creates an empty store. An empty idField uses DefaultIDField.
func New(catalog *factor.Catalog, idField string) *Store {
	if idField == "" {
		idField = DefaultIDField
	}
	return &Store{
		catalog: catalog,
		idField: idField,
		byID:    make(map[string]*asset),
	}
}

// Update records a scored value for assetID under factorName, creating the
// asset on first sight. Shared field pairs keep the first assignment and are
// only overwritten by a strictly greater severity.
func (s *Store) Update(assetID, factorName string, value any, severity int) error {
	def, err := s.catalog.Lookup(factorName)
	if err != nil {
		return eris.Wrap(err, "result: update")
	}

	a, ok := s.byID[assetID]
	if !ok {
		a = &asset{id: assetID, cells: make(map[factor.FieldPair]Cell)}
		s.byID[assetID] = a
		s.order = append(s.order, a)
	}

	key := def.Fields()
	if cur, ok := a.cells[key]; ok && def.Shared && severity <= cur.Severity {
		return nil
	}
	a.cells[key] = Cell{Factor: factorName, Value: value, Severity: severity}
	return nil
}

// Get returns the cell written for assetID through factorName's field pair.
func (s *Store) Get(assetID, factorName string) (Cell, bool) {
	def, err := s.catalog.Lookup(factorName)
	if err != nil {
		return Cell{}, false
	}
	a, ok := s.byID[assetID]
	if !ok {
		return Cell{}, false
	}
	c, ok := a.cells[def.Fields()]
	return c, ok
}

// Len returns the number of assets updated so far.
func (s *Store) Len() int {
	return len(s.order)
}

// Header returns the output header for factors processed in order: the id
// field followed by one value/severity pair per distinct field pair, in
// first-seen order.
func (s *Store) Header(order []string) ([]string, []factor.FieldPair, error) {
	header := []string{s.idField}
	var pairs []factor.FieldPair
	seen := make(map[factor.FieldPair]bool)

	for _, name := range order {
		def, err := s.catalog.Lookup(name)
		if err != nil {
			return nil, nil, eris.Wrap(err, "result: build header")
		}
		key := def.Fields()
		if seen[key] {
			continue
		}
		seen[key] = true
		pairs = append(pairs, key)
		header = append(header, key.Value, key.Severity)
	}
	return header, pairs, nil
}

// BuildRows returns the header and one row per asset in insertion order.
// Cells for factors not applied to an asset are nil.
func (s *Store) BuildRows(order []string) ([]string, [][]any, error) {
	header, pairs, err := s.Header(order)
	if err != nil {
		return nil, nil, err
	}

	rows := make([][]any, 0, len(s.order))
	for _, a := range s.order {
		row := make([]any, 0, len(header))
		row = append(row, a.id)
		for _, p := range pairs {
			c, ok := a.cells[p]
			if !ok {
				row = append(row, nil, nil)
				continue
			}
			row = append(row, c.Value, c.Severity)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}
