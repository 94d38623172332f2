// Package accessions collapses equivalent run accessions (re-submitted or
// renamed runs) onto one canonical accession. The resolver is built once per
// run from the collapsed-accessions table and is a pure lookup afterwards:
// any accession outside the table resolves to itself.
package accessions

import (
	"sort"
	"strings"

	"github.com/riboseqorg/ribocollate/pkg/errors"
	"github.com/riboseqorg/ribocollate/pkg/tables"
)

// Columns expected in the collapsed-accessions table.
const (
	ColumnAccession = "Run"
	ColumnGroup     = "Group"
	ColumnCanonical = "Canonical"
)

// Required lists the collapsed table's required columns for the table loader.
// The Canonical marker column is optional.
func Required() []string {
	return []string{ColumnAccession, ColumnGroup}
}

// Resolver maps alias accessions to their canonical accession in one step.
type Resolver struct {
	canonical map[string]string
	groups    int
}

// Empty returns a resolver with no collapsed accessions; every accession
// resolves to itself. Used when no collapsed-accessions table is supplied.
func Empty() *Resolver {
	return &Resolver{canonical: make(map[string]string)}
}

// Build constructs a Resolver from the loaded collapsed-accessions table.
// Each group of equivalent accessions gets one canonical member: the row
// explicitly marked in the Canonical column if present, otherwise the
// lexicographically smallest member as a deterministic tie-break. Alias
// chains found in the input are flattened so every resolution is one hop.
func Build(collapsed *tables.Table) (*Resolver, error) {
	type group struct {
		members []string
		marked  string
	}

	groups := make(map[string]*group)
	order := make([]string, 0)

	for _, row := range collapsed.Rows {
		acc := strings.TrimSpace(row.Get(ColumnAccession))
		id := strings.TrimSpace(row.Get(ColumnGroup))
		if acc == "" || id == "" {
			continue
		}

		g := groups[id]
		if g == nil {
			g = &group{}
			groups[id] = g
			order = append(order, id)
		}
		g.members = append(g.members, acc)

		if isMarked(row.Get(ColumnCanonical)) {
			if g.marked != "" && g.marked != acc {
				return nil, errors.NewValidationError(ColumnGroup, id,
					"more than one accession marked canonical in group")
			}
			g.marked = acc
		}
	}

	canonical := make(map[string]string)
	for _, id := range order {
		g := groups[id]
		canon := g.marked
		if canon == "" {
			canon = smallest(g.members)
		}
		for _, member := range g.members {
			if existing, ok := canonical[member]; ok && existing != canon {
				return nil, errors.NewValidationError(ColumnAccession, member,
					"accession belongs to more than one group")
			}
			canonical[member] = canon
		}
	}

	if err := flatten(canonical); err != nil {
		return nil, err
	}

	return &Resolver{canonical: canonical, groups: len(groups)}, nil
}

// Resolve returns the canonical accession for acc. Accessions absent from
// the collapsed table resolve to themselves.
func (r *Resolver) Resolve(acc string) string {
	if canon, ok := r.canonical[acc]; ok {
		return canon
	}
	return acc
}

// IsAlias reports whether acc resolves to a different accession.
func (r *Resolver) IsAlias(acc string) bool {
	canon, ok := r.canonical[acc]
	return ok && canon != acc
}

// Aliases returns every non-canonical accession that resolves to canon,
// sorted. Useful for reporting which inputs were collapsed.
func (r *Resolver) Aliases(canon string) []string {
	var aliases []string
	for acc, c := range r.canonical {
		if c == canon && acc != canon {
			aliases = append(aliases, acc)
		}
	}
	sort.Strings(aliases)
	return aliases
}

// Groups returns the number of equivalence groups loaded.
func (r *Resolver) Groups() int {
	return r.groups
}

// Len returns the number of accessions covered by the table.
func (r *Resolver) Len() int {
	return len(r.canonical)
}

// flatten rewrites alias -> canonical entries whose canonical target is
// itself an alias, so every lookup is a single indirection. A cycle in the
// input is a data error.
func flatten(canonical map[string]string) error {
	for acc := range canonical {
		seen := map[string]bool{acc: true}
		canon := canonical[acc]
		for {
			next, ok := canonical[canon]
			if !ok || next == canon {
				break
			}
			if seen[next] {
				return errors.NewValidationError(ColumnAccession, acc,
					"cyclic accession equivalence")
			}
			seen[next] = true
			canon = next
		}
		canonical[acc] = canon
	}
	return nil
}

func isMarked(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "true", "yes", "1", "y", "canonical":
		return true
	}
	return false
}

func smallest(members []string) string {
	min := members[0]
	for _, m := range members[1:] {
		if m < min {
			min = m
		}
	}
	return min
}
