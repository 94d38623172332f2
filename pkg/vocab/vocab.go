// Package vocab applies controlled-vocabulary canonicalization to free-text
// metadata fields. The cleaning sheet scopes each raw-term mapping to the
// column it appears in, so the same raw string may canonicalize differently
// per field. Lookups trim and case-fold first; canonical terms are fixed
// points under re-application.
package vocab

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/riboseqorg/ribocollate/pkg/errors"
	"github.com/riboseqorg/ribocollate/pkg/tables"
)

// Columns expected in the name-cleaning sheet.
const (
	ColumnScope     = "Column"
	ColumnRawName   = "Main Name"
	ColumnCleanName = "Clean Name"
)

// Required lists the cleaning sheet's required columns for the table loader.
func Required() []string {
	return []string{ColumnScope, ColumnRawName, ColumnCleanName}
}

// Policy controls what Normalize does with a term that has no mapping.
type Policy int

const (
	// Lenient passes unmapped terms through unchanged and records them.
	Lenient Policy = iota
	// Strict fails normalization with an UnmappedTermError.
	Strict
)

// Term is one raw-to-canonical mapping under a field scope.
type Term struct {
	Scope     string
	Raw       string
	Canonical string
}

// UnmappedTerm records a term encountered with no canonical mapping.
type UnmappedTerm struct {
	Scope string
	Term  string
	Count int
}

// Normalizer maps raw free-text terms to canonical terms per field scope.
// Built once from the cleaning sheet and immutable afterwards, except for
// the unmapped-term tally that feeds the end-of-run report.
type Normalizer struct {
	policy   Policy
	folder   cases.Caser
	scopes   map[string]map[string]string // scope -> folded raw -> canonical
	terms    []Term
	unmapped map[string]map[string]int // scope -> raw -> count
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithPolicy sets the unmapped-term policy.
func WithPolicy(p Policy) Option {
	return func(n *Normalizer) { n.policy = p }
}

// New builds a Normalizer from the loaded cleaning sheet.
func New(sheet *tables.Table, opts ...Option) (*Normalizer, error) {
	n := &Normalizer{
		policy:   Lenient,
		folder:   cases.Fold(),
		scopes:   make(map[string]map[string]string),
		unmapped: make(map[string]map[string]int),
	}
	for _, opt := range opts {
		opt(n)
	}

	for _, row := range sheet.Rows {
		scope := strings.TrimSpace(row.Get(ColumnScope))
		raw := row.Get(ColumnRawName)
		canonical := strings.TrimSpace(row.Get(ColumnCleanName))
		if scope == "" || canonical == "" {
			continue
		}

		terms := n.scopes[scope]
		if terms == nil {
			terms = make(map[string]string)
			n.scopes[scope] = terms
		}

		key := n.key(raw)
		if existing, ok := terms[key]; ok && existing != canonical {
			return nil, errors.NewValidationError(scope, raw,
				"raw term maps to more than one canonical term")
		}
		terms[key] = canonical

		// Canonical terms map to themselves so normalization is idempotent.
		// A canonical term that another row uses as a raw term with a
		// different target is the same conflict, not a silent overwrite.
		canonKey := n.key(canonical)
		if existing, ok := terms[canonKey]; ok && existing != canonical {
			return nil, errors.NewValidationError(scope, canonical,
				"raw term maps to more than one canonical term")
		}
		terms[canonKey] = canonical

		n.terms = append(n.terms, Term{Scope: scope, Raw: strings.TrimSpace(raw), Canonical: canonical})
	}

	return n, nil
}

// Normalize returns the canonical form of raw under the given field scope.
// An empty raw term returns empty without a lookup. An unrecognized scope is
// an error regardless of policy; an unmapped term follows the policy.
func (n *Normalizer) Normalize(scope, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	terms, ok := n.scopes[scope]
	if !ok {
		return "", errors.NewValidationError("scope", scope, "unrecognized vocabulary scope")
	}

	if canonical, ok := terms[n.key(raw)]; ok {
		return canonical, nil
	}

	if n.policy == Strict {
		return "", errors.NewUnmappedTermError(scope, raw)
	}

	n.recordUnmapped(scope, raw)
	return raw, nil
}

// HasScope reports whether the cleaning sheet declared the given scope.
func (n *Normalizer) HasScope(scope string) bool {
	_, ok := n.scopes[scope]
	return ok
}

// Scopes returns the declared field scopes in sorted order.
func (n *Normalizer) Scopes() []string {
	scopes := make([]string, 0, len(n.scopes))
	for scope := range n.scopes {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	return scopes
}

// Terms returns the loaded vocabulary terms in sheet order.
func (n *Normalizer) Terms() []Term {
	out := make([]Term, len(n.terms))
	copy(out, n.terms)
	return out
}

// Unmapped returns every term encountered without a mapping, sorted by scope
// then term, with occurrence counts. Non-fatal; surfaced in the run report.
func (n *Normalizer) Unmapped() []UnmappedTerm {
	var out []UnmappedTerm
	for scope, terms := range n.unmapped {
		for term, count := range terms {
			out = append(out, UnmappedTerm{Scope: scope, Term: term, Count: count})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scope != out[j].Scope {
			return out[i].Scope < out[j].Scope
		}
		return out[i].Term < out[j].Term
	})
	return out
}

// key builds the lookup key: trimmed and case-folded.
func (n *Normalizer) key(term string) string {
	return n.folder.String(strings.TrimSpace(term))
}

func (n *Normalizer) recordUnmapped(scope, raw string) {
	terms := n.unmapped[scope]
	if terms == nil {
		terms = make(map[string]int)
		n.unmapped[scope] = terms
	}
	terms[strings.TrimSpace(raw)]++
}
