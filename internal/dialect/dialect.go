// Package dialect models the SQL surface of a connected database: its
// reserved words, identifier quoting, and identifier case folding.
//
// A Dialect is built once per successful connect from the connection's
// metadata and never mutated; a reconnect replaces it wholesale.
package dialect

import (
	"sort"
	"strings"
)

// Dialect is an immutable description of one connection's SQL surface.
type Dialect struct {
	words       []string            // as reported, sorted, deduplicated
	lookup      map[string]struct{} // upper-cased for case-insensitive checks
	quote       string              // single character, or "" when quoting is unsupported
	product     string
	storesUpper bool
}

// New constructs a Dialect. quote must be "" or a single character; the
// caller (session dialect init) enforces the single-character rule and
// reports longer quote strings before passing "" here.
func New(keywords []string, quote, product string, storesUpper bool) *Dialect {
	lookup := make(map[string]struct{}, len(keywords))
	words := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		words = append(words, kw)
		lookup[strings.ToUpper(kw)] = struct{}{}
	}
	sort.Strings(words)
	return &Dialect{
		words:       words,
		lookup:      lookup,
		quote:       quote,
		product:     product,
		storesUpper: storesUpper,
	}
}

// SplitKeywords splits a comma-separated keyword list as reported by
// metadata into individual words. Blanks are dropped; duplicates collapse
// when the result is handed to New.
func SplitKeywords(list string) []string {
	if list == "" {
		return nil
	}
	parts := strings.Split(list, ",")
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			words = append(words, p)
		}
	}
	return words
}

// IsKeyword reports whether word is a reserved word for this dialect.
// The check is case-insensitive.
func (d *Dialect) IsKeyword(word string) bool {
	_, ok := d.lookup[strings.ToUpper(word)]
	return ok
}

// Keywords returns the reserved words in the case metadata reported them,
// sorted and deduplicated.
func (d *Dialect) Keywords() []string {
	out := make([]string, len(d.words))
	copy(out, d.words)
	return out
}

// IdentifierQuote returns the identifier quote character and whether the
// dialect supports quoting at all.
func (d *Dialect) IdentifierQuote() (string, bool) {
	return d.quote, d.quote != ""
}

// ProductName returns the database product name reported at connect time.
func (d *Dialect) ProductName() string {
	return d.product
}

// StoresUpperCaseIdentifiers reports whether unquoted identifiers fold to
// upper case on this connection.
func (d *Dialect) StoresUpperCaseIdentifiers() bool {
	return d.storesUpper
}

// QuoteIdentifier wraps name in the dialect's quote character, doubling any
// embedded quotes. When the dialect supports no quoting, name is returned
// unchanged.
func (d *Dialect) QuoteIdentifier(name string) string {
	if d.quote == "" {
		return name
	}
	return d.quote + strings.ReplaceAll(name, d.quote, d.quote+d.quote) + d.quote
}
