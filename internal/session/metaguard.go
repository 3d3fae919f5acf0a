package session

import (
	"context"

	"github.com/sqldeck/sqldeck/internal/driver"
	"github.com/sqldeck/sqldeck/internal/errs"
)

// guardedMetadata decorates a raw driver.Metadata so calls behave uniformly
// across drivers with gaps in their optional metadata. Optional calls that
// fail with errs.ErrKindUnsupported yield neutral defaults; required calls
// (Tables) pass through untouched. The session stores only the guarded
// handle — dialect and schema queries never see the raw one.
type guardedMetadata struct {
	raw driver.Metadata
}

// guardMetadata wraps raw in the interception layer.
func guardMetadata(raw driver.Metadata) driver.Metadata {
	return &guardedMetadata{raw: raw}
}

// defaultIdentifierQuote is assumed when a driver cannot say. Double quote
// is the standard SQL identifier quote.
const defaultIdentifierQuote = `"`

func (g *guardedMetadata) IdentifierQuoteString() (string, error) {
	s, err := g.raw.IdentifierQuoteString()
	if errs.IsUnsupported(err) {
		return defaultIdentifierQuote, nil
	}
	return s, err
}

func (g *guardedMetadata) DatabaseProductName() (string, error) {
	s, err := g.raw.DatabaseProductName()
	if errs.IsUnsupported(err) {
		return "", nil
	}
	return s, err
}

func (g *guardedMetadata) DatabaseProductVersion() (string, error) {
	s, err := g.raw.DatabaseProductVersion()
	if errs.IsUnsupported(err) {
		return "", nil
	}
	return s, err
}

func (g *guardedMetadata) SQLKeywords() (string, error) {
	s, err := g.raw.SQLKeywords()
	if errs.IsUnsupported(err) {
		return "", nil
	}
	return s, err
}

func (g *guardedMetadata) StoresUpperCaseIdentifiers() (bool, error) {
	b, err := g.raw.StoresUpperCaseIdentifiers()
	if errs.IsUnsupported(err) {
		return false, nil
	}
	return b, err
}

func (g *guardedMetadata) DriverName() (string, error) {
	s, err := g.raw.DriverName()
	if errs.IsUnsupported(err) {
		return "", nil
	}
	return s, err
}

func (g *guardedMetadata) DriverVersion() (string, error) {
	s, err := g.raw.DriverVersion()
	if errs.IsUnsupported(err) {
		return "", nil
	}
	return s, err
}

func (g *guardedMetadata) Tables(ctx context.Context, catalog, schemaPattern, namePattern string, types []string) ([]driver.TableRow, error) {
	return g.raw.Tables(ctx, catalog, schemaPattern, namePattern, types)
}
