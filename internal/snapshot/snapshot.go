// Package snapshot exports a session's catalog view — product, dialect
// summary, table names — as a YAML document to an object store, so tooling
// can inspect what a connection looked like without reaching the database.
//
// Export is strictly an observer: it reads the session's cached state and
// never destabilizes it.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/sqldeck/sqldeck/internal/errs"
	"github.com/sqldeck/sqldeck/internal/session"
)

// Store is the object storage a snapshot is written to. Providers (MinIO,
// …) implement it; callers depend only on this interface.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Put writes data under key inside bucket.
	Put(ctx context.Context, bucket, key string, data []byte) error

	// Get reads the object at key inside bucket.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Close releases any held resources.
	Close() error
}

// Document is one catalog snapshot.
type Document struct {
	URL      string    `yaml:"url"`
	Nickname string    `yaml:"nickname,omitempty"`
	TakenAt  time.Time `yaml:"taken_at"`

	// Dialect summary; all empty/false when the session has no dialect.
	Product         string `yaml:"product,omitempty"`
	IdentifierQuote string `yaml:"identifier_quote,omitempty"`
	StoresUpper     bool   `yaml:"stores_upper_case_identifiers,omitempty"`
	KeywordCount    int    `yaml:"keyword_count,omitempty"`

	CurrentSchema string   `yaml:"current_schema,omitempty"`
	Tables        []string `yaml:"tables"`
}

// Capture builds a Document from the session's current state. Table names
// come from the cache (sorted, deduplicated); the dialect is optional.
func Capture(ctx context.Context, sess *session.Session) *Document {
	doc := &Document{
		URL:           sess.URL(),
		Nickname:      sess.Nickname(),
		TakenAt:       time.Now().UTC(),
		CurrentSchema: sess.CurrentSchema(ctx),
		Tables:        sess.TableNames(ctx, false),
	}
	if d := sess.Dialect(); d != nil {
		doc.Product = d.ProductName()
		doc.IdentifierQuote, _ = d.IdentifierQuote()
		doc.StoresUpper = d.StoresUpperCaseIdentifiers()
		doc.KeywordCount = len(d.Keywords())
	}
	return doc
}

// Marshal encodes the document as YAML.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to encode snapshot", err)
	}
	if err := enc.Close(); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to encode snapshot", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a stored snapshot document.
func Unmarshal(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid snapshot document", err)
	}
	return &doc, nil
}

// Export captures the session's catalog view and uploads it to store under
// a timestamped, uuid-suffixed key. The key is returned for later Get.
func Export(ctx context.Context, sess *session.Session, store Store, bucket string) (string, error) {
	doc := Capture(ctx, sess)
	data, err := doc.Marshal()
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("catalog/%s/%s.yaml", doc.TakenAt.Format("2006-01-02"), uuid.NewString())
	if err := store.Put(ctx, bucket, key, data); err != nil {
		return "", err
	}
	return key, nil
}
