package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/nao1215/routecrawl/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Exporter publishes a finished run.
type Exporter interface {
	// Name identifies the exporter in logs.
	Name() string

	// Export publishes every result of report.
	Export(ctx context.Context, report *model.RunReport) error

	// Close releases the exporter's connections.
	Close() error
}

// Record is the exported form of a stored result.
type Record struct {
	URL      string    `json:"url"`
	Links    []string  `json:"links"`
	Hits     int       `json:"hits"`
	BodyHash string    `json:"body_hash,omitempty"`
	BodySize int       `json:"body_size"`
	StoredAt time.Time `json:"stored_at"`

	// Body is only set when the sink accepts large payloads.
	Body []byte `json:"body,omitempty"`
}

// newRecord converts r, copying the body only when withBody is set.
func newRecord(r *model.Result, withBody bool) Record {
	rec := Record{
		URL:      r.URL,
		Links:    r.Links,
		Hits:     r.Hits,
		BodyHash: r.BodyHash,
		BodySize: len(r.Body),
		StoredAt: r.StoredAt,
	}
	if withBody {
		rec.Body = r.Body
	}
	return rec
}

// urlHash returns the hex SHA-256 of a URL, used as a stable object key.
func urlHash(u string) string {
	sum := sha256.Sum256([]byte(u))
	return hex.EncodeToString(sum[:])
}
