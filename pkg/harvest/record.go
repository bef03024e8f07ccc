// Package harvest defines the raw record type fed into mapping runs and
// helpers for reading record streams.
package harvest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/opencontainers/go-digest"
)

// ErrBadRecord indicates a record line that is not a valid document.
var ErrBadRecord = errors.New("malformed record")

// Record is one harvested source document. The engine treats Content as an
// opaque byte payload; the mapping's format decides how to read it.
type Record struct {
	// ID is the harvest-assigned identifier, when the source provides one.
	ID string
	// ContentType names the serialization of Content (e.g. application/json).
	ContentType string
	// Content is the raw document payload.
	Content []byte
}

// Digest returns the content-addressed identity of the record, used for
// provenance stamping on mapped output.
func (r Record) Digest() digest.Digest {
	return digest.FromBytes(r.Content)
}

// Ref returns a short human-readable reference for the record: its ID when
// present, else the encoded digest.
func (r Record) Ref() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Digest().Encoded()[:12]
}

// ReadNDJSON reads newline-delimited JSON records from r. Blank lines and
// lines starting with # are skipped. Each remaining line becomes one Record;
// when the document is an object with a string "id" member, that value is
// lifted into Record.ID.
func ReadNDJSON(r io.Reader) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !json.Valid([]byte(line)) {
			return nil, fmt.Errorf("line %d: %w: not valid JSON", lineNo, ErrBadRecord)
		}
		records = append(records, Record{
			ID:          probeID([]byte(line)),
			ContentType: "application/json",
			Content:     []byte(line),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning records: %w", err)
	}
	return records, nil
}

// probeID extracts a top-level string "id" member, if the document has one.
func probeID(content []byte) string {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(content, &probe); err != nil {
		return ""
	}
	return probe.ID
}
