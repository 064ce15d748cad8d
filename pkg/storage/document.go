package storage

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"github.com/orneryd/p3if/pkg/model"
)

// SchemaVersion is written into exported metadata.
const SchemaVersion = "1.0"

// Format selects the document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from the file extension (.json, .yaml, .yml).
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
}

// Document is the import/export format.
//
// Example (JSON):
//
//	{
//	  "patterns": [
//	    {"type": "property", "id": "p1", "name": "Temperature", "domain": "Manufacturing", ...}
//	  ],
//	  "relationships": [
//	    {"id": "r1", "property_id": "p1", "process_id": "c1", "strength": 0.8, ...}
//	  ],
//	  "framework_metadata": {"exported_at": "...", "schema_version": "1.0", ...}
//	}
type Document struct {
	Patterns          []model.PatternRecord      `json:"patterns" yaml:"patterns"`
	Relationships     []model.RelationshipRecord `json:"relationships" yaml:"relationships"`
	FrameworkMetadata *Metadata                  `json:"framework_metadata,omitempty" yaml:"framework_metadata,omitempty"`
}

// Metadata summarizes an export. Checksum is the hex blake2b-256 digest of
// the canonical JSON encoding of the patterns and relationships.
type Metadata struct {
	ExportedAt         time.Time `json:"exported_at" yaml:"exported_at"`
	SchemaVersion      string    `json:"schema_version" yaml:"schema_version"`
	TotalPatterns      int       `json:"total_patterns" yaml:"total_patterns"`
	TotalRelationships int       `json:"total_relationships" yaml:"total_relationships"`
	Domains            []string  `json:"domains" yaml:"domains"`
	Checksum           string    `json:"checksum" yaml:"checksum"`
}

// ImportResult reports an import. ChecksumMismatch is set when the document
// carried a checksum that does not match its contents; the import still
// proceeds.
type ImportResult struct {
	Patterns         BatchResult `json:"patterns" yaml:"patterns"`
	Relationships    BatchResult `json:"relationships" yaml:"relationships"`
	ChecksumMismatch bool        `json:"checksum_mismatch" yaml:"checksum_mismatch"`
}

// Document returns the store contents in document form.
func (s *Store) Document(includeMetadata bool) (*Document, error) {
	s.mu.Lock()
	patterns := s.patternsLocked(s.patternOrder)
	rels := s.relationshipsLocked(s.relOrder)
	domains := s.indexes.Domains()
	s.mu.Unlock()

	doc := &Document{
		Patterns:      make([]model.PatternRecord, 0, len(patterns)),
		Relationships: make([]model.RelationshipRecord, 0, len(rels)),
	}
	for _, p := range patterns {
		doc.Patterns = append(doc.Patterns, p.ToRecord())
	}
	for _, r := range rels {
		doc.Relationships = append(doc.Relationships, r.ToRecord())
	}

	if includeMetadata {
		sum, err := doc.Checksum()
		if err != nil {
			return nil, err
		}
		doc.FrameworkMetadata = &Metadata{
			ExportedAt:         time.Now().UTC(),
			SchemaVersion:      SchemaVersion,
			TotalPatterns:      len(doc.Patterns),
			TotalRelationships: len(doc.Relationships),
			Domains:            domains,
			Checksum:           sum,
		}
	}
	return doc, nil
}

// Checksum returns the hex blake2b-256 digest of the document contents,
// excluding metadata.
func (d *Document) Checksum() (string, error) {
	payload := struct {
		Patterns      []model.PatternRecord      `json:"patterns"`
		Relationships []model.RelationshipRecord `json:"relationships"`
	}{d.Patterns, d.Relationships}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding checksum payload: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Export writes the store to w.
func (s *Store) Export(w io.Writer, format Format, includeMetadata bool) error {
	doc, err := s.Document(includeMetadata)
	if err != nil {
		return err
	}
	return EncodeDocument(w, format, doc)
}

// EncodeDocument writes doc to w in the given format.
func EncodeDocument(w io.Writer, format Format, doc *Document) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(doc); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(doc); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return nil
}

// DecodeDocument reads a document from r.
func DecodeDocument(r io.Reader, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decoding YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return &doc, nil
}

// Import reads a document from r and adds its contents with batch
// semantics: patterns first, then relationships, every item attempted.
// Only a malformed document returns an error.
func (s *Store) Import(r io.Reader, format Format) (ImportResult, error) {
	doc, err := DecodeDocument(r, format)
	if err != nil {
		return ImportResult{}, err
	}
	return s.ImportDocument(doc), nil
}

// ImportDocument adds the contents of doc to the store.
func (s *Store) ImportDocument(doc *Document) ImportResult {
	var res ImportResult

	if doc.FrameworkMetadata != nil && doc.FrameworkMetadata.Checksum != "" {
		if sum, err := doc.Checksum(); err != nil || sum != doc.FrameworkMetadata.Checksum {
			res.ChecksumMismatch = true
			s.logger.Warn("import checksum mismatch")
		}
	}

	// Records that fail to decode are reported next to the store's own
	// rejections, so the batch is built by hand.
	patterns := make([]*model.Pattern, 0, len(doc.Patterns))
	var decodeFailures BatchResult
	for _, rec := range doc.Patterns {
		p, err := model.PatternFromRecord(rec)
		if err != nil {
			item := rec.ID
			if item == "" {
				item = rec.Name
			}
			decodeFailures.record(item, err)
			continue
		}
		patterns = append(patterns, p)
	}

	res.Patterns = s.AddPatternsBatch(patterns)
	res.Patterns.Total += decodeFailures.Total
	res.Patterns.Failed += decodeFailures.Failed
	res.Patterns.Errors = append(decodeFailures.Errors, res.Patterns.Errors...)

	rels := make([]*model.Relationship, 0, len(doc.Relationships))
	for _, rec := range doc.Relationships {
		rels = append(rels, model.RelationshipFromRecord(rec))
	}
	res.Relationships = s.AddRelationshipsBatch(rels)
	return res
}

// ExportFile writes the store to path, choosing the format by extension.
func (s *Store) ExportFile(path string, includeMetadata bool) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := s.Export(file, format, includeMetadata); err != nil {
		return err
	}
	return file.Close()
}

// ImportFile reads a document from path, choosing the format by extension.
func (s *Store) ImportFile(path string) (ImportResult, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return ImportResult{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	return s.Import(file, format)
}
