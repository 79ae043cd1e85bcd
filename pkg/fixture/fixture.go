// Package fixture exports recorded sessions as standalone JSON
// documents, for use as test fixtures and for handing a session to
// tooling that does not read the JSONL store. Every document is
// validated against a schema on both export and load, so a fixture
// that parses is also structurally sound.
package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/dimasfr/logtrail/pkg/sessionlog"
)

// ErrInvalidFixture is returned when a document fails schema
// validation.
var ErrInvalidFixture = errors.New("invalid fixture document")

// Fixture is one exported session.
type Fixture struct {
	Session    sessionlog.Session `json:"session"`
	Entries    []sessionlog.Entry `json:"entries"`
	ExportedAt time.Time          `json:"exported_at"`
}

const fixtureSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["session", "entries", "exported_at"],
	"properties": {
		"session": {
			"type": "object",
			"required": ["id", "key", "state", "started_at"],
			"properties": {
				"id": {"type": "string", "pattern": "^[0-9a-z_]+$"},
				"key": {"type": "string", "minLength": 1},
				"state": {"type": "string", "enum": ["active", "archived"]},
				"started_at": {"type": "string"}
			}
		},
		"entries": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "session_id", "kind", "timestamp"],
				"properties": {
					"id": {"type": "string", "pattern": "^[0-9a-z_]+$"},
					"session_id": {"type": "string", "pattern": "^[0-9a-z_]+$"},
					"kind": {"type": "string", "enum": ["command", "note", "event"]},
					"timestamp": {"type": "string"}
				}
			}
		},
		"exported_at": {"type": "string"}
	}
}`

var schema = gojsonschema.NewStringLoader(fixtureSchema)

// Writer exports fixtures into a directory.
type Writer struct {
	dir string
}

// NewWriter creates the fixtures directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "logtrail-fixtures")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create fixtures directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the fixtures directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write validates and writes one fixture, returning its path. The
// write is atomic: the document lands under a temporary name and is
// renamed into place. The filename derives from the session ID, which
// is filename-safe by the identifier contract.
func (w *Writer) Write(sess sessionlog.Session, entries []sessionlog.Entry) (string, error) {
	doc := Fixture{
		Session:    sess,
		Entries:    entries,
		ExportedAt: time.Now().UTC(),
	}
	if doc.Entries == nil {
		doc.Entries = []sessionlog.Entry{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal fixture: %w", err)
	}

	if err := validate(data); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(w.dir, ".fixture-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp fixture: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write fixture: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close fixture: %w", err)
	}

	path := filepath.Join(w.dir, sess.ID+".fixture.json")
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to move fixture into place: %w", err)
	}

	log.Info().Str("session_id", sess.ID).Str("path", path).Msg("Fixture written")
	return path, nil
}

// Load reads and validates a fixture document.
func Load(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("failed to read fixture: %w", err)
	}

	if err := validate(data); err != nil {
		return Fixture{}, err
	}

	var doc Fixture
	if err := json.Unmarshal(data, &doc); err != nil {
		return Fixture{}, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return doc, nil
}

func validate(data []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("fixture validation failed: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %v", ErrInvalidFixture, msgs)
	}
	return nil
}
