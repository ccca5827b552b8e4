package catalog

import (
	"context"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotVersion is bumped whenever the encoded layout changes.
const snapshotVersion = 1

// Snapshot is a static, in-memory catalog. It implements Source and can be
// persisted with Encode for offline use.
type Snapshot struct {
	Version    int          `msgpack:"version"`
	Tables     []Relation   `msgpack:"relations"`
	References []ForeignKey `msgpack:"foreign_keys"`
}

var _ Source = (*Snapshot)(nil)

// Relations implements Source.
func (s *Snapshot) Relations(context.Context) ([]Relation, error) {
	return s.Tables, nil
}

// ForeignKeys implements Source.
func (s *Snapshot) ForeignKeys(context.Context) ([]ForeignKey, error) {
	return s.References, nil
}

// Capture reads the full catalog of src into a Snapshot.
func Capture(ctx context.Context, src Source) (*Snapshot, error) {
	rels, err := src.Relations(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: capture relations: %w", err)
	}
	fks, err := src.ForeignKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: capture foreign keys: %w", err)
	}
	return &Snapshot{Version: snapshotVersion, Tables: rels, References: fks}, nil
}

// Encode writes the snapshot to w in msgpack format.
func (s *Snapshot) Encode(w io.Writer) error {
	enc := msgpack.NewEncoder(w)
	if s.Version == 0 {
		s.Version = snapshotVersion
	}
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("catalog: encode snapshot: %w", err)
	}
	return nil
}

// DecodeSnapshot reads a snapshot previously written by Encode.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := msgpack.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("catalog: decode snapshot: %w", err)
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("catalog: unsupported snapshot version %d", s.Version)
	}
	return &s, nil
}
