// Package catalog keeps decoded-and-validated registry containers in a local
// pebble database.
//
// Each container is stored once per distinct content: the raw bytes are
// zstd-compressed under their BLAKE3 digest, and a CBOR entry keyed by a
// KSUID records the name, sizes and a Summary taken at insert time.
package catalog

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/assetreg/pkg/codec"
	"github.com/ssargent/assetreg/pkg/registry"
	"github.com/zeebo/blake3"
)

var (
	// ErrNotFound is returned when no entry has the requested id.
	ErrNotFound = errors.New("catalog entry not found")
	// ErrInvalidID is returned for ids that are not KSUIDs.
	ErrInvalidID = errors.New("invalid catalog id")
	// ErrInvalidRegistry is returned when a container decodes but its
	// cross-references do not resolve.
	ErrInvalidRegistry = errors.New("registry failed validation")
	// ErrDigestMismatch is returned when a stored blob no longer hashes to its digest.
	ErrDigestMismatch = errors.New("stored blob digest mismatch")
)

// Entry describes one stored container.
type Entry struct {
	ID         string           `json:"id" yaml:"id" cbor:"id"`
	Name       string           `json:"name" yaml:"name" cbor:"name"`
	Digest     string           `json:"digest" yaml:"digest" cbor:"digest"`
	Size       int64            `json:"size" yaml:"size" cbor:"size"`
	StoredSize int64            `json:"stored_size" yaml:"stored_size" cbor:"stored_size"`
	AddedAt    time.Time        `json:"added_at" yaml:"added_at" cbor:"added_at"`
	Summary    registry.Summary `json:"summary" yaml:"summary" cbor:"summary"`
}

// Catalog is safe for concurrent use.
type Catalog struct {
	kv     *kv
	mu     sync.Mutex
	logger *slog.Logger
	limits codec.Limits
	now    func() time.Time
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger for catalog operations.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLimits sets the decode limits applied to inserted containers.
func WithLimits(l codec.Limits) Option {
	return func(c *Catalog) { c.limits = l }
}

// WithClock replaces time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

// Open opens or creates the catalog at dir.
func Open(dir string, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	store, err := openKV(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog at %s: %w", dir, err)
	}
	c.kv = store
	return c, nil
}

// Close releases the underlying database.
func (c *Catalog) Close() error {
	return c.kv.close()
}

func (c *Catalog) decodeOptions() []registry.Option {
	return []registry.Option{registry.WithLimits(c.limits), registry.WithLogger(c.logger)}
}

// Put decodes and validates raw, then stores it under name. When identical
// bytes are already stored the existing entry is returned with created false.
func (c *Catalog) Put(name string, raw []byte) (Entry, bool, error) {
	reg, err := registry.DecodeBytes(raw, c.decodeOptions()...)
	if err != nil {
		return Entry{}, false, err
	}
	if err := reg.Validate(); err != nil {
		return Entry{}, false, fmt.Errorf("%w: %q: %w", ErrInvalidRegistry, name, err)
	}

	digest := blake3.Sum256(raw)

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.kv.get(digestKey(digest))
	switch {
	case err == nil:
		id, err := ksuid.FromBytes(existing)
		if err != nil {
			return Entry{}, false, fmt.Errorf("corrupt digest index: %w", err)
		}
		e, err := c.kv.getEntry(id)
		if err != nil {
			return Entry{}, false, err
		}
		c.logger.Debug("registry already stored", "name", name, "id", e.ID, "digest", e.Digest)
		return e, false, nil
	case !errors.Is(err, ErrNotFound):
		return Entry{}, false, err
	}

	blob := compress(raw)
	id := ksuid.New()
	e := Entry{
		ID:         id.String(),
		Name:       name,
		Digest:     hex.EncodeToString(digest[:]),
		Size:       int64(len(raw)),
		StoredSize: int64(len(blob)),
		AddedAt:    c.now().UTC(),
		Summary:    reg.Summarize(),
	}
	meta, err := encMode.Marshal(e)
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to encode entry: %w", err)
	}

	b := c.kv.db.NewBatch()
	defer b.Close()
	if err := b.Set(entryKey(id), meta, nil); err != nil {
		return Entry{}, false, err
	}
	if err := b.Set(blobKey(digest), blob, nil); err != nil {
		return Entry{}, false, err
	}
	if err := b.Set(digestKey(digest), id.Bytes(), nil); err != nil {
		return Entry{}, false, err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return Entry{}, false, fmt.Errorf("failed to store registry: %w", err)
	}

	c.logger.Info("stored registry", "name", name, "id", e.ID, "size", e.Size, "stored_size", e.StoredSize)
	return e, true, nil
}

func parseID(id string) (ksuid.KSUID, error) {
	k, err := ksuid.Parse(id)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("%w %q: %v", ErrInvalidID, id, err)
	}
	return k, nil
}

func parseDigest(s string) ([32]byte, error) {
	var d [32]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(d) {
		return d, fmt.Errorf("corrupt entry digest %q", s)
	}
	copy(d[:], b)
	return d, nil
}

// Get returns the entry for id.
func (c *Catalog) Get(id string) (Entry, error) {
	k, err := parseID(id)
	if err != nil {
		return Entry{}, err
	}
	return c.kv.getEntry(k)
}

// Raw returns the original container bytes for id.
func (c *Catalog) Raw(id string) ([]byte, error) {
	e, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	digest, err := parseDigest(e.Digest)
	if err != nil {
		return nil, err
	}
	blob, err := c.kv.get(blobKey(digest))
	if err != nil {
		return nil, fmt.Errorf("blob for %s: %w", id, err)
	}
	raw, err := decompress(blob, e.Size)
	if err != nil {
		return nil, err
	}
	if blake3.Sum256(raw) != digest {
		return nil, fmt.Errorf("%w: %s", ErrDigestMismatch, id)
	}
	return raw, nil
}

// Load decodes the stored container for id.
func (c *Catalog) Load(id string) (*registry.Registry, error) {
	raw, err := c.Raw(id)
	if err != nil {
		return nil, err
	}
	return registry.DecodeBytes(raw, c.decodeOptions()...)
}

// List returns every entry, oldest first.
func (c *Catalog) List() ([]Entry, error) {
	var entries []Entry
	err := c.kv.scanEntries(func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Count returns the number of stored entries.
func (c *Catalog) Count() (int, error) {
	n := 0
	err := c.kv.scanEntries(func(Entry) error {
		n++
		return nil
	})
	return n, err
}

// Delete removes the entry for id together with its blob.
func (c *Catalog) Delete(id string) error {
	k, err := parseID(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.kv.getEntry(k)
	if err != nil {
		return err
	}
	digest, err := parseDigest(e.Digest)
	if err != nil {
		return err
	}

	b := c.kv.db.NewBatch()
	defer b.Close()
	if err := b.Delete(entryKey(k), nil); err != nil {
		return err
	}
	if err := b.Delete(blobKey(digest), nil); err != nil {
		return err
	}
	if err := b.Delete(digestKey(digest), nil); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}

	c.logger.Info("deleted registry", "id", id, "name", e.Name)
	return nil
}
