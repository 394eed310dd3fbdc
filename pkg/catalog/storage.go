package catalog

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
	"github.com/segmentio/ksuid"
)

// Key prefixes. Entries sort by KSUID, which orders them by creation time.
const (
	entryPrefix  = "e/"
	blobPrefix   = "b/"
	digestPrefix = "d/"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	encMode, err = opts.EncMode()
	if err != nil {
		panic("catalog: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("catalog: CBOR decoder initialization failed: " + err.Error())
	}
}

func entryKey(id ksuid.KSUID) []byte {
	return append([]byte(entryPrefix), id.Bytes()...)
}

func blobKey(digest [32]byte) []byte {
	return append([]byte(blobPrefix), digest[:]...)
}

func digestKey(digest [32]byte) []byte {
	return append([]byte(digestPrefix), digest[:]...)
}

// prefixUpperBound returns the smallest key greater than every key with prefix p.
func prefixUpperBound(p string) []byte {
	end := []byte(p)
	end[len(end)-1]++
	return end
}

// kv is the pebble layer under the catalog.
type kv struct {
	db *pebble.DB
}

func openKV(path string) (*kv, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &kv{db: db}, nil
}

// get returns a copy of the value; pebble's slice is only valid until the closer runs.
func (s *kv) get(key []byte) ([]byte, error) {
	data, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *kv) getEntry(id ksuid.KSUID) (Entry, error) {
	data, err := s.get(entryKey(id))
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := decMode.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("corrupt entry %s: %w", id, err)
	}
	return e, nil
}

func (s *kv) scanEntries(fn func(Entry) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(entryPrefix),
		UpperBound: prefixUpperBound(entryPrefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var e Entry
		if err := decMode.Unmarshal(iter.Value(), &e); err != nil {
			return fmt.Errorf("corrupt entry at key %x: %w", iter.Key(), err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (s *kv) close() error {
	return s.db.Close()
}
