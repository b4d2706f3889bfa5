package schedule

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/roster/core"
)

// key suffixes
const (
	entriesKey    = "schedule"
	backupKey     = "schedule:backup"
	backupMetaKey = "schedule:backup:meta"
	undoKey       = "schedule:undo"
	redoKey       = "schedule:redo"
)

// store reads & writes whole JSON blobs, one key each.
type store struct {
	kv     core.KVStore
	prefix string
}

func (s store) key(k string) string { return s.prefix + k }

func (s store) getRaw(ctx context.Context, k string) ([]byte, error) {
	data, err := s.kv.Get(ctx, s.key(k))
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s store) getJSON(ctx context.Context, k string, v interface{}) (bool, error) {
	data, err := s.getRaw(ctx, k)
	if err != nil {
		if errors.Cause(err) == core.ErrKeyNotFound {
			return false, nil
		}
		return false, errors.Wrapf(err, "getting %s", k)
	}
	if err = json.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(err, "decoding %s", k)
	}
	return true, nil
}

func (s store) setJSON(ctx context.Context, k string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", k)
	}
	return errors.Wrapf(s.kv.Set(ctx, s.key(k), data), "setting %s", k)
}

func (s store) entries(ctx context.Context) ([]Entry, error) {
	entries := make([]Entry, 0)
	if _, err := s.getJSON(ctx, entriesKey, &entries); err != nil {
		return nil, err
	}
	if entries == nil { // stored as JSON null
		entries = make([]Entry, 0)
	}
	return entries, nil
}

func (s store) setEntries(ctx context.Context, entries []Entry) error {
	if entries == nil {
		entries = make([]Entry, 0)
	}
	return s.setJSON(ctx, entriesKey, entries)
}

// snapshots returns a history stack; the most recent snapshot is last.
func (s store) snapshots(ctx context.Context, k string) ([][]Entry, error) {
	stack := make([][]Entry, 0)
	if _, err := s.getJSON(ctx, k, &stack); err != nil {
		return nil, err
	}
	return stack, nil
}

func (s store) setSnapshots(ctx context.Context, k string, stack [][]Entry) error {
	if len(stack) == 0 {
		return errors.Wrapf(s.kv.Delete(ctx, s.key(k)), "deleting %s", k)
	}
	return s.setJSON(ctx, k, stack)
}
