package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"opencodeweb/pkg/logger"
	"opencodeweb/pkg/telemetry"
)

var db *pebble.DB

// seq reduces key collisions when multiple commands share the same
// nanosecond timestamp.
var seq uint64

// Entry is one audit record for a proxied mutating command.
type Entry struct {
	TS     int64  `json:"ts"`
	User   string `json:"user"`
	Method string `json:"method"`
	Route  string `json:"route"`
	Status int    `json:"status"`
}

// Open opens (or creates) the journal database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_journal_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("journal_open_failed", "path", path, "error", err)
		return err
	}
	return nil
}

// Close closes the opened journal DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("journal_closed")
	return nil
}

// Ready reports whether the journal is opened and ready.
func Ready() bool {
	return db != nil
}

// Append records one command entry keyed by user and a sortable timestamp.
// Key format: cmd:<user>:<unix_nano_padded>-<seq>
func Append(e Entry) error {
	if db == nil {
		return fmt.Errorf("journal not opened; call journal.Open first")
	}
	if e.TS == 0 {
		e.TS = time.Now().UTC().UnixNano()
	}
	s := atomic.AddUint64(&seq, 1)
	key := fmt.Sprintf("cmd:%s:%020d-%06d", e.User, e.TS, s)
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	if err := db.Set([]byte(key), data, pebble.NoSync); err != nil {
		logger.Error("journal_append_failed", "key", key, "error", err)
		return err
	}
	telemetry.JournalAppend()
	return nil
}

// List returns entries for a user in append order. A limit <= 0 returns all;
// otherwise the most recent `limit` entries are returned.
func List(user string, limit int) ([]Entry, error) {
	if db == nil {
		return nil, fmt.Errorf("journal not opened; call journal.Open first")
	}
	prefix := []byte("cmd:" + user + ":")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []Entry
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var e Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
