// Package engine implements the Engine (KVMap) component: the single-writer
// transaction dispatcher that validates, journals, and applies operations
// against the radix index and expiration index under one exclusive lock.
package engine

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/jimsnab/go-lane"

	"github.com/wvaviator/mycokv/internal/command"
	"github.com/wvaviator/mycokv/internal/expiration"
	"github.com/wvaviator/mycokv/internal/keypath"
	"github.com/wvaviator/mycokv/internal/mkverrors"
	"github.com/wvaviator/mycokv/internal/radix"
	"github.com/wvaviator/mycokv/internal/value"
	"github.com/wvaviator/mycokv/internal/wal"
)

// counters tallies commands processed for the STATS operation. It is
// read and written only under the engine's lock, so it needs no atomics.
type counters struct {
	total, gets, puts, deletes int64
}

// Engine is the sole owner of the radix index, the expiration index, and
// the WAL handle. Every exported method that touches any of the three
// takes mu, per the single-writer invariant.
type Engine struct {
	l lane.Lane

	mu    sync.Mutex
	radix *radix.Index
	exp   *expiration.Index
	wal   *wal.Log

	startedAt time.Time
	counts    counters
}

// New constructs an empty engine backed by w. Restore must be called
// separately to recover prior state.
func New(l lane.Lane, w *wal.Log) *Engine {
	return &Engine{
		l:         l,
		radix:     radix.New(),
		exp:       expiration.New(),
		wal:       w,
		startedAt: time.Now(),
	}
}

// Restore replays every WAL line through the Parser and applies Put,
// Delete, and ExpireAt directly, without re-appending to the WAL. Get and
// Stats/Calc/Time/Purge lines never appear in a WAL produced by this
// engine; if one is encountered anyway it is a no-op.
func (e *Engine) Restore() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	it, err := e.wal.Replay()
	if err != nil {
		return mkverrors.Restore(err.Error())
	}
	defer it.Close()

	for {
		line, ok := it.Next()
		if !ok {
			break
		}

		op, err := command.Parse(line)
		if err != nil {
			return mkverrors.Restore(err.Error())
		}

		switch op.Kind {
		case command.Put:
			if _, err := e.radix.Put(op.Key, op.Value); err != nil {
				return mkverrors.Restore(err.Error())
			}
			e.exp.Invalidate(op.Key)
		case command.Delete:
			if _, err := e.radix.Delete(op.Key); err != nil {
				return mkverrors.Restore(err.Error())
			}
			e.exp.Invalidate(op.Key)
		case command.ExpireAt:
			e.exp.Push(op.Key, op.Timestamp)
		default:
			// Get, Purge, Time, Stats, Calc never appear in the log.
		}
	}

	if err := it.Err(); err != nil {
		return mkverrors.Restore(err.Error())
	}

	return nil
}

// Process validates, journals, and applies one operation, returning the
// reply text on success. It runs the expiration sweep first, as every
// process_operation call does.
func (e *Engine) Process(op command.Operation) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sweepLocked(nowMs())

	switch op.Kind {
	case command.Time:
		return itoa(nowMs()), nil

	case command.Stats:
		return e.statsLocked()

	case command.Get:
		e.counts.total++
		e.counts.gets++
		return e.getLocked(op.Key)

	case command.Put:
		if keypath.HasReservedToken(op.Key) {
			return "", mkverrors.BadKey(op.Key)
		}
		if err := e.wal.AppendPut(op.Key, op.Value); err != nil {
			return "", err
		}
		e.radix.Put(op.Key, op.Value)
		e.exp.Invalidate(op.Key)
		e.counts.total++
		e.counts.puts++
		return marshalJSON(op.Value)

	case command.Delete:
		if !e.radix.Has(op.Key) {
			return "", mkverrors.NotFound(op.Key)
		}
		if err := e.wal.AppendDelete(op.Key); err != nil {
			return "", err
		}
		removed, err := e.radix.Delete(op.Key)
		if err != nil {
			return "", err
		}
		e.exp.Invalidate(op.Key)
		e.counts.total++
		e.counts.deletes++
		return marshalJSON(removed)

	case command.ExpireAt:
		if op.Timestamp <= nowSeconds() {
			return "", mkverrors.BadExpiration(op.Timestamp)
		}
		if err := e.wal.AppendExpireAt(op.Key, op.Timestamp); err != nil {
			return "", err
		}
		e.exp.Push(op.Key, op.Timestamp)
		e.counts.total++
		return "OK", nil

	case command.Purge:
		if err := e.wal.Truncate(); err != nil {
			return "", err
		}
		e.radix.Purge()
		e.exp.Clear()
		return "OK", nil

	case command.Calc:
		return e.calcLocked(op.Key, op.Expression)

	default:
		return "", mkverrors.Internal("unrecognized operation kind")
	}
}

// sweepLocked drains every valid expiration entry whose timestamp has
// passed, deleting the corresponding key from the radix. A missing key is
// tolerated: it was already removed by an explicit delete. Must be called
// with mu held.
func (e *Engine) sweepLocked(now int64) {
	for {
		entry, ok := e.exp.Peek()
		if !ok || entry.Timestamp > now {
			return
		}

		if _, err := e.radix.Delete(entry.Key); err != nil {
			e.l.Debugf("expiration sweep: key %s already absent", entry.Key)
		}
		e.exp.Pop()
	}
}

// ProcessExpirations runs the sweep on its own, for the periodic worker.
func (e *Engine) ProcessExpirations() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sweepLocked(nowMs())
}

func (e *Engine) getLocked(key string) (string, error) {
	access := keypath.ParseAccess(key)
	if !e.radix.AccessExists(access) {
		return "", mkverrors.NotFound(key)
	}

	result, err := e.radix.Get(key)
	if err != nil {
		return "", err
	}
	return marshalJSON(result)
}

func (e *Engine) calcLocked(key, expr string) (string, error) {
	if keypath.HasReservedToken(key) {
		return "", mkverrors.BadKey(key)
	}

	self := 0.0
	if v, ok := e.radix.Lookup(key); ok {
		self = v.AsFloat()
	}

	exprObj, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return "", mkverrors.OpFailed(err.Error())
	}

	result, err := exprObj.Evaluate(map[string]any{"self": self})
	if err != nil {
		return "", mkverrors.OpFailed(err.Error())
	}

	f, ok := result.(float64)
	if !ok {
		return "", mkverrors.OpFailed("expression did not evaluate to a number")
	}

	v := value.Float(f)
	if err := e.wal.AppendPut(key, v); err != nil {
		return "", err
	}
	e.radix.Put(key, v)
	e.exp.Invalidate(key)
	e.counts.total++
	e.counts.puts++

	return marshalJSON(v)
}

// statsPayload is the JSON shape of the STATS reply.
type statsPayload struct {
	UptimeMs      int64 `json:"uptime_ms"`
	Commands      int64 `json:"commands"`
	Gets          int64 `json:"gets"`
	Puts          int64 `json:"puts"`
	Deletes       int64 `json:"deletes"`
	WALSizeBytes  int64 `json:"wal_size_bytes"`
	WALMTimeMs    int64 `json:"wal_mtime_unix_ms"`
	WALATimeMs    int64 `json:"wal_atime_unix_ms"`
}

func (e *Engine) statsLocked() (string, error) {
	st, err := e.wal.Stat()
	if err != nil {
		return "", err
	}

	payload := statsPayload{
		UptimeMs:     time.Since(e.startedAt).Milliseconds(),
		Commands:     e.counts.total,
		Gets:         e.counts.gets,
		Puts:         e.counts.puts,
		Deletes:      e.counts.deletes,
		WALSizeBytes: st.SizeBytes,
		WALMTimeMs:   st.ModTimeMs,
		WALATimeMs:   st.AccessTimeMs,
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", mkverrors.Serialization()
	}
	return string(b), nil
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", mkverrors.Serialization()
	}
	return string(b), nil
}
