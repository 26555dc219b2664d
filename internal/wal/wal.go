// Package wal implements MycoKV's write-ahead log: an append-only text
// journal of mutating operations, one record per line, used for crash
// recovery. It is backed by an afero.Fs so tests can run entirely
// in-memory, and takes an advisory file lock on real filesystems to
// enforce the single-writer invariant across processes.
package wal

import (
	"bufio"
	"os"

	"github.com/djherbis/atime"
	"github.com/jimsnab/go-lane"
	"github.com/spf13/afero"

	"github.com/wvaviator/mycokv/internal/mkverrors"
	"github.com/wvaviator/mycokv/internal/value"
)

// Log is the durable append-only journal handle.
type Log struct {
	l    lane.Lane
	fs   afero.Fs
	path string
	file afero.File
}

// Open creates path in append mode if it does not exist, and takes an
// advisory exclusive lock on it when the underlying filesystem supports
// file descriptors (a plain OsFs; afero.MemMapFs used in tests silently
// skips locking).
func Open(l lane.Lane, fs afero.Fs, path string) (*Log, error) {
	f, err := fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.Errorf("cannot open wal %s: %s", path, err.Error())
		return nil, mkverrors.LoadFail(err.Error())
	}

	if err := lockExclusive(f); err != nil {
		f.Close()
		l.Errorf("cannot lock wal %s: %s", path, err.Error())
		return nil, mkverrors.LoadFail(err.Error())
	}

	return &Log{l: l, fs: fs, path: path, file: f}, nil
}

// Close releases the underlying file handle and its advisory lock.
func (lg *Log) Close() error {
	unlock(lg.file)
	return lg.file.Close()
}

// AppendPut journals a PUT record. The value is re-rendered in its
// WAL-safe form so strings round-trip through Parse with their quotes.
func (lg *Log) AppendPut(key string, v value.Value) error {
	return lg.appendLine("PUT " + key + " " + v.RenderForWAL())
}

// AppendDelete journals a DELETE record.
func (lg *Log) AppendDelete(key string) error {
	return lg.appendLine("DELETE " + key)
}

// AppendExpireAt journals an EXPIREAT record.
func (lg *Log) AppendExpireAt(key string, tsMs int64) error {
	return lg.appendLine("EXPIREAT " + key + " " + itoa(tsMs))
}

func (lg *Log) appendLine(line string) error {
	if _, err := lg.file.WriteString(line + "\n"); err != nil {
		lg.l.Errorf("wal write failed: %s", err.Error())
		return mkverrors.WriteFail(err.Error())
	}
	if err := lg.file.Sync(); err != nil {
		lg.l.Errorf("wal sync failed: %s", err.Error())
		return mkverrors.WriteFail(err.Error())
	}
	return nil
}

// Truncate replaces the file with an empty one, reacquiring the advisory
// lock on the fresh handle.
func (lg *Log) Truncate() error {
	unlock(lg.file)
	if err := lg.file.Close(); err != nil {
		lg.l.Errorf("wal close before truncate failed: %s", err.Error())
		return mkverrors.LoadFail(err.Error())
	}

	trunc, err := lg.fs.OpenFile(lg.path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		lg.l.Errorf("wal truncate failed: %s", err.Error())
		return mkverrors.LoadFail(err.Error())
	}
	trunc.Close()

	f, err := lg.fs.OpenFile(lg.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		lg.l.Errorf("wal reopen after truncate failed: %s", err.Error())
		return mkverrors.LoadFail(err.Error())
	}
	if err := lockExclusive(f); err != nil {
		f.Close()
		return mkverrors.LoadFail(err.Error())
	}

	lg.file = f
	return nil
}

// ReplayIterator walks the WAL's lines in file order for recovery.
type ReplayIterator struct {
	file    afero.File
	scanner *bufio.Scanner
}

// Replay opens the log for reading and returns an iterator over its lines.
func (lg *Log) Replay() (*ReplayIterator, error) {
	f, err := lg.fs.Open(lg.path)
	if err != nil {
		lg.l.Errorf("wal replay open failed: %s", err.Error())
		return nil, mkverrors.ReadFail(err.Error())
	}
	return &ReplayIterator{file: f, scanner: bufio.NewScanner(f)}, nil
}

// Next returns the next line and true, or false once the log is exhausted.
func (it *ReplayIterator) Next() (string, bool) {
	if it.scanner.Scan() {
		return it.scanner.Text(), true
	}
	return "", false
}

// Err reports any error encountered while scanning.
func (it *ReplayIterator) Err() error {
	return it.scanner.Err()
}

// Close releases the read handle.
func (it *ReplayIterator) Close() error {
	return it.file.Close()
}

// Stats describes WAL file metadata for the STATS introspection operation.
type Stats struct {
	SizeBytes   int64
	ModTimeMs   int64
	AccessTimeMs int64
}

// Stat reports the WAL file's size, modification time, and last-access
// time. Access time falls back to modification time on filesystems (such
// as afero's in-memory one) that don't expose a real inode atime.
func (lg *Log) Stat() (Stats, error) {
	info, err := lg.fs.Stat(lg.path)
	if err != nil {
		return Stats{}, mkverrors.ReadFail(err.Error())
	}

	st := Stats{
		SizeBytes: info.Size(),
		ModTimeMs: info.ModTime().UnixMilli(),
	}

	if at, err := atime.Stat(lg.path); err == nil {
		st.AccessTimeMs = at.UnixMilli()
	} else {
		st.AccessTimeMs = st.ModTimeMs
	}

	return st, nil
}
