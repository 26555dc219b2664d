package wal

import (
	"context"
	"testing"

	"github.com/jimsnab/go-lane"
	"github.com/spf13/afero"

	"github.com/wvaviator/mycokv/internal/value"
)

func testLane() lane.Lane {
	return lane.NewTestingLane(context.Background())
}

func TestAppendAndReplay(t *testing.T) {
	fs := afero.NewMemMapFs()
	lg, err := Open(testLane(), fs, "wal.mkv")
	if err != nil {
		t.Fatal(err)
	}
	defer lg.Close()

	if err := lg.AppendPut("user.name", value.String("alice")); err != nil {
		t.Fatal(err)
	}
	if err := lg.AppendDelete("user.age"); err != nil {
		t.Fatal(err)
	}
	if err := lg.AppendExpireAt("user.session", 12345); err != nil {
		t.Fatal(err)
	}

	it, err := lg.Replay()
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	var lines []string
	for {
		line, ok := it.Next()
		if !ok {
			break
		}
		lines = append(lines, line)
	}

	want := []string{
		`PUT user.name "alice"`,
		"DELETE user.age",
		"EXPIREAT user.session 12345",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestTruncate(t *testing.T) {
	fs := afero.NewMemMapFs()
	lg, err := Open(testLane(), fs, "wal.mkv")
	if err != nil {
		t.Fatal(err)
	}
	defer lg.Close()

	lg.AppendPut("k", value.Integer(1))

	if err := lg.Truncate(); err != nil {
		t.Fatal(err)
	}

	st, err := lg.Stat()
	if err != nil {
		t.Fatal(err)
	}
	if st.SizeBytes != 0 {
		t.Fatalf("expected zero bytes after truncate, got %d", st.SizeBytes)
	}

	// the log must still be writable after truncation
	if err := lg.AppendPut("k2", value.Integer(2)); err != nil {
		t.Fatal(err)
	}
}

func TestStat(t *testing.T) {
	fs := afero.NewMemMapFs()
	lg, err := Open(testLane(), fs, "wal.mkv")
	if err != nil {
		t.Fatal(err)
	}
	defer lg.Close()

	lg.AppendPut("k", value.String("hello"))

	st, err := lg.Stat()
	if err != nil {
		t.Fatal(err)
	}
	if st.SizeBytes == 0 {
		t.Fatal("expected nonzero size after append")
	}
}
