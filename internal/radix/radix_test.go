package radix

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/wvaviator/mycokv/internal/mkverrors"
	"github.com/wvaviator/mycokv/internal/value"
)

func mustJSON(t *testing.T, v any) map[string]any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestPutAndGetSingleValue(t *testing.T) {
	idx := New()
	if _, err := idx.Put("key", value.String("value")); err != nil {
		t.Fatal(err)
	}

	got, err := idx.Get("key")
	if err != nil {
		t.Fatal(err)
	}
	v, ok := got.(value.Value)
	if !ok || v.Str != "value" {
		t.Fatalf("got %+v", got)
	}
}

func TestPutRejectsReservedTokens(t *testing.T) {
	idx := New()
	if _, err := idx.Put("a.*.b", value.Integer(1)); err == nil {
		t.Fatal("expected error")
	}
	if _, err := idx.Put("a._", value.Integer(1)); err == nil {
		t.Fatal("expected error")
	}
	if _, err := idx.Put("a.*2", value.Integer(1)); err == nil {
		t.Fatal("expected error")
	}
}

func TestGetMissingKey(t *testing.T) {
	idx := New()
	_, err := idx.Get("nope")
	mkErr, ok := err.(*mkverrors.Error)
	if !ok || mkErr.Code != mkverrors.KeyNotFound {
		t.Fatalf("got %v", err)
	}
}

func TestFullSubtree(t *testing.T) {
	idx := New()
	idx.Put("a.b", value.Integer(1))
	idx.Put("a.c", value.Integer(2))
	idx.Put("a.b.x", value.Integer(3))

	got, err := idx.Get("a.*")
	if err != nil {
		t.Fatal(err)
	}

	expected := map[string]any{
		"b": map[string]any{"_": float64(1), "x": float64(3)},
		"c": float64(2),
	}
	if !reflect.DeepEqual(mustJSON(t, got), expected) {
		t.Fatalf("got %v, want %v", mustJSON(t, got), expected)
	}
}

func TestDepthLimitedSubtree(t *testing.T) {
	idx := New()
	idx.Put("a.x", value.Integer(1))
	idx.Put("a.y", value.Integer(2))
	idx.Put("a.y.z", value.Integer(3))

	got, err := idx.Get("a.*1")
	if err != nil {
		t.Fatal(err)
	}

	expected := map[string]any{"x": float64(1), "y": float64(2)}
	if !reflect.DeepEqual(mustJSON(t, got), expected) {
		t.Fatalf("got %v, want %v", mustJSON(t, got), expected)
	}
}

func TestDeleteAndPrune(t *testing.T) {
	idx := New()
	idx.Put("a.b.c", value.Integer(1))

	if _, err := idx.Delete("a.b.c"); err != nil {
		t.Fatal(err)
	}

	if idx.NodeExists("a.b.c") {
		t.Fatal("expected pruned node to be gone")
	}
	if idx.NodeExists("a") {
		t.Fatal("expected empty ancestor to be pruned")
	}
}

func TestDeletePreservesSiblingBranch(t *testing.T) {
	idx := New()
	idx.Put("a.b", value.Integer(1))
	idx.Put("a.c", value.Integer(2))

	if _, err := idx.Delete("a.b"); err != nil {
		t.Fatal(err)
	}

	if !idx.NodeExists("a") {
		t.Fatal("expected a to remain because a.c still exists")
	}
	if !idx.Has("a.c") {
		t.Fatal("expected a.c to remain")
	}
}

func TestDeleteMissingKey(t *testing.T) {
	idx := New()
	_, err := idx.Delete("nope")
	mkErr, ok := err.(*mkverrors.Error)
	if !ok || mkErr.Code != mkverrors.KeyNotFound {
		t.Fatalf("got %v", err)
	}
}

func TestPurge(t *testing.T) {
	idx := New()
	idx.Put("a.b", value.Integer(1))
	idx.Purge()

	if idx.Has("a.b") {
		t.Fatal("expected empty index after purge")
	}
	if idx.NodeExists("a") {
		t.Fatal("expected empty tree after purge")
	}
}

func TestOverridePutKeepsLatestValue(t *testing.T) {
	idx := New()
	idx.Put("k", value.Integer(1))
	idx.Put("k", value.Integer(2))

	got, err := idx.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if got.(value.Value).Int != 2 {
		t.Fatalf("got %+v", got)
	}
}
