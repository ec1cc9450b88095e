package domain

import (
	"reflect"
	"testing"
)

func TestContextGetSet(t *testing.T) {
	c := NewContext(nil)
	if got := c.Get("missing", "default"); got != "default" {
		t.Fatalf("Get()=%v, want default", got)
	}
	c.Set("key", "value")
	if got := c.Get("key", nil); got != "value" {
		t.Fatalf("Get()=%v, want value", got)
	}
	if !c.Has("key") {
		t.Fatalf("Has(key)=false, want true")
	}
	if c.Has("missing") {
		t.Fatalf("Has(missing)=true, want false")
	}
}

func TestContextMergeOverwrites(t *testing.T) {
	c := NewContext(map[string]any{"a": 1, "b": 2})
	c.Merge(map[string]any{"b": 20, "c": 3})
	if got := c.Get("a", nil); got != 1 {
		t.Fatalf("a=%v, want 1", got)
	}
	if got := c.Get("b", nil); got != 20 {
		t.Fatalf("b=%v, want 20", got)
	}
	if got := c.Get("c", nil); got != 3 {
		t.Fatalf("c=%v, want 3", got)
	}
	if c.Len() != 3 {
		t.Fatalf("Len()=%d, want 3", c.Len())
	}
}

func TestContextShadowKeepsInsertionOrder(t *testing.T) {
	c := NewContext(nil)
	c.Set("first", 1)
	c.Set("second", 2)
	c.Set("first", 10)
	want := []string{"first", "second"}
	if got := c.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys()=%v, want %v", got, want)
	}
}

func TestContextSnapshotIsIndependent(t *testing.T) {
	c := NewContext(map[string]any{"key": "original"})
	snap := c.Snapshot()
	snap["key"] = "mutated"
	snap["new"] = true
	if got := c.Get("key", nil); got != "original" {
		t.Fatalf("live context mutated through snapshot: key=%v", got)
	}
	if c.Has("new") {
		t.Fatalf("live context gained key through snapshot")
	}
}

func TestContextSeedIsCopied(t *testing.T) {
	seed := map[string]any{"key": "original"}
	c := NewContext(seed)
	seed["key"] = "mutated"
	if got := c.Get("key", nil); got != "original" {
		t.Fatalf("live context mutated through seed map: key=%v", got)
	}
}

func TestContextClear(t *testing.T) {
	c := NewContext(map[string]any{"a": 1, "b": 2})
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len()=%d after Clear, want 0", c.Len())
	}
	if len(c.Keys()) != 0 {
		t.Fatalf("Keys()=%v after Clear, want empty", c.Keys())
	}
}
