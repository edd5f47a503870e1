package rkv

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	ex "github.com/unkn0wn-root/rkv/executor"
	"github.com/unkn0wn-root/rkv/executor/memory"
)

func TestNewRequiresExecutor(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, ErrNilExecutor) {
		t.Fatalf("want ErrNilExecutor, got %v", err)
	}
	if _, err := New(Options{Executor: memory.New(memory.Config{}), DefaultTTL: -time.Second}); !errors.Is(err, ErrInvalidTTL) {
		t.Fatalf("want ErrInvalidTTL, got %v", err)
	}
}

func TestSetGetRemove(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t, nil).c

	if _, ok, err := c.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, "k", []byte("v1"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := mustGet(t, c, "k"); got != "v1" {
		t.Fatalf("Get = %q", got)
	}
	if ok, _ := c.ContainsKey(ctx, "k"); !ok {
		t.Fatalf("ContainsKey = false")
	}

	n, err := c.Remove(ctx, "k", "missing")
	if err != nil || n != 1 {
		t.Fatalf("Remove = %d, %v", n, err)
	}
	if ok, _ := c.ContainsKey(ctx, "k"); ok {
		t.Fatalf("key survived Remove")
	}
	if n, _ := c.Remove(ctx); n != 0 {
		t.Fatalf("Remove() with no keys = %d", n)
	}
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestAddAndReplace(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t, nil).c

	if ok, err := c.Add(ctx, "k", []byte("first"), 0); err != nil || !ok {
		t.Fatalf("first Add = %v, %v", ok, err)
	}
	if ok, err := c.Add(ctx, "k", []byte("second"), 0); err != nil || ok {
		t.Fatalf("second Add = %v, %v", ok, err)
	}
	if got := mustGet(t, c, "k"); got != "first" {
		t.Fatalf("Add overwrote: %q", got)
	}

	prev, existed, err := c.Replace(ctx, "k", []byte("third"))
	if err != nil || !existed || string(prev) != "first" {
		t.Fatalf("Replace = %q %v %v", prev, existed, err)
	}
	prev, existed, err = c.Replace(ctx, "fresh", []byte("x"))
	if err != nil || existed || prev != nil {
		t.Fatalf("Replace(fresh) = %q %v %v", prev, existed, err)
	}
	if got := mustGet(t, c, "k"); got != "third" {
		t.Fatalf("after Replace: %q", got)
	}
}

func TestIncrement(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t, nil).c

	_ = c.Set(ctx, "i", []byte("123"), 0)
	n, err := c.IncrementInt(ctx, "i", 22)
	if err != nil || n != 145 {
		t.Fatalf("IncrementInt = %d, %v", n, err)
	}
	if got := mustGet(t, c, "i"); got != "145" {
		t.Fatalf("stored %q", got)
	}

	_ = c.Set(ctx, "f", []byte("456"), 0)
	f, err := c.IncrementFloat(ctx, "f", 22.5)
	if err != nil || f != 478.5 {
		t.Fatalf("IncrementFloat = %v, %v", f, err)
	}

	if n, _ := c.IncrementInt(ctx, "new", -3); n != -3 {
		t.Fatalf("IncrementInt on a missing key = %d", n)
	}

	_ = c.Set(ctx, "s", []byte("abc"), 0)
	if _, err := c.IncrementInt(ctx, "s", 1); !ex.IsServerError(err) {
		t.Fatalf("want server error for non-numeric value, got %v", err)
	}
	if _, err := c.IncrementFloat(ctx, "s", 1); !ex.IsServerError(err) {
		t.Fatalf("want server error for non-numeric value, got %v", err)
	}
}

func TestSetAllGetAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	c := f.c

	items := map[string][]byte{"a": []byte("1"), "b": []byte("2"), "c": []byte("3")}
	if err := c.SetAll(ctx, items, 0); err != nil {
		t.Fatalf("SetAll: %v", err)
	}
	got, err := c.GetAll(ctx, []string{"a", "b", "c", "zzz"})
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(got) != 3 || string(got["b"]) != "2" {
		t.Fatalf("GetAll = %v", got)
	}
	if _, ok := got["zzz"]; ok {
		t.Fatalf("GetAll returned a missing key")
	}
	if ttl, _ := c.GetExpire(ctx, "a"); ttl != TTLNone {
		t.Fatalf("MSET path should not set a ttl, got %v", ttl)
	}

	batches := f.exec.batches.Load()
	if err := c.SetAll(ctx, map[string][]byte{"x": []byte("1"), "y": []byte("2")}, time.Minute); err != nil {
		t.Fatalf("SetAll with ttl: %v", err)
	}
	if d := f.exec.batches.Load() - batches; d != 1 {
		t.Fatalf("SetAll with ttl used %d batches, want 1", d)
	}
	ttl, _ := c.GetExpire(ctx, "y")
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}

	if m, err := c.GetAll(ctx, nil); err != nil || len(m) != 0 {
		t.Fatalf("GetAll(nil) = %v, %v", m, err)
	}
	if err := c.SetAll(ctx, nil, 0); err != nil {
		t.Fatalf("SetAll(nil): %v", err)
	}
}

func TestExpire(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t, nil).c

	if ttl, _ := c.GetExpire(ctx, "nope"); ttl != TTLMissing {
		t.Fatalf("missing key ttl = %v", ttl)
	}
	_ = c.Set(ctx, "k", []byte("v"), 0)
	if ttl, _ := c.GetExpire(ctx, "k"); ttl != TTLNone {
		t.Fatalf("persistent key ttl = %v", ttl)
	}
	ok, err := c.SetExpire(ctx, "k", 10*time.Second)
	if err != nil || !ok {
		t.Fatalf("SetExpire = %v, %v", ok, err)
	}
	ttl, _ := c.GetExpire(ctx, "k")
	if ttl <= 9*time.Second || ttl > 10*time.Second {
		t.Fatalf("ttl = %v", ttl)
	}
	if ok, _ := c.SetExpire(ctx, "nope", time.Second); ok {
		t.Fatalf("SetExpire on a missing key reported true")
	}
	if _, err := c.SetExpire(ctx, "k", 0); !errors.Is(err, ErrInvalidTTL) {
		t.Fatalf("want ErrInvalidTTL, got %v", err)
	}

	_ = c.Set(ctx, "short", []byte("v"), 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "short"); ok {
		t.Fatalf("key outlived its ttl")
	}
}

func TestDefaultTTL(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t, func(o *Options) { o.DefaultTTL = time.Hour }).c

	_ = c.Set(ctx, "k", []byte("v"), 0)
	ttl, _ := c.GetExpire(ctx, "k")
	if ttl <= 59*time.Minute || ttl > time.Hour {
		t.Fatalf("default ttl not applied: %v", ttl)
	}
	_ = c.Set(ctx, "k2", []byte("v"), time.Second)
	if ttl, _ := c.GetExpire(ctx, "k2"); ttl > time.Second {
		t.Fatalf("explicit ttl ignored: %v", ttl)
	}
}

func TestClearAndCount(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t, nil).c

	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, []byte("v"), 0)
	}
	if n, _ := c.Count(ctx); n != 3 {
		t.Fatalf("Count = %d", n)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := c.Count(ctx); n != 0 {
		t.Fatalf("Count after Clear = %d", n)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	mem := memory.New(memory.Config{})
	t.Cleanup(func() { _ = mem.Close(ctx) })

	mk := func(ns string) *Client {
		c, err := New(Options{Executor: mem, Namespace: ns, ScanCount: 7})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return c
	}
	a, b, root := mk("app"), mk("other"), mk("")

	for i := 0; i < 1200; i++ {
		_ = a.Set(ctx, "k"+strconv.Itoa(i), []byte("v"), 0)
	}
	_ = b.Set(ctx, "k1", []byte("v"), 0)
	_ = b.Set(ctx, "k2", []byte("v"), 0)

	if n, _ := a.Count(ctx); n != 1200 {
		t.Fatalf("a.Count = %d", n)
	}
	if n, _ := b.Count(ctx); n != 2 {
		t.Fatalf("b.Count = %d", n)
	}
	if got := mustGet(t, root, "other:k1"); got != "v" {
		t.Fatalf("namespaced key stored under %q", got)
	}

	keys, err := b.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	sort.Strings(keys)
	if strings.Join(keys, ",") != "k1,k2" {
		t.Fatalf("b.Keys = %v", keys)
	}

	if err := a.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := a.Count(ctx); n != 0 {
		t.Fatalf("a.Count after Clear = %d", n)
	}
	if n, _ := b.Count(ctx); n != 2 {
		t.Fatalf("Clear leaked into another namespace: b.Count = %d", n)
	}
	if n, _ := root.Count(ctx); n != 2 {
		t.Fatalf("root.Count = %d", n)
	}
}

func TestCloseOwnership(t *testing.T) {
	ctx := context.Background()
	mem := memory.New(memory.Config{})
	c, _ := New(Options{Executor: mem})
	if err := c.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := mem.Do(ctx, ex.Cmd("PING")); err != nil {
		t.Fatalf("borrowed executor was closed: %v", err)
	}

	owned, _ := New(Options{Executor: mem, CloseExecutor: true})
	_ = owned.Close(ctx)
	if _, err := mem.Do(ctx, ex.Cmd("PING")); !errors.Is(err, memory.ErrClosed) {
		t.Fatalf("owned executor left open: %v", err)
	}
}
