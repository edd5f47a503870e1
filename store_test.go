package rkv

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/unkn0wn-root/rkv/codec"
)

type user struct {
	ID   string `json:"id" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
}

func TestStoreJSON(t *testing.T) {
	ctx := context.Background()
	s := NewStore[user](newFixture(t, nil).c, codec.JSON[user]{})

	if _, ok, err := s.Get(ctx, "u1"); ok || err != nil {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}
	if err := s.Set(ctx, "u1", user{ID: "1", Name: "Ada"}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := s.Get(ctx, "u1")
	if err != nil || !ok || got.Name != "Ada" {
		t.Fatalf("Get = %+v %v %v", got, ok, err)
	}

	if added, _ := s.Add(ctx, "u1", user{ID: "1", Name: "Bob"}, 0); added {
		t.Fatalf("Add overwrote an existing key")
	}
	prev, existed, err := s.Replace(ctx, "u1", user{ID: "1", Name: "Cyd"})
	if err != nil || !existed || prev.Name != "Ada" {
		t.Fatalf("Replace = %+v %v %v", prev, existed, err)
	}
}

func TestStoreBulkMsgpack(t *testing.T) {
	ctx := context.Background()
	s := NewStore[user](newFixture(t, nil).c, codec.Msgpack[user]{})

	in := map[string]user{
		"a": {ID: "a", Name: "Ann"},
		"b": {ID: "b", Name: "Ben"},
	}
	if err := s.SetAll(ctx, in, 0); err != nil {
		t.Fatalf("SetAll: %v", err)
	}
	out, err := s.GetAll(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(out) != 2 || out["b"].Name != "Ben" {
		t.Fatalf("GetAll = %+v", out)
	}
}

func TestStoreNumericSharesWireWithIncrement(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t, nil).c
	ints := NewStore[int64](c, codec.Int64{})
	floats := NewStore[float64](c, codec.Float64{})

	_ = ints.Set(ctx, "n", 123, 0)
	if _, err := c.IncrementInt(ctx, "n", 22); err != nil {
		t.Fatalf("IncrementInt: %v", err)
	}
	if n, _, _ := ints.Get(ctx, "n"); n != 145 {
		t.Fatalf("int store read %d", n)
	}

	_ = floats.Set(ctx, "f", 456, 0)
	_, _ = c.IncrementFloat(ctx, "f", 22.5)
	if f, _, _ := floats.Get(ctx, "f"); f != 478.5 {
		t.Fatalf("float store read %v", f)
	}
}

func TestStoreDecodeError(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t, nil).c
	s := NewStore[user](c, codec.JSON[user]{})

	_ = c.Set(ctx, "bad", []byte("{not json"), 0)
	if _, ok, err := s.Get(ctx, "bad"); err == nil || ok || !strings.Contains(err.Error(), `decode "bad"`) {
		t.Fatalf("want decode error, got ok=%v err=%v", ok, err)
	}
	if _, err := s.GetAll(ctx, []string{"bad"}); err == nil {
		t.Fatalf("GetAll accepted an undecodable value")
	}
	if s.Client() != c {
		t.Fatalf("Client() mismatch")
	}
}
