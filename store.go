package rkv

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/rkv/codec"
)

// Store is a typed view over a Client. Values are encoded with the codec on
// the way in and decoded on the way out; everything else is the Client's
// behavior, pipelining included.
type Store[V any] struct {
	c     *Client
	codec codec.Codec[V]
}

func NewStore[V any](c *Client, cd codec.Codec[V]) *Store[V] {
	return &Store[V]{c: c, codec: cd}
}

func (s *Store[V]) Client() *Client { return s.c }

func (s *Store[V]) Get(ctx context.Context, key string) (v V, ok bool, err error) {
	raw, ok, err := s.c.Get(ctx, key)
	if err != nil || !ok {
		return v, false, err
	}
	if v, err = s.decode(key, raw); err != nil {
		return v, false, err
	}
	return v, true, nil
}

func (s *Store[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	raw, err := s.encode(key, value)
	if err != nil {
		return err
	}
	return s.c.Set(ctx, key, raw, ttl)
}

func (s *Store[V]) Add(ctx context.Context, key string, value V, ttl time.Duration) (bool, error) {
	raw, err := s.encode(key, value)
	if err != nil {
		return false, err
	}
	return s.c.Add(ctx, key, raw, ttl)
}

// Replace stores value and returns the previous one, if any.
func (s *Store[V]) Replace(ctx context.Context, key string, value V) (prev V, existed bool, err error) {
	raw, err := s.encode(key, value)
	if err != nil {
		return prev, false, err
	}
	old, existed, err := s.c.Replace(ctx, key, raw)
	if err != nil || !existed {
		return prev, false, err
	}
	if prev, err = s.decode(key, old); err != nil {
		return prev, false, err
	}
	return prev, true, nil
}

// GetAll returns the decoded values of the keys that exist. One undecodable
// value fails the whole call.
func (s *Store[V]) GetAll(ctx context.Context, keys []string) (map[string]V, error) {
	raw, err := s.c.GetAll(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make(map[string]V, len(raw))
	for k, b := range raw {
		v, err := s.decode(k, b)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (s *Store[V]) SetAll(ctx context.Context, items map[string]V, ttl time.Duration) error {
	raw := make(map[string][]byte, len(items))
	for k, v := range items {
		b, err := s.encode(k, v)
		if err != nil {
			return err
		}
		raw[k] = b
	}
	return s.c.SetAll(ctx, raw, ttl)
}

func (s *Store[V]) encode(key string, v V) ([]byte, error) {
	b, err := s.codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("rkv: encode %q: %w", key, err)
	}
	return b, nil
}

func (s *Store[V]) decode(key string, b []byte) (V, error) {
	v, err := s.codec.Decode(b)
	if err != nil {
		return v, fmt.Errorf("rkv: decode %q: %w", key, err)
	}
	return v, nil
}
