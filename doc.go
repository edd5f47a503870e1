// Package rkv is a client for Redis-protocol key-value servers with opt-in
// command pipelining and a distributed lock built on SET NX PX.
//
// Components:
//   - Executor: transport to the store (go-redis, redigo or in-memory).
//   - Client: byte-level operations. Writes route through the pipeline,
//     reads flush it first.
//   - Store[V]: typed view over a Client through a codec.Codec[V].
//   - Lock: expiring, timeout-bounded mutual exclusion over a shared key.
//
// Keys:
//
//	<ns>:<key>  - when Options.Namespace is set
//	<key>       - otherwise
//
// Pipelining:
//
//	_ = c.SetAutoPipeline(ctx, 100)
//	_ = c.Set(ctx, "a", []byte("1"), 0)    // queued, placeholder result
//	_, _ = c.Add(ctx, "a", []byte("2"), 0) // queued
//	replies, _ := c.Flush(ctx, true)       // [OK, nil]
//
// Locking:
//
//	err := c.WithLock(ctx, "jobs:nightly", 30*time.Second, func(ctx context.Context) error {
//	    return runNightly(ctx)
//	})
package rkv
