// Package executortest holds a behavioural suite every executor.Executor is
// expected to pass. Implementation packages call Run from their own tests
// with a factory that returns an empty store.
package executortest

import (
	"context"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	ex "github.com/unkn0wn-root/rkv/executor"
)

// Factory returns a fresh executor over an empty keyspace.
type Factory func(t *testing.T) ex.Executor

// Run executes the suite. Each case gets its own executor.
func Run(t *testing.T, newExec Factory) {
	cases := []struct {
		name string
		fn   func(t *testing.T, e ex.Executor)
	}{
		{"set_get", testSetGet},
		{"set_nx", testSetNX},
		{"expiry", testExpiry},
		{"getset", testGetSet},
		{"del_exists", testDelExists},
		{"incr", testIncr},
		{"incr_wrong_type", testIncrWrongType},
		{"mset_mget", testMSetMGet},
		{"keys_scan", testKeysScan},
		{"keys_pattern_syntax", testKeysPatternSyntax},
		{"dbsize_flush", testDBSizeFlush},
		{"batch_order", testBatchOrder},
		{"batch_server_error", testBatchServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newExec(t)
			t.Cleanup(func() { _ = e.Close(context.Background()) })
			tc.fn(t, e)
		})
	}
}

func do(t *testing.T, e ex.Executor, name string, args ...any) ex.Reply {
	t.Helper()
	r, err := e.Do(context.Background(), ex.Cmd(name, args...))
	require.NoError(t, err, "%s %v", name, args)
	return r
}

func testSetGet(t *testing.T, e ex.Executor) {
	ok, err := do(t, e, "SET", "k", "v1").OK()
	require.NoError(t, err)
	require.True(t, ok)

	b, found, err := do(t, e, "GET", "k").Bytes()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v1", string(b))

	require.True(t, do(t, e, "GET", "missing").IsNil())

	require.NoError(t, do(t, e, "PING").Err)
}

func testSetNX(t *testing.T, e ex.Executor) {
	ok, err := do(t, e, "SET", "k", "first", "NX").OK()
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = do(t, e, "SET", "k", "second", "NX").OK()
	require.NoError(t, err)
	require.False(t, ok)

	s, _, err := do(t, e, "GET", "k").Text()
	require.NoError(t, err)
	require.Equal(t, "first", s)
}

func testExpiry(t *testing.T, e ex.Executor) {
	do(t, e, "SET", "k", "v", "PX", int64(60000))
	ttl, err := do(t, e, "PTTL", "k").Int()
	require.NoError(t, err)
	require.Greater(t, ttl, int64(0))
	require.LessOrEqual(t, ttl, int64(60000))

	do(t, e, "SET", "p", "v")
	ttl, err = do(t, e, "PTTL", "p").Int()
	require.NoError(t, err)
	require.EqualValues(t, -1, ttl)

	ttl, err = do(t, e, "PTTL", "missing").Int()
	require.NoError(t, err)
	require.EqualValues(t, -2, ttl)

	set, err := do(t, e, "PEXPIRE", "p", int64(1000)).Bool()
	require.NoError(t, err)
	require.True(t, set)

	set, err = do(t, e, "PEXPIRE", "missing", int64(1000)).Bool()
	require.NoError(t, err)
	require.False(t, set)
}

func testGetSet(t *testing.T, e ex.Executor) {
	require.True(t, do(t, e, "GETSET", "k", "a").IsNil())

	old, ok, err := do(t, e, "GETSET", "k", "b").Text()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", old)

	cur, _, _ := do(t, e, "GET", "k").Text()
	require.Equal(t, "b", cur)
}

func testDelExists(t *testing.T, e ex.Executor) {
	do(t, e, "SET", "a", "1")
	do(t, e, "SET", "b", "1")

	n, err := do(t, e, "EXISTS", "a").Int()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = do(t, e, "DEL", "a", "b", "c").Int()
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	n, err = do(t, e, "DEL", "a").Int()
	require.NoError(t, err)
	require.EqualValues(t, 0, n)

	n, _ = do(t, e, "EXISTS", "a").Int()
	require.EqualValues(t, 0, n)
}

func testIncr(t *testing.T, e ex.Executor) {
	do(t, e, "SET", "i", "123")
	n, err := do(t, e, "INCRBY", "i", int64(22)).Int()
	require.NoError(t, err)
	require.EqualValues(t, 145, n)

	n, err = do(t, e, "INCRBY", "fresh", int64(-3)).Int()
	require.NoError(t, err)
	require.EqualValues(t, -3, n)

	do(t, e, "SET", "f", "456")
	f, err := do(t, e, "INCRBYFLOAT", "f", "22.5").Float()
	require.NoError(t, err)
	require.InDelta(t, 478.5, f, 1e-9)
}

func testIncrWrongType(t *testing.T, e ex.Executor) {
	do(t, e, "SET", "s", "not a number")
	r, err := e.Do(context.Background(), ex.Cmd("INCRBY", "s", int64(1)))
	require.Error(t, err)
	require.True(t, ex.IsServerError(err))
	require.True(t, ex.IsServerError(r.Err))
}

func testMSetMGet(t *testing.T, e ex.Executor) {
	do(t, e, "MSET", "a", "1", "b", "2")
	items, err := do(t, e, "MGET", "a", "missing", "b").Slice()
	require.NoError(t, err)
	require.Len(t, items, 3)

	a, _, _ := items[0].Text()
	require.Equal(t, "1", a)
	require.True(t, items[1].IsNil())
	b, _, _ := items[2].Text()
	require.Equal(t, "2", b)
}

func testKeysScan(t *testing.T, e ex.Executor) {
	for i := 0; i < 57; i++ {
		do(t, e, "SET", "user:"+strconv.Itoa(i), "x")
	}
	do(t, e, "SET", "other", "x")

	listed, err := do(t, e, "KEYS", "user:*").Strings()
	require.NoError(t, err)
	require.Len(t, listed, 57)

	none, err := do(t, e, "KEYS", "nomatch*").Strings()
	require.NoError(t, err)
	require.Empty(t, none)

	seen := map[string]struct{}{}
	cursor := "0"
	for pages := 0; ; pages++ {
		require.Less(t, pages, 1000, "scan did not terminate")
		parts, err := do(t, e, "SCAN", cursor, "MATCH", "user:*", "COUNT", int64(10)).Slice()
		require.NoError(t, err)
		require.Len(t, parts, 2)
		cursor, _, err = parts[0].Text()
		require.NoError(t, err)
		keys, err := parts[1].Strings()
		require.NoError(t, err)
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		if cursor == "0" {
			break
		}
	}

	scanned := make([]string, 0, len(seen))
	for k := range seen {
		scanned = append(scanned, k)
	}
	sort.Strings(scanned)
	sort.Strings(listed)
	require.Equal(t, listed, scanned)
}

func testKeysPatternSyntax(t *testing.T, e ex.Executor) {
	for _, k := range []string{"ha", "hb", "hc", "h^", "h{x}", "h,", "h-", "h!"} {
		do(t, e, "SET", k, "x")
	}
	cases := []struct {
		pattern string
		want    []string
	}{
		{"h[^a]", []string{"h!", "h,", "h-", "h^", "hb", "hc"}},
		{"h[^a-b]", []string{"h!", "h,", "h-", "h^", "hc"}},
		{"h[a-b^]", []string{"h^", "ha", "hb"}},
		{"h[ac]", []string{"ha", "hc"}},
		{"h[!a]", []string{"h!", "ha"}},
		{"h{x}", []string{"h{x}"}},
		{"h{*", []string{"h{x}"}},
		{"h,", []string{"h,"}},
		{"h\\[b]", nil},
		{"h\\?", nil},
		{"h\\-", []string{"h-"}},
	}
	for _, tc := range cases {
		got, err := do(t, e, "KEYS", tc.pattern).Strings()
		require.NoError(t, err, tc.pattern)
		sort.Strings(got)
		if tc.want == nil {
			require.Empty(t, got, tc.pattern)
			continue
		}
		require.Equal(t, tc.want, got, tc.pattern)
	}
}

func testDBSizeFlush(t *testing.T, e ex.Executor) {
	do(t, e, "SET", "a", "1")
	do(t, e, "SET", "b", "1")
	n, err := do(t, e, "DBSIZE").Int()
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	ok, err := do(t, e, "FLUSHDB").OK()
	require.NoError(t, err)
	require.True(t, ok)

	n, _ = do(t, e, "DBSIZE").Int()
	require.EqualValues(t, 0, n)
}

func testBatchOrder(t *testing.T, e ex.Executor) {
	do(t, e, "SET", "c", "x")
	replies, err := e.DoBatch(context.Background(), []ex.Command{
		ex.Cmd("SET", "a", "1"),
		ex.Cmd("SET", "b", "2"),
		ex.Cmd("DEL", "c"),
		ex.Cmd("GET", "a"),
		ex.Cmd("GET", "nope"),
	})
	require.NoError(t, err)
	require.Len(t, replies, 5)

	for i := 0; i < 2; i++ {
		ok, err := replies[i].OK()
		require.NoError(t, err)
		require.True(t, ok, "reply %d", i)
	}
	n, err := replies[2].Int()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	s, _, _ := replies[3].Text()
	require.Equal(t, "1", s)
	require.True(t, replies[4].IsNil())

	empty, err := e.DoBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func testBatchServerError(t *testing.T, e ex.Executor) {
	do(t, e, "SET", "s", "text")
	replies, err := e.DoBatch(context.Background(), []ex.Command{
		ex.Cmd("SET", "a", "1"),
		ex.Cmd("INCRBY", "s", int64(1)),
		ex.Cmd("INCRBY", "a", int64(1)),
	})
	require.NoError(t, err, "server errors must stay per command")
	require.Len(t, replies, 3)
	require.NoError(t, replies[0].Err)
	require.True(t, ex.IsServerError(replies[1].Err))
	n, err := replies[2].Int()
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}
