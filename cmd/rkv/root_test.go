package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/rkv"
	ex "github.com/unkn0wn-root/rkv/executor"
	"github.com/unkn0wn-root/rkv/executor/memory"
)

func run(t *testing.T, exec ex.Executor, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := newApp(&out, strings.NewReader(stdin))
	a.exec = exec
	root := newRootCmd(a)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := a.execute(root)
	return out.String(), err
}

func newMem(t *testing.T) *memory.Memory {
	m := memory.New(memory.Config{})
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

func TestKeyValueCommands(t *testing.T) {
	m := newMem(t)

	out, err := run(t, m, "", "set", "greeting", "hello")
	require.NoError(t, err)
	require.Equal(t, "OK\n", out)

	out, _ = run(t, m, "", "get", "greeting")
	require.Equal(t, "hello\n", out)
	out, _ = run(t, m, "", "get", "nope")
	require.Equal(t, "(nil)\n", out)

	out, _ = run(t, m, "", "add", "greeting", "again")
	require.Equal(t, "false\n", out)
	out, _ = run(t, m, "", "replace", "greeting", "hi")
	require.Equal(t, "hello\n", out)

	out, _ = run(t, m, "", "ttl", "greeting")
	require.Equal(t, "none\n", out)
	out, _ = run(t, m, "", "expire", "greeting", "1m")
	require.Equal(t, "true\n", out)
	out, _ = run(t, m, "", "ttl", "missing")
	require.Equal(t, "missing\n", out)

	out, _ = run(t, m, "", "exists", "greeting")
	require.Equal(t, "true\n", out)
	out, _ = run(t, m, "", "del", "greeting", "missing")
	require.Equal(t, "1\n", out)
}

func TestIncr(t *testing.T) {
	m := newMem(t)
	_, _ = run(t, m, "", "set", "n", "123")
	out, err := run(t, m, "", "incr", "n", "22")
	require.NoError(t, err)
	require.Equal(t, "145\n", out)

	_, _ = run(t, m, "", "set", "f", "456")
	out, _ = run(t, m, "", "incr", "--float", "f", "22.5")
	require.Equal(t, "478.5\n", out)

	_, err = run(t, m, "", "incr", "n", "abc")
	require.Error(t, err)
}

func TestNamespacedKeysAndClear(t *testing.T) {
	m := newMem(t)
	for _, k := range []string{"a", "b", "c"} {
		_, err := run(t, m, "", "--namespace", "app", "set", k, "1")
		require.NoError(t, err)
	}
	_, _ = run(t, m, "", "set", "outside", "1")

	out, err := run(t, m, "", "--namespace", "app", "keys", "--count", "2")
	require.NoError(t, err)
	keys := strings.Fields(out)
	require.ElementsMatch(t, []string{"a", "b", "c"}, keys)

	out, _ = run(t, m, "", "--namespace", "app", "match", "a*")
	require.Equal(t, "a\n", out)

	_, err = run(t, m, "", "--namespace", "app", "clear")
	require.ErrorIs(t, err, errNotConfirmed)

	_, err = run(t, m, "", "--namespace", "app", "clear", "--yes")
	require.NoError(t, err)
	out, _ = run(t, m, "", "--namespace", "app", "count")
	require.Equal(t, "0\n", out)
	out, _ = run(t, m, "", "count")
	require.Equal(t, "1\n", out)
}

func TestPipe(t *testing.T) {
	m := newMem(t)
	stdin := `# seed
set A 1
set B 2 1m
del A
incr counter 5
add B 3
`
	out, err := run(t, m, stdin, "pipe")
	require.NoError(t, err)
	require.Equal(t, "1) OK\n2) OK\n3) (integer) 1\n4) (integer) 5\n5) (nil)\n", out)

	_, err = run(t, m, "get A\n", "pipe")
	require.ErrorContains(t, err, `line 1: unsupported command "get"`)
}

func TestLockCommands(t *testing.T) {
	m := newMem(t)
	out, err := run(t, m, "", "lock", "jobs", "--ttl", "1m")
	require.NoError(t, err)
	require.Contains(t, out, "locked jobs")
	require.Contains(t, out, "released jobs")

	c, err := rkv.New(rkv.Options{Executor: m})
	require.NoError(t, err)
	held, err := c.AcquireLock(context.Background(), "jobs", time.Minute)
	require.NoError(t, err)
	defer held.Close()

	start := time.Now()
	_, err = run(t, m, "", "lock", "jobs", "--wait", "50ms")
	require.ErrorIs(t, err, rkv.ErrLockContended)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestBackends(t *testing.T) {
	mr := miniredis.RunT(t)
	for _, backend := range []string{"redis", "redigo"} {
		t.Run(backend, func(t *testing.T) {
			out, err := run(t, nil, "", "--backend", backend, "--addr", mr.Addr(), "set", "k", backend)
			require.NoError(t, err)
			require.Equal(t, "OK\n", out)

			v, err := mr.Get("k")
			require.NoError(t, err)
			require.Equal(t, backend, v)

			out, err = run(t, nil, "", "--backend", backend, "--addr", mr.Addr(), "ping")
			require.NoError(t, err)
			require.Equal(t, "PONG\n", out)
		})
	}

	_, err := run(t, nil, "", "--backend", "nope", "ping")
	require.ErrorContains(t, err, "invalid backend")
}

func TestTeardownAfterFailedCommand(t *testing.T) {
	m := newMem(t)
	a := newApp(io.Discard, strings.NewReader(""))
	a.exec = m
	root := newRootCmd(a)

	var cmdCtx context.Context
	failing := errors.New("failed midway")
	root.AddCommand(&cobra.Command{
		Use: "fail",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx = cmd.Context()
			if err := a.client.Set(cmdCtx, "queued", []byte("v"), 0); err != nil {
				return err
			}
			return failing
		},
	})
	root.SetArgs([]string{"--log-level", "error", "--auto-pipeline", "10", "fail"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	err := a.execute(root)
	require.ErrorIs(t, err, failing)
	require.Nil(t, a.client)
	require.ErrorIs(t, cmdCtx.Err(), context.Canceled)

	// Close flushed the write the failed command left queued
	r, err := m.Do(context.Background(), ex.Cmd("GET", "queued"))
	require.NoError(t, err)
	v, ok, err := r.Text()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestWrapString(t *testing.T) {
	s := wrapString(strings.Repeat("word ", 30))
	for _, line := range strings.Split(s, "\n") {
		require.LessOrEqual(t, len(line), wrap)
	}
}
