package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	ex "github.com/unkn0wn-root/rkv/executor"
	"github.com/unkn0wn-root/rkv/executor/executortest"
)

func TestRedisExecutor(t *testing.T) {
	executortest.Run(t, func(t *testing.T) ex.Executor {
		mr := miniredis.RunT(t)
		return Dial(mr.Addr(), "", 0)
	})
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrNilClient)
}

func TestBorrowedClientStaysOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), Protocol: 2})
	t.Cleanup(func() { _ = rdb.Close() })

	e, err := New(Config{Client: rdb})
	require.NoError(t, err)
	require.NoError(t, e.Close(context.Background()))

	require.NoError(t, rdb.Ping(context.Background()).Err())
}

func TestTransportFailureFailsBatch(t *testing.T) {
	mr := miniredis.RunT(t)
	e := Dial(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	mr.Close()

	replies, err := e.DoBatch(context.Background(), []ex.Command{
		ex.Cmd("SET", "a", "1"),
		ex.Cmd("SET", "b", "2"),
	})
	require.Error(t, err)
	require.False(t, ex.IsServerError(err))
	require.Nil(t, replies)

	_, err = e.Do(context.Background(), ex.Cmd("GET", "a"))
	require.Error(t, err)
	require.False(t, ex.IsServerError(err))
}
