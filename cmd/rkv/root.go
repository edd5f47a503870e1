package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/rkv"
	ex "github.com/unkn0wn-root/rkv/executor"
	"github.com/unkn0wn-root/rkv/executor/memory"
	"github.com/unkn0wn-root/rkv/executor/redigo"
	"github.com/unkn0wn-root/rkv/executor/redis"
	rkvzap "github.com/unkn0wn-root/rkv/log/zap"
)

const wrap = 50

// app is the state of one invocation.
type app struct {
	v   *viper.Viper
	out io.Writer
	in  io.Reader

	exec   ex.Executor // preset executors are borrowed, never closed
	client *rkv.Client
	zl     *zap.Logger

	cancel context.CancelFunc
}

func newApp(out io.Writer, in io.Reader) *app {
	return &app{v: viper.New(), out: out, in: in}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "rkv",
		Short: "Redis-protocol key-value client",
		Long: `rkv talks to a Redis-compatible server through the rkv client library.

Every flag can also be set through the environment with the RKV_ prefix
(RKV_ADDR, RKV_AUTO_PIPELINE, ...) or in .env / .env.local.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	f := root.PersistentFlags()
	f.String("backend", "redis", wrapString("Executor to use: redis (go-redis), redigo or memory"))
	f.String("addr", "localhost:6379", wrapString("Server address"))
	f.String("password", "", wrapString("Server password"))
	f.Int("db", 0, wrapString("Database index"))
	f.String("namespace", "", wrapString("Prefix every key with <namespace>:"))
	f.Int("auto-pipeline", 0, wrapString("Queue writes and send them in batches of this size (0 disables)"))
	f.Duration("default-ttl", 0, wrapString("Expiry applied when a command does not pass one (0 = none)"))
	f.Duration("timeout", 10*time.Second, wrapString("Deadline for the whole invocation"))
	f.String("log-level", "warn", wrapString("debug, info, warn or error"))

	root.AddCommand(
		getCmd(a), setCmd(a), addCmd(a), replaceCmd(a), delCmd(a), existsCmd(a),
		incrCmd(a), ttlCmd(a), expireCmd(a),
		keysCmd(a), matchCmd(a), countCmd(a), clearCmd(a), pingCmd(a),
		lockCmd(a), pipeCmd(a),
	)
	return root
}

// setup loads configuration and builds the client for the running command.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	a.v.SetEnvPrefix("rkv")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	zl, err := newZap(a.v.GetString("log-level"))
	if err != nil {
		return err
	}
	a.zl = zl

	exec, owned := a.exec, false
	if exec == nil {
		if exec, err = a.dial(); err != nil {
			return err
		}
		owned = true
	}

	a.client, err = rkv.New(rkv.Options{
		Executor:      exec,
		CloseExecutor: owned,
		Namespace:     a.v.GetString("namespace"),
		Logger:        rkvzap.New(zl),
		DefaultTTL:    a.v.GetDuration("default-ttl"),
		AutoPipeline:  a.v.GetInt("auto-pipeline"),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.v.GetDuration("timeout"))
	a.cancel = cancel
	cmd.SetContext(ctx)
	return nil
}

// execute runs root and releases whatever setup built, also when the
// command or setup itself failed. cobra skips post-run hooks on error.
func (a *app) execute(root *cobra.Command) error {
	err := root.Execute()
	return errors.Join(err, a.teardown())
}

func (a *app) teardown() error {
	var err error
	if a.client != nil {
		err = a.client.Close(context.Background())
		a.client = nil
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.zl != nil {
		_ = a.zl.Sync()
		a.zl = nil
	}
	return err
}

func (a *app) dial() (ex.Executor, error) {
	addr, pass, db := a.v.GetString("addr"), a.v.GetString("password"), a.v.GetInt("db")
	switch backend := a.v.GetString("backend"); backend {
	case "redis":
		return redis.Dial(addr, pass, db), nil
	case "redigo":
		return redigo.Dial(addr, pass, db), nil
	case "memory":
		return memory.New(memory.Config{}), nil
	default:
		return nil, fmt.Errorf("invalid backend %q", backend)
	}
}

func newZap(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// wrapString wraps help text at wrap characters.
func wrapString(text string) string {
	var (
		lines []string
		line  strings.Builder
	)
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > wrap {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

var errNotConfirmed = errors.New("refusing to clear without --yes")
