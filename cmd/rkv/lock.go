package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func lockCmd(a *app) *cobra.Command {
	var ttl, wait, hold time.Duration
	c := &cobra.Command{
		Use:   "lock [key]",
		Short: "Acquires a lock, holds it and releases it",
		Long: wrapString(`Acquires the lock named key, waiting up to --wait for
another holder. The lock is held for --hold and then released; it expires on
its own after --ttl if the process dies first.`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start := time.Now()
			l, err := a.client.AcquireLockTTL(ctx, args[0], ttl, wait)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "locked %s after %s\n", l.Key(), time.Since(start).Round(time.Millisecond))

			select {
			case <-time.After(hold):
			case <-ctx.Done():
			}
			if err := l.Release(context.WithoutCancel(ctx)); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "released %s\n", l.Key())
			return nil
		},
	}
	c.Flags().DurationVar(&ttl, "ttl", 30*time.Second, "Lock lifetime")
	c.Flags().DurationVar(&wait, "wait", 5*time.Second, "How long to wait for the lock")
	c.Flags().DurationVar(&hold, "hold", 0, "How long to hold the lock before releasing it")
	return c
}
