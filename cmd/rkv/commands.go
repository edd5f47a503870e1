package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/rkv"
	ex "github.com/unkn0wn-root/rkv/executor"
)

func getCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, ok, err := a.client.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printValue(v, ok)
			return nil
		},
	}
}

func setCmd(a *app) *cobra.Command {
	var ttl time.Duration
	c := &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Set(cmd.Context(), args[0], []byte(args[1]), ttl); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "OK")
			return nil
		},
	}
	c.Flags().DurationVar(&ttl, "ttl", 0, "Expiry for the key (0 = default-ttl)")
	return c
}

func addCmd(a *app) *cobra.Command {
	var ttl time.Duration
	c := &cobra.Command{
		Use:   "add [key] [value]",
		Short: "Sets the value only if the key does not exist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.client.Add(cmd.Context(), args[0], []byte(args[1]), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, ok)
			return nil
		},
	}
	c.Flags().DurationVar(&ttl, "ttl", 0, "Expiry for the key (0 = default-ttl)")
	return c
}

func replaceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "replace [key] [value]",
		Short: "Sets the value and prints the previous one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prev, ok, err := a.client.Replace(cmd.Context(), args[0], []byte(args[1]))
			if err != nil {
				return err
			}
			a.printValue(prev, ok)
			return nil
		},
	}
}

func delCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "del [key...]",
		Short: "Deletes keys and prints how many existed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.client.Remove(cmd.Context(), args...)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, n)
			return nil
		},
	}
}

func existsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exists [key]",
		Short: "Reports whether a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := a.client.ContainsKey(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, ok)
			return nil
		},
	}
}

func incrCmd(a *app) *cobra.Command {
	var float bool
	c := &cobra.Command{
		Use:   "incr [key] [delta]",
		Short: "Adds delta (default 1) to a numeric value",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta := "1"
			if len(args) == 2 {
				delta = args[1]
			}
			if float {
				d, err := strconv.ParseFloat(delta, 64)
				if err != nil {
					return fmt.Errorf("delta must be a number: %w", err)
				}
				f, err := a.client.IncrementFloat(cmd.Context(), args[0], d)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, strconv.FormatFloat(f, 'f', -1, 64))
				return nil
			}
			d, err := strconv.ParseInt(delta, 10, 64)
			if err != nil {
				return fmt.Errorf("delta must be an integer: %w", err)
			}
			n, err := a.client.IncrementInt(cmd.Context(), args[0], d)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, n)
			return nil
		},
	}
	c.Flags().BoolVar(&float, "float", false, "Treat the value and delta as floating point")
	return c
}

func ttlCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ttl [key]",
		Short: "Prints the remaining time to live of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, err := a.client.GetExpire(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			switch ttl {
			case rkv.TTLNone:
				fmt.Fprintln(a.out, "none")
			case rkv.TTLMissing:
				fmt.Fprintln(a.out, "missing")
			default:
				fmt.Fprintln(a.out, ttl)
			}
			return nil
		},
	}
}

func expireCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "expire [key] [ttl]",
		Short: "Sets a new time to live on an existing key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, err := time.ParseDuration(args[1])
			if err != nil {
				return fmt.Errorf("ttl must be a duration: %w", err)
			}
			ok, err := a.client.SetExpire(cmd.Context(), args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, ok)
			return nil
		},
	}
}

func keysCmd(a *app) *cobra.Command {
	var count int
	c := &cobra.Command{
		Use:   "keys [pattern]",
		Short: "Lists keys with an incremental SCAN",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}
			return a.client.ScanFunc(cmd.Context(), pattern, count, func(k string) bool {
				fmt.Fprintln(a.out, k)
				return true
			})
		},
	}
	c.Flags().IntVar(&count, "count", 100, "SCAN COUNT hint per page")
	return c
}

func matchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "match [pattern]",
		Short: "Lists keys with a single KEYS call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := a.client.Match(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(a.out, k)
			}
			return nil
		},
	}
}

func countCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Prints the number of keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.client.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, n)
			return nil
		},
	}
}

func clearCmd(a *app) *cobra.Command {
	var yes bool
	c := &cobra.Command{
		Use:   "clear",
		Short: "Removes every key (only the namespace when one is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errNotConfirmed
			}
			if err := a.client.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "OK")
			return nil
		},
	}
	c.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return c
}

func pingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Checks the connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "PONG")
			return nil
		},
	}
}

func (a *app) printValue(v []byte, ok bool) {
	if !ok {
		fmt.Fprintln(a.out, "(nil)")
		return
	}
	fmt.Fprintln(a.out, string(v))
}

func (a *app) printReply(i int, r ex.Reply) {
	switch v := r.Val; {
	case r.Err != nil:
		fmt.Fprintf(a.out, "%d) (error) %v\n", i, r.Err)
	case v == nil:
		fmt.Fprintf(a.out, "%d) (nil)\n", i)
	default:
		if n, ok := v.(int64); ok {
			fmt.Fprintf(a.out, "%d) (integer) %d\n", i, n)
			return
		}
		s, _, err := r.Text()
		if err != nil {
			fmt.Fprintf(a.out, "%d) %v\n", i, v)
			return
		}
		fmt.Fprintf(a.out, "%d) %s\n", i, s)
	}
}
