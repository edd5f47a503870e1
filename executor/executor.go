// Package executor defines the transport abstraction used by rkv.
//
// An Executor sends Redis-protocol commands to a store and returns their
// replies. rkv never speaks the wire protocol itself; it builds Commands and
// reads Replies through this package.
//
// Reply values are normalised by every implementation to one of:
//
//	nil      - null bulk reply (missing key)
//	string   - bulk or status reply (implementations may use []byte for bulk)
//	int64    - integer reply
//	[]any    - array reply, members normalised the same way
//
// Server-side errors (e.g. WRONGTYPE, "value is not an integer") are reported
// as ServerError. Anything else returned as an error is a transport failure.
package executor

import (
	"context"
	"errors"
	"strings"
)

// Executor runs commands against a Redis-protocol store.
// Implementations must be safe for concurrent use.
type Executor interface {
	// Do sends one command and waits for its reply.
	// A server error is returned both as Reply.Err and as err.
	Do(ctx context.Context, cmd Command) (Reply, error)

	// DoBatch sends cmds as one network exchange and returns exactly
	// len(cmds) replies in order. Server errors stay inside the
	// individual replies. A transport failure fails the whole call and
	// no replies are returned.
	DoBatch(ctx context.Context, cmds []Command) ([]Reply, error)

	// Close releases resources.
	Close(ctx context.Context) error
}

// Command is a verb plus its arguments.
type Command struct {
	Name string
	Args []any
}

// Cmd builds a Command.
func Cmd(name string, args ...any) Command {
	return Command{Name: name, Args: args}
}

// Verb returns the upper-cased command name.
func (c Command) Verb() string { return strings.ToUpper(c.Name) }

// Flat returns name followed by args, the shape most client libraries take.
func (c Command) Flat() []any {
	out := make([]any, 0, len(c.Args)+1)
	out = append(out, c.Name)
	return append(out, c.Args...)
}

// ServerError is an error reply sent by the store for a single command.
type ServerError string

func (e ServerError) Error() string { return string(e) }

// IsServerError reports whether err is (or wraps) a ServerError.
func IsServerError(err error) bool {
	var se ServerError
	return errors.As(err, &se)
}
