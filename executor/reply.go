package executor

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnexpectedReply is returned by Reply accessors when the value has a
// shape the accessor cannot convert.
var ErrUnexpectedReply = errors.New("executor: unexpected reply type")

// Reply is the answer to one Command.
type Reply struct {
	Val any
	Err error // server error for this command only
}

// IsNil reports a null reply.
func (r Reply) IsNil() bool { return r.Err == nil && r.Val == nil }

// Bytes returns a bulk value. ok is false for a null reply.
func (r Reply) Bytes() (b []byte, ok bool, err error) {
	if r.Err != nil {
		return nil, false, r.Err
	}
	switch v := r.Val.(type) {
	case nil:
		return nil, false, nil
	case []byte:
		return v, true, nil
	case string:
		return []byte(v), true, nil
	default:
		return nil, false, fmt.Errorf("%w: %T as bytes", ErrUnexpectedReply, r.Val)
	}
}

// Text returns a bulk or status value as a string.
func (r Reply) Text() (s string, ok bool, err error) {
	if r.Err != nil {
		return "", false, r.Err
	}
	switch v := r.Val.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	case []byte:
		return string(v), true, nil
	case int64:
		return strconv.FormatInt(v, 10), true, nil
	default:
		return "", false, fmt.Errorf("%w: %T as text", ErrUnexpectedReply, r.Val)
	}
}

// Int returns an integer reply. Bulk strings holding a decimal integer are
// accepted as well.
func (r Reply) Int() (int64, error) {
	if r.Err != nil {
		return 0, r.Err
	}
	switch v := r.Val.(type) {
	case int64:
		return v, nil
	case string:
		return parseInt(v)
	case []byte:
		return parseInt(string(v))
	default:
		return 0, fmt.Errorf("%w: %T as int", ErrUnexpectedReply, r.Val)
	}
}

// Float returns a float reply (INCRBYFLOAT answers with a bulk string).
func (r Reply) Float() (float64, error) {
	if r.Err != nil {
		return 0, r.Err
	}
	switch v := r.Val.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case string:
		return parseFloat(v)
	case []byte:
		return parseFloat(string(v))
	default:
		return 0, fmt.Errorf("%w: %T as float", ErrUnexpectedReply, r.Val)
	}
}

// Bool interprets an integer reply as 1 = true.
func (r Reply) Bool() (bool, error) {
	n, err := r.Int()
	return n == 1, err
}

// OK reports whether the reply is the status "OK". A null reply (e.g. SET NX
// on an existing key) returns false without error.
func (r Reply) OK() (bool, error) {
	s, ok, err := r.Text()
	if err != nil || !ok {
		return false, err
	}
	return s == "OK", nil
}

// Slice returns an array reply as replies.
func (r Reply) Slice() ([]Reply, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	switch v := r.Val.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]Reply, len(v))
		for i, e := range v {
			if se, ok := e.(error); ok {
				out[i] = Reply{Err: se}
				continue
			}
			out[i] = Reply{Val: e}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T as array", ErrUnexpectedReply, r.Val)
	}
}

// Strings returns an array of bulk strings. Null members become "".
func (r Reply) Strings() ([]string, error) {
	items, err := r.Slice()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, it := range items {
		s, _, err := it.Text()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q as int", ErrUnexpectedReply, s)
	}
	return n, nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q as float", ErrUnexpectedReply, s)
	}
	return f, nil
}
