package memory

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	ex "github.com/unkn0wn-root/rkv/executor"
)

type handler func(m *Memory, args []string) (any, error)

var handlers = map[string]handler{
	"PING":        cmdPing,
	"SET":         cmdSet,
	"GET":         cmdGet,
	"GETSET":      cmdGetSet,
	"DEL":         cmdDel,
	"EXISTS":      cmdExists,
	"PEXPIRE":     cmdPExpire,
	"PTTL":        cmdPTTL,
	"INCRBY":      cmdIncrBy,
	"INCRBYFLOAT": cmdIncrByFloat,
	"MGET":        cmdMGet,
	"MSET":        cmdMSet,
	"KEYS":        cmdKeys,
	"SCAN":        cmdScan,
	"DBSIZE":      cmdDBSize,
	"FLUSHDB":     cmdFlush,
}

var (
	errSyntax   = ex.ServerError("ERR syntax error")
	errNotInt   = ex.ServerError("ERR value is not an integer or out of range")
	errNotFloat = ex.ServerError("ERR value is not a valid float")
)

func errArity(name string) error {
	return ex.ServerError("ERR wrong number of arguments for '" + strings.ToLower(name) + "' command")
}

func cmdPing(_ *Memory, args []string) (any, error) {
	if len(args) > 1 {
		return nil, errArity("ping")
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return "PONG", nil
}

// SET key value [PX ms | EX s] [NX | XX]
func cmdSet(m *Memory, args []string) (any, error) {
	if len(args) < 2 {
		return nil, errArity("set")
	}
	key, val := args[0], []byte(args[1])
	var (
		ttl    time.Duration
		nx, xx bool
	)
	for i := 2; i < len(args); i++ {
		switch strings.ToUpper(args[i]) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "PX", "EX":
			if i+1 >= len(args) {
				return nil, errSyntax
			}
			n, err := strconv.ParseInt(args[i+1], 10, 64)
			if err != nil || n <= 0 {
				return nil, ex.ServerError("ERR invalid expire time in 'set' command")
			}
			unit := time.Millisecond
			if strings.EqualFold(args[i], "EX") {
				unit = time.Second
			}
			ttl = time.Duration(n) * unit
			i++
		default:
			return nil, errSyntax
		}
	}
	if nx && xx {
		return nil, errSyntax
	}

	now := m.now()
	next := entry{val: val}
	if ttl > 0 {
		next.expireAt = now.Add(ttl)
	}
	written := false
	m.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
		live := loaded && !old.expired(now)
		if (nx && live) || (xx && !live) {
			return old, !loaded
		}
		written = true
		return next, false
	})
	if !written {
		return nil, nil
	}
	return "OK", nil
}

func cmdGet(m *Memory, args []string) (any, error) {
	if len(args) != 1 {
		return nil, errArity("get")
	}
	e, ok := m.load(args[0])
	if !ok {
		return nil, nil
	}
	return string(e.val), nil
}

func cmdGetSet(m *Memory, args []string) (any, error) {
	if len(args) != 2 {
		return nil, errArity("getset")
	}
	now := m.now()
	var prev any
	m.data.Compute(args[0], func(old entry, loaded bool) (entry, bool) {
		if loaded && !old.expired(now) {
			prev = string(old.val)
		}
		return entry{val: []byte(args[1])}, false
	})
	return prev, nil
}

func cmdDel(m *Memory, args []string) (any, error) {
	if len(args) == 0 {
		return nil, errArity("del")
	}
	now := m.now()
	var n int64
	for _, k := range args {
		m.data.Compute(k, func(old entry, loaded bool) (entry, bool) {
			if loaded && !old.expired(now) {
				n++
			}
			return old, true
		})
	}
	return n, nil
}

func cmdExists(m *Memory, args []string) (any, error) {
	if len(args) == 0 {
		return nil, errArity("exists")
	}
	var n int64
	for _, k := range args {
		if _, ok := m.load(k); ok {
			n++
		}
	}
	return n, nil
}

func cmdPExpire(m *Memory, args []string) (any, error) {
	if len(args) != 2 {
		return nil, errArity("pexpire")
	}
	ms, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return nil, errNotInt
	}
	now := m.now()
	var n int64
	m.data.Compute(args[0], func(old entry, loaded bool) (entry, bool) {
		if !loaded || old.expired(now) {
			return old, true
		}
		n = 1
		if ms <= 0 {
			return old, true
		}
		old.expireAt = now.Add(time.Duration(ms) * time.Millisecond)
		return old, false
	})
	return n, nil
}

func cmdPTTL(m *Memory, args []string) (any, error) {
	if len(args) != 1 {
		return nil, errArity("pttl")
	}
	e, ok := m.load(args[0])
	switch {
	case !ok:
		return int64(-2), nil
	case e.expireAt.IsZero():
		return int64(-1), nil
	default:
		return e.expireAt.Sub(m.now()).Milliseconds(), nil
	}
}

func cmdIncrBy(m *Memory, args []string) (any, error) {
	if len(args) != 2 {
		return nil, errArity("incrby")
	}
	delta, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return nil, errNotInt
	}
	now := m.now()
	var (
		result int64
		opErr  error
	)
	m.data.Compute(args[0], func(old entry, loaded bool) (entry, bool) {
		orig := old
		var cur int64
		if loaded && !old.expired(now) {
			cur, err = strconv.ParseInt(string(old.val), 10, 64)
			if err != nil {
				opErr = errNotInt
				return orig, false
			}
		} else {
			old = entry{}
		}
		if (delta > 0 && cur > math.MaxInt64-delta) || (delta < 0 && cur < math.MinInt64-delta) {
			opErr = ex.ServerError("ERR increment or decrement would overflow")
			return orig, !loaded
		}
		result = cur + delta
		old.val = []byte(strconv.FormatInt(result, 10))
		return old, false
	})
	if opErr != nil {
		return nil, opErr
	}
	return result, nil
}

func cmdIncrByFloat(m *Memory, args []string) (any, error) {
	if len(args) != 2 {
		return nil, errArity("incrbyfloat")
	}
	delta, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return nil, errNotFloat
	}
	now := m.now()
	var (
		result string
		opErr  error
	)
	m.data.Compute(args[0], func(old entry, loaded bool) (entry, bool) {
		orig := old
		var cur float64
		if loaded && !old.expired(now) {
			cur, err = strconv.ParseFloat(string(old.val), 64)
			if err != nil {
				opErr = errNotFloat
				return orig, false
			}
		} else {
			old = entry{}
		}
		sum := cur + delta
		if math.IsNaN(sum) || math.IsInf(sum, 0) {
			opErr = ex.ServerError("ERR increment would produce NaN or Infinity")
			return orig, !loaded
		}
		result = strconv.FormatFloat(sum, 'f', -1, 64)
		old.val = []byte(result)
		return old, false
	})
	if opErr != nil {
		return nil, opErr
	}
	return result, nil
}

func cmdMGet(m *Memory, args []string) (any, error) {
	if len(args) == 0 {
		return nil, errArity("mget")
	}
	out := make([]any, len(args))
	for i, k := range args {
		if e, ok := m.load(k); ok {
			out[i] = string(e.val)
		}
	}
	return out, nil
}

func cmdMSet(m *Memory, args []string) (any, error) {
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, errArity("mset")
	}
	for i := 0; i < len(args); i += 2 {
		m.data.Store(args[i], entry{val: []byte(args[i+1])})
	}
	return "OK", nil
}

func cmdKeys(m *Memory, args []string) (any, error) {
	if len(args) != 1 {
		return nil, errArity("keys")
	}
	g, err := compile(args[0])
	if err != nil {
		return nil, err
	}
	keys := m.liveKeys()
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		if g.Match(k) {
			out = append(out, k)
		}
	}
	return out, nil
}

// SCAN cursor [MATCH pattern] [COUNT n]
//
// The cursor is an offset into the sorted live keyspace. Keys added or
// removed between calls may be skipped or repeated, as with Redis.
func cmdScan(m *Memory, args []string) (any, error) {
	if len(args) == 0 {
		return nil, errArity("scan")
	}
	cursor, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return nil, ex.ServerError("ERR invalid cursor")
	}
	pattern, count := "*", 10
	for i := 1; i < len(args); i += 2 {
		if i+1 >= len(args) {
			return nil, errSyntax
		}
		switch strings.ToUpper(args[i]) {
		case "MATCH":
			pattern = args[i+1]
		case "COUNT":
			count, err = strconv.Atoi(args[i+1])
			if err != nil || count < 1 {
				return nil, errSyntax
			}
		default:
			return nil, errSyntax
		}
	}
	g, err := compile(pattern)
	if err != nil {
		return nil, err
	}

	keys := m.liveKeys()
	start := int(min(cursor, uint64(len(keys))))
	end := min(start+count, len(keys))
	page := make([]any, 0, end-start)
	for _, k := range keys[start:end] {
		if g.Match(k) {
			page = append(page, k)
		}
	}
	next := uint64(0)
	if end < len(keys) {
		next = uint64(end)
	}
	return []any{strconv.FormatUint(next, 10), page}, nil
}

func cmdDBSize(m *Memory, args []string) (any, error) {
	if len(args) != 0 {
		return nil, errArity("dbsize")
	}
	return int64(m.Len()), nil
}

func cmdFlush(m *Memory, _ []string) (any, error) {
	m.data.Clear()
	return "OK", nil
}

func (m *Memory) liveKeys() []string {
	now := m.now()
	keys := make([]string, 0, m.data.Size())
	m.data.Range(func(k string, e entry) bool {
		if !e.expired(now) {
			keys = append(keys, k)
		}
		return true
	})
	sort.Strings(keys)
	return keys
}

func argString(a any) (string, error) {
	switch v := a.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	default:
		return "", ex.ServerError(fmt.Sprintf("ERR unsupported argument type %T", a))
	}
}
