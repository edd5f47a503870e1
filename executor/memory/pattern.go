package memory

import (
	"errors"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	ex "github.com/unkn0wn-root/rkv/executor"
)

// maxClassRunes bounds how far a [a-z] range is expanded.
const maxClassRunes = 4096

var (
	errClassTooLarge = errors.New("character class too large")
	// an empty [] class: the pattern can never match
	errEmptyClass = errors.New("empty character class")
)

type never struct{}

func (never) Match(string) bool { return false }

func compile(pattern string) (glob.Glob, error) {
	src, err := globSource(pattern)
	if errors.Is(err, errEmptyClass) {
		return never{}, nil
	}
	if err != nil {
		return nil, ex.ServerError("ERR invalid pattern: " + err.Error())
	}
	g, err := glob.Compile(src)
	if err != nil {
		return nil, ex.ServerError("ERR invalid pattern: " + err.Error())
	}
	return g, nil
}

// globSource rewrites a Redis pattern in gobwas/glob syntax.
//
// Redis negates a class with ^, allows ranges and single characters in
// one class and has no {a,b} alternation. gobwas negates with ! and reads
// a class as either one range or one list, so every class is flattened
// into a list and every literal outside a class is escaped.
func globSource(pattern string) (string, error) {
	rs := []rune(pattern)
	var b strings.Builder
	b.Grow(len(pattern) + 8)
	for i := 0; i < len(rs); i++ {
		switch r := rs[i]; r {
		case '*', '?':
			b.WriteRune(r)
		case '\\':
			if i+1 < len(rs) {
				i++
				r = rs[i]
			}
			writeLiteral(&b, r)
		case '[':
			n, err := writeClass(&b, rs[i+1:])
			if err != nil {
				return "", err
			}
			i += n
		default:
			writeLiteral(&b, r)
		}
	}
	return b.String(), nil
}

func writeLiteral(b *strings.Builder, r rune) {
	if strings.ContainsRune(`*?[]{},!-\`, r) {
		b.WriteByte('\\')
	}
	b.WriteRune(r)
}

// writeClass consumes the class body that follows '[' and reports how many
// runes it used. A class left open runs to the end of the pattern.
func writeClass(b *strings.Builder, rs []rune) (int, error) {
	i := 0
	negate := i < len(rs) && rs[i] == '^'
	if negate {
		i++
	}
	var set []rune
	for ; i < len(rs) && rs[i] != ']'; i++ {
		switch {
		case rs[i] == '\\' && i+1 < len(rs):
			i++
			set = append(set, rs[i])
		case i+2 < len(rs) && rs[i+1] == '-' && rs[i+2] != ']':
			lo, hi := rs[i], rs[i+2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if int(hi-lo)+len(set) >= maxClassRunes {
				return 0, errClassTooLarge
			}
			for c := lo; c <= hi; c++ {
				set = append(set, c)
			}
			i += 2
		default:
			set = append(set, rs[i])
		}
	}
	used := min(i+1, len(rs))

	slices.Sort(set)
	set = slices.Compact(set)
	switch {
	case len(set) == 0 && negate:
		b.WriteByte('?')
		return used, nil
	case len(set) == 0:
		return 0, errEmptyClass
	case len(set) == 1 && !negate:
		writeLiteral(b, set[0])
		return used, nil
	}

	// gobwas reads "x-" at the head of a class as a range and a leading '!'
	// as negation: '-' goes first, '!' last.
	if j := slices.Index(set, '-'); j > 0 {
		set = append([]rune{'-'}, slices.Delete(set, j, j+1)...)
	}
	if !negate && set[0] == '!' {
		set = append(set[1:], '!')
	}

	b.WriteByte('[')
	if negate {
		b.WriteByte('!')
	}
	for _, r := range set {
		if r == ']' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte(']')
	return used, nil
}
