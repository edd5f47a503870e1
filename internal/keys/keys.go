// Package keys maps caller keys into a client's logical namespace.
package keys

import "strings"

// Namespace is a key prefix. The empty Namespace leaves keys untouched.
type Namespace string

// Key returns the storage key for k.
func (ns Namespace) Key(k string) string {
	if ns == "" {
		return k
	}
	return string(ns) + ":" + k
}

// Args maps Key over ks, ready to pass as command arguments.
func (ns Namespace) Args(ks []string) []any {
	out := make([]any, len(ks))
	for i, k := range ks {
		out[i] = ns.Key(k)
	}
	return out
}

// Strip turns a storage key back into the caller's key.
// ok is false when storageKey is outside the namespace.
func (ns Namespace) Strip(storageKey string) (string, bool) {
	if ns == "" {
		return storageKey, true
	}
	return strings.CutPrefix(storageKey, string(ns)+":")
}

// Pattern scopes a glob pattern to the namespace. Meta characters in the
// namespace itself are escaped so they match literally.
func (ns Namespace) Pattern(p string) string {
	if ns == "" {
		return p
	}
	return EscapeGlob(string(ns)) + ":" + p
}

// EscapeGlob backslash-escapes the characters Redis treats as glob syntax.
func EscapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\{}^`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '{', '}', '^':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
