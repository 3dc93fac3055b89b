package cache

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// KeySeparator joins the components of every cache key
const KeySeparator = ":"

// KeyArgs is the stable encoding input of a call's arguments.
// Positional arguments keep their order; named arguments are sorted by name.
type KeyArgs struct {
	Positional []interface{}
	Named      map[string]interface{}
}

// Args builds KeyArgs from positional arguments
func Args(positional ...interface{}) KeyArgs {
	return KeyArgs{Positional: positional}
}

// With adds a named argument
func (a KeyArgs) With(name string, value interface{}) KeyArgs {
	named := make(map[string]interface{}, len(a.Named)+1)
	for k, v := range a.Named {
		named[k] = v
	}
	named[name] = value
	return KeyArgs{Positional: a.Positional, Named: named}
}

// BuildKey composes "{prefix}:{args joined by ':'}".
func BuildKey(prefix string, args KeyArgs) string {
	parts := make([]string, 0, 1+len(args.Positional)+len(args.Named))
	if prefix != "" {
		parts = append(parts, prefix)
	}
	for _, arg := range args.Positional {
		parts = append(parts, formatKeyArg(arg))
	}

	names := make([]string, 0, len(args.Named))
	for name := range args.Named {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, name+"="+formatKeyArg(args.Named[name]))
	}
	return strings.Join(parts, KeySeparator)
}

// JoinKey joins raw key components
func JoinKey(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

func formatKeyArg(arg interface{}) string {
	switch v := arg.(type) {
	case nil:
		return "nil"
	case string:
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case time.Duration:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func prefixed(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + KeySeparator + key
}
