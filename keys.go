package methodcache

import (
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// KeyFunc derives a cache key from a method's call arguments.
// ok=false signals that the arguments cannot be keyed.
type KeyFunc func(args ...any) (key string, ok bool)

var _ KeyFunc = GenerateKey

// GenerateKey is the default KeyFunc. Every argument must be a string, bool,
// integer or float (named types included); anything else fails the whole key.
// Arguments are percent-escaped (spaces as %20) and joined with ':' so an
// argument can never forge a separator. Zero arguments yield the empty key.
func GenerateKey(args ...any) (string, bool) {
	var sb strings.Builder
	for i, arg := range args {
		s, ok := formatPrimitive(arg)
		if !ok {
			return "", false
		}
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(escapeArg(s))
	}
	return sb.String(), true
}

// escapeArg query-escapes s with spaces as %20. A literal '+' is already
// %2B, so every remaining '+' stands for a space.
func escapeArg(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func formatPrimitive(arg any) (string, bool) {
	switch v := arg.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case nil:
		return "", false
	}

	rv := reflect.ValueOf(arg)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), true
	default:
		return "", false
	}
}
