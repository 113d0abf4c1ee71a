package httpclient

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// routeParamPattern matches a "/:name" placeholder segment.
var routeParamPattern = regexp.MustCompile(`/:([a-zA-Z0-9_]+)`)

// compileURL fills the "/:name" placeholders of template from params and
// appends the encoded query.
//
// A placeholder whose value is missing or falsy is dropped together with its
// leading slash, so "/api/:id" without an id compiles to "/api".
func compileURL(template string, params map[string]any, query *Query) string {
	compiled := routeParamPattern.ReplaceAllStringFunc(template, func(segment string) string {
		name := segment[2:]
		value, ok := params[name]
		if !ok || !truthy(value) {
			return ""
		}
		return "/" + stringify(value)
	})

	if query != nil {
		if qs := query.Encode(); qs != "" {
			compiled += "?" + qs
		}
	}

	return compiled
}

// truthy reports whether v would pass a JavaScript truthiness test.
// nil, "", false, numeric zero, NaN and nil pointers are falsy.
func truthy(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return false
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.Len() > 0
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	default:
		return true
	}
}

// stringify renders a route or query value the way it is placed in a URL.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case float64:
		return formatNumber(x, 64)
	case float32:
		return formatNumber(float64(x), 32)
	default:
		return fmt.Sprint(x)
	}
}

// formatNumber renders f like a JavaScript number: plain decimal notation
// for magnitudes in [1e-6, 1e21), exponent notation without zero padding
// outside it.
func formatNumber(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, bitSize)
	}

	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, bitSize), "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + digits
}
