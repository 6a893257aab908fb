package api

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"time"
)

// BuildQuery renders params as "?k=v&..." with keys sorted. Nil values, nil pointers and
// empty strings are skipped, slices repeat their key, and an empty result is "".
func BuildQuery(params map[string]any) string {
	values := url.Values{}
	for key, value := range params {
		for _, s := range queryValues(value) {
			values.Add(key, s)
		}
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}

func queryValues(value any) []string {
	if value == nil {
		return nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		return queryValues(rv.Elem().Interface())
	}

	switch v := value.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case bool:
		return []string{strconv.FormatBool(v)}
	case int:
		return []string{strconv.Itoa(v)}
	case time.Time:
		if v.IsZero() {
			return nil
		}
		return []string{v.Format(time.RFC3339)}
	case fmt.Stringer:
		return queryValues(v.String())
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		var out []string
		for i := 0; i < rv.Len(); i++ {
			out = append(out, queryValues(rv.Index(i).Interface())...)
		}
		return out
	default:
		return []string{fmt.Sprint(value)}
	}
}
