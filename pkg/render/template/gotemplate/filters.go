package gotemplate

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"
)

var defaultFiltersOnce sync.Once

// registerDefaultFilters installs the filters every response template can
// rely on. pongo2 keeps filters in a process-wide table, so this runs once.
func registerDefaultFilters() {
	defaultFiltersOnce.Do(func() {
		filters := map[string]pongo2.FilterFunction{
			"trim":            filterTrim,
			"lowerfirst":      filterLowerFirst,
			"pretty":          filterPretty,
			"structured":      filterStructured,
			"mapping":         filterMapping,
			"truncate_smart":  filterTruncateSmart,
			"uppercase_words": filterUppercaseWords,
		}
		for name, fn := range filters {
			if pongo2.FilterExists(name) {
				continue
			}
			_ = pongo2.RegisterFilter(name, fn)
		}
	})
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

func filterLowerFirst(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	t := in.String()

	var (
		firstNonWhitespaceIndex int
		firstRune               rune
		firstRuneSize           int
	)

	for i, r := range t {
		if !strings.ContainsRune(" \t\n\r", r) {
			firstNonWhitespaceIndex = i
			firstRune = r
			firstRuneSize = utf8.RuneLen(r)
			break
		}
	}

	if firstRune == 0 {
		return pongo2.AsValue(t), nil
	}

	prefix := t[:firstNonWhitespaceIndex]
	loweredRune := strings.ToLower(string(firstRune))
	rest := t[firstNonWhitespaceIndex+firstRuneSize:]

	return pongo2.AsValue(prefix + loweredRune + rest), nil
}

// filterPretty renders a value as two-space indented JSON. Strings pass
// through untouched so already formatted text is not quoted.
func filterPretty(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	value := in.Interface()
	if s, ok := value.(string); ok {
		return pongo2.AsValue(s), nil
	}
	formatted, err := prettyJSON(value)
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter:pretty", OrigError: err}
	}
	return pongo2.AsValue(formatted), nil
}

func filterStructured(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	switch kindOf(in.Interface()) {
	case reflect.Map, reflect.Slice, reflect.Array:
		return pongo2.AsValue(true), nil
	default:
		return pongo2.AsValue(false), nil
	}
}

func filterMapping(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(kindOf(in.Interface()) == reflect.Map), nil
}

// filterTruncateSmart shortens text to at most param characters (default 50)
// without cutting a word in half, appending an ellipsis when it truncates.
func filterTruncateSmart(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	limit := 50
	if param != nil && !param.IsNil() && param.Integer() > 0 {
		limit = param.Integer()
	}
	text := in.String()
	runes := []rune(text)
	if len(runes) <= limit {
		return pongo2.AsValue(text), nil
	}
	cut := string(runes[:limit])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return pongo2.AsValue(cut + "..."), nil
}

func filterUppercaseWords(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	words := strings.Fields(in.String())
	for i, word := range words {
		words[i] = strings.ToUpper(word)
	}
	return pongo2.AsValue(strings.Join(words, " ")), nil
}

func kindOf(v any) reflect.Kind {
	if v == nil {
		return reflect.Invalid
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Invalid
		}
		rv = rv.Elem()
	}
	return rv.Kind()
}

func prettyJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
