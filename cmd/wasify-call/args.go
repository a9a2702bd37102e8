package main

import (
	"bytes"
	"fmt"
	"math/big"
	"strconv"

	"github.com/goccy/go-json"

	wasify "github.com/wasify-io/wasify-bridge"
)

// parsePages reads a memory limit in pages. Anything that is not a whole
// number between 0 and wasify.MaxMemoryLimitPages is rejected.
func parsePages(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n > wasify.MaxMemoryLimitPages {
		return 0, fmt.Errorf("want a number of pages between 0 and %d, got %q", wasify.MaxMemoryLimitPages, s)
	}
	return uint32(n), nil
}

// parseArg decodes a command line argument as JSON into a host value.
// Numbers become int64, *big.Int or float64; text that is not JSON is
// passed through as a string.
func parseArg(raw string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}

	return normalize(v)
}

func normalize(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if b, ok := new(big.Int).SetString(v.String(), 10); ok {
			return b
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case []any:
		for i := range v {
			v[i] = normalize(v[i])
		}
		return v
	case map[string]any:
		for k := range v {
			v[k] = normalize(v[k])
		}
		return v
	default:
		return v
	}
}
