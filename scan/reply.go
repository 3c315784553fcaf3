// Package scan decodes raw Redis replies, RESP2 or RESP3, into string
// maps that the engine can filter.
package scan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cast"
)

// DecodeMaps decodes an FT.SEARCH reply into one map per returned hit.
func DecodeMaps(raw any) ([]map[string]string, error) {
	reply, err := normalize(raw)
	if err != nil {
		return nil, err
	}
	hits, err := extractHits(reply)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]string, len(hits))
	for i, kv := range hits {
		m, err := toStrMap(kv)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// Pairs decodes an HGETALL reply. A nil reply is an empty hash.
func Pairs(raw any) (map[string]string, error) {
	if raw == nil {
		return map[string]string{}, nil
	}
	if cmd, ok := raw.(*redis.MapStringStringCmd); ok {
		return cmd.Result()
	}
	return toStrMap(raw)
}

// ScanPage decodes a SCAN reply: the next cursor and this page's keys.
func ScanPage(raw any) (uint64, []string, error) {
	arr, ok := raw.([]interface{})
	if !ok || len(arr) != 2 {
		return 0, nil, fmt.Errorf("scan: unexpected SCAN reply %T", raw)
	}
	cursor, err := cast.ToUint64E(toStr(arr[0]))
	if err != nil {
		return 0, nil, fmt.Errorf("scan: bad cursor: %w", err)
	}
	page, ok := arr[1].([]interface{})
	if !ok {
		return 0, nil, fmt.Errorf("scan: unexpected key page %T", arr[1])
	}
	keys := make([]string, len(page))
	for i, k := range page {
		keys[i] = toStr(k)
	}
	return cursor, keys, nil
}

/*───────────────────────────────
|  Top-level normalisation       |
└───────────────────────────────*/

func normalize(raw any) (any, error) {
	switch v := raw.(type) {
	case *redis.SliceCmd:
		return v.Val(), nil
	case *redis.Cmd:
		return v.Val(), nil
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		return v, nil
	case map[interface{}]interface{}:
		return stringKeys(v), nil
	default:
		return nil, fmt.Errorf("scan: unsupported reply type %T", raw)
	}
}

/*───────────────────────────────
|  Extract document hits         |
└───────────────────────────────*/

func extractHits(reply any) ([]any, error) {
	// RESP-3: top-level map
	if top, ok := reply.(map[string]interface{}); ok {
		resultsRaw, ok := top["results"].([]interface{})
		if !ok {
			return nil, errors.New("scan: missing results array")
		}
		hits := make([]any, len(resultsRaw))
		for i, r := range resultsRaw {
			var hit map[string]interface{}
			switch h := r.(type) {
			case map[string]interface{}:
				hit = h
			case map[interface{}]interface{}:
				hit = stringKeys(h)
			default:
				return nil, fmt.Errorf("scan: unknown hit type %T", r)
			}
			if ea, ok := hit["extra_attributes"]; ok {
				hits[i] = ea
			} else if vals, ok := hit["values"]; ok { // old RETURN * style
				hits[i] = vals
			} else {
				hits[i] = hit
			}
		}
		return hits, nil
	}

	// RESP-2: [total, id1, fields1, id2, fields2, ...]
	arr, ok := reply.([]interface{})
	if !ok {
		return nil, fmt.Errorf("scan: unrecognised reply %T", reply)
	}
	if len(arr) == 0 {
		return nil, nil
	}
	if _, ok := arr[0].(int64); !ok {
		return nil, errors.New("scan: first array element is not int64")
	}
	// the total counts every match, LIMIT decides how many came back
	n := (len(arr) - 1) / 2
	hits := make([]any, n)
	for i := 0; i < n; i++ {
		hits[i] = arr[i*2+2] // skip doc-id elements
	}
	return hits, nil
}

/*───────────────────────────────
|  KV payload → map              |
└───────────────────────────────*/

func toStrMap(v any) (map[string]string, error) {
	switch t := v.(type) {
	case []interface{}: // RESP-2 KV list
		if len(t)%2 != 0 {
			return nil, fmt.Errorf("scan: odd field list of %d", len(t))
		}
		m := make(map[string]string, len(t)/2)
		for i := 0; i+1 < len(t); i += 2 {
			m[toStr(t[i])] = toStr(t[i+1])
		}
		return m, nil

	case map[interface{}]interface{}: // RESP-3 extra_attributes
		m := make(map[string]string, len(t))
		for k, v := range t {
			m[toStr(k)] = toStr(v)
		}
		return m, nil

	case map[string]interface{}:
		m := make(map[string]string, len(t))
		for k, v := range t {
			m[k] = toStr(v)
		}
		return m, nil

	case map[string]string:
		return t, nil

	default:
		return nil, fmt.Errorf("scan: unsupported kv type %T", v)
	}
}

/*───────────────────────────────
|  Small util fns                |
└───────────────────────────────*/

func stringKeys(in map[interface{}]interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(in))
	for k, v := range in {
		m[toStr(k)] = v
	}
	return m
}

func toStr(v interface{}) string {
	return strings.TrimSpace(cast.ToString(v))
}
