package gen

import (
	"encoding/json"
	"fmt"

	"github.com/boynton/data"

	smithy "github.com/smithy-lang/smithy-rs-sub009"
)

// Runtime coercions from dynamic values to the representation each shape
// kind expects. Mismatches are typed runtime errors, never panics.

func asString(v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("expected string, got %T", v)
}

func asBool(v interface{}) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("expected boolean, got %T", v)
}

// asInt64 also accepts the float64 and json.Number forms JSON decoding
// produces for dynamic values, as long as the value is integral.
func asInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n == float64(int64(n)) {
			return int64(n), nil
		}
		return 0, fmt.Errorf("expected integer, got %v", n)
	case json.Number:
		return n.Int64()
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

func asFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	}
	return 0, fmt.Errorf("expected float, got %T", v)
}

func asList(v interface{}) ([]interface{}, error) {
	if a, ok := v.([]interface{}); ok {
		return a, nil
	}
	return nil, fmt.Errorf("expected list, got %T", v)
}

// asOrderedObject accepts either an ordered object or a plain Go map.
// Plain maps are ordered by sorted key so wire output stays
// deterministic.
func asOrderedObject(v interface{}) (*data.Object, error) {
	switch m := v.(type) {
	case *data.Object:
		return m, nil
	case map[string]interface{}:
		obj := data.NewObject()
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		for i := 1; i < len(keys); i++ {
			for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
				keys[j], keys[j-1] = keys[j-1], keys[j]
			}
		}
		for _, k := range keys {
			obj.Put(k, m[k])
		}
		return obj, nil
	}
	return nil, fmt.Errorf("expected map, got %T", v)
}

// blobBytes resolves blob values, reading a streaming source's buffered
// bytes. An ongoing stream surfaces ErrStreamNotReady untouched so the
// caller can tell the recoverable case apart.
func blobBytes(v interface{}) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case smithy.StreamingBlob:
		return b.Buffered()
	}
	return nil, fmt.Errorf("expected blob, got %T", v)
}
