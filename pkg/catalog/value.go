package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Header values are stored as JSON tagged with their kind. Non-finite
// floats, which JSON cannot represent, are written as strings.
const (
	kindInt    = "int"
	kindFloat  = "float"
	kindText   = "text"
	kindFloats = "floats"
)

func jsonFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return f
}

func encodeValue(v any) (string, string, error) {
	var kind string
	var payload any
	switch x := v.(type) {
	case int64:
		kind, payload = kindInt, x
	case float64:
		kind, payload = kindFloat, jsonFloat(x)
	case string:
		kind, payload = kindText, x
	case []float64:
		arr := make([]any, len(x))
		for i, f := range x {
			arr[i] = jsonFloat(f)
		}
		kind, payload = kindFloats, arr
	default:
		return "", "", fmt.Errorf("unsupported value type %T", v)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}
	return kind, string(data), nil
}

func parseFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		return strconv.ParseFloat(x, 64)
	}
	return 0, fmt.Errorf("unexpected float value %v", v)
}

func decodeValue(kind, value string) (any, error) {
	switch kind {
	case kindInt:
		var i int64
		err := json.Unmarshal([]byte(value), &i)
		return i, err
	case kindFloat:
		var raw any
		if err := json.Unmarshal([]byte(value), &raw); err != nil {
			return nil, err
		}
		return parseFloat(raw)
	case kindText:
		var s string
		err := json.Unmarshal([]byte(value), &s)
		return s, err
	case kindFloats:
		var raw []any
		if err := json.Unmarshal([]byte(value), &raw); err != nil {
			return nil, err
		}
		out := make([]float64, len(raw))
		for i, r := range raw {
			f, err := parseFloat(r)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown value kind %q", kind)
}
