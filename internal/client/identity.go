package client

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

var (
	idFields   = []string{FieldID, FieldMAC, FieldMACAddress, FieldName, FieldHostname}
	nameFields = []string{FieldName, FieldHostname, FieldDevice}
)

type Identity struct {
	ID   string
	Name string
}

func Resolve(rec Record, index int) Identity {
	id := ResolveID(rec, index)
	return Identity{ID: id, Name: ResolveName(rec, id)}
}

// ResolveID returns the first truthy identifying field, falling back to
// "client-<index>".
func ResolveID(rec Record, index int) string {
	if value, ok := firstTruthy(rec, idFields); ok {
		return value
	}
	return fmt.Sprintf("client-%d", index)
}

func ResolveName(rec Record, id string) string {
	if value, ok := firstTruthy(rec, nameFields); ok {
		return value
	}
	return id
}

func firstTruthy(rec Record, names []string) (string, bool) {
	for _, name := range names {
		value, ok := rec.Lookup(name)
		if !ok || !truthy(value) {
			continue
		}
		return asString(value), true
	}
	return "", false
}

// truthy skips the values a loosely typed producer uses to mean "unset":
// empty strings, false, zero and NaN.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case json.Number:
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return true
		}
		return f != 0 && !math.IsNaN(f)
	case float64:
		return v != 0 && !math.IsNaN(v)
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		return true
	}
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return formatNumber(v)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	case []any, map[string]any:
		blob, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(blob)
	default:
		return fmt.Sprintf("%v", v)
	}
}
