package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nhle/leadboard/internal/model"
)

// assignment is one "column = value" pair of an UPDATE.
type assignment struct {
	column string
	value  any
}

// boolToInt converts a bool to an integer flag column value.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// encodeList stores a string list as a JSON array text column.
func encodeList(list []string) string {
	if list == nil {
		list = []string{}
	}
	data, _ := json.Marshal(list)
	return string(data)
}

func decodeList(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("decoding list %q: %w", raw, err)
	}
	return list, nil
}

// encodePatch maps patch fields onto table columns. Fields the table does
// not carry are ignored.
func encodePatch(p model.Patch, columns map[model.Field]string) []assignment {
	sets := make([]assignment, 0, len(p))
	for _, f := range p.Fields() {
		col, ok := columns[f]
		if !ok {
			continue
		}
		sets = append(sets, assignment{column: col, value: encodeValue(p[f])})
	}
	return sets
}

func encodeValue(v any) any {
	switch x := v.(type) {
	case bool:
		return boolToInt(x)
	case []string:
		return encodeList(x)
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case *int64:
		if x == nil {
			return nil
		}
		return *x
	case time.Time:
		return millis(x)
	}
	return v
}
