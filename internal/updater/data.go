package updater

import (
	"context"
	"encoding/json"
	"fmt"

	"resultsink/internal/constants"
	"resultsink/internal/logger"
	"resultsink/internal/umb"
)

func serializeDataItem(item interface{}) interface{} {
	switch v := item.(type) {
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, elem := range v {
			if obj, ok := elem.(map[string]interface{}); ok {
				out[i] = mustJSON(obj)
			} else {
				out[i] = elem
			}
		}
		return out
	case map[string]interface{}:
		return mustJSON(v)
	}
	return item
}

// serializeData converts result data for the store. Data values should
// be only strings or lists of strings, otherwise the store keeps a
// stringified object representation.
func serializeData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = serializeDataItem(v)
	}
	return out
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// cropData shrinks large data values so they can be stored. Even though
// result data sizes are not limited in the store schema, the backing
// Postgres index rejects values larger than 1/3 of a buffer page.
//
// Long strings are cropped with a warning. Oversized list elements and
// non-string scalars are hard failures; truncating those would change
// their meaning.
func cropData(ctx context.Context, log logger.Logger, data map[string]interface{}) error {
	for k, v := range data {
		switch value := v.(type) {
		case string:
			if len(value) > constants.MaxResultDataSize {
				log.WarnwCtx(ctx, "Cropping large value for result data field", "field", k)
				data[k] = value[:constants.MaxResultDataSize-3] + "..."
			}
		case []interface{}:
			for _, item := range value {
				if len(fmt.Sprint(item)) > constants.MaxResultDataSize {
					return umb.Invalidf("Result value %q contains items that are too large", k)
				}
			}
		default:
			if len(fmt.Sprint(v)) > constants.MaxResultDataSize {
				return umb.Invalidf("Result value %q is too large", k)
			}
		}
	}
	return nil
}

// truncated caps s at max bytes.
func truncated(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
