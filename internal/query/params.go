package query

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CoercePage floors a loosely typed page value and clamps it to >= 1.
// Absent or non-numeric input yields DefaultPage.
func CoercePage(raw any) int {
	value, ok := coerceFloor(raw)
	if !ok {
		return DefaultPage
	}
	if value > maxPage {
		return maxPage
	}
	if value < DefaultPage {
		return DefaultPage
	}
	return int(value)
}

// CoercePageSize floors a loosely typed page size and clamps it to
// [MinPageSize, MaxPageSize]. Absent or non-numeric input yields DefaultPageSize.
func CoercePageSize(raw any) int {
	value, ok := coerceFloor(raw)
	if !ok {
		return DefaultPageSize
	}
	if value > MaxPageSize {
		return MaxPageSize
	}
	if value < MinPageSize {
		return MinPageSize
	}
	return int(value)
}

func coerceFloor(raw any) (float64, bool) {
	var value float64
	switch typed := raw.(type) {
	case float64:
		value = typed
	case float32:
		value = float64(typed)
	case int:
		value = float64(typed)
	case int64:
		value = float64(typed)
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		value = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		value = parsed
	default:
		return 0, false
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return math.Floor(value), true
}
