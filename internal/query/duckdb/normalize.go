package duckdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	duckdb "github.com/marcboeker/go-duckdb/v2"
)

// Kind is the value family a scanned engine value belongs to.
type Kind uint8

const (
	KindNull Kind = iota
	// KindPrimitive values are already JSON-safe: strings, booleans, finite
	// floats and integers inside the float64-exact range.
	KindPrimitive
	// KindInteger covers integer-like values that would lose precision as a
	// JSON number: HUGEINT, DECIMAL and 64-bit integers beyond 2^53.
	KindInteger
	KindTemporal
	KindSequence
	KindRecord
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindPrimitive:
		return "primitive"
	case KindInteger:
		return "integer"
	case KindTemporal:
		return "temporal"
	case KindSequence:
		return "sequence"
	case KindRecord:
		return "record"
	default:
		return "opaque"
	}
}

const maxSafeInteger = 1<<53 - 1

// NormalizeRow normalizes one scanned row. typeNames holds the engine's
// column type names where known and may be shorter than values.
func NormalizeRow(values []any, typeNames []string) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		typeName := ""
		if i < len(typeNames) {
			typeName = typeNames[i]
		}
		normalized[i] = normalize(value, typeName)
	}
	return normalized
}

// Normalize converts an engine value into something encoding/json can emit
// without losing precision. It never fails; values with no usable
// representation become nil. Normalizing a normalized value is a no-op.
func Normalize(value any) any {
	return normalize(value, "")
}

// Classify reports the Kind of a scanned value.
func Classify(value any) Kind {
	return classify(canonical(value))
}

func normalize(value any, typeName string) any {
	if union, ok := value.(duckdb.Union); ok {
		return normalize(union.Value, unionMemberType(typeName, union.Tag))
	}
	value = canonical(value)
	if raw, ok := value.([]byte); ok && len(raw) == 16 && strings.EqualFold(typeName, "UUID") {
		return formatUUID(duckdb.UUID(raw))
	}
	switch classify(value) {
	case KindNull:
		return nil
	case KindPrimitive:
		return primitive(value)
	case KindInteger:
		return integerString(value)
	case KindTemporal:
		return temporal(value, typeName)
	case KindSequence:
		return sequence(value, typeName)
	case KindRecord:
		return record(value, typeName)
	default:
		return opaque(value)
	}
}

// canonical unwraps unions and pointers and maps named basic types onto
// their builtin counterparts so classify only sees a fixed set of shapes.
func canonical(value any) any {
	for {
		switch typed := value.(type) {
		case nil:
			return nil
		case duckdb.Union:
			value = typed.Value
			continue
		case *duckdb.Union:
			if typed == nil {
				return nil
			}
			value = typed.Value
			continue
		case *big.Int:
			if typed == nil {
				return nil
			}
			return typed
		case *duckdb.UUID:
			if typed == nil {
				return nil
			}
			return *typed
		case string, bool, int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64, float32, float64,
			json.Number, []byte, []any, map[string]any, time.Time,
			duckdb.Interval, duckdb.Decimal, duckdb.UUID, duckdb.Map, Record:
			return value
		}

		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Pointer, reflect.Interface:
			if rv.IsNil() {
				return nil
			}
			value = rv.Elem().Interface()
			continue
		case reflect.String:
			return rv.String()
		case reflect.Bool:
			return rv.Bool()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if _, ok := value.(fmt.Stringer); ok {
				return value
			}
			return rv.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if _, ok := value.(fmt.Stringer); ok {
				return value
			}
			return rv.Uint()
		case reflect.Float32, reflect.Float64:
			return rv.Float()
		}
		return value
	}
}

func classify(value any) Kind {
	switch typed := value.(type) {
	case nil:
		return KindNull
	case string, bool, int8, int16, int32, uint8, uint16, uint32, float32, float64, json.Number:
		return KindPrimitive
	case int:
		return integerKind(int64(typed))
	case int64:
		return integerKind(typed)
	case uint:
		return unsignedKind(uint64(typed))
	case uint64:
		return unsignedKind(typed)
	case *big.Int, duckdb.Decimal:
		return KindInteger
	case time.Time, duckdb.Interval:
		return KindTemporal
	case []byte, duckdb.UUID:
		return KindOpaque
	case []any:
		return KindSequence
	case map[string]any, duckdb.Map, Record:
		return KindRecord
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return KindSequence
	case reflect.Map:
		return KindRecord
	case reflect.Struct:
		if _, ok := value.(fmt.Stringer); !ok && hasExportedFields(rv.Type()) {
			return KindRecord
		}
	}
	return KindOpaque
}

func integerKind(value int64) Kind {
	if value > maxSafeInteger || value < -maxSafeInteger {
		return KindInteger
	}
	return KindPrimitive
}

func unsignedKind(value uint64) Kind {
	if value > maxSafeInteger {
		return KindInteger
	}
	return KindPrimitive
}

func primitive(value any) any {
	switch typed := value.(type) {
	case float32:
		if math.IsNaN(float64(typed)) || math.IsInf(float64(typed), 0) {
			return nonFinite(float64(typed))
		}
		// Round-trip through the shortest float32 text so 0.1 stays 0.1.
		widened, _ := strconv.ParseFloat(strconv.FormatFloat(float64(typed), 'g', -1, 32), 64)
		return widened
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return nonFinite(typed)
		}
		return typed
	default:
		return value
	}
}

func nonFinite(value float64) string {
	switch {
	case math.IsNaN(value):
		return "NaN"
	case value > 0:
		return "Infinity"
	default:
		return "-Infinity"
	}
}

func integerString(value any) any {
	switch typed := value.(type) {
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case uint:
		return strconv.FormatUint(uint64(typed), 10)
	case uint64:
		return strconv.FormatUint(typed, 10)
	case *big.Int:
		return typed.String()
	case duckdb.Decimal:
		return formatDecimal(typed)
	default:
		return opaque(value)
	}
}

func formatDecimal(value duckdb.Decimal) string {
	if value.Value == nil {
		return "0"
	}
	digits := new(big.Int).Abs(value.Value).String()
	scale := int(value.Scale)
	if scale > 0 {
		if len(digits) <= scale {
			digits = strings.Repeat("0", scale-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-scale] + "." + digits[len(digits)-scale:]
	}
	if value.Value.Sign() < 0 {
		return "-" + digits
	}
	return digits
}

func temporal(value any, typeName string) any {
	switch typed := value.(type) {
	case time.Time:
		return formatTime(typed, typeName)
	case duckdb.Interval:
		return formatInterval(typed)
	default:
		return opaque(value)
	}
}

func formatTime(value time.Time, typeName string) string {
	typeName = strings.ToUpper(strings.TrimSpace(typeName))
	switch {
	case typeName == "DATE":
		return value.Format(time.DateOnly)
	case typeName == "TIMETZ" || typeName == "TIME WITH TIME ZONE":
		return value.Format("15:04:05.999999Z07:00")
	case strings.HasPrefix(typeName, "TIME") && !strings.HasPrefix(typeName, "TIMESTAMP"):
		return value.Format("15:04:05.999999")
	default:
		return value.UTC().Format(time.RFC3339Nano)
	}
}

// formatInterval renders an ISO-8601 duration such as P1Y2M3DT4H5M6.5S.
func formatInterval(value duckdb.Interval) string {
	var b strings.Builder
	b.WriteString("P")
	if years := value.Months / 12; years != 0 {
		fmt.Fprintf(&b, "%dY", years)
	}
	if months := value.Months % 12; months != 0 {
		fmt.Fprintf(&b, "%dM", months)
	}
	if value.Days != 0 {
		fmt.Fprintf(&b, "%dD", value.Days)
	}
	if micros := value.Micros; micros != 0 {
		sign := ""
		if micros < 0 {
			sign = "-"
			micros = -micros
		}
		b.WriteString("T")
		if hours := micros / int64(time.Hour/time.Microsecond); hours != 0 {
			fmt.Fprintf(&b, "%s%dH", sign, hours)
		}
		micros %= int64(time.Hour / time.Microsecond)
		if minutes := micros / int64(time.Minute/time.Microsecond); minutes != 0 {
			fmt.Fprintf(&b, "%s%dM", sign, minutes)
		}
		micros %= int64(time.Minute / time.Microsecond)
		if micros != 0 {
			seconds := strconv.FormatFloat(float64(micros)/1e6, 'f', -1, 64)
			fmt.Fprintf(&b, "%s%sS", sign, seconds)
		}
	}
	if b.Len() == 1 {
		return "PT0S"
	}
	return b.String()
}

func sequence(value any, typeName string) any {
	itemType := elementType(typeName)
	if items, ok := value.([]any); ok {
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = normalize(item, itemType)
		}
		return out
	}
	rv := reflect.ValueOf(value)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = normalize(rv.Index(i).Interface(), itemType)
	}
	return out
}

// Field is one key/value member of a Record.
type Field struct {
	Key   string
	Value any
}

// Record is a JSON object that keeps its field order. STRUCT values keep
// their declared order; maps without one are sorted by key.
type Record []Field

// MarshalJSON writes the fields in order.
func (r Record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, field := range r {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(value)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	for _, field := range r {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

func record(value any, typeName string) any {
	switch typed := value.(type) {
	case Record:
		out := make(Record, 0, len(typed))
		for _, field := range typed {
			out = append(out, Field{Key: field.Key, Value: Normalize(field.Value)})
		}
		return out
	case map[string]any:
		members, _ := structMembers(typeName)
		return structRecord(typed, members)
	case duckdb.Map:
		keyType, valueType, _ := mapTypes(typeName)
		entries := make(map[string]any, len(typed))
		for key, item := range typed {
			entries[mapKey(key, keyType)] = normalize(item, valueType)
		}
		return sortedRecord(entries)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		entries := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries[mapKey(iter.Key().Interface(), "")] = Normalize(iter.Value().Interface())
		}
		return sortedRecord(entries)
	case reflect.Struct:
		out := Record{}
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			out = append(out, Field{Key: field.Name, Value: Normalize(rv.Field(i).Interface())})
		}
		return out
	}
	return opaque(value)
}

// structRecord emits members in declared order. Keys the type name does not
// list follow in sorted order.
func structRecord(values map[string]any, members []memberType) Record {
	out := make(Record, 0, len(values))
	seen := make(map[string]bool, len(members))
	for _, member := range members {
		item, ok := values[member.name]
		if !ok || seen[member.name] {
			continue
		}
		seen[member.name] = true
		out = append(out, Field{Key: member.name, Value: normalize(item, member.typeName)})
	}
	rest := make([]string, 0, len(values)-len(seen))
	for key := range values {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		out = append(out, Field{Key: key, Value: Normalize(values[key])})
	}
	return out
}

func sortedRecord(entries map[string]any) Record {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make(Record, 0, len(keys))
	for _, key := range keys {
		out = append(out, Field{Key: key, Value: entries[key]})
	}
	return out
}

func unionMemberType(typeName, tag string) string {
	members, _ := structMembers(typeName)
	for _, member := range members {
		if member.name == tag {
			return member.typeName
		}
	}
	return ""
}

func mapKey(key any, typeName string) string {
	switch normalized := normalize(key, typeName).(type) {
	case nil:
		return "null"
	case string:
		return normalized
	default:
		raw, err := json.Marshal(normalized)
		if err != nil {
			return fmt.Sprint(normalized)
		}
		return string(raw)
	}
}

// opaque falls back to the value's canonical string form. Empty strings and
// Go's default struct/pointer formatting carry no information and become nil.
func opaque(value any) any {
	switch typed := value.(type) {
	case []byte:
		return blobString(typed)
	case duckdb.UUID:
		return formatUUID(typed)
	case fmt.Stringer:
		if text := typed.String(); text != "" {
			return text
		}
		return nil
	}
	text := fmt.Sprint(value)
	if isDefaultObjectString(text) {
		return nil
	}
	return text
}

func isDefaultObjectString(text string) bool {
	switch {
	case text == "", text == "<nil>":
		return true
	case strings.HasPrefix(text, "{"), strings.HasPrefix(text, "&{"), strings.HasPrefix(text, "0x"):
		return true
	case strings.Contains(text, "%!"):
		return true
	}
	return false
}

// blobString keeps UTF-8 blobs as text and otherwise uses the engine's own
// \xNN escaping.
func blobString(value []byte) string {
	if utf8.Valid(value) {
		return string(value)
	}
	var b strings.Builder
	for _, c := range value {
		if c >= 0x20 && c < 0x7f && c != '\\' {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, `\x%02X`, c)
	}
	return b.String()
}

func formatUUID(value duckdb.UUID) string {
	raw := [16]byte(value)
	hex := fmt.Sprintf("%x", raw[:])
	return hex[0:8] + "-" + hex[8:12] + "-" + hex[12:16] + "-" + hex[16:20] + "-" + hex[20:32]
}

func hasExportedFields(rt reflect.Type) bool {
	for i := 0; i < rt.NumField(); i++ {
		if rt.Field(i).IsExported() {
			return true
		}
	}
	return false
}
