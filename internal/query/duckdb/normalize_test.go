package duckdb

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"testing"
	"time"

	duckdb "github.com/marcboeker/go-duckdb/v2"
)

type label string

type point struct {
	X      int
	Y      int
	hidden int
}

type opaqueThing struct {
	hidden int
}

func TestNormalizeScalars(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want any
	}{
		{name: "nil", in: nil, want: nil},
		{name: "string", in: "x", want: "x"},
		{name: "bool", in: true, want: true},
		{name: "int32", in: int32(7), want: int32(7)},
		{name: "safe int64", in: int64(maxSafeInteger), want: int64(maxSafeInteger)},
		{name: "big int64", in: int64(maxSafeInteger + 2), want: "9007199254740993"},
		{name: "negative big int64", in: int64(-maxSafeInteger - 2), want: "-9007199254740993"},
		{name: "big uint64", in: uint64(math.MaxUint64), want: "18446744073709551615"},
		{name: "hugeint", in: new(big.Int).Lsh(big.NewInt(1), 100), want: "1267650600228229401496703205376"},
		{name: "float32", in: float32(0.1), want: 0.1},
		{name: "nan", in: math.NaN(), want: "NaN"},
		{name: "inf", in: math.Inf(1), want: "Infinity"},
		{name: "neg inf", in: math.Inf(-1), want: "-Infinity"},
		{name: "named string", in: label("tag"), want: "tag"},
		{name: "pointer", in: ptr("p"), want: "p"},
		{name: "nil pointer", in: (*string)(nil), want: nil},
		{name: "utf8 blob", in: []byte("hello"), want: "hello"},
		{name: "binary blob", in: []byte{0x00, 'a', 0xff}, want: `\x00a\xFF`},
		{name: "union", in: duckdb.Union{Tag: "num", Value: int64(5)}, want: int64(5)},
		{name: "opaque struct", in: opaqueThing{}, want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Normalize(%#v) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeDecimal(t *testing.T) {
	cases := []struct {
		in   duckdb.Decimal
		want string
	}{
		{in: duckdb.Decimal{Width: 10, Scale: 2, Value: big.NewInt(1250)}, want: "12.50"},
		{in: duckdb.Decimal{Width: 10, Scale: 3, Value: big.NewInt(-5)}, want: "-0.005"},
		{in: duckdb.Decimal{Width: 10, Scale: 0, Value: big.NewInt(42)}, want: "42"},
		{in: duckdb.Decimal{Width: 10, Scale: 2}, want: "0"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%+v) = %#v, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeTemporalUsesColumnType(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 7, 9, 500000000, time.FixedZone("CET", 3600))

	got := NormalizeRow([]any{ts, ts, ts, ts}, []string{"DATE", "TIME", "TIMESTAMP", ""})
	want := []any{"2024-03-05", "14:07:09.5", "2024-03-05T13:07:09.5Z", "2024-03-05T13:07:09.5Z"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeRow() = %#v, want %#v", got, want)
	}
}

func TestNormalizeInterval(t *testing.T) {
	cases := []struct {
		in   duckdb.Interval
		want string
	}{
		{in: duckdb.Interval{}, want: "PT0S"},
		{in: duckdb.Interval{Months: 14, Days: 3}, want: "P1Y2M3D"},
		{in: duckdb.Interval{Micros: 3_723_500_000}, want: "PT1H2M3.5S"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%+v) = %#v, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeUUID(t *testing.T) {
	id := duckdb.UUID{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	want := "00112233-4455-6677-8899-aabbccddeeff"
	if got := Normalize(id); got != want {
		t.Fatalf("Normalize(UUID) = %#v, want %q", got, want)
	}
	if got := NormalizeRow([]any{id[:]}, []string{"UUID"}); got[0] != want {
		t.Fatalf("NormalizeRow(UUID blob) = %#v, want %q", got[0], want)
	}
}

func TestNormalizeNestedValues(t *testing.T) {
	in := map[string]any{
		"ids":   []any{int64(1), int64(maxSafeInteger + 2)},
		"point": point{X: 1, Y: 2},
		"tags":  duckdb.Map{int32(1): "one"},
		"arr":   [2]float64{1.5, math.NaN()},
	}
	got := Normalize(in)

	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	want := `{"arr":[1.5,"NaN"],"ids":[1,"9007199254740993"],"point":{"X":1,"Y":2},"tags":{"1":"one"}}`
	if string(raw) != want {
		t.Fatalf("json = %s, want %s", raw, want)
	}
}

func TestNormalizeStructKeepsDeclaredFieldOrder(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	in := map[string]any{"zeta": int32(1), "alpha": int32(2), "when": day}
	got := NormalizeRow([]any{in}, []string{`STRUCT("zeta" INTEGER, "alpha" INTEGER, "when" DATE)`})

	raw, err := json.Marshal(got[0])
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if want := `{"zeta":1,"alpha":2,"when":"2024-01-02"}`; string(raw) != want {
		t.Fatalf("json = %s, want %s", raw, want)
	}
}

func TestNormalizeNestedValuesUseElementType(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	values := []any{
		[]any{day, nil},
		[]any{map[string]any{"at": day}},
		duckdb.Map{"k": []any{day}},
		duckdb.Union{Tag: "d", Value: day},
	}
	typeNames := []string{
		"DATE[]",
		`STRUCT("at" TIME)[2]`,
		"MAP(VARCHAR, DATE[])",
		`UNION("n" INTEGER, "d" DATE)`,
	}
	got := NormalizeRow(values, typeNames)

	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	want := `[["2024-01-02",null],[{"at":"00:00:00"}],{"k":["2024-01-02"]},"2024-01-02"]`
	if string(raw) != want {
		t.Fatalf("json = %s, want %s", raw, want)
	}
}

func TestNormalizeStructWithUnlistedKeys(t *testing.T) {
	in := map[string]any{"b": int32(1), "z": int32(2), "a": int32(3)}
	got, ok := Normalize(in).(Record)
	if !ok {
		t.Fatalf("Normalize() = %T, want Record", Normalize(in))
	}
	raw, _ := json.Marshal(got)
	if want := `{"a":3,"b":1,"z":2}`; string(raw) != want {
		t.Fatalf("json = %s, want %s", raw, want)
	}

	ordered := NormalizeRow([]any{in}, []string{`STRUCT("z" INTEGER)`})[0].(Record)
	raw, _ = json.Marshal(ordered)
	if want := `{"z":2,"a":3,"b":1}`; string(raw) != want {
		t.Fatalf("json = %s, want %s", raw, want)
	}
	if value, ok := ordered.Get("a"); !ok || value != int32(3) {
		t.Fatalf("Get(a) = %v, %v", value, ok)
	}
}

func TestStructMembers(t *testing.T) {
	members, ok := structMembers(`STRUCT("a ""b""" INTEGER[], "m" MAP(VARCHAR, STRUCT("x" DATE, "y" DOUBLE)), plain DECIMAL(10,2))`)
	if !ok {
		t.Fatalf("structMembers() ok = false")
	}
	want := []memberType{
		{name: `a "b"`, typeName: "INTEGER[]"},
		{name: "m", typeName: `MAP(VARCHAR, STRUCT("x" DATE, "y" DOUBLE))`},
		{name: "plain", typeName: "DECIMAL(10,2)"},
	}
	if !reflect.DeepEqual(members, want) {
		t.Fatalf("structMembers() = %#v, want %#v", members, want)
	}
	if _, ok := structMembers("INTEGER[]"); ok {
		t.Fatalf("structMembers(INTEGER[]) ok = true")
	}
}

func TestElementAndMapTypes(t *testing.T) {
	cases := map[string]string{
		"DATE[]":                "DATE",
		"INTEGER[3]":            "INTEGER",
		"TIMESTAMP[][]":         "TIMESTAMP[]",
		`STRUCT("a" DATE)[]`:    `STRUCT("a" DATE)`,
		"DATE":                  "",
		`STRUCT("a" INTEGER[])`: "",
	}
	for in, want := range cases {
		if got := elementType(in); got != want {
			t.Fatalf("elementType(%q) = %q, want %q", in, got, want)
		}
	}

	key, value, ok := mapTypes(`MAP(VARCHAR, STRUCT("a" INTEGER, "b" DATE))`)
	if !ok || key != "VARCHAR" || value != `STRUCT("a" INTEGER, "b" DATE)` {
		t.Fatalf("mapTypes() = %q, %q, %v", key, value, ok)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []any{
		int64(maxSafeInteger + 10),
		duckdb.Decimal{Scale: 1, Value: big.NewInt(15)},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		[]any{float32(1.25), nil, map[string]any{"a": []byte{0xff}}},
		point{X: 1, Y: 2},
		math.Inf(1),
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("Normalize not idempotent for %#v: %#v then %#v", in, once, twice)
		}
	}
}

func TestNormalizeRowPreservesLength(t *testing.T) {
	values := []any{nil, "a", int64(1), []byte{1}}
	if got := NormalizeRow(values, nil); len(got) != len(values) {
		t.Fatalf("len = %d, want %d", len(got), len(values))
	}
	if got := NormalizeRow([]any{}, []string{"INTEGER"}); len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		in   any
		want Kind
	}{
		{in: nil, want: KindNull},
		{in: "x", want: KindPrimitive},
		{in: int64(maxSafeInteger + 1), want: KindInteger},
		{in: big.NewInt(1), want: KindInteger},
		{in: time.Now(), want: KindTemporal},
		{in: duckdb.Interval{Days: 1}, want: KindTemporal},
		{in: []any{1}, want: KindSequence},
		{in: []int{1}, want: KindSequence},
		{in: map[string]any{}, want: KindRecord},
		{in: point{}, want: KindRecord},
		{in: duckdb.UUID{}, want: KindOpaque},
		{in: opaqueThing{}, want: KindOpaque},
	}
	for _, tc := range cases {
		if got := Classify(tc.in); got != tc.want {
			t.Fatalf("Classify(%#v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func ptr[T any](v T) *T { return &v }
