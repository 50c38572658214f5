package employees

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
)

func TestWriteCSVStopsBeforeTarget(t *testing.T) {
	const target = 10_000

	var out bytes.Buffer
	summary, err := WriteCSV(&out, NewGenerator(42), target, 256)
	if err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if int64(out.Len()) != summary.Bytes {
		t.Fatalf("summary bytes = %d, written = %d", summary.Bytes, out.Len())
	}
	if summary.Bytes > target {
		t.Fatalf("wrote %d bytes, target %d", summary.Bytes, target)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if lines[0] != Header {
		t.Fatalf("header = %q", lines[0])
	}
	if int64(len(lines)-1) != summary.Rows {
		t.Fatalf("rows = %d, summary rows = %d", len(lines)-1, summary.Rows)
	}

	replay := NewGenerator(42)
	var next string
	for i := int64(0); i <= summary.Rows; i++ {
		next = replay.Next().CSVLine()
	}
	if summary.Bytes+int64(len(next)) <= target {
		t.Fatalf("next row of %d bytes would still fit in %d remaining", len(next), target-summary.Bytes)
	}
}

func TestWriteCSVReproducible(t *testing.T) {
	var first, second bytes.Buffer
	if _, err := WriteCSV(&first, NewGenerator(5), 4096, 0); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if _, err := WriteCSV(&second, NewGenerator(5), 4096, 0); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Fatal("same seed produced different output")
	}
}

func TestWriteCSVHeaderOnlyWhenTargetIsTiny(t *testing.T) {
	var out bytes.Buffer
	summary, err := WriteCSV(&out, NewGenerator(1), int64(len(Header)+1), 0)
	if err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if summary.Rows != 0 || out.String() != Header+"\n" {
		t.Fatalf("summary = %+v output = %q", summary, out.String())
	}
}

func TestWriteCSVPropagatesWriteErrors(t *testing.T) {
	_, err := WriteCSV(failingWriter{}, NewGenerator(1), 1<<20, 64)
	if err == nil {
		t.Fatal("expected write error")
	}
}

func TestWriteParquetRoundTrip(t *testing.T) {
	var out bytes.Buffer
	summary, err := WriteParquet(&out, NewGenerator(42), 10_000)
	if err != nil {
		t.Fatalf("WriteParquet() error = %v", err)
	}
	if summary.Rows != 10_000 || summary.Bytes != int64(out.Len()) {
		t.Fatalf("summary = %+v, buffer = %d bytes", summary, out.Len())
	}

	reader := parquet.NewGenericReader[parquetEmployee](bytes.NewReader(out.Bytes()))
	defer func() { _ = reader.Close() }()
	if reader.NumRows() != 10_000 {
		t.Fatalf("NumRows() = %d", reader.NumRows())
	}

	rows := make([]parquetEmployee, 3)
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("Read() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("Read() = %d rows", n)
	}

	want := NewGenerator(42)
	for i := 0; i < n; i++ {
		expected := toParquet(want.Next())
		if rows[i] != expected {
			t.Fatalf("row %d = %#v, want %#v", i, rows[i], expected)
		}
	}
}

func TestWriteParquetRejectsNegativeRows(t *testing.T) {
	if _, err := WriteParquet(io.Discard, NewGenerator(1), -1); err == nil {
		t.Fatal("expected error")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}
