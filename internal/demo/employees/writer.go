package employees

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"
)

const DefaultFlushBytes = 4 << 20

type Summary struct {
	Rows  int64
	Bytes int64
}

// WriteCSV writes the header and then as many rows as fit in targetBytes.
// A row that would push the output past targetBytes is not written, so the
// result never overshoots once the header fits.
func WriteCSV(w io.Writer, gen *Generator, targetBytes int64, flushBytes int) (Summary, error) {
	if gen == nil {
		return Summary{}, fmt.Errorf("generator is required")
	}
	if targetBytes < 0 {
		return Summary{}, fmt.Errorf("target bytes must be >= 0")
	}
	if flushBytes <= 0 {
		flushBytes = DefaultFlushBytes
	}

	buf := bufio.NewWriterSize(w, flushBytes)
	var summary Summary

	header := Header + "\n"
	if _, err := buf.WriteString(header); err != nil {
		return summary, fmt.Errorf("write header: %w", err)
	}
	summary.Bytes = int64(len(header))

	for {
		line := gen.Next().CSVLine()
		if summary.Bytes+int64(len(line)) > targetBytes {
			break
		}
		if _, err := buf.WriteString(line); err != nil {
			return summary, fmt.Errorf("write row %d: %w", summary.Rows+1, err)
		}
		summary.Rows++
		summary.Bytes += int64(len(line))
	}

	if err := buf.Flush(); err != nil {
		return summary, fmt.Errorf("flush csv: %w", err)
	}
	return summary, nil
}

type parquetEmployee struct {
	EmployeeID int64  `parquet:"employee_id"`
	Name       string `parquet:"name"`
	Department string `parquet:"department"`
	Salary     int64  `parquet:"salary"`
	HireDate   int32  `parquet:"hire_date,date"`
}

const parquetBatchSize = 8192

// WriteParquet writes exactly rows employees as a Snappy-compressed Parquet
// file with a DATE hire_date column.
func WriteParquet(w io.Writer, gen *Generator, rows int64) (Summary, error) {
	if gen == nil {
		return Summary{}, fmt.Errorf("generator is required")
	}
	if rows < 0 {
		return Summary{}, fmt.Errorf("rows must be >= 0")
	}

	counter := &countingWriter{w: w}
	writer := parquet.NewGenericWriter[parquetEmployee](counter, parquet.Compression(&parquet.Snappy))

	batch := make([]parquetEmployee, 0, parquetBatchSize)
	var written int64
	for written < rows {
		batch = batch[:0]
		for len(batch) < parquetBatchSize && written+int64(len(batch)) < rows {
			batch = append(batch, toParquet(gen.Next()))
		}
		if _, err := writer.Write(batch); err != nil {
			return Summary{Rows: written, Bytes: counter.n}, fmt.Errorf("write parquet rows: %w", err)
		}
		written += int64(len(batch))
	}
	if err := writer.Close(); err != nil {
		return Summary{Rows: written, Bytes: counter.n}, fmt.Errorf("close parquet writer: %w", err)
	}
	return Summary{Rows: written, Bytes: counter.n}, nil
}

func toParquet(e Employee) parquetEmployee {
	return parquetEmployee{
		EmployeeID: e.EmployeeID,
		Name:       e.Name,
		Department: e.Department,
		Salary:     e.Salary,
		HireDate:   int32(e.HireDate.Unix() / int64(24*time.Hour/time.Second)),
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
