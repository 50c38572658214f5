package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveImportTracksStatusAndRows(t *testing.T) {
	before := testutil.ToFloat64(importsTotal.WithLabelValues("upload", "success"))
	ObserveImport("upload", 42, 10*time.Millisecond, nil)
	if got := testutil.ToFloat64(importsTotal.WithLabelValues("upload", "success")); got != before+1 {
		t.Fatalf("imports success = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(tableRows); got != 42 {
		t.Fatalf("table rows = %v, want 42", got)
	}

	ObserveImport("object", 0, time.Millisecond, errors.New("boom"))
	if got := testutil.ToFloat64(tableRows); got != 42 {
		t.Fatalf("failed import changed table rows to %v", got)
	}
	if got := testutil.ToFloat64(importsTotal.WithLabelValues("object", "error")); got < 1 {
		t.Fatalf("imports error = %v", got)
	}
}

func TestObserveTableDroppedResetsRows(t *testing.T) {
	ObserveImport("upload", 7, time.Millisecond, nil)
	ObserveTableDropped()
	if got := testutil.ToFloat64(tableRows); got != 0 {
		t.Fatalf("table rows = %v, want 0", got)
	}
}

func TestObserveQueryCountsByMode(t *testing.T) {
	before := testutil.ToFloat64(queriesTotal.WithLabelValues("paginated", "error"))
	ObserveQuery("paginated", time.Millisecond, errors.New("syntax error"))
	if got := testutil.ToFloat64(queriesTotal.WithLabelValues("paginated", "error")); got != before+1 {
		t.Fatalf("queries error = %v, want %v", got, before+1)
	}
}
