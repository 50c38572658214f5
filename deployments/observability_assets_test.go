package deployments

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestPrometheusRulesContainExpectedAlerts(t *testing.T) {
	text := readAsset(t, "observability", "prometheus", "duckcsv_rules.yaml")

	requiredAlerts := []string{
		"DuckCSVImportsFailing",
		"DuckCSVImportSlow",
		"DuckCSVQueryLatencyHigh",
		"DuckCSVHTTPErrorRateHigh",
	}
	for _, alertName := range requiredAlerts {
		if !strings.Contains(text, "alert: "+alertName) {
			t.Fatalf("rules missing alert %q", alertName)
		}
	}

	requiredRecords := []string{
		"duckcsv:import_failure_ratio_1h",
		"duckcsv:import_duration_seconds_p95",
		"duckcsv:query_duration_seconds_p95",
		"duckcsv:http_error_rate_5m",
	}
	for _, recordName := range requiredRecords {
		if !strings.Contains(text, "record: "+recordName) {
			t.Fatalf("rules missing record %q", recordName)
		}
	}
}

func TestPrometheusRulesReferenceExportedMetrics(t *testing.T) {
	text := readAsset(t, "observability", "prometheus", "duckcsv_rules.yaml")

	exported := []string{
		"duckcsv_imports_total",
		"duckcsv_import_duration_seconds_bucket",
		"duckcsv_query_duration_seconds_bucket",
		"duckcsv_http_requests_total",
	}
	for _, metricName := range exported {
		if !strings.Contains(text, metricName) {
			t.Fatalf("rules missing metric reference %q", metricName)
		}
	}
}

func TestPrometheusScrapeExampleContainsMetricsPathAndRules(t *testing.T) {
	text := readAsset(t, "observability", "prometheus", "prometheus-scrape.example.yaml")

	for _, token := range []string{
		"metrics_path: /metrics",
		"duckcsv_rules.yaml",
		"job_name: duckcsv-api",
	} {
		if !strings.Contains(text, token) {
			t.Fatalf("scrape example missing %q", token)
		}
	}
}

func TestComposeDefinesLocalDependencies(t *testing.T) {
	text := readAsset(t, "docker-compose.yml")

	for _, service := range []string{"minio:", "postgres:", "prometheus:"} {
		if !strings.Contains(text, "\n  "+service) {
			t.Fatalf("compose file missing service %q", service)
		}
	}
}

func readAsset(t *testing.T, parts ...string) string {
	t.Helper()
	path := filepath.Join(append([]string{repoRoot(t), "deployments"}, parts...)...)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(content)
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), ".."))
}
