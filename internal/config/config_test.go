package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Source.CSVFile != "data.csv" {
		t.Errorf("CSVFile = %q, want data.csv", cfg.Source.CSVFile)
	}
	if cfg.Source.ViewsFile != "" {
		t.Errorf("ViewsFile = %q, want empty", cfg.Source.ViewsFile)
	}
	if cfg.Dashboard.TopN != 10 {
		t.Errorf("TopN = %d, want 10", cfg.Dashboard.TopN)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s", cfg.Server.ShutdownTimeout)
	}
	if got := cfg.Address(); got != "localhost:8084" {
		t.Errorf("Address() = %q, want localhost:8084", got)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CSV_FILE", "orders.csv")
	t.Setenv("VIEWS_FILE", "views.yaml")
	t.Setenv("DASHBOARD_TOP_N", "5")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("SECURITY_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := SourceConfig{CSVFile: "orders.csv", ViewsFile: "views.yaml"}
	if diff := cmp.Diff(want, cfg.Source); diff != "" {
		t.Errorf("source mismatch (-want +got):\n%s", diff)
	}
	if cfg.Dashboard.TopN != 5 {
		t.Errorf("TopN = %d, want 5", cfg.Dashboard.TopN)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if diff := cmp.Diff([]string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins); diff != "" {
		t.Errorf("origins mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("DASHBOARD_TITLE=Quarterly Sales\nDASHBOARD_TOP_N=3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Registered first so the values godotenv sets are restored afterwards.
	t.Setenv("DASHBOARD_TITLE", "")
	os.Unsetenv("DASHBOARD_TITLE")
	t.Setenv("DASHBOARD_TOP_N", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Dashboard.Title != "Quarterly Sales" {
		t.Errorf("Title = %q, want value from env file", cfg.Dashboard.Title)
	}
	if cfg.Dashboard.TopN != 7 {
		t.Errorf("TopN = %d, process environment should win over the env file", cfg.Dashboard.TopN)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "SERVER_PORT", "70000"},
		{"zero top n", "DASHBOARD_TOP_N", "0"},
		{"negative top n", "DASHBOARD_TOP_N", "-2"},
		{"bad log level", "LOG_LEVEL", "loud"},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"zero rate limit", "SECURITY_RATE_LIMIT_RPS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() should fail with %s=%s", tt.key, tt.value)
			}
		})
	}
}
