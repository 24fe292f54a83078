package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	dir := t.TempDir()

	if err := ValidatePathWithinDirectory(filepath.Join(dir, "report.html"), dir); err != nil {
		t.Errorf("path inside directory should validate, got %v", err)
	}
	if err := ValidatePathWithinDirectory(filepath.Join(dir, "sub", "report.html"), dir); err != nil {
		t.Errorf("nested path should validate, got %v", err)
	}
	if err := ValidatePathWithinDirectory(filepath.Join(dir, "..", "escape.html"), dir); err == nil {
		t.Error("expected traversal rejection")
	}
	if err := ValidatePathWithinDirectory("/etc/passwd", dir); err == nil {
		t.Error("expected absolute escape rejection")
	}
}

func TestValidateExportPath(t *testing.T) {
	if err := ValidateExportPath(filepath.Join(os.TempDir(), "out.html")); err != nil {
		t.Errorf("temp dir output should validate, got %v", err)
	}
	if err := ValidateExportPath("relative-output.html"); err != nil {
		t.Errorf("cwd-relative output should validate, got %v", err)
	}
	if err := ValidateExportPath("/nonexistent-root-dir/out.html"); err == nil {
		t.Error("expected rejection outside allowed directories")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"synthetic-10k", "synthetic-10k"},
		{"NYC listings / May 2026", "NYC_listings_May_2026"},
		{"../../etc/passwd", "etc_passwd"},
		{"", "unknown"},
		{"___", "unknown"},
		{"a.b-c_d", "a.b-c_d"},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
