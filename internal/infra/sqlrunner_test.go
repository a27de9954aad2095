package infra

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestExtractMarker(t *testing.T) {
	query := `
--sql 7d0c3f4e-8b1a-4c55-9e0d-2f6a1b3c4d5e
SELECT 1;`
	marker, body, err := ExtractMarker(query)
	if err != nil {
		t.Fatalf("ExtractMarker returned error: %v", err)
	}
	if marker != "7d0c3f4e-8b1a-4c55-9e0d-2f6a1b3c4d5e" {
		t.Fatalf("marker mismatch: %q", marker)
	}
	if body != "SELECT 1;" {
		t.Fatalf("body mismatch: %q", body)
	}
}

func TestExtractMarkerRejects(t *testing.T) {
	cases := map[string]string{
		"no marker":    "SELECT 1;",
		"bad uuid":     "--sql not-a-uuid\nSELECT 1;",
		"marker only":  "--sql 7d0c3f4e-8b1a-4c55-9e0d-2f6a1b3c4d5e",
		"empty string": "",
	}
	for name, q := range cases {
		if _, _, err := ExtractMarker(q); err == nil {
			t.Fatalf("%s: ExtractMarker accepted %q", name, q)
		}
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)) {
		t.Fatalf("wrapped ErrNoRows not detected")
	}
	if IsNoRows(errors.New("boom")) {
		t.Fatalf("unrelated error classified as no rows")
	}
}
