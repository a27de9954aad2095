package geoip

import (
	"errors"
	"testing"
)

func TestNilResolverUnavailable(t *testing.T) {
	r, err := NewResolver("  ")
	if err != nil || r != nil {
		t.Fatalf("NewResolver(empty) = %v, %v; want nil, nil", r, err)
	}
	if _, err := r.CountryCode("8.8.8.8"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("CountryCode on nil resolver err = %v, want ErrUnavailable", err)
	}
}

func TestNewResolverMissingDatabase(t *testing.T) {
	if _, err := NewResolver("/nonexistent/GeoLite2-Country.mmdb"); err == nil {
		t.Fatalf("NewResolver accepted a missing database")
	}
}

func TestStatic(t *testing.T) {
	s := Static{"203.0.113.7": "TH"}
	if got, _ := s.CountryCode("203.0.113.7"); got != "TH" {
		t.Fatalf("CountryCode = %q, want TH", got)
	}
	if got, _ := s.CountryCode("198.51.100.1"); got != "" {
		t.Fatalf("unknown ip resolved to %q", got)
	}
}
