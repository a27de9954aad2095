package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestCatalogMatchLanguage(t *testing.T) {
	c := DefaultCatalog()
	cases := []struct {
		in   string
		want string
	}{
		{"", "id-ID"},
		{"id-ID", "id-ID"},
		{"en-us", "en-US"},
		{"en-GB", "en-GB"},
		{"ja", "ja-JP"},
		{"th", "th-TH"},
		{"ar-XA", "ar-XA"},
		{"klingon", "id-ID"},
	}
	for _, tc := range cases {
		if got := c.MatchLanguage(tc.in).Code; got != tc.want {
			t.Fatalf("MatchLanguage(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGreeting(t *testing.T) {
	cases := map[string]string{
		"id-ID": "Halo!",
		"ms-MY": "Selamat pagi!",
		"th-TH": "Sawasdee krap!",
		"en-US": "Hello!",
		"ja-JP": "Hello!",
	}
	for code, want := range cases {
		if got := Greeting(Language{Code: code}); got != want {
			t.Fatalf("Greeting(%s) = %q, want %q", code, got, want)
		}
	}
}

func TestCatalogOverrides(t *testing.T) {
	c := DefaultCatalog().
		WithStyles([]Style{{Key: "Cinematic", Descriptor: "moody"}, {Key: "retro", Descriptor: "film grain"}}).
		WithVoices([]string{"Kore", " Puck "})

	if got := c.Style("cinematic").Descriptor; got != "moody" {
		t.Fatalf("cinematic descriptor = %q, want moody", got)
	}
	if !c.HasStyle("retro") {
		t.Fatalf("retro style missing after override")
	}
	if c.HasVoice("Zephyr") {
		t.Fatalf("Zephyr should be replaced by the override list")
	}
	if got := c.Voice("puck"); got != "Puck" {
		t.Fatalf("Voice(puck) = %q, want Puck", got)
	}
	if got := c.Style("unknown").Key; got != DefaultStyleKey {
		t.Fatalf("Style(unknown) = %q, want %q", got, DefaultStyleKey)
	}
}

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("poll: %w", ErrResourceNotFound), CodeResourceNotFound},
		{RequestFailed("no image returned"), CodeProviderRequestFailed},
		{ErrPreconditionNotMet, CodePreconditionNotMet},
		{ErrTimeout, CodeTimeout},
		{ErrProviderUnavailable, CodeProviderUnavailable},
		{fmt.Errorf("%w: scene 2", ErrSuperseded), CodeSuperseded},
		{errors.New("boom"), CodeInternal},
	}
	for _, tc := range cases {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Fatalf("ErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
	if !RequiresReauth(ErrResourceNotFound) || RequiresReauth(ErrTimeout) {
		t.Fatalf("RequiresReauth classification mismatch")
	}
}
