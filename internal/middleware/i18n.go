package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"adstory/internal/domain"
)

type languageContextKey struct{}
type countryContextKey struct{}

var (
	LanguageKey = languageContextKey{}
	CountryKey  = countryContextKey{}
)

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

// countryLanguages maps a client's country to the narration language a
// user there most likely wants.
var countryLanguages = map[string]string{
	"ID": "id-ID",
	"MY": "ms-MY",
	"BN": "ms-MY",
	"TH": "th-TH",
	"US": "en-US",
	"GB": "en-GB",
	"AU": "en-GB",
	"SG": "en-GB",
	"JP": "ja-JP",
	"KR": "ko-KR",
	"VN": "vi-VN",
	"CN": "zh-CN",
	"TW": "zh-CN",
	"SA": "ar-XA",
	"AE": "ar-XA",
	"EG": "ar-XA",
	"ES": "es-ES",
	"MX": "es-ES",
}

// I18N attaches the preferred output language and the client country to
// the request context. The language is always one the catalog supports.
func I18N(catalog *domain.Catalog, defaultLanguage string, lookup CountryLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			country := ResolveCountry(r, lookup)
			lang := detectLanguage(r, catalog, defaultLanguage, country)
			ctx := context.WithValue(r.Context(), LanguageKey, lang)
			if country != "" {
				ctx = context.WithValue(ctx, CountryKey, strings.ToUpper(country))
			}
			w.Header().Set("Content-Language", lang.Code)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLanguage(r *http.Request, catalog *domain.Catalog, fallback string, country string) domain.Language {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		if lang, ok := catalog.FindLanguage(v); ok {
			return lang
		}
	}
	for _, tag := range parseAcceptLanguage(r.Header.Get("Accept-Language")) {
		if lang, ok := catalog.FindLanguage(tag.String()); ok {
			return lang
		}
	}
	if code, ok := countryLanguages[strings.ToUpper(country)]; ok {
		if lang, ok := catalog.FindLanguage(code); ok {
			return lang
		}
	}
	return catalog.MatchLanguage(fallback)
}

// parseAcceptLanguage returns the header's tags ordered by preference.
func parseAcceptLanguage(header string) []language.Tag {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return nil
	}
	return tags
}

// ClientIP returns the best-effort client IP address for the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// LanguageFromContext returns the language chosen by I18N, or the zero
// Language when the middleware did not run.
func LanguageFromContext(ctx context.Context) domain.Language {
	if v, ok := ctx.Value(LanguageKey).(domain.Language); ok {
		return v
	}
	return domain.Language{}
}

// CountryFromContext returns the ISO country code stored in the request context.
func CountryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CountryKey).(string); ok {
		return v
	}
	return ""
}

// ResolveCountry resolves a best-effort ISO country code for the given request.
func ResolveCountry(r *http.Request, lookup CountryLookup) string {
	if r == nil {
		return ""
	}
	headerHints := []string{"X-Country-Code", "X-IP-Country", "CF-IPCountry", "X-Appengine-Country"}
	for _, key := range headerHints {
		if val := strings.TrimSpace(r.Header.Get(key)); val != "" {
			return strings.ToUpper(val)
		}
	}
	if region := localeRegion(r.Header.Get("X-Locale")); region != "" {
		return region
	}
	if region := localeRegion(r.Header.Get("Accept-Language")); region != "" {
		return region
	}
	if lookup != nil {
		if ip := ClientIP(r); ip != "" {
			if country, err := lookup(ip); err == nil && country != "" {
				return strings.ToUpper(country)
			}
		}
	}
	return ""
}

func localeRegion(accept string) string {
	for _, part := range strings.Split(accept, ",") {
		token := strings.TrimSpace(strings.Split(part, ";")[0])
		if token == "" {
			continue
		}
		if idx := strings.IndexAny(token, "-_"); idx > 0 && idx < len(token)-1 {
			return strings.ToUpper(token[idx+1:])
		}
	}
	return ""
}
