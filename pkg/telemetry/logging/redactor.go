package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/b3ckham/Orchestrator/pkg/config"
)

// Redacted replaces the value of a sensitive attribute.
const Redacted = "[REDACTED]"

// Built-in pattern names.
const (
	PatternEmail       = "email"
	PatternPhone       = "phone"
	PatternIDNumber    = "id_number"
	PatternBearerToken = "bearer_token"
)

// Redactor masks member identity fields and credentials in log attributes.
// Keys are matched case-insensitively and by suffix of a dotted group path,
// so "member.email" matches "email".
type Redactor struct {
	keys     map[string]struct{}
	patterns []redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

var defaultSensitiveKeys = []string{
	"email", "phone", "idnumber", "id_number",
	"password", "secret", "token", "authorization", "api_key",
}

var defaultPatterns = []redactPattern{
	{PatternBearerToken, regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`), "Bearer " + Redacted},
	{PatternEmail, regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), Redacted},
	{PatternPhone, regexp.MustCompile(`\+\d[\d\s-]{7,}\d`), Redacted},
	{PatternIDNumber, regexp.MustCompile(`\b[A-Z]{1,2}\d{6,10}[A-Z]?\b`), Redacted},
}

// NewRedactor creates a Redactor with the built-in keys and patterns plus
// the given extras.
func NewRedactor(extraKeys []string, extraPatterns []config.RedactPattern) (*Redactor, error) {
	r := &Redactor{keys: make(map[string]struct{})}
	for _, k := range defaultSensitiveKeys {
		r.keys[k] = struct{}{}
	}
	for _, k := range extraKeys {
		r.keys[strings.ToLower(k)] = struct{}{}
	}

	r.patterns = append(r.patterns, defaultPatterns...)
	for _, p := range extraPatterns {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p.Name, err)
		}
		replacement := p.Replacement
		if replacement == "" {
			replacement = Redacted
		}
		r.patterns = append(r.patterns, redactPattern{name: p.Name, regex: regex, replacement: replacement})
	}
	return r, nil
}

// IsSensitiveKey reports whether values under key are always masked.
func (r *Redactor) IsSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	_, ok := r.keys[key]
	return ok
}

// RedactString applies every pattern to value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook.
func (r *Redactor) ReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch a.Key {
		case slog.TimeKey, slog.LevelKey, slog.SourceKey:
			return a
		}
	}

	if r.IsSensitiveKey(a.Key) {
		return slog.String(a.Key, Redacted)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(a.Value.String()))
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case error:
			return slog.String(a.Key, r.RedactString(v.Error()))
		case fmt.Stringer:
			return slog.String(a.Key, r.RedactString(v.String()))
		}
	}
	return a
}
