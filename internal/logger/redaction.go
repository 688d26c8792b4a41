package logger

import (
	"io"
	"regexp"
)

// Redactor masks credentials in log output
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	re *regexp.Regexp
	// replacement may reference capture groups to keep the key name visible
	replacement string
}

// NewRedactor creates a redactor for the credentials the gateways handle
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactPattern{
			// Authorization headers (GHL, Zapier)
			{regexp.MustCompile(`Bearer\s+[A-Za-z0-9._~+/=-]+`), "Bearer [REDACTED]"},

			// Graph API access_token query parameters
			{regexp.MustCompile(`(access_token=)[^&\s"]+`), "${1}[REDACTED]"},

			// Meta user/system tokens
			{regexp.MustCompile(`EAA[A-Za-z0-9]{20,}`), "[REDACTED]"},

			// JWTs (GHL location keys)
			{regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`), "[REDACTED]"},

			// GHL private integration tokens
			{regexp.MustCompile(`pit-[A-Za-z0-9-]{16,}`), "[REDACTED]"},

			// Google OAuth tokens and client secrets
			{regexp.MustCompile(`ya29\.[A-Za-z0-9._-]+`), "[REDACTED]"},
			{regexp.MustCompile(`1//[A-Za-z0-9._-]{20,}`), "[REDACTED]"},
			{regexp.MustCompile(`GOCSPX-[A-Za-z0-9_-]+`), "[REDACTED]"},

			// key/value assignments in JSON or query form
			{regexp.MustCompile(`((?:api_key|apikey|token|secret|password|client_secret)"?\s*[:=]\s*"?)[^\s",&}]+`), "${1}[REDACTED]"},
		},
	}
}

// AddPattern adds a custom redaction pattern
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, redactPattern{re: re, replacement: "[REDACTED]"})
	return nil
}

// Redact masks sensitive values in s
func (r *Redactor) Redact(s string) string {
	result := s
	for _, p := range r.patterns {
		result = p.re.ReplaceAllString(result, p.replacement)
	}
	return result
}

// Wrap wraps an io.Writer to redact sensitive information
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{
		writer:   w,
		redactor: r,
	}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success so callers see the unredacted length.
func (w *redactingWriter) Write(p []byte) (int, error) {
	redacted := w.redactor.Redact(string(p))
	if _, err := w.writer.Write([]byte(redacted)); err != nil {
		return 0, err
	}
	return len(p), nil
}
