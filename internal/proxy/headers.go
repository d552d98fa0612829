package proxy

import (
	"net/http"
	"strings"
)

const (
	headerContentType  = "Content-Type"
	headerUserAgent    = "User-Agent"
	defaultContentType = "application/json"
	fallbackRespType   = "text/plain"
	redactedValue      = "[REDACTED]"
)

// outboundHeaders applies the forwarding policy to caller headers.
// It reports whether the request must be form-encoded and whether the caller
// supplied its own content type.
func outboundHeaders(in map[string]string, userAgent string) (out map[string]string, form, hasContentType bool) {
	out = make(map[string]string, len(in)+1)
	for k, v := range in {
		if strings.EqualFold(k, headerContentType) {
			if strings.Contains(strings.ToLower(v), "form") {
				form = true
				continue
			}
			hasContentType = true
		}
		if strings.EqualFold(k, headerUserAgent) {
			continue
		}
		out[k] = v
	}
	out[headerUserAgent] = userAgent
	return out, form, hasContentType
}

// flattenHeaders lower-cases names and joins repeated values.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[strings.ToLower(k)] = strings.Join(vs, ", ")
	}
	return out
}

// redactor masks sensitive header values before they reach the logs.
type redactor map[string]struct{}

func newRedactor(names []string) redactor {
	r := make(redactor, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			r[n] = struct{}{}
		}
	}
	return r
}

func (r redactor) apply(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if _, ok := r[strings.ToLower(k)]; ok {
			v = redactedValue
		}
		out[k] = v
	}
	return out
}

func bodySnippet(body []byte, limit int) string {
	if len(body) == 0 || limit <= 0 {
		return ""
	}
	if len(body) > limit {
		body = body[:limit]
	}
	return strings.TrimSpace(string(body))
}
