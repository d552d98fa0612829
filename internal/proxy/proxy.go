package proxy

import (
	"context"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/recipeui/fetchbridge/internal/domain"
	"github.com/recipeui/fetchbridge/internal/logger"
	"github.com/recipeui/fetchbridge/pkg/httpclient"
)

// DefaultUserAgent is sent when Options.UserAgent is blank.
const DefaultUserAgent = "fetchbridge/1.0"

// Options configures a Proxy.
type Options struct {
	UserAgent     string
	FormMode      FormMode
	RedactHeaders []string
	LogBodyBytes  int
}

// Proxy issues a single outbound request per Fetch and maps the response
// into a domain.ResponseRecord.
type Proxy struct {
	newClient httpclient.Factory
	userAgent string
	formMode  FormMode
	redact    redactor
	bodyLimit int
	log       logger.Logger
}

// New builds a Proxy. newClient is called once per Fetch.
func New(newClient httpclient.Factory, opts Options, log logger.Logger) *Proxy {
	if newClient == nil {
		newClient = httpclient.NewRestyFactory(0)
	}
	if opts.FormMode == "" {
		opts.FormMode = FormLossy
	}
	if opts.UserAgent = strings.TrimSpace(opts.UserAgent); opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Proxy{
		newClient: newClient,
		userAgent: opts.UserAgent,
		formMode:  opts.FormMode,
		redact:    newRedactor(opts.RedactHeaders),
		bodyLimit: opts.LogBodyBytes,
		log:       logger.Ensure(log),
	}
}

// Fetch performs the request described by payload against url.
// Every error it returns is a *Error.
func (p *Proxy) Fetch(ctx context.Context, url string, payload domain.RequestPayload) (domain.ResponseRecord, error) {
	method, err := domain.ParseMethod(payload.Method)
	if err != nil {
		p.log.WarnObj("fetch rejected", "fetch_error", map[string]any{
			"method": payload.Method,
			"url":    url,
			"error":  err.Error(),
		})
		return domain.ResponseRecord{}, fail(StageMethod, err)
	}

	req, err := p.buildRequest(method, url, payload)
	if err != nil {
		p.log.WarnObj("fetch rejected", "fetch_error", map[string]any{
			"method": method.String(),
			"url":    url,
			"error":  err.Error(),
		})
		return domain.ResponseRecord{}, fail(StageForm, err)
	}

	p.log.InfoObj("fetch request", "fetch_request", map[string]any{
		"method":     req.Method,
		"url":        req.URL,
		"headers":    p.redact.apply(req.Headers),
		"form":       req.Form,
		"body_bytes": len(req.Body),
	})
	if req.Body != nil && p.bodyLimit > 0 {
		p.log.DebugObj("fetch request body", "fetch_request_body", bodySnippet(req.Body, p.bodyLimit))
	}

	start := time.Now()
	resp, err := p.newClient().Do(ctx, req)
	if err != nil {
		p.log.WarnObj("fetch failed", "fetch_error", map[string]any{
			"method":     req.Method,
			"url":        req.URL,
			"elapsed_ms": time.Since(start).Milliseconds(),
			"error":      err.Error(),
		})
		return domain.ResponseRecord{}, fail(StageTransport, err)
	}

	record, err := mapResponse(resp)
	if err != nil {
		p.log.WarnObj("fetch response decode failed", "fetch_error", map[string]any{
			"method": req.Method,
			"url":    req.URL,
			"error":  err.Error(),
		})
		return domain.ResponseRecord{}, fail(StageDecode, err)
	}

	body := resp.Body()
	p.log.InfoObj("fetch response", "fetch_response", map[string]any{
		"method":       req.Method,
		"url":          req.URL,
		"status":       record.Status,
		"content_type": record.ContentType,
		"size":         humanize.Bytes(uint64(len(body))),
		"elapsed_ms":   time.Since(start).Milliseconds(),
	})
	if p.bodyLimit > 0 {
		p.log.DebugObj("fetch response body", "fetch_response_body", bodySnippet(body, p.bodyLimit))
	}
	return record, nil
}

// buildRequest applies the header and body policy to payload.
func (p *Proxy) buildRequest(method domain.Method, url string, payload domain.RequestPayload) (httpclient.Request, error) {
	headers, form, hasContentType := outboundHeaders(payload.Headers, p.userAgent)
	req := httpclient.Request{
		Method:  method.String(),
		URL:     url,
		Headers: headers,
	}
	if !payload.HasBody() {
		return req, nil
	}

	if !form {
		req.Body = []byte(*payload.Body)
		if !hasContentType {
			req.Headers[headerContentType] = defaultContentType
		}
		return req, nil
	}

	res, err := buildFormFields(*payload.Body, p.formMode)
	if err != nil {
		return httpclient.Request{}, err
	}
	if res.invalid != nil || len(res.dropped) > 0 { // lossy mode only
		detail := map[string]any{
			"url":            url,
			"dropped_fields": res.dropped,
		}
		if res.invalid != nil {
			detail["parse_error"] = res.invalid.Error()
		}
		p.log.WarnObj("form body coerced lossily", "form_coercion", detail)
	}
	req.Form = true
	req.FormFields = res.fields
	return req, nil
}

// mapResponse builds the record handed back to the caller.
func mapResponse(resp httpclient.Response) (domain.ResponseRecord, error) {
	headers := flattenHeaders(resp.Header())
	contentType := resp.Header().Get(headerContentType)
	if contentType == "" {
		contentType = fallbackRespType
	}

	output, err := decodeText(resp.Body(), contentType)
	if err != nil {
		return domain.ResponseRecord{}, err
	}

	return domain.ResponseRecord{
		Output:      output,
		Status:      uint16(resp.StatusCode()),
		ContentType: contentType,
		Headers:     headers,
	}, nil
}
