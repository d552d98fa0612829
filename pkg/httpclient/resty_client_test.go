package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRestyClientDoSendsMethodHeadersAndBody(t *testing.T) {
	var gotMethod, gotHeader, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Test")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("X-Reply", "yes")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("done"))
	}))
	defer srv.Close()

	resp, err := NewRestyClient(0).Do(context.Background(), Request{
		Method:  http.MethodPatch,
		URL:     srv.URL,
		Headers: map[string]string{"X-Test": "1"},
		Body:    []byte("payload"),
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotMethod != http.MethodPatch || gotHeader != "1" || gotBody != "payload" {
		t.Fatalf("server saw method=%s header=%s body=%s", gotMethod, gotHeader, gotBody)
	}
	if resp.StatusCode() != http.StatusAccepted {
		t.Fatalf("StatusCode = %d", resp.StatusCode())
	}
	if string(resp.Body()) != "done" {
		t.Fatalf("Body = %q", resp.Body())
	}
	if resp.Header().Get("X-Reply") != "yes" {
		t.Fatalf("missing reply header")
	}
}

func TestRestyClientDoAllowsGetPayload(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer srv.Close()

	_, err := NewRestyClient(0).Do(context.Background(), Request{
		Method: http.MethodGet,
		URL:    srv.URL,
		Body:   []byte(`{"q":1}`),
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotBody != `{"q":1}` {
		t.Fatalf("GET body = %q", gotBody)
	}
}

func TestRestyClientDoEncodesMultipart(t *testing.T) {
	var fields map[string][]string
	var parseErr error
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parseErr = r.ParseMultipartForm(1 << 20)
		if parseErr == nil {
			fields = r.MultipartForm.Value
		}
	}))
	defer srv.Close()

	_, err := NewRestyClient(0).Do(context.Background(), Request{
		Method:     http.MethodPost,
		URL:        srv.URL,
		Form:       true,
		FormFields: map[string]string{"a": "1", "@avatar": "/etc/hostname"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if parseErr != nil {
		t.Fatalf("ParseMultipartForm: %v", parseErr)
	}
	if fields["a"][0] != "1" || fields["@avatar"][0] != "/etc/hostname" {
		t.Fatalf("unexpected fields %#v", fields)
	}
}

func TestEncodeMultipartIsOrdered(t *testing.T) {
	body, ct, err := encodeMultipart(map[string]string{"b": "2", "a": "1"})
	if err != nil {
		t.Fatalf("encodeMultipart: %v", err)
	}
	if !strings.HasPrefix(ct, "multipart/form-data; boundary=") {
		t.Fatalf("content type = %q", ct)
	}
	if strings.Index(string(body), `name="a"`) > strings.Index(string(body), `name="b"`) {
		t.Fatalf("fields not written in key order: %s", body)
	}
}

func TestRestyClientDoTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := NewRestyClient(0).Do(context.Background(), Request{Method: http.MethodGet, URL: url}); err == nil {
		t.Fatalf("expected error for closed server")
	}
}
