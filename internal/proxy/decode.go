package proxy

import (
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// decodeText converts a response body to text using the charset named in
// contentType. Unknown or missing charsets are read as UTF-8 and invalid
// sequences become U+FFFD.
func decodeText(body []byte, contentType string) (string, error) {
	label := charsetLabel(contentType)
	if label == "" {
		return toValidUTF8(body), nil
	}

	enc, name := charset.Lookup(label)
	if enc == nil || name == "utf-8" {
		return toValidUTF8(body), nil
	}

	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("decode %s response body: %w", name, err)
	}
	return toValidUTF8(out), nil
}

func charsetLabel(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["charset"])
}

func toValidUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
