package fetch

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// ValidateEncoding reports whether label names a decodable encoding.
// "" and "auto" are accepted and mean sniffing.
func ValidateEncoding(label string) error {
	if isAuto(label) {
		return nil
	}
	if _, err := htmlindex.Get(strings.TrimSpace(label)); err != nil {
		return fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	return nil
}

// decode converts body to UTF-8. A fixed label wins over anything the
// server declares.
func decode(body []byte, label, contentType string) (io.Reader, error) {
	if isAuto(label) {
		enc, _, _ := charset.DetermineEncoding(body, contentType)
		return transform.NewReader(bytes.NewReader(body), enc.NewDecoder()), nil
	}
	enc, err := htmlindex.Get(strings.TrimSpace(label))
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	return transform.NewReader(bytes.NewReader(body), enc.NewDecoder()), nil
}

func isAuto(label string) bool {
	label = strings.TrimSpace(label)
	return label == "" || strings.EqualFold(label, "auto")
}
