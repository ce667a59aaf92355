package services

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// ExtractCVText pulls plain text out of an uploaded CV PDF. The bytes are
// sniffed rather than trusted: a file claiming to be PDF without the magic
// header is rejected with a useful error.
func ExtractCVText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty file")
	}
	if !isPDF(data) {
		return "", fmt.Errorf("file is missing the %%PDF header")
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}

	// Null bytes and replacement runes break postgres text columns.
	text := strings.ReplaceAll(string(b), "\x00", "")
	text = strings.ReplaceAll(text, "�", "")
	return collapseWhitespace(text), nil
}

func isPDF(b []byte) bool {
	// PDF starts with "%PDF-"
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
