package generator

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

var (
	// ErrEmptyContent is returned for a request without log content.
	ErrEmptyContent = errors.New("log content is empty")

	// ErrContentTooLarge is returned when the decoded log exceeds the size limit.
	ErrContentTooLarge = errors.New("log content too large")
)

// Encoding reports how request content was decoded.
type Encoding string

const (
	EncodingBase64  Encoding = "base64"
	EncodingDataURL Encoding = "data-url"
	EncodingPlain   Encoding = "plain"
)

// DecodeContent turns a request's fileContent into log bytes. A data URL
// prefix ("data:...;base64,") is stripped, the rest is base64 decoded, and
// content that is not valid base64 of UTF-8 text is taken as the log text
// itself. maxBytes <= 0 disables the size check.
func DecodeContent(content string, maxBytes int64) ([]byte, Encoding, error) {
	content = strings.TrimSpace(strings.TrimPrefix(content, "\ufeff"))
	if content == "" {
		return nil, "", ErrEmptyContent
	}

	// base64 inflates by 4/3; anything past twice the limit cannot fit
	if maxBytes > 0 && int64(len(content)) > 2*maxBytes+1024 {
		return nil, "", fmt.Errorf("%w: %s exceeds the %s limit",
			ErrContentTooLarge, humanize.IBytes(uint64(len(content))), humanize.IBytes(uint64(maxBytes)))
	}

	encoding := EncodingBase64
	payload := content
	if strings.HasPrefix(payload, "data:") {
		if i := strings.IndexByte(payload, ','); i >= 0 {
			header := payload[:i]
			payload = payload[i+1:]
			encoding = EncodingDataURL
			if !strings.HasSuffix(header, ";base64") {
				return checkSize([]byte(payload), EncodingPlain, maxBytes)
			}
		}
	}

	if strings.TrimSpace(payload) == "" {
		return nil, "", ErrEmptyContent
	}
	if data, ok := decodeBase64(payload); ok {
		return checkSize(data, encoding, maxBytes)
	}
	return checkSize([]byte(payload), EncodingPlain, maxBytes)
}

func decodeBase64(s string) ([]byte, bool) {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
	if compact == "" {
		return nil, false
	}

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		data, err := enc.DecodeString(compact)
		if err != nil {
			continue
		}
		data = bytes.TrimPrefix(data, []byte("\ufeff"))
		if len(data) == 0 || !utf8.Valid(data) {
			return nil, false
		}
		return data, true
	}
	return nil, false
}

func checkSize(data []byte, enc Encoding, maxBytes int64) ([]byte, Encoding, error) {
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("%w: %s exceeds the %s limit",
			ErrContentTooLarge, humanize.IBytes(uint64(len(data))), humanize.IBytes(uint64(maxBytes)))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, "", ErrEmptyContent
	}
	return data, enc, nil
}
