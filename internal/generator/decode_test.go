package generator

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeContent(t *testing.T) {
	log := "START-OF-LOG: 3.0\nQSO: 14025 CW 2024-06-08 1802 W1ABC FN42 G4ABC IO91\n"
	encoded := base64.StdEncoding.EncodeToString([]byte(log))

	tests := []struct {
		name     string
		content  string
		encoding Encoding
	}{
		{"base64", encoded, EncodingBase64},
		{"wrapped base64", encoded[:40] + "\r\n" + encoded[40:], EncodingBase64},
		{"unpadded base64", strings.TrimRight(encoded, "="), EncodingBase64},
		{"data url", "data:text/plain;base64," + encoded, EncodingDataURL},
		{"data url without base64", "data:text/plain," + log, EncodingPlain},
		{"plain text", log, EncodingPlain},
		{"byte order mark", base64.StdEncoding.EncodeToString([]byte("\ufeff" + log)), EncodingBase64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, enc, err := DecodeContent(tt.content, 1<<20)
			require.NoError(t, err)
			assert.Equal(t, tt.encoding, enc)
			assert.Equal(t, strings.TrimSpace(log), strings.TrimSpace(string(data)))
		})
	}
}

func TestDecodeContent_BinaryFallsBackToText(t *testing.T) {
	// valid base64 that decodes to non-UTF-8 bytes
	content := base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0xfd})

	data, enc, err := DecodeContent(content, 0)
	require.NoError(t, err)
	assert.Equal(t, EncodingPlain, enc)
	assert.Equal(t, content, string(data))
}

func TestDecodeContent_Errors(t *testing.T) {
	_, _, err := DecodeContent("   ", 0)
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, _, err = DecodeContent("data:text/plain;base64,", 0)
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, _, err = DecodeContent(strings.Repeat("QSO: 14025\n", 100), 512)
	assert.ErrorIs(t, err, ErrContentTooLarge)
	assert.Contains(t, err.Error(), "512 B limit")

	_, _, err = DecodeContent(strings.Repeat("A", 10_000), 1024)
	assert.ErrorIs(t, err, ErrContentTooLarge)
}
