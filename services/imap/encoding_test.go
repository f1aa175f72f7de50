package imap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTransferEncoding_Base64(t *testing.T) {
	// wrapped the way IMAP servers return literals
	body := strings.NewReader("aGVs\r\nbG8g\r\nd29ybGQ=")

	data, err := decodeTransferEncoding(body, "BASE64")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestDecodeTransferEncoding_QuotedPrintable(t *testing.T) {
	body := strings.NewReader("hello=20world=\r\n!")

	data, err := decodeTransferEncoding(body, "quoted-printable")
	require.NoError(t, err)
	assert.Equal(t, "hello world!", string(data))
}

func TestDecodeTransferEncoding_PassThrough(t *testing.T) {
	for _, encoding := range []string{"", "7bit", "8bit", "binary"} {
		data, err := decodeTransferEncoding(strings.NewReader("raw bytes"), encoding)
		require.NoError(t, err)
		assert.Equal(t, "raw bytes", string(data), encoding)
	}
}

func TestDecodeTransferEncoding_BadBase64(t *testing.T) {
	_, err := decodeTransferEncoding(strings.NewReader("!!! not base64 !!!"), "base64")
	assert.Error(t, err)
}
