package imap

import (
	"encoding/base64"
	"io"
	"mime/quotedprintable"
	"strings"

	"github.com/pkg/errors"
)

// decodeTransferEncoding undoes the content-transfer-encoding a BODY[n]
// fetch leaves in place.
func decodeTransferEncoding(body io.Reader, encoding string) ([]byte, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Wrap(err, "reading part body")
	}

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		// servers wrap base64 literals; the decoder rejects whitespace
		cleaned := strings.Map(func(r rune) rune {
			switch r {
			case '\r', '\n', ' ', '\t':
				return -1
			}
			return r
		}, string(raw))

		data, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			return nil, errors.Wrap(err, "decoding base64 part")
		}
		return data, nil

	case "quoted-printable":
		data, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(string(raw))))
		if err != nil {
			return nil, errors.Wrap(err, "decoding quoted-printable part")
		}
		return data, nil

	default:
		// 7bit, 8bit, binary or unset
		return raw, nil
	}
}
