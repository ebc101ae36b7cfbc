package transport

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/djlord-it/quizrelay/internal/domain"
)

// maxPayloadBytes bounds how much of a response body is kept as payload.
const maxPayloadBytes = 1 << 20

// newHTTPClient returns a client without a cookie jar, so no credentials
// are ever attached to outbound requests.
func newHTTPClient() *http.Client {
	return &http.Client{}
}

// multipartBody encodes the record as multipart/form-data, the encoding a
// browser uses when posting a FormData object.
func multipartBody(rec domain.Record) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range rec.Fields() {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func readPayload(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxPayloadBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func is2xx(code int) bool {
	return code >= 200 && code < 300
}
