package webhook

import (
	"bytes"
	"io"
	"net/http"
)

// readLimited reads the body and puts a fresh reader back so form parsing still works.
func readLimited(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
