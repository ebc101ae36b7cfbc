package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/djlord-it/quizrelay/internal/domain"
)

// DirectRequest posts the record straight to the endpoint as a
// cross-origin style request: multipart body, X-Requested-With header, no
// credentials. Any 2xx response succeeds with its body as payload.
type DirectRequest struct {
	client *http.Client
}

func NewDirectRequest(client *http.Client) *DirectRequest {
	if client == nil {
		client = newHTTPClient()
	}
	return &DirectRequest{client: client}
}

func (s *DirectRequest) Name() string { return NameFetch }

func (s *DirectRequest) Attempt(ctx context.Context, rec domain.Record, endpoint string) (string, error) {
	body, contentType, err := multipartBody(rec)
	if err != nil {
		return "", &TransportError{Strategy: NameFetch, Reason: "encode body", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", &TransportError{Strategy: NameFetch, Reason: "create request", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &NetworkError{Strategy: NameFetch, Err: err}
	}
	defer resp.Body.Close()

	if !is2xx(resp.StatusCode) {
		return "", &HTTPStatusError{Strategy: NameFetch, StatusCode: resp.StatusCode}
	}

	payload, err := readPayload(resp.Body)
	if err != nil {
		return "", &NetworkError{Strategy: NameFetch, Err: fmt.Errorf("read body: %w", err)}
	}
	return payload, nil
}
