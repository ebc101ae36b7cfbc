package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/djlord-it/quizrelay/internal/domain"
)

// LegacyRequest is the fallback request object: same endpoint and body as
// DirectRequest, no custom headers, and a more tolerant success check.
type LegacyRequest struct {
	client *http.Client
}

func NewLegacyRequest(client *http.Client) *LegacyRequest {
	if client == nil {
		client = newHTTPClient()
	}
	return &LegacyRequest{client: client}
}

func (s *LegacyRequest) Name() string { return NameXHR }

func (s *LegacyRequest) Attempt(ctx context.Context, rec domain.Record, endpoint string) (string, error) {
	body, contentType, err := multipartBody(rec)
	if err != nil {
		return "", &TransportError{Strategy: NameXHR, Reason: "encode body", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", &TransportError{Strategy: NameXHR, Reason: "create request", Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &NetworkError{Strategy: NameXHR, Err: err}
	}
	defer resp.Body.Close()

	// Status 0 comes from round trippers that cannot observe a status
	// (opaque or local-file responses) and is accepted.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != 0 {
		return "", &HTTPStatusError{Strategy: NameXHR, StatusCode: resp.StatusCode}
	}

	payload, err := readPayload(resp.Body)
	if err != nil {
		return "", &NetworkError{Strategy: NameXHR, Err: fmt.Errorf("read body: %w", err)}
	}
	return payload, nil
}
