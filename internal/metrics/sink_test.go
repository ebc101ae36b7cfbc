package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/djlord-it/quizrelay/internal/transport"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ErrorClassNone},
		{"404", &transport.HTTPStatusError{Strategy: "fetch", StatusCode: 404}, ErrorClass4xx},
		{"500", &transport.HTTPStatusError{Strategy: "fetch", StatusCode: 500}, ErrorClass5xx},
		{"302", &transport.HTTPStatusError{Strategy: "xhr", StatusCode: 302}, ErrorClassStatus},
		{"wrapped status", fmt.Errorf("send: %w", &transport.HTTPStatusError{StatusCode: 503}), ErrorClass5xx},
		{"timeout", &transport.TimeoutError{Strategy: "iframe", After: 20 * time.Second}, ErrorClassTimeout},
		{"network", &transport.NetworkError{Strategy: "fetch", Err: errors.New("connection refused")}, ErrorClassNetwork},
		{"frame error", &transport.TransportError{Strategy: "iframe", Reason: "frame error"}, ErrorClassTransport},
		{"script status", &transport.TransportError{Strategy: "jsonp", Reason: "script error", Err: &transport.HTTPStatusError{StatusCode: 404}}, ErrorClassTransport},
		{"deadline", context.DeadlineExceeded, ErrorClassTimeout},
		{"cancelled", context.Canceled, ErrorClassCancelled},
		{"other", errors.New("boom"), ErrorClassOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
