package waterfall

import (
	"net/http"
	"time"

	"github.com/djlord-it/quizrelay/internal/transport"
)

// Timeouts holds the per-strategy bounds.
type Timeouts struct {
	Fetch  time.Duration
	XHR    time.Duration
	Iframe time.Duration
	JSONP  time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Fetch:  15 * time.Second,
		XHR:    15 * time.Second,
		Iframe: 20 * time.Second,
		JSONP:  15 * time.Second,
	}
}

// StandardSteps returns the fixed priority order: direct request, legacy
// request, hidden frame, script callback. doc and callbacks are shared by
// every submission so their transient entries can be observed.
func StandardSteps(client *http.Client, doc *transport.Document, callbacks *transport.Callbacks, t Timeouts, strictFrame bool) []Step {
	return []Step{
		{Strategy: transport.NewDirectRequest(client), Timeout: t.Fetch},
		{Strategy: transport.NewLegacyRequest(client), Timeout: t.XHR},
		{Strategy: transport.NewHiddenFrame(client, doc).WithStrictLoad(strictFrame), Timeout: t.Iframe},
		{Strategy: transport.NewScriptCallback(client, doc, callbacks), Timeout: t.JSONP},
	}
}
