package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html/atom"

	"github.com/djlord-it/quizrelay/internal/domain"
)

// ScriptCallback delivers the record as query parameters of a script
// request. The endpoint answers with a script invoking the callback named in
// the request; that invocation, and only that, is success. The callback is
// deregistered and the script detached on every exit path.
type ScriptCallback struct {
	client    *http.Client
	doc       *Document
	callbacks *Callbacks
	now       func() time.Time
}

func NewScriptCallback(client *http.Client, doc *Document, callbacks *Callbacks) *ScriptCallback {
	if client == nil {
		client = newHTTPClient()
	}
	return &ScriptCallback{client: client, doc: doc, callbacks: callbacks, now: time.Now}
}

func (s *ScriptCallback) Name() string { return NameJSONP }

func (s *ScriptCallback) Attempt(ctx context.Context, rec domain.Record, endpoint string) (string, error) {
	name := UniqueName(jsonpCallbackPrefix, s.now())

	src, err := scriptSource(endpoint, rec, name)
	if err != nil {
		return "", &TransportError{Strategy: NameJSONP, Reason: "build script url", Err: err}
	}

	delivered := make(chan string, 1)
	if err := s.callbacks.Register(name, func(arg string) {
		select {
		case delivered <- arg:
		default:
		}
	}); err != nil {
		return "", &TransportError{Strategy: NameJSONP, Reason: "register callback", Err: err}
	}
	defer s.callbacks.Unregister(name)

	script := element(atom.Script, attr("src", src))
	s.doc.AppendHead(script)
	defer s.doc.Detach(script)

	if err := s.load(ctx, src); err != nil {
		return "", err
	}

	// A script that loaded without calling back leaves the attempt waiting
	// for its timeout.
	select {
	case payload := <-delivered:
		return payload, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// load fetches and evaluates the script.
func (s *ScriptCallback) load(ctx context.Context, src string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return &TransportError{Strategy: NameJSONP, Reason: "script error", Err: err}
	}
	req.Header.Set("Accept", "*/*")

	resp, err := s.client.Do(req)
	if err != nil {
		return &TransportError{Strategy: NameJSONP, Reason: "script error", Err: err}
	}
	defer resp.Body.Close()

	if !is2xx(resp.StatusCode) {
		return &TransportError{Strategy: NameJSONP, Reason: "script error", Err: &HTTPStatusError{Strategy: NameJSONP, StatusCode: resp.StatusCode}}
	}

	body, err := readPayload(resp.Body)
	if err != nil {
		return &TransportError{Strategy: NameJSONP, Reason: "script error", Err: err}
	}

	if callee, arg, ok := ParseInvocation(body); ok {
		s.callbacks.Invoke(callee, arg)
	}
	return nil
}

func scriptSource(endpoint string, rec domain.Record, callback string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	query := rec.Encode(domain.Field{Name: "callback", Value: callback})
	if u.RawQuery != "" {
		u.RawQuery += "&" + query
	} else {
		u.RawQuery = query
	}
	return u.String(), nil
}

var invocationPattern = regexp.MustCompile(`(?s)^\s*(?:/\*\*/)?\s*([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*)\s*\((.*)\)\s*;?\s*$`)

// ParseInvocation recognises a script consisting of a single function call,
// such as `cb({"result":"success"});`, and returns the callee and its
// argument. A JSON string argument is unquoted; any other argument is
// returned as written.
func ParseInvocation(script string) (callee, arg string, ok bool) {
	m := invocationPattern.FindStringSubmatch(script)
	if m == nil {
		return "", "", false
	}
	callee = strings.TrimPrefix(m[1], "window.")
	arg = strings.TrimSpace(m[2])
	if !balanced(arg) {
		return "", "", false
	}

	if strings.HasPrefix(arg, `"`) {
		var s string
		if err := json.Unmarshal([]byte(arg), &s); err == nil {
			return callee, s, true
		}
	}
	return callee, arg, true
}

// balanced reports whether every bracket in arg closes within arg, ignoring
// brackets inside string literals. A script like `cb(1); other()` captures
// `1); other(` and fails here.
func balanced(arg string) bool {
	depth := 0
	var quote rune
	escaped := false
	for _, r := range arg {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}
		switch r {
		case '"', '\'', '`':
			quote = r
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0 && quote == 0
}
