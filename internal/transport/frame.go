package transport

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/djlord-it/quizrelay/internal/domain"
)

// FramePayload is the payload reported when a frame submission loads.
const FramePayload = "Iframe submission completed"

// HiddenFrame builds a hidden form targeting a uniquely named hidden frame,
// submits it, and treats the frame's load as success. The form and the
// frame are detached from the document on every exit path.
type HiddenFrame struct {
	client *http.Client
	doc    *Document
	strict bool
	now    func() time.Time
}

func NewHiddenFrame(client *http.Client, doc *Document) *HiddenFrame {
	if client == nil {
		client = newHTTPClient()
	}
	return &HiddenFrame{client: client, doc: doc, now: time.Now}
}

// WithStrictLoad makes the frame count a load as success only when the
// loaded response had a 2xx status. Without it, any response that loads
// (error pages included) is a success.
func (s *HiddenFrame) WithStrictLoad(strict bool) *HiddenFrame {
	s.strict = strict
	return s
}

func (s *HiddenFrame) Name() string { return NameIframe }

func (s *HiddenFrame) Attempt(ctx context.Context, rec domain.Record, endpoint string) (string, error) {
	now := s.now()
	target := UniqueName(framePrefix, now)

	form := element(atom.Form,
		attr("method", "POST"),
		attr("action", endpoint),
		attr("target", target),
		attr("style", "display:none"),
	)
	for _, f := range rec.Fields() {
		form.AppendChild(hiddenInput(f.Name, f.Value))
	}
	form.AppendChild(hiddenInput("callback", UniqueName(frameCallbackPrefix, now)))

	frame := element(atom.Iframe,
		attr("name", target),
		attr("style", "display:none;position:absolute;left:-9999px"),
	)

	s.doc.AppendBody(frame)
	s.doc.AppendBody(form)
	defer s.doc.Detach(form)
	defer s.doc.Detach(frame)

	return s.submit(ctx, form, target)
}

func (s *HiddenFrame) submit(ctx context.Context, form *html.Node, target string) (string, error) {
	body := domain.EncodeFields(s.doc.FormFields(form))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, attrValue(form, "action"), strings.NewReader(body))
	if err != nil {
		return "", &TransportError{Strategy: NameIframe, Reason: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &TransportError{Strategy: NameIframe, Reason: "frame error", Err: err}
	}
	defer resp.Body.Close()

	loaded, err := html.Parse(resp.Body)
	if err != nil {
		return "", &TransportError{Strategy: NameIframe, Reason: "frame error", Err: err}
	}
	if s.strict && !is2xx(resp.StatusCode) {
		return "", &HTTPStatusError{Strategy: NameIframe, StatusCode: resp.StatusCode}
	}

	log.Printf("transport: frame=%s loaded status=%d title=%q", target, resp.StatusCode, documentTitle(loaded))
	return FramePayload, nil
}

func hiddenInput(name, value string) *html.Node {
	return element(atom.Input, attr("type", "hidden"), attr("name", name), attr("value", value))
}

func documentTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title && n.FirstChild != nil {
		return strings.TrimSpace(n.FirstChild.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := documentTitle(c); t != "" {
			return t
		}
	}
	return ""
}
