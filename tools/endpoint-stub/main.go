// endpoint-stub is a stand-in form-processing endpoint for manual runs of
// quizrelay. Each transport can be made to fail with REJECT, e.g.
// REJECT=fetch,xhr makes deliveries fall through to the hidden frame.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"mime"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

type submission struct {
	Timestamp string            `json:"timestamp"`
	Transport string            `json:"transport"`
	Fields    map[string]string `json:"fields"`
}

type stats struct {
	Count           int64            `json:"count"`
	Rejected        map[string]int64 `json:"rejected"`
	LastSubmissions []submission     `json:"last_submissions"`
	Since           string           `json:"since"`
}

type stub struct {
	reject map[string]bool

	mu       sync.Mutex
	count    int64
	rejected map[string]int64
	last     []submission
	since    time.Time
}

const maxStored = 50

func newStub(reject string) *stub {
	s := &stub{
		reject:   make(map[string]bool),
		rejected: make(map[string]int64),
		since:    time.Now().UTC(),
	}
	for _, name := range strings.Split(reject, ",") {
		if name = strings.TrimSpace(name); name != "" {
			s.reject[name] = true
		}
	}
	return s
}

func main() {
	addr := ":8081"
	if v := os.Getenv("ADDR"); v != "" {
		addr = v
	}
	s := newStub(os.Getenv("REJECT"))

	log.Printf("endpoint-stub listening on %s (reject=%q)", addr, os.Getenv("REJECT"))
	log.Fatal(http.ListenAndServe(addr, s.routes()))
}

func (s *stub) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/submit", s.submitHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	mux.HandleFunc("/reset", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		s.count = 0
		s.last = nil
		s.rejected = make(map[string]int64)
		s.since = time.Now().UTC()
		s.mu.Unlock()
		fmt.Fprintln(w, "reset")
	})
	return mux
}

// transportOf tells the four delivery transports apart by how they shape
// the request.
func transportOf(r *http.Request) string {
	if r.Method == http.MethodGet {
		if r.URL.Query().Get("test") == "1" {
			return "probe"
		}
		if r.URL.Query().Get("callback") != "" {
			return "jsonp"
		}
		return ""
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "multipart/form-data" && r.Header.Get("X-Requested-With") == "XMLHttpRequest":
		return "fetch"
	case mediaType == "multipart/form-data":
		return "xhr"
	case mediaType == "application/x-www-form-urlencoded":
		return "iframe"
	}
	return ""
}

func (s *stub) submitHandler(w http.ResponseWriter, r *http.Request) {
	transport := transportOf(r)
	switch transport {
	case "":
		http.Error(w, "unrecognised request", http.StatusBadRequest)
		return
	case "probe":
		fmt.Fprintln(w, "ok")
		return
	}

	if s.reject[transport] {
		s.mu.Lock()
		s.rejected[transport]++
		s.mu.Unlock()
		log.Printf("rejected %s submission", transport)
		http.Error(w, "rejected", http.StatusForbidden)
		return
	}

	fields, err := formFields(r, transport)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	callback := fields["callback"]
	delete(fields, "callback")

	s.mu.Lock()
	s.count++
	s.last = append(s.last, submission{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Transport: transport,
		Fields:    fields,
	})
	if len(s.last) > maxStored {
		s.last = s.last[len(s.last)-maxStored:]
	}
	current := s.count
	s.mu.Unlock()

	log.Printf("submission #%d via %s (%d fields, timestamp=%q)", current, transport, len(fields), fields["timestamp"])

	result := fmt.Sprintf(`{"result":"success","row":%d}`, current)
	switch transport {
	case "jsonp":
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprintf(w, "%s(%s);", callback, result)
	case "iframe":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>Saved</title></head><body><script>parent.%s && parent.%s(%s)</script></body></html>", callback, callback, result)
	default:
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, result)
	}
}

func formFields(r *http.Request, transport string) (map[string]string, error) {
	var err error
	switch transport {
	case "fetch", "xhr":
		err = r.ParseMultipartForm(1 << 20)
	default:
		err = r.ParseForm()
	}
	if err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(r.Form))
	for k, v := range r.Form {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	return fields, nil
}

func (s *stub) statsHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	st := stats{
		Count:           s.count,
		Rejected:        make(map[string]int64, len(s.rejected)),
		LastSubmissions: s.last,
		Since:           s.since.Format(time.RFC3339),
	}
	for k, v := range s.rejected {
		st.Rejected[k] = v
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}
