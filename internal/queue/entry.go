package queue

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/GriffinCanCode/constructorio-go/internal/storage"
)

// Entry is one pending tracking request
type Entry struct {
	URL    string `json:"url"`
	Method string `json:"method"`
	// Body is sent as JSON for POST entries. Entries read back from storage
	// carry it as json.RawMessage.
	Body interface{} `json:"body,omitempty"`
}

// NewEntry normalizes the method and drops the body of GET entries
func NewEntry(url, method string, body interface{}) Entry {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method != http.MethodPost {
		method = http.MethodGet
	}
	if method == http.MethodGet {
		body = nil
	}
	return Entry{URL: url, Method: method, Body: body}
}

type storedEntry struct {
	URL    string          `json:"url"`
	Method string          `json:"method"`
	Body   json.RawMessage `json:"body,omitempty"`
}

func encodeEntries(entries []Entry) ([]byte, error) {
	return storage.Marshal(entries)
}

// decodeEntries reads a stored backlog. Bare strings are legacy GET entries;
// elements that are neither strings nor objects with a url are skipped.
func decodeEntries(data []byte) []Entry {
	var raw []json.RawMessage
	if err := storage.Unmarshal(data, &raw); err != nil {
		return nil
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 {
			continue
		}

		if item[0] == '"' {
			var url string
			if err := storage.Unmarshal(item, &url); err != nil || url == "" {
				continue
			}
			entries = append(entries, NewEntry(url, http.MethodGet, nil))
			continue
		}

		var se storedEntry
		if err := storage.Unmarshal(item, &se); err != nil || se.URL == "" {
			continue
		}

		var body interface{}
		if len(se.Body) > 0 && !bytes.Equal(se.Body, []byte("null")) {
			body = se.Body
		}
		entries = append(entries, NewEntry(se.URL, se.Method, body))
	}
	return entries
}
