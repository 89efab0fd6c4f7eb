package exa

import (
	"bufio"
	"encoding/json"
	"strings"
)

// Provider responses arrive in one of three shapes: a plain JSON object, a
// server-push event stream with JSON behind "data:" prefixes, or free text
// using a Title:/URL:/Text: block convention. ParseResults probes each
// format in order and stops at the first success. A body that matches none
// of them yields an empty list, never an error.
func ParseResults(body []byte) []Result {
	if results, ok := parseJSONResponse(body); ok {
		return results
	}
	if results, ok := parseEventStream(body); ok {
		return results
	}
	if results, ok := parseTextBlocks(string(body)); ok {
		return results
	}
	return nil
}

// rpcEnvelope is the tool-invocation response wrapper. The actual search
// payload is JSON re-encoded inside a text content block.
type rpcEnvelope struct {
	Result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
}

// resultsPayload is the innermost search payload.
type resultsPayload struct {
	Results []Result `json:"results"`
}

// parseJSONResponse handles a single JSON object: either a bare
// {"results": [...]} payload or an RPC envelope whose text content block
// wraps that payload (possibly as free text).
func parseJSONResponse(body []byte) ([]Result, bool) {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}

	var envelope rpcEnvelope
	if err := json.Unmarshal([]byte(trimmed), &envelope); err == nil {
		for _, block := range envelope.Result.Content {
			if block.Type != "" && block.Type != "text" {
				continue
			}
			inner := strings.TrimSpace(block.Text)
			if inner == "" {
				continue
			}
			if results, ok := parseJSONResponse([]byte(inner)); ok {
				return results, true
			}
			if results, ok := parseTextBlocks(inner); ok {
				return results, true
			}
		}
	}

	var payload resultsPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err == nil && payload.Results != nil {
		return payload.Results, true
	}

	return nil, false
}

// parseEventStream handles newline-delimited event streams. Each "data:"
// line is probed as a JSON payload; results accumulate across events.
func parseEventStream(body []byte) ([]Result, bool) {
	var results []Result
	found := false

	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}
		if parsed, ok := parseJSONResponse([]byte(payload)); ok {
			results = append(results, parsed...)
			found = true
		}
	}

	return results, found
}

// parseTextBlocks handles the plain-text fallback convention:
//
//	Title: Acme Corp
//	URL: https://acme.com
//	Text: A company that ...
//
// A new result starts at each Title: line. Continuation lines extend the
// current Text field.
func parseTextBlocks(body string) ([]Result, bool) {
	var results []Result
	var current *Result

	flush := func() {
		if current != nil && (current.Title != "" || current.URL != "") {
			current.Text = strings.TrimSpace(current.Text)
			results = append(results, *current)
		}
		current = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "Title:"):
			flush()
			current = &Result{Title: strings.TrimSpace(strings.TrimPrefix(line, "Title:"))}
		case strings.HasPrefix(line, "URL:"):
			if current == nil {
				current = &Result{}
			}
			current.URL = strings.TrimSpace(strings.TrimPrefix(line, "URL:"))
		case strings.HasPrefix(line, "Text:"):
			if current == nil {
				current = &Result{}
			}
			current.Text = strings.TrimSpace(strings.TrimPrefix(line, "Text:"))
		default:
			if current != nil && line != "" {
				if current.Text != "" {
					current.Text += " "
				}
				current.Text += line
			}
		}
	}
	flush()

	return results, len(results) > 0
}
