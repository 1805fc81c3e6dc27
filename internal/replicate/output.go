package replicate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoOutputURL is returned when no URL can be found in a model output.
	ErrNoOutputURL = errors.New("no URL found in model output")
	// ErrInvalidOutputURL is returned when the extracted value is not an http(s) URL.
	ErrInvalidOutputURL = errors.New("model output is not an http(s) URL")
)

// maxOutputDepth bounds recursion into nested arrays and objects.
const maxOutputDepth = 4

// outputShape recognises one way a model may report its result.
type outputShape struct {
	name  string
	match func(value any, depth int) (string, bool)
}

// outputShapes are tried in order; the first match wins.
var outputShapes []outputShape

func init() {
	outputShapes = []outputShape{
		{name: "string", match: matchString},
		{name: "array", match: matchArray},
		{name: "output", match: matchField("output")},
		{name: "url", match: matchField("url")},
		{name: "image", match: matchField("image")},
		{name: "urls.get", match: matchURLsGet},
	}
}

// ExtractURL normalises a model output to a single URL. Accepted shapes are a
// plain string, an array whose first element is any accepted shape, and an
// object carrying the URL under output, url, image, or urls.get.
func ExtractURL(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", ErrNoOutputURL
	}

	var value any

	err := json.Unmarshal(raw, &value)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoOutputURL, err)
	}

	url, ok := extract(value, 0)
	if !ok || strings.TrimSpace(url) == "" {
		return "", ErrNoOutputURL
	}

	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("%w: %q", ErrInvalidOutputURL, url)
	}

	return url, nil
}

func extract(value any, depth int) (string, bool) {
	if value == nil || depth > maxOutputDepth {
		return "", false
	}

	for _, shape := range outputShapes {
		if url, ok := shape.match(value, depth); ok {
			return url, true
		}
	}

	return "", false
}

func matchString(value any, _ int) (string, bool) {
	text, ok := value.(string)

	return text, ok && text != ""
}

func matchArray(value any, depth int) (string, bool) {
	items, ok := value.([]any)
	if !ok || len(items) == 0 {
		return "", false
	}

	return extract(items[0], depth+1)
}

func matchField(field string) func(any, int) (string, bool) {
	return func(value any, depth int) (string, bool) {
		object, ok := value.(map[string]any)
		if !ok {
			return "", false
		}

		nested, present := object[field]
		if !present {
			return "", false
		}

		return extract(nested, depth+1)
	}
}

func matchURLsGet(value any, depth int) (string, bool) {
	object, ok := value.(map[string]any)
	if !ok {
		return "", false
	}

	urls, ok := object["urls"].(map[string]any)
	if !ok {
		return "", false
	}

	return extract(urls["get"], depth+1)
}
