package tfidf

import (
	"encoding/json"
	"strconv"
)

// normalizeResponse validates each field of a /chat body on its own and
// falls back to a default instead of rejecting the whole payload.
func normalizeResponse(query string, obj map[string]any) *Response {
	out := &Response{Query: query, Results: []Result{}}

	if q, ok := stringField(obj["query"]); ok {
		out.Query = q
	}
	if s, ok := numberField(obj["best_score"]); ok {
		out.BestScore = s
	}

	items, ok := obj["results"].([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out.Results = append(out.Results, normalizeResult(fields))
	}
	return out
}

func normalizeResult(fields map[string]any) Result {
	var r Result
	r.SourceID, _ = stringField(fields["source"])
	r.Text, _ = stringField(fields["text"])
	r.Score, _ = numberField(fields["score"])
	switch id := fields["chunk_id"].(type) {
	case string:
		r.ChunkID = id
	case json.Number:
		r.ChunkID = chunkNumber(id)
	}
	return r
}

// chunkNumber renders a numeric chunk id in plain decimal notation.
func chunkNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func stringField(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func numberField(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}
