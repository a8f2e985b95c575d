package engine

// Binding is a complete variable assignment produced by a successful join.
type Binding map[string]string

// Result is execute/execute_streaming's return value before pagination is
// rendered to JSON.
type Result struct {
	Variables []string
	Bindings  []Binding
	Total     int
}

// Envelope is the wire shape of result_to_json. Total is always populated:
// even a paginated request completes a full counting pass rather than
// omitting it for the streaming path.
type Envelope struct {
	Variables []string            `json:"variables"`
	Results   []map[string]string `json:"results"`
	Count     int                 `json:"count"`
	Total     int                 `json:"total"`
	Offset    *int                `json:"offset,omitempty"`
	Limit     *int                `json:"limit,omitempty"`
}

// ResultToJSON renders r into the HTTP response envelope, echoing offset and
// limit back only when the caller supplied them.
func ResultToJSON(r *Result, offset, limit *int) *Envelope {
	results := make([]map[string]string, len(r.Bindings))
	for i, b := range r.Bindings {
		m := make(map[string]string, len(r.Variables))
		for _, v := range r.Variables {
			if val, ok := b[v]; ok {
				m[v] = val
			}
		}
		results[i] = m
	}

	return &Envelope{
		Variables: r.Variables,
		Results:   results,
		Count:     len(results),
		Total:     r.Total,
		Offset:    offset,
		Limit:     limit,
	}
}
