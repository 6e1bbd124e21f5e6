package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/domain"
	"gopkg.in/yaml.v3"
)

// Candidate is an untrusted document produced by the text understanding
// service. Its tree is only ever interpreted by the Normalizer; everything
// downstream consumes validated domain types.
type Candidate struct {
	root any
}

// ParseCandidate decodes a JSON or YAML document. Markdown code fences and
// prose around a single JSON object are tolerated.
func ParseCandidate(b []byte) (*Candidate, error) {
	body := stripFences(bytes.TrimSpace(b))
	if len(body) == 0 {
		return &Candidate{}, nil
	}

	root, err := decodeTree(body)
	if err == nil && looksLikeFactory(root) {
		return &Candidate{root: root}, nil
	}
	// Model output often wraps the object in prose.
	start := bytes.IndexByte(body, '{')
	end := bytes.LastIndexByte(body, '}')
	if start >= 0 && end > start {
		if inner, innerErr := decodeTree(body[start : end+1]); innerErr == nil && looksLikeFactory(inner) {
			return &Candidate{root: inner}, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("decode candidate: %w", err)
	}
	return &Candidate{root: root}, nil
}

// CandidateFromValue wraps an already decoded tree, e.g. a JSON object
// pulled out of a larger response.
func CandidateFromValue(v any) *Candidate {
	return &Candidate{root: sanitizeTree(v)}
}

// CandidateFromFactory turns a validated factory back into an untrusted tree,
// which is what re-normalization consumes.
func CandidateFromFactory(f domain.Factory) *Candidate {
	b, err := json.Marshal(f.Clone())
	if err != nil {
		return &Candidate{}
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return &Candidate{}
	}
	return &Candidate{root: v}
}

// IsEmpty reports whether the document carried nothing at all.
func (c *Candidate) IsEmpty() bool {
	if c == nil || c.root == nil {
		return true
	}
	if m, ok := c.root.(map[string]any); ok {
		return len(m) == 0
	}
	return false
}

func looksLikeFactory(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	_, ok = lookup(m, "factory", "machines", "jobs")
	return ok
}

// decodeTree prefers strict JSON and falls back to YAML, which also covers
// the relaxed JSON models tend to emit.
func decodeTree(b []byte) (any, error) {
	var v any
	if json.Valid(b) {
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	if err := yaml.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return sanitizeTree(v), nil
}

func stripFences(b []byte) []byte {
	if !bytes.HasPrefix(b, []byte("```")) {
		return b
	}
	if nl := bytes.IndexByte(b, '\n'); nl >= 0 {
		b = b[nl+1:]
	} else {
		b = b[3:]
	}
	b = bytes.TrimSpace(b)
	b = bytes.TrimSuffix(b, []byte("```"))
	return bytes.TrimSpace(b)
}

// sanitizeTree deep-copies v, turning YAML's non-string-keyed maps into
// map[string]any so the rest of the package sees one map shape.
func sanitizeTree(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = sanitizeTree(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[fmt.Sprint(k)] = sanitizeTree(vv)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, vv := range t {
			out = append(out, sanitizeTree(vv))
		}
		return out
	default:
		return v
	}
}

// lookup returns the first present key among aliases.
func lookup(m map[string]any, aliases ...string) (any, bool) {
	for _, k := range aliases {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// entries flattens a list, or an object keyed by identifier, into a slice.
// Keyed objects are visited in key order; the key becomes the entry id when
// the value does not carry one.
func entries(v any, idKey string) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			switch e := t[k].(type) {
			case map[string]any:
				cp := make(map[string]any, len(e)+1)
				for kk, vv := range e {
					cp[kk] = vv
				}
				if _, ok := cp[idKey]; !ok {
					cp[idKey] = k
				}
				out = append(out, cp)
			case string:
				out = append(out, map[string]any{idKey: k, "name": e})
			default:
				out = append(out, map[string]any{idKey: k})
			}
		}
		return out, true
	case nil:
		return nil, true
	default:
		return nil, false
	}
}
