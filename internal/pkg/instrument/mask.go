package instrument

import (
	"encoding/json"
	"log/slog"
	"strings"
)

const maskedValue = "***"

// masker replaces the values of configured keys, matched case-insensitively,
// at any depth: plain attributes, groups, maps, and JSON text held in a
// string or []byte attribute.
type masker map[string]struct{}

func newMasker(fields []string) masker {
	m := make(masker, len(fields))
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			m[f] = struct{}{}
		}
	}
	return m
}

func (m masker) empty() bool { return len(m) == 0 }

func (m masker) hit(key string) bool {
	_, ok := m[strings.ToLower(key)]
	return ok
}

func (m masker) attr(a slog.Attr) slog.Attr {
	if m.hit(a.Key) {
		return slog.String(a.Key, maskedValue)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = m.attr(ga)
		}
		a.Value = slog.GroupValue(out...)
	case slog.KindString:
		if s, ok := m.json([]byte(a.Value.String())); ok {
			a.Value = slog.StringValue(s)
		}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case map[string]any:
			a.Value = slog.AnyValue(m.data(v))
		case map[string]string:
			conv := make(map[string]any, len(v))
			for k, s := range v {
				conv[k] = s
			}
			a.Value = slog.AnyValue(m.data(conv))
		case []any:
			a.Value = slog.AnyValue(m.data(v))
		case []byte:
			if s, ok := m.json(v); ok {
				a.Value = slog.StringValue(s)
			}
		}
	}

	return a
}

// json masks a JSON object or array; ok is false for anything else.
func (m masker) json(raw []byte) (string, bool) {
	if len(raw) == 0 || (raw[0] != '{' && raw[0] != '[') {
		return "", false
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", false
	}

	out, err := json.Marshal(m.data(body))
	if err != nil {
		return "", false
	}

	return string(out), true
}

func (m masker) data(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if m.hit(k) {
				out[k] = maskedValue
				continue
			}
			out[k] = m.data(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = m.data(inner)
		}
		return out
	default:
		return v
	}
}
