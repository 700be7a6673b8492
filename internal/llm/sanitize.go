package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

var (
	// synonyms models use instead of the schema keys
	timeKeys      = []string{"hora", "horario", "horário", "agendamento", "schedule", "start_time", "start"}
	fleetKeys     = []string{"fleet", "fleetNumber", "fleet_no", "frota", "vehicle", "veiculo"}
	containerKeys = []string{"rows", "schedule", "items", "data", "results"}
)

// NormalizeAndSanitizeJSON repairs common deviations from the records
// schema:
//   - strips markdown code fences
//   - wraps a bare array as {"records": [...]}
//   - renames known synonyms (frota -> fleet_number)
//   - coerces numeric fleet numbers to strings
//   - drops unknown keys and records missing a field
//
// It returns the cleaned document and what was dropped or renamed.
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	raw = stripFences(raw)

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	var list []any
	switch t := doc.(type) {
	case []any:
		list = t
		dropped = append(dropped, "array->records")
	case map[string]any:
		if v, ok := t["records"].([]any); ok {
			list = v
			break
		}
		for _, k := range containerKeys {
			if v, ok := t[k].([]any); ok {
				list = v
				dropped = append(dropped, k+"->records")
				break
			}
		}
	}
	if list == nil {
		return nil, dropped, fmt.Errorf("sanitize: no records array")
	}

	records := make([]map[string]any, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			dropped = append(dropped, fmt.Sprintf("records[%d](type)", i))
			continue
		}
		rename(m, "time", timeKeys, &dropped)
		rename(m, "fleet_number", fleetKeys, &dropped)

		out := map[string]any{}
		for _, k := range []string{"time", "fleet_number"} {
			if s, ok := coerceString(m[k]); ok {
				out[k] = s
			}
			delete(m, k)
		}
		for k := range m {
			dropped = append(dropped, fmt.Sprintf("records[%d].%s(unknown)", i, k))
		}
		if len(out) < 2 {
			dropped = append(dropped, fmt.Sprintf("records[%d](incomplete)", i))
			continue
		}
		records = append(records, out)
	}

	b, err := json.Marshal(map[string]any{"records": records})
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return b, dropped, nil
}

func rename(m map[string]any, to string, from []string, dropped *[]string) {
	for _, k := range from {
		v, ok := m[k]
		if !ok {
			continue
		}
		// don't overwrite a value already under the schema key
		if _, exists := m[to]; !exists {
			m[to] = v
			*dropped = append(*dropped, k+"->"+to)
		}
		delete(m, k)
	}
}

func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

func stripFences(raw []byte) []byte {
	raw = bytes.TrimSpace(raw)
	if !bytes.HasPrefix(raw, []byte("```")) {
		return raw
	}
	raw = bytes.TrimPrefix(raw, []byte("```"))
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		raw = raw[i+1:] // language tag
	}
	raw = bytes.TrimSuffix(bytes.TrimSpace(raw), []byte("```"))
	return bytes.TrimSpace(raw)
}
