package provider

import (
	"sort"
	"strings"
	"thoughtprint/model"

	"github.com/tidwall/gjson"
)

// parseOpenAIModels accepts {"data":[{"id":...}]} or a bare [{"id":...}] list.
// Entries without a string id are skipped.
func parseOpenAIModels(body []byte) ([]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, model.Errorf(model.KindMalformedResponse, "models response is not valid JSON: %s", snippet(body))
	}

	parsed := gjson.ParseBytes(body)
	var items gjson.Result
	switch {
	case parsed.IsArray():
		items = parsed
	case parsed.IsObject() && parsed.Get("data").IsArray():
		items = parsed.Get("data")
	default:
		return nil, model.Errorf(model.KindMalformedResponse, "unexpected models response structure: %s", snippet(body))
	}

	var ids []string
	items.ForEach(func(_, item gjson.Result) bool {
		if id := item.Get("id"); id.Type == gjson.String {
			ids = append(ids, id.String())
		}
		return true
	})
	return ids, nil
}

// normalizeModels drops blank and duplicate names and sorts the rest.
func normalizeModels(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
