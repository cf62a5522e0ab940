package audit

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/siea/ricequote/internal/domain/models"
)

// Diff lists the top-level fields that differ between two snapshots, compared through
// their JSON form. A nil side contributes no fields, so creates list every field of
// after and deletes every field of before.
func Diff(before, after any) ([]models.FieldChange, error) {
	b, err := fields(before)
	if err != nil {
		return nil, fmt.Errorf("before snapshot: %w", err)
	}
	a, err := fields(after)
	if err != nil {
		return nil, fmt.Errorf("after snapshot: %w", err)
	}

	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}

	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	var out []models.FieldChange
	for _, k := range names {
		from, to := b[k], a[k]
		if reflect.DeepEqual(from, to) {
			continue
		}
		out = append(out, models.FieldChange{Field: k, From: from, To: to})
	}
	return out, nil
}

func fields(v any) (map[string]any, error) {
	if isNil(v) {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	if m, ok := decoded.(map[string]any); ok {
		return m, nil
	}
	return map[string]any{"value": decoded}, nil
}
