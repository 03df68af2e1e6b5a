package progress

import (
	"encoding/json"
	"fmt"
)

// MergeDefaults overlays loaded onto canonical and returns a new map. Objects
// merge key by key; any other loaded value, arrays and nulls included,
// replaces the canonical one. Keys only present in canonical are kept, which
// is how levels added after a save appear with zero progress. Neither input
// is modified.
func MergeDefaults(canonical, loaded map[string]any) map[string]any {
	out := cloneMap(canonical)
	for key, src := range loaded {
		srcMap, ok := src.(map[string]any)
		if !ok {
			out[key] = cloneValue(src)
			continue
		}
		dst, _ := out[key].(map[string]any)
		out[key] = MergeDefaults(dst, srcMap)
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}

// toMap converts a tree into its generic JSON form.
func toMap(tree Tree) (map[string]any, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to encode progress: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode progress: %w", err)
	}
	return m, nil
}

// fromMap converts a generic JSON form back into a tree.
func fromMap(m map[string]any) (Tree, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode progress: %w", err)
	}
	var tree Tree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode progress: %w", err)
	}
	return tree, nil
}

// mergeOntoDefaults merges raw JSON onto the canonical tree of layout.
func mergeOntoDefaults(layout Layout, loaded map[string]any) (Tree, error) {
	canonical, err := toMap(Defaults(layout))
	if err != nil {
		return nil, err
	}
	tree, err := fromMap(MergeDefaults(canonical, loaded))
	if err != nil {
		return nil, err
	}
	repair(tree, layout)
	return tree, nil
}

// repair replaces nil nodes left by explicit nulls in saved data so every
// level of the layout is addressable.
func repair(tree Tree, layout Layout) {
	fresh := Defaults(layout)
	for id, def := range fresh {
		s := tree[id]
		if s == nil {
			tree[id] = def
			continue
		}
		if def.Branch != nil {
			s.Branch = repairBranch(s.Branch, def.Branch)
		}
		if def.Majors != nil {
			if s.Majors == nil {
				s.Majors = map[string]*Branch{}
			}
			for mid, mdef := range def.Majors {
				s.Majors[mid] = repairBranch(s.Majors[mid], mdef)
			}
		}
	}
}

func repairBranch(b, def *Branch) *Branch {
	if b == nil {
		return def
	}
	if b.FinalExam == nil {
		b.FinalExam = &LevelRecord{}
	}
	if b.Levels == nil {
		b.Levels = map[string]*LevelRecord{}
	}
	for id := range def.Levels {
		if b.Levels[id] == nil {
			b.Levels[id] = &LevelRecord{}
		}
	}
	return b
}
