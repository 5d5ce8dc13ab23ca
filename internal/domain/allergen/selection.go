package allergen

// Selection is an ordered set of allergens chosen by the caller.
// The zero Selection is empty; an empty Selection turns the safety gate off.
type Selection struct {
	keys []Key
}

// NewSelection resolves raw keys or aliases, dropping duplicates but keeping
// first-seen order. Unknown entries fail the whole selection.
func NewSelection(raw []string) (Selection, error) {
	seen := make(map[Key]struct{}, len(raw))
	keys := make([]Key, 0, len(raw))
	for _, r := range raw {
		k, err := Parse(r)
		if err != nil {
			return Selection{}, err
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return Selection{keys: keys}, nil
}

// MustSelection builds a Selection from keys and panics on an unknown key.
func MustSelection(keys ...Key) Selection {
	s, err := NewSelection(keyStrings(keys))
	if err != nil {
		panic(err)
	}
	return s
}

// Keys returns a copy of the selected keys.
func (s Selection) Keys() []Key {
	out := make([]Key, len(s.keys))
	copy(out, s.keys)
	return out
}

// Strings returns the selected keys as strings.
func (s Selection) Strings() []string {
	return keyStrings(s.keys)
}

// Empty reports whether no allergen is selected.
func (s Selection) Empty() bool { return len(s.keys) == 0 }

// Len returns the number of selected allergens.
func (s Selection) Len() int { return len(s.keys) }

func keyStrings(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
