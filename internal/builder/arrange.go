package builder

import (
	"github.com/atinternet/go-tracker/internal/param"
)

// slot is one key of the final query string with the parameters that contribute to its value.
type slot struct {
	key    string
	params []param.Param
}

func (s slot) options() param.Options {
	return s.params[len(s.params)-1].Options
}

func (s slot) isJSON() bool {
	for _, p := range s.params {
		if p.Type != param.JSON {
			return false
		}
	}
	return true
}

// merge combines the lists in order. A non-append parameter replaces an earlier slot for the
// same key in place; an append parameter joins it.
func merge(lists ...[]param.Param) []slot {
	var slots []slot
	index := make(map[string]int)
	for _, list := range lists {
		for _, p := range list {
			if p.Key == "" {
				continue
			}
			i, exists := index[p.Key]
			switch {
			case !exists:
				index[p.Key] = len(slots)
				slots = append(slots, slot{key: p.Key, params: []param.Param{p}})
			case p.Options.Append:
				slots[i].params = append(slots[i].params, p)
			default:
				slots[i].params = []param.Param{p}
			}
		}
	}
	return slots
}

// arrange applies relative positions. First slots lead and Last slots trail, each group in its
// natural order. Before/After slots are placed next to their reference key; a slot whose
// reference is missing keeps its natural place among the unpositioned slots.
func arrange(slots []slot) []slot {
	present := make(map[string]bool, len(slots))
	for _, s := range slots {
		present[s.key] = true
	}
	var first, middle, last, relative []slot
	for _, s := range slots {
		opts := s.options()
		switch opts.RelativePosition {
		case param.First:
			first = append(first, s)
		case param.Last:
			last = append(last, s)
		case param.Before, param.After:
			if present[opts.RelativeParameterKey] && opts.RelativeParameterKey != s.key {
				relative = append(relative, s)
			} else {
				middle = append(middle, s)
			}
		default:
			middle = append(middle, s)
		}
	}
	ordered := make([]slot, 0, len(slots))
	ordered = append(ordered, first...)
	ordered = append(ordered, middle...)
	ordered = append(ordered, last...)

	// A reference may itself be relative, so place slots as their references appear.
	for len(relative) > 0 {
		var pending []slot
		for _, s := range relative {
			opts := s.options()
			at := indexOf(ordered, opts.RelativeParameterKey)
			if at < 0 {
				pending = append(pending, s)
				continue
			}
			if opts.RelativePosition == param.After {
				at++
			}
			ordered = insertAt(ordered, at, s)
		}
		if len(pending) == len(relative) {
			// Circular references: fall back to natural placement before the trailing slots.
			at := len(ordered) - len(last)
			for _, s := range pending {
				ordered = insertAt(ordered, at, s)
				at++
			}
			break
		}
		relative = pending
	}
	return ordered
}

func indexOf(slots []slot, key string) int {
	for i, s := range slots {
		if s.key == key {
			return i
		}
	}
	return -1
}

func insertAt(slots []slot, i int, s slot) []slot {
	slots = append(slots, slot{})
	copy(slots[i+1:], slots[i:])
	slots[i] = s
	return slots
}
