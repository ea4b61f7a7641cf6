// Package state holds the transient view state of the collection UI: active
// tab, search text, sort and color selection, and which menu is open. States
// are values; every transition returns a new State.
package state

import (
	"fmt"
	"net/url"
	"strings"

	"inked/internal/query"
	"inked/pkg/color"
)

// Tab is one of the two collection tabs.
type Tab string

// Tabs.
const (
	TabPens Tab = "pens"
	TabInks Tab = "inks"
)

// State is the complete transient UI state.
type State struct {
	ActiveTab        Tab            `json:"activeTab"`
	PenSearch        string         `json:"penSearch"`
	InkSearch        string         `json:"inkSearch"`
	SelectedColor    string         `json:"selectedColor,omitempty"`
	PenSort          query.SortSpec `json:"penSort"`
	ActiveInkMenuID  string         `json:"activeInkMenuId,omitempty"`
	InkSelectorPenID string         `json:"inkSelectorPenId,omitempty"`
}

// New returns the initial state: pens tab, no filters, default sort.
func New() State {
	return State{ActiveTab: TabPens, PenSort: query.DefaultSort}
}

// SwitchTab selects a tab and closes any open menu.
func (s State) SwitchTab(tab Tab) State {
	s.ActiveTab = tab
	s.ActiveInkMenuID = ""
	s.InkSelectorPenID = ""
	return s
}

// WithPenSearch sets the pen search text.
func (s State) WithPenSearch(text string) State {
	s.PenSearch = text
	return s
}

// WithInkSearch sets the ink search text.
func (s State) WithInkSearch(text string) State {
	s.InkSearch = text
	return s
}

// SelectColor sets the ink color filter.
func (s State) SelectColor(c string) State {
	s.SelectedColor = c
	return s
}

// ClearColor removes the ink color filter.
func (s State) ClearColor() State {
	s.SelectedColor = ""
	return s
}

// ToggleSort selects a sort key: the same key flips direction, a new key
// starts ascending.
func (s State) ToggleSort(key query.SortKey) State {
	s.PenSort = s.PenSort.Toggle(key)
	return s
}

// OpenInkMenu opens the action menu of one ink. Opening the menu of the ink
// already open closes it.
func (s State) OpenInkMenu(inkID string) State {
	if s.ActiveInkMenuID == inkID {
		s.ActiveInkMenuID = ""
		return s
	}
	s.ActiveInkMenuID = inkID
	return s
}

// CloseInkMenu closes the ink action menu.
func (s State) CloseInkMenu() State {
	s.ActiveInkMenuID = ""
	return s
}

// OpenInkSelector opens the ink picker for a pen.
func (s State) OpenInkSelector(penID string) State {
	s.InkSelectorPenID = penID
	return s
}

// CloseInkSelector closes the ink picker.
func (s State) CloseInkSelector() State {
	s.InkSelectorPenID = ""
	return s
}

// PenQuery projects the pen list parameters.
func (s State) PenQuery() query.PenQuery {
	return query.PenQuery{Search: s.PenSearch, Sort: s.PenSort}
}

// InkQuery projects the ink list parameters.
func (s State) InkQuery() query.InkQuery {
	return query.InkQuery{Search: s.InkSearch, Color: s.SelectedColor}
}

// Values encodes the state as query parameters understood by FromValues.
// Defaults are omitted.
func (s State) Values() url.Values {
	v := url.Values{}
	if s.ActiveTab != "" && s.ActiveTab != TabPens {
		v.Set("tab", string(s.ActiveTab))
	}
	if s.PenSearch != "" {
		v.Set("q", s.PenSearch)
	}
	if s.InkSearch != "" {
		v.Set("inkq", s.InkSearch)
	}
	if s.SelectedColor != "" {
		v.Set("color", s.SelectedColor)
	}
	if s.PenSort != query.DefaultSort && s.PenSort.Key != "" {
		v.Set("sort", string(s.PenSort.Key))
		v.Set("dir", string(s.PenSort.Direction))
	}
	return v
}

// FromValues builds a state from query parameters: tab, q (pen search),
// inkq (ink search), color, sort and dir. Unknown parameters are ignored;
// malformed known ones are errors.
func FromValues(v url.Values) (State, error) {
	s := New()
	switch tab := Tab(strings.ToLower(v.Get("tab"))); tab {
	case "":
	case TabPens, TabInks:
		s.ActiveTab = tab
	default:
		return State{}, fmt.Errorf("unknown tab %q", tab)
	}
	s.PenSearch = v.Get("q")
	s.InkSearch = v.Get("inkq")
	if c := strings.TrimSpace(v.Get("color")); c != "" {
		if _, err := color.Parse(c); err != nil {
			return State{}, fmt.Errorf("color: %w", err)
		}
		s.SelectedColor = color.Normalize(c)
	}
	key, err := query.ParseSortKey(v.Get("sort"))
	if err != nil {
		return State{}, err
	}
	dir, err := query.ParseDirection(v.Get("dir"))
	if err != nil {
		return State{}, err
	}
	s.PenSort = query.SortSpec{Key: key, Direction: dir}
	return s, nil
}
