package entity

// TabHistory is a browser-style back/forward cursor over tab activations
// within one panel. Pushing truncates any forward entries before appending.
type TabHistory struct {
	Stack []string
	Index int
}

// NewTabHistory creates an empty history with the cursor before the stack.
func NewTabHistory() *TabHistory {
	return &TabHistory{Index: -1}
}

// Push records a tab activation. Forward entries past the cursor are
// discarded first. Pushing the tab already under the cursor is a no-op so
// back/forward reactivation does not pollute the stack.
func (h *TabHistory) Push(tabID string) {
	if h.Index >= 0 && h.Index < len(h.Stack) && h.Stack[h.Index] == tabID {
		return
	}
	h.Stack = append(h.Stack[:h.Index+1], tabID)
	h.Index = len(h.Stack) - 1
}

// Back moves the cursor one entry back, returning the tab at the new
// position. Returns false without moving at the start of the stack.
func (h *TabHistory) Back() (string, bool) {
	if h.Index <= 0 {
		return "", false
	}
	h.Index--
	return h.Stack[h.Index], true
}

// Forward moves the cursor one entry forward, returning the tab at the new
// position. Returns false without moving at the end of the stack.
func (h *TabHistory) Forward() (string, bool) {
	if h.Index < 0 || h.Index >= len(h.Stack)-1 {
		return "", false
	}
	h.Index++
	return h.Stack[h.Index], true
}

// Remove drops every occurrence of the tab from the stack, keeping the
// cursor on the entry it pointed at when possible. Used when a tab closes.
func (h *TabHistory) Remove(tabID string) {
	out := h.Stack[:0]
	idx := h.Index
	for i, id := range h.Stack {
		if id == tabID {
			if i <= h.Index {
				idx--
			}
			continue
		}
		out = append(out, id)
	}
	h.Stack = out
	if idx >= len(h.Stack) {
		idx = len(h.Stack) - 1
	}
	if idx < -1 {
		idx = -1
	}
	h.Index = idx
}

// Current returns the tab under the cursor, if any.
func (h *TabHistory) Current() (string, bool) {
	if h.Index < 0 || h.Index >= len(h.Stack) {
		return "", false
	}
	return h.Stack[h.Index], true
}
