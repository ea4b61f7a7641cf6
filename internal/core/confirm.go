package core

import "context"

// PromptKind identifies which deletion is being confirmed.
type PromptKind string

// Prompt kinds.
const (
	// PromptDeletePen asks before a pen is removed.
	PromptDeletePen PromptKind = "delete_pen"
	// PromptDeleteInk asks before an ink is removed; InUse and PenIDs describe the cascade.
	PromptDeleteInk PromptKind = "delete_ink"
)

const (
	messageDeletePen      = "Are you sure you want to delete this pen?"
	messageDeleteInk      = "Are you sure you want to delete this ink?"
	messageDeleteInkInUse = "This ink is in use. Deleting it will also clear the ink from the pens using it. Are you sure?"
)

// Prompt is the question put to the user before a destructive operation.
type Prompt struct {
	Kind     PromptKind `json:"kind"`
	EntityID string     `json:"entityId"`
	Message  string     `json:"message"`
	InUse    bool       `json:"inUse"`
	PenIDs   []string   `json:"penIds,omitempty"`
}

// Confirmer asks the user to confirm a prompt. It is called outside of any
// store transaction and may block.
type Confirmer interface {
	Confirm(ctx context.Context, prompt Prompt) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, prompt Prompt) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt Prompt) (bool, error) {
	return f(ctx, prompt)
}

// Confirmed returns a Confirmer with a fixed answer, for callers that have
// already asked (an HTTP client passing confirm=true, a CLI --yes flag).
func Confirmed(answer bool) Confirmer {
	return ConfirmFunc(func(context.Context, Prompt) (bool, error) { return answer, nil })
}

// Deletion reports the outcome of a confirmed or declined delete.
type Deletion struct {
	Confirmed     bool     `json:"confirmed"`
	Prompt        Prompt   `json:"prompt"`
	ClearedPenIDs []string `json:"clearedPenIds,omitempty"`
}

// Usage is the in-use status of an ink.
type Usage struct {
	InkID  string   `json:"inkId"`
	InUse  bool     `json:"inUse"`
	PenIDs []string `json:"penIds"`
}

func penPrompt(penID string) Prompt {
	return Prompt{Kind: PromptDeletePen, EntityID: penID, Message: messageDeletePen}
}

func inkPrompt(inkID string, penIDs []string) Prompt {
	p := Prompt{Kind: PromptDeleteInk, EntityID: inkID, Message: messageDeleteInk}
	if len(penIDs) > 0 {
		p.InUse = true
		p.PenIDs = penIDs
		p.Message = messageDeleteInkInUse
	}
	return p
}
