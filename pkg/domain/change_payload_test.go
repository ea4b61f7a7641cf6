package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

type failingState struct{}

func (failingState) MarshalJSON() ([]byte, error) {
	return nil, errors.New("marshal failure")
}

func TestChangeEntityID(t *testing.T) {
	ink := "i1"
	cases := []struct {
		name   string
		change Change
		want   string
	}{
		{"pen create", Change{Entity: EntityPen, Action: ActionCreate, After: Pen{Base: Base{ID: "p1"}, InkID: &ink}}, "p1"},
		{"ink delete", Change{Entity: EntityInk, Action: ActionDelete, Before: Ink{Base: Base{ID: "i1"}}}, "i1"},
		{"logo update", Change{Entity: EntityBrandLogo, Action: ActionUpdate, Before: BrandLogo{BrandKey: "old"}, After: BrandLogo{BrandKey: "lamy"}}, "lamy"},
		{"unknown", Change{Entity: EntityPen, After: "x"}, ""},
	}
	for _, tc := range cases {
		if got := tc.change.EntityID(); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestNewChangePayload(t *testing.T) {
	before := Pen{Base: Base{ID: "p1"}, Brand: "Lamy"}
	after := before
	after.Model = "Safari"
	payload, err := NewChangePayload(Change{Entity: EntityPen, Action: ActionUpdate, Before: before, After: after})
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.ID != "p1" || payload.Entity != EntityPen || payload.Action != ActionUpdate {
		t.Fatalf("unexpected header: %+v", payload)
	}
	var decoded Pen
	if err := payload.DecodeAfter(&decoded); err != nil {
		t.Fatalf("decode after: %v", err)
	}
	if decoded.Model != "Safari" || decoded.ID != "p1" {
		t.Fatalf("unexpected after state: %+v", decoded)
	}
	if err := payload.DecodeBefore(&decoded); err != nil || decoded.Model != "" {
		t.Fatalf("unexpected before state: %+v (%v)", decoded, err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var wire map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if wire["entity"] != "pen" || wire["action"] != "update" {
		t.Fatalf("unexpected wire form: %s", raw)
	}
}

func TestChangePayloadOmitsMissingStates(t *testing.T) {
	payload, err := NewChangePayload(Change{Entity: EntityInk, Action: ActionDelete, Before: Ink{Base: Base{ID: "i1"}}})
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.After != nil {
		t.Fatalf("expected no after state, got %s", payload.After)
	}
	var ink Ink
	if err := payload.DecodeAfter(&ink); err == nil {
		t.Fatalf("expected error decoding a missing after state")
	}
}

func TestChangePayloadMarshalFailure(t *testing.T) {
	if _, err := NewChangePayload(Change{Entity: EntityPen, After: failingState{}}); err == nil {
		t.Fatalf("expected marshal failure")
	}
	if _, err := NewChangePayload(Change{Entity: EntityPen, Before: failingState{}}); err == nil {
		t.Fatalf("expected marshal failure")
	}
}
