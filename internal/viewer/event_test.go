package viewer

import (
	"errors"
	"math"
	"testing"
)

func TestApplyScriptedSelection(t *testing.T) {
	h := newHarness(t)
	h.init(t)
	v := h.viewer

	script := []Event{
		{Type: "pointerdown", X: 100, Y: 100, Keys: []string{"Option"}},
		{Type: "pointermove", X: 200, Y: 200},
		{Type: "leave"},
		{Type: "blur"},
		{Type: "pointerup", X: 300, Y: 250},
		{Type: "pointerdown", X: 0, Y: 0, Keys: []string{"alt"}},
		{Type: "modifierup", Keys: []string{"alt"}},
		{Type: "pointerup", X: 400, Y: 400},
	}
	for i, ev := range script {
		if err := v.Apply(ev); err != nil {
			t.Fatalf("event %d (%s): %v", i, ev.Type, err)
		}
	}

	rois := v.ListROIs()
	if len(rois) != 1 {
		t.Fatalf("Expected 1 roi, got %d", len(rois))
	}
	if rois[0].Token() != "0.1250,0.1667,0.2500,0.2500" {
		t.Errorf("Unexpected roi %s", rois[0].Token())
	}
}

func TestApplyViewportEvents(t *testing.T) {
	h := newHarness(t)
	h.init(t)
	v := h.viewer

	events := []Event{
		{Type: "zoom", X: 0, Y: 0, Factor: 2},
		{Type: "pan", DX: -40, DY: -20},
		{Type: "resize", Width: 400, Height: 300},
		{Type: "wheel", X: 10, Y: 10, Notches: 1},
		{Type: "query", X: 10, Y: 10},
		{Type: "reset"},
	}
	for _, ev := range events {
		if err := v.Apply(ev); err != nil {
			t.Fatalf("%s: %v", ev.Type, err)
		}
	}
	vp, _ := v.Viewport()
	if math.Abs(vp.Scale-0.1) > 1e-12 || math.Abs(vp.PanX) > 1e-9 || math.Abs(vp.PanY) > 1e-9 {
		t.Errorf("Expected fit viewport for the smaller canvas, got %+v", vp)
	}

	if err := v.Apply(Event{Type: "teleport"}); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("Expected ErrUnknownEvent, got %v", err)
	}
}
