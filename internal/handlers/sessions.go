package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
	"github.com/lehigh-university-libraries/roiviewer/internal/models"
	"github.com/lehigh-university-libraries/roiviewer/internal/render"
	"github.com/lehigh-university-libraries/roiviewer/internal/trace"
	"github.com/lehigh-university-libraries/roiviewer/internal/viewer"
)

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	urns := req.AllURNs()
	if len(urns) == 0 {
		h.writeError(w, "At least one URN is required", http.StatusBadRequest)
		return
	}
	canvas := geometry.Size{W: req.Width, H: req.Height}
	if canvas.W == 0 {
		canvas.W = h.cfg.Viewer.Width
	}
	if canvas.H == 0 {
		canvas.H = h.cfg.Viewer.Height
	}

	id := h.newID()
	recorder := trace.NewRecorder()
	opts := viewer.OptionsFromConfig(h.cfg)
	opts.Observer = recorder.Observe
	opts.Logger = slog.Default().With("session_id", id)

	v, err := viewer.Open(r.Context(), h.client, urns, canvas, opts)
	if err != nil {
		h.writeErr(w, "Unable to open viewer", err)
		return
	}
	session := &models.ViewerSession{
		ID:        id,
		Image:     v.ID(),
		URNs:      urns,
		CreatedAt: time.Now(),
		Viewer:    v,
		Trace:     recorder,
	}
	h.sessionStore.Set(id, session)
	slog.Info("Viewer session created", "session_id", id, "image", session.Image, "width", canvas.W, "height", canvas.H)

	info, err := h.sessionInfo(session)
	if err != nil {
		h.writeErr(w, "Unable to describe session", err)
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, info)
}

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.sessionStore.List())
}

func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	info, err := h.sessionInfo(session)
	if err != nil {
		h.writeErr(w, "Unable to describe session", err)
		return
	}
	h.writeJSON(w, info)
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessionStore.Delete(r.PathValue("id")) {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleEvents applies a single event object or an array of events in
// order. Processing stops at the first failing event.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	var events []viewer.Event
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &events); err != nil {
			h.writeError(w, "Invalid events: "+err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		var ev viewer.Event
		if err := json.Unmarshal(trimmed, &ev); err != nil {
			h.writeError(w, "Invalid event: "+err.Error(), http.StatusBadRequest)
			return
		}
		events = append(events, ev)
	}

	for _, ev := range events {
		if err := session.Viewer.Apply(ev); err != nil {
			h.writeErr(w, "Unable to apply "+ev.Type+" event", err)
			return
		}
	}
	info, err := h.sessionInfo(session)
	if err != nil {
		h.writeErr(w, "Unable to describe session", err)
		return
	}
	h.writeJSON(w, info)
}

func (h *Handler) HandleFrame(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	frame, err := session.Viewer.Frame()
	if err != nil {
		h.writeErr(w, "Unable to read frame", err)
		return
	}
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, frame, render.DefaultOptions()); err != nil {
		h.writeErr(w, "Unable to render frame", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Unable to write frame", "err", err)
	}
}

func (h *Handler) HandleTrace(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	records := session.Trace.Records()
	h.writeJSON(w, struct {
		Summary trace.Summary  `json:"summary"`
		Records []trace.Record `json:"records"`
	}{trace.Summarize(records), records})
}
