package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
	"github.com/lehigh-university-libraries/roiviewer/internal/models"
	"github.com/lehigh-university-libraries/roiviewer/internal/transcribe"
)

func (h *Handler) HandleListROIs(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	rois := session.Viewer.ListROIs()
	items := make([]models.ROIItem, 0, len(rois))
	for i, roi := range rois {
		items = append(items, models.ROIItem{ID: roi.ID, Index: i, Rect: roi.Rect})
	}
	h.writeJSON(w, items)
}

func (h *Handler) HandleAddROI(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var req models.ROIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	var (
		id    string
		added bool
		err   error
	)
	switch {
	case req.ID != "" && req.Rect != nil:
		h.writeError(w, "Provide either id or rect, not both", http.StatusBadRequest)
		return
	case req.ID != "":
		id, added, err = session.Viewer.AddROIByID(req.ID)
	case req.Rect != nil:
		id, added, err = session.Viewer.AddROI(*req.Rect)
	default:
		h.writeError(w, "An id or rect is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.writeErr(w, "Unable to add ROI", err)
		return
	}

	code := http.StatusOK
	if added {
		code = http.StatusCreated
	}
	h.writeJSONStatus(w, code, models.ROIResponse{ID: id, Added: added})
}

func (h *Handler) HandleClearROIs(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, map[string]int{"removed": session.Viewer.ClearROIs()})
}

func (h *Handler) HandleRemoveROI(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if !session.Viewer.RemoveROI(r.PathValue("roiID")) {
		h.writeError(w, "ROI not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 64)
	if err := errors.Join(errX, errY); err != nil {
		h.writeError(w, "Query requires numeric x and y", http.StatusBadRequest)
		return
	}
	ids, err := session.Viewer.Query(geometry.Point{X: x, Y: y})
	if err != nil {
		h.writeErr(w, "Unable to query", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	h.writeJSON(w, models.QueryResponse{X: x, Y: y, IDs: ids})
}

func (h *Handler) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	var req models.TranscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	found := false
	for _, roi := range session.Viewer.ListROIs() {
		if roi.ID == req.ID {
			found = true
			break
		}
	}
	if !found {
		h.writeError(w, "ROI not found", http.StatusNotFound)
		return
	}

	res, err := h.transcriber.TranscribeID(r.Context(), req.ID, transcribe.Options{Provider: req.Provider, Model: req.Model})
	if err != nil {
		h.writeError(w, "Transcription failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	h.writeJSON(w, res)
}
