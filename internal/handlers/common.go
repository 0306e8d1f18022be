package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/roiviewer/internal/config"
	"github.com/lehigh-university-libraries/roiviewer/internal/iiif"
	"github.com/lehigh-university-libraries/roiviewer/internal/models"
	"github.com/lehigh-university-libraries/roiviewer/internal/storage"
	"github.com/lehigh-university-libraries/roiviewer/internal/transcribe"
	"github.com/lehigh-university-libraries/roiviewer/internal/viewer"
)

type Handler struct {
	sessionStore *storage.SessionStore
	client       *iiif.Client
	cfg          *config.Config
	transcriber  *transcribe.Service
	newID        func() string
}

func New(cfg *config.Config) *Handler {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	client := iiif.NewClient(cfg.IIIF.Server, cfg.IIIF.PathPrefix, cfg.IIIF.Timeout)
	return &Handler{
		sessionStore: storage.New(),
		client:       client,
		cfg:          cfg,
		transcriber:  transcribe.NewService(client, cfg.Transcribe, nil),
		newID:        uuid.NewString,
	}
}

// Register installs the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.HandleCreateSession)
	mux.HandleFunc("GET /api/sessions", h.HandleSessions)
	mux.HandleFunc("GET /api/sessions/{id}", h.HandleSessionDetail)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.HandleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/events", h.HandleEvents)
	mux.HandleFunc("GET /api/sessions/{id}/rois", h.HandleListROIs)
	mux.HandleFunc("POST /api/sessions/{id}/rois", h.HandleAddROI)
	mux.HandleFunc("DELETE /api/sessions/{id}/rois", h.HandleClearROIs)
	mux.HandleFunc("DELETE /api/sessions/{id}/rois/{roiID...}", h.HandleRemoveROI)
	mux.HandleFunc("GET /api/sessions/{id}/query", h.HandleQuery)
	mux.HandleFunc("GET /api/sessions/{id}/frame.png", h.HandleFrame)
	mux.HandleFunc("GET /api/sessions/{id}/trace", h.HandleTrace)
	mux.HandleFunc("POST /api/sessions/{id}/transcribe", h.HandleTranscribe)
	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
}

// Close closes every session's viewer.
func (h *Handler) Close() {
	h.sessionStore.Close()
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	http.Error(w, message, code)
}

// writeErr maps viewer errors onto HTTP status codes.
func (h *Handler) writeErr(w http.ResponseWriter, message string, err error) {
	h.writeError(w, message+": "+err.Error(), statusFor(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, viewer.ErrNotReady), errors.Is(err, viewer.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, viewer.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, viewer.ErrFetchFailed):
		return http.StatusBadGateway
	case errors.Is(err, viewer.ErrInvalidGeometry),
		errors.Is(err, viewer.ErrImageMismatch),
		errors.Is(err, viewer.ErrUnknownEvent),
		errors.Is(err, iiif.ErrInvalidURN):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*models.ViewerSession, bool) {
	session, exists := h.sessionStore.Get(r.PathValue("id"))
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func (h *Handler) sessionInfo(session *models.ViewerSession) (*models.SessionInfo, error) {
	frame, err := session.Viewer.Frame()
	if err != nil {
		return nil, err
	}
	info := &models.SessionInfo{
		ID:        session.ID,
		Image:     session.Image,
		CreatedAt: session.CreatedAt,
		Canvas:    frame.Canvas,
		Extent:    frame.Extent,
		Viewport:  frame.Viewport,
		Loading:   frame.Loading,
		Gesture:   frame.Gesture.String(),
		Selection: frame.Provisional,
		ROIs:      make([]models.ROIItem, 0, len(frame.ROIs)),
	}
	if frame.HasRaster() {
		region := frame.Region
		info.Region = &region
	}
	for _, fr := range frame.ROIs {
		canvas := fr.Canvas
		info.ROIs = append(info.ROIs, models.ROIItem{ID: fr.ID, Index: fr.Index, Rect: fr.Rect, Canvas: &canvas})
	}
	return info, nil
}
