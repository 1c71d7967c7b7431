package documents

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/inkroom/inkroom/internal/platform/httpx"
	"github.com/inkroom/inkroom/internal/shared"
)

const createFailedMessage = "document creation failed"

// Handler exposes the document store over JSON.
type Handler struct {
	logger          *slog.Logger
	service         *Service
	writesPerMinute int
}

// NewHandler builds Handler instance. writesPerMinute caps mutating requests
// per client IP; zero disables the extra limit.
func NewHandler(logger *slog.Logger, service *Service, writesPerMinute int) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{logger: logger, service: service, writesPerMinute: writesPerMinute}
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listDocuments)
	r.Get("/{roomID}", h.getDocument)
	r.Get("/{roomID}/content", h.getContent)

	r.Group(func(r chi.Router) {
		if h.writesPerMinute > 0 {
			r.Use(httprate.Limit(h.writesPerMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		}
		r.Post("/", h.createDocument)
		r.Patch("/{roomID}", h.updateDocument)
		r.Delete("/{roomID}", h.deleteDocument)
		r.Put("/{roomID}/content", h.updateContent)
		r.Put("/{roomID}/permissions/{userID}", h.grantPermission)
		r.Patch("/{roomID}/permissions/{userID}", h.changePermission)
		r.Delete("/{roomID}/permissions/{userID}", h.revokePermission)
	})
}

// createDocumentRequest accepts the legacy per-user permission field. The
// store never consulted it, so it is logged and ignored.
type createDocumentRequest struct {
	CreateDocumentInput
	Permission *Level `json:"permission"`
}

type createErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type contentPayload struct {
	RoomID  string `json:"room_id,omitempty"`
	Content string `json:"content"`
}

type permissionRequest struct {
	Permission Level `json:"permission"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (h *Handler) createDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.logger.Debug("decode create document", slog.Any("error", err))
		httpx.JSON(w, http.StatusBadRequest, createErrorResponse{Error: createFailedMessage, Detail: err.Error()})
		return
	}
	if req.Permission != nil {
		h.logger.Warn("create document: ignoring permission field", slog.Int("permission", int(*req.Permission)))
	}
	result, err := h.service.CreateDocument(r.Context(), req.CreateDocumentInput)
	if err != nil {
		resp := createErrorResponse{Error: createFailedMessage}
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, shared.ErrInvalidInput):
			status = http.StatusBadRequest
			resp.Detail = err.Error()
		case errors.Is(err, shared.ErrAlreadyExists):
			status = http.StatusConflict
			resp.Detail = shared.UserSafeMessage(err)
		case errors.Is(err, ErrUnknownUser):
			status = http.StatusUnprocessableEntity
			resp.Detail = "owner does not exist"
		}
		httpx.JSON(w, status, resp)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListDocuments(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summaries)
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.GetDocument(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) updateDocument(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	var patch DocumentPatch
	if err := httpx.DecodeJSON(w, r, &patch); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ok, err := h.service.UpdateDocument(r.Context(), roomID, patch)
	if h.respondMutation(w, ok, err) {
		httpx.JSON(w, http.StatusOK, okResponse{OK: true})
	}
}

func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.DeleteDocument(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !result.Existed {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) getContent(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	content, err := h.service.GetContent(r.Context(), roomID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contentPayload{RoomID: roomID, Content: content})
}

func (h *Handler) updateContent(w http.ResponseWriter, r *http.Request) {
	var req contentPayload
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ok, err := h.service.UpdateContent(r.Context(), chi.URLParam(r, "roomID"), req.Content)
	if h.respondMutation(w, ok, err) {
		httpx.JSON(w, http.StatusOK, okResponse{OK: true})
	}
}

func (h *Handler) grantPermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	err := h.service.GrantPermission(r.Context(), chi.URLParam(r, "roomID"), chi.URLParam(r, "userID"), req.Permission)
	if h.respondMutation(w, true, err) {
		httpx.JSON(w, http.StatusOK, okResponse{OK: true})
	}
}

func (h *Handler) changePermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ok, err := h.service.ChangePermission(r.Context(), chi.URLParam(r, "roomID"), chi.URLParam(r, "userID"), req.Permission)
	if h.respondMutation(w, ok, err) {
		httpx.JSON(w, http.StatusOK, okResponse{OK: true})
	}
}

func (h *Handler) revokePermission(w http.ResponseWriter, r *http.Request) {
	ok, err := h.service.RevokePermission(r.Context(), chi.URLParam(r, "roomID"), chi.URLParam(r, "userID"))
	if h.respondMutation(w, ok, err) {
		httpx.JSON(w, http.StatusOK, okResponse{OK: true})
	}
}

// respondMutation writes the error response of a boolean mutation and reports
// whether the caller should go on.
func (h *Handler) respondMutation(w http.ResponseWriter, ok bool, err error) bool {
	if err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if !ok {
		httpx.RespondError(w, ErrNotFound)
		return false
	}
	return true
}
