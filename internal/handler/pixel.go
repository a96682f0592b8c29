package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/avelis/pixelbook/internal/domain"
	"github.com/avelis/pixelbook/internal/service"
)

// maxUploadBytes caps the total body size of a create submission.
const maxUploadBytes = 32 << 20 // 32MB

// PixelHandler handles the pixel catalog API.
type PixelHandler struct {
	catalog *service.CatalogService
}

// NewPixelHandler creates a new PixelHandler.
func NewPixelHandler(catalog *service.CatalogService) *PixelHandler {
	return &PixelHandler{catalog: catalog}
}

// HandleList returns pixel summaries matching the query/map/side filters.
// GET /api/pixels
func (h *PixelHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pixels, err := h.catalog.List(r.Context(), q.Get("query"), q.Get("map"), q.Get("side"))
	if err != nil {
		slog.Error("list pixels", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	summaries := make([]pixelSummary, 0, len(pixels))
	for _, p := range pixels {
		summaries = append(summaries, toSummary(p))
	}
	writeJSON(w, http.StatusOK, summaries)
}

// HandleGet returns one pixel with its full ordered image list.
// GET /api/pixels/{id}
func (h *PixelHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	pixel, err := h.catalog.GetDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "pixel not found")
			return
		}
		slog.Error("get pixel", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toDetail(pixel))
}

// HandleCreate processes a multipart create submission: metadata fields plus
// zero or more files under the "images" key, in display order.
// POST /api/pixels
func (h *PixelHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	// ParseMultipartForm's argument only bounds the in-memory portion;
	// the reader is what actually limits the request body.
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "malformed multipart form")
		return
	}

	fields := domain.PixelFields{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Map:         r.FormValue("map"),
		Side:        domain.Side(r.FormValue("side")),
	}
	if msg, ok := checkFields(fields); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	var uploads []domain.Upload
	for _, fh := range r.MultipartForm.File["images"] {
		f, err := fh.Open()
		if err != nil {
			slog.Error("open upload part", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			slog.Error("read upload part", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		uploads = append(uploads, domain.Upload{Filename: fh.Filename, Data: data})
	}

	pixel, err := h.catalog.Create(r.Context(), fields, uploads)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("create pixel", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": pixel.ID})
}

// HandleUpdate overwrites a pixel's metadata. Images are never part of this
// path.
// PUT /api/pixels/{id}
func (h *PixelHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req pixelFieldsRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	fields := domain.PixelFields{
		Name:        req.Name,
		Description: req.Description,
		Map:         req.Map,
		Side:        domain.Side(req.Side),
	}
	if msg, ok := checkFields(fields); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.catalog.Update(r.Context(), r.PathValue("id"), fields); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "pixel not found")
			return
		}
		slog.Error("update pixel", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete removes a pixel, its image rows, and its backing files.
// Deleting an unknown id succeeds.
// DELETE /api/pixels/{id}
func (h *PixelHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Remove(r.Context(), r.PathValue("id")); err != nil {
		slog.Error("remove pixel", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMeta returns the fixed map and side lists that drive filter and form
// controls.
// GET /api/meta
func HandleMeta(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"maps":  domain.Maps,
		"sides": []domain.Side{domain.SideCT, domain.SideTR},
	})
}

// checkFields applies the edge validation of the enumerated map and side
// values. Presence of required fields is the service's concern; only
// non-empty values are checked against the fixed sets here.
func checkFields(fields domain.PixelFields) (string, bool) {
	if fields.Map != "" && !slices.Contains(domain.Maps, fields.Map) {
		return "unknown map", false
	}
	if fields.Side != "" && fields.Side != domain.SideCT && fields.Side != domain.SideTR {
		return "side must be CT or TR", false
	}
	return "", true
}
