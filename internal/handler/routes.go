package handler

import (
	"net/http"

	"github.com/avelis/pixelbook/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux. uploadsDir is the
// directory the file store writes to; it is served under /uploads.
func RegisterRoutes(mux *http.ServeMux, catalog *service.CatalogService, uploadsDir string) {
	pixels := NewPixelHandler(catalog)

	mux.HandleFunc("GET /healthz", HandleHealthz)
	mux.HandleFunc("GET /api/meta", HandleMeta)

	mux.HandleFunc("GET /api/pixels", pixels.HandleList)
	mux.HandleFunc("POST /api/pixels", pixels.HandleCreate)
	mux.HandleFunc("GET /api/pixels/{id}", pixels.HandleGet)
	mux.HandleFunc("PUT /api/pixels/{id}", pixels.HandleUpdate)
	mux.HandleFunc("DELETE /api/pixels/{id}", pixels.HandleDelete)

	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadsDir))))
}
