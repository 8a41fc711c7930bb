package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Only actual image files are served from the images directory.
var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ImageHandler serves lesson images from a local directory
type ImageHandler struct {
	dir string
	log *slog.Logger
}

// NewImageHandler creates an image handler rooted at dir
func NewImageHandler(dir string, log *slog.Logger) *ImageHandler {
	return &ImageHandler{dir: dir, log: log}
}

// ServeImage handles GET /images/*
func (h *ImageHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")

	ext := strings.ToLower(filepath.Ext(name))
	if !allowedImageExts[ext] {
		WriteError(w, http.StatusNotFound, ErrorResponse{Message: "Image not found"}, h.log)
		return
	}

	// Clean with a leading separator so ".." cannot escape the root.
	path := filepath.Join(h.dir, filepath.Clean("/"+name))
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		h.log.Debug("image not found", "path", name)
		WriteError(w, http.StatusNotFound, ErrorResponse{Message: "Image not found"}, h.log)
		return
	}

	http.ServeFile(w, r, path)
}
