// Package asset stores uploaded images on disk and serves them back.
// Originals are kept byte for byte so exports re-read full quality; a PNG
// thumbnail is generated alongside for project listings.
package asset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/imgstudio/imgstudio/backend-go/internal/geometry"
	"github.com/imgstudio/imgstudio/backend-go/internal/imageops"
	"github.com/imgstudio/imgstudio/backend-go/internal/typeid"
)

const thumbnailBox = 320

var formatExtensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
	"tiff": ".tiff",
	"bmp":  ".bmp",
}

// UploadResponse is returned from the upload endpoint. Geometry carries the
// display multiplier and container size the client lays the editor out with.
type UploadResponse struct {
	ID           string                 `json:"id"`
	URL          string                 `json:"url"`
	ThumbnailURL string                 `json:"thumbnailUrl"`
	Width        int                    `json:"width"`
	Height       int                    `json:"height"`
	Format       string                 `json:"format"`
	Name         string                 `json:"name"`
	Geometry     geometry.ImageGeometry `json:"geometry"`
}

// Handler serves image upload and retrieval endpoints.
type Handler struct {
	dir             string
	maxUploadBytes  int64
	minDisplayWidth int
	maxDisplayWidth int
}

// NewHandler creates an asset handler that stores files in dir.
func NewHandler(dir string, maxUploadMB, minDisplayWidth, maxDisplayWidth int) *Handler {
	// Ensure directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Handler{
		dir:             dir,
		maxUploadBytes:  int64(maxUploadMB) << 20,
		minDisplayWidth: minDisplayWidth,
		maxDisplayWidth: maxDisplayWidth,
	}
}

// Upload handles POST /assets/upload (multipart form with "file" field).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		http.Error(w, "file too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	img, format, err := imageops.Decode(bytes.NewReader(data))
	if err != nil {
		http.Error(w, "unsupported or corrupt image", http.StatusBadRequest)
		return
	}
	ext, ok := formatExtensions[format]
	if !ok {
		http.Error(w, "unsupported image format", http.StatusBadRequest)
		return
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	g, err := geometry.Compute(width, height, h.minDisplayWidth, h.maxDisplayWidth)
	if err != nil {
		http.Error(w, "invalid image dimensions", http.StatusBadRequest)
		return
	}

	// Store the original untouched so later exports keep full quality.
	imageID := typeid.NewImageID()
	filename := imageID + ext
	if err := os.WriteFile(filepath.Join(h.dir, filename), data, 0644); err != nil {
		slog.Error("write asset file", "error", err)
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}

	thumbName := imageID + "_thumb.png"
	if err := h.writeThumbnail(filepath.Join(h.dir, thumbName), img); err != nil {
		slog.Error("write thumbnail", "error", err, "image", imageID)
		os.Remove(filepath.Join(h.dir, filename))
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}

	resp := UploadResponse{
		ID:           imageID,
		URL:          fmt.Sprintf("/assets/%s", filename),
		ThumbnailURL: fmt.Sprintf("/assets/%s", thumbName),
		Width:        width,
		Height:       height,
		Format:       format,
		Name:         header.Filename,
		Geometry:     g,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) writeThumbnail(path string, img image.Image) error {
	thumb := imaging.Fit(img, thumbnailBox, thumbnailBox, imaging.Lanczos)
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return imaging.Encode(out, thumb, imaging.PNG)
}

// Open loads a stored original by image ID, probing the known extensions.
func (h *Handler) Open(imageID string) (image.Image, string, error) {
	if err := typeid.Validate(imageID, typeid.PrefixImage); err != nil {
		return nil, "", err
	}
	for _, ext := range formatExtensions {
		f, err := os.Open(filepath.Join(h.dir, imageID+ext))
		if err != nil {
			continue
		}
		defer f.Close()
		img, format, err := imageops.Decode(f)
		if err != nil {
			return nil, "", err
		}
		return img, format, nil
	}
	return nil, "", fmt.Errorf("image not found: %s", imageID)
}

// Serve returns an http.Handler that serves stored asset files with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Image IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// Delete removes a stored image and its thumbnail from disk.
func (h *Handler) Delete(imageID string) error {
	removed := false
	for _, ext := range formatExtensions {
		if err := os.Remove(filepath.Join(h.dir, imageID+ext)); err == nil {
			removed = true
		}
	}
	os.Remove(filepath.Join(h.dir, imageID+"_thumb.png"))
	if !removed {
		return fmt.Errorf("image not found: %s", imageID)
	}
	return nil
}
