// Package export renders the final cropped image on the server. The client
// sends its editing state; the handler re-derives the display geometry from
// the stored original, so client math is verified rather than trusted.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/imgstudio/imgstudio/backend-go/internal/geometry"
	"github.com/imgstudio/imgstudio/backend-go/internal/imageops"
	"github.com/imgstudio/imgstudio/backend-go/internal/raster"
	"github.com/imgstudio/imgstudio/backend-go/internal/typeid"
)

// ImageOpener loads a stored original by image ID.
type ImageOpener interface {
	Open(imageID string) (image.Image, string, error)
}

type Handler struct {
	images          ImageOpener
	minDisplayWidth int
	maxDisplayWidth int
	minCropSize     float64
}

func NewHandler(images ImageOpener, minDisplayWidth, maxDisplayWidth int, minCropSize float64) *Handler {
	return &Handler{
		images:          images,
		minDisplayWidth: minDisplayWidth,
		maxDisplayWidth: maxDisplayWidth,
		minCropSize:     minCropSize,
	}
}

type exportRequest struct {
	Transform geometry.Transform `json:"transform"`
	Crop      geometry.CropBox   `json:"crop"`
	Format    string             `json:"format"`
	Quality   int                `json:"quality"`
	Name      string             `json:"name"`
}

// Export handles POST /api/images/{imageId}/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	imageID := mux.Vars(r)["imageId"]

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	src, srcFormat, err := h.images.Open(imageID)
	if err != nil {
		http.Error(w, "image not found", http.StatusNotFound)
		return
	}

	bounds := src.Bounds()
	g, err := geometry.Compute(bounds.Dx(), bounds.Dy(), h.minDisplayWidth, h.maxDisplayWidth)
	if err != nil {
		slog.Error("geometry for stored image", "image", imageID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if !req.Crop.Within(g.Bounds(), h.minCropSize) {
		http.Error(w, "crop box out of bounds", http.StatusBadRequest)
		return
	}

	// Re-apply the clamps so an out-of-range zoom or angle cannot slip
	// through in the raw request.
	tr := geometry.DefaultTransform().
		WithPan(req.Transform.PanX, req.Transform.PanY).
		WithScale(req.Transform.Scale).
		WithRotation(req.Transform.RotateDegrees)

	res, err := geometry.Project(g, tr, req.Crop)
	if err != nil {
		if errors.Is(err, geometry.ErrDegenerateCropBox) || errors.Is(err, geometry.ErrMissingGeometry) {
			http.Error(w, "invalid export geometry", http.StatusBadRequest)
			return
		}
		slog.Error("project export", "image", imageID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	format := req.Format
	if format == "" {
		format = srcFormat
	}
	f, err := imageops.ParseFormat(format)
	if err != nil {
		// Sources like webp decode fine but have no encoder.
		format = "png"
		f, _ = imageops.ParseFormat(format)
	}

	exportID := typeid.NewExportID()
	slog.Info("export started", "export", exportID, "image", imageID, "format", format,
		"width", res.OutputWidth, "height", res.OutputHeight)

	out, err := raster.Render(src, res)
	if err != nil {
		slog.Error("render export", "export", exportID, "error", err)
		http.Error(w, "rendering failed", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := imageops.Convert(&buf, out, format, req.Quality); err != nil {
		slog.Error("encode export", "export", exportID, "format", format, "error", err)
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}

	name := req.Name
	if name == "" {
		name = "crop"
	}
	// Sanitize filename
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)

	ext := format
	if ext == "jpeg" {
		ext = "jpg"
	}

	size := buf.Len()
	w.Header().Set("Content-Type", imageops.ContentType(f))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, ext))
	w.Header().Set("Content-Length", strconv.Itoa(size))
	w.Header().Set("X-Export-Id", exportID)
	buf.WriteTo(w)

	slog.Info("export complete", "export", exportID, "image", imageID, "format", format, "size", size)
}
