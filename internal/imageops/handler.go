package imageops

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
)

// Handler serves the stateless image tool endpoints. Every request carries
// the image as a multipart "file" field plus operation parameters as form
// fields, and the processed image streams back in the response body.
type Handler struct {
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewHandler(maxUploadMB int, logger *slog.Logger) *Handler {
	return &Handler{
		maxUploadBytes: int64(maxUploadMB) << 20,
		logger:         logger,
	}
}

// Process applies a rotate/flip/crop/resize pipeline and re-encodes the
// result. POST /images/process
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	img, srcFormat, ok := h.decodeUpload(w, r)
	if !ok {
		return
	}

	opts, err := pipelineFromForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := Apply(img, opts)
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	format := r.FormValue("format")
	if format == "" {
		format = srcFormat
	}
	f, err := ParseFormat(format)
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	quality, _ := strconv.Atoi(r.FormValue("quality"))
	w.Header().Set("Content-Type", ContentType(f))
	if err := Convert(w, out, format, quality); err != nil {
		h.logger.Error("encode failed", "format", format, "error", err)
	}
}

// Info reports dimensions and format without returning pixels.
// POST /images/info
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	info, err := Info(file)
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		ImageInfo
		SizeBytes int64 `json:"sizeBytes"`
	}{ImageInfo: info, SizeBytes: header.Size})
}

// Compress re-encodes the image as JPEG targeting a byte budget.
// POST /images/compress
func (h *Handler) Compress(w http.ResponseWriter, r *http.Request) {
	img, _, ok := h.decodeUpload(w, r)
	if !ok {
		return
	}

	targetKB, err := strconv.Atoi(r.FormValue("targetKb"))
	if err != nil || targetKB <= 0 {
		http.Error(w, "targetKb must be a positive integer", http.StatusBadRequest)
		return
	}

	data, quality, err := CompressToSize(img, targetKB<<10)
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("X-Jpeg-Quality", strconv.Itoa(quality))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		h.logger.Error("write compressed image", "error", err)
	}
}

// decodeUpload pulls the multipart "file" field and decodes it. On failure
// it writes the error response and reports ok=false.
func (h *Handler) decodeUpload(w http.ResponseWriter, r *http.Request) (image.Image, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file upload", http.StatusBadRequest)
		return nil, "", false
	}
	defer file.Close()

	img, format, err := Decode(file)
	if err != nil {
		h.writeOpError(w, err)
		return nil, "", false
	}
	return img, format, true
}

func pipelineFromForm(r *http.Request) (PipelineOptions, error) {
	opts := PipelineOptions{}

	if v := r.FormValue("rotate"); v != "" {
		deg, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, fmt.Errorf("rotate must be a number")
		}
		opts.Rotate = deg
	}

	switch r.FormValue("flip") {
	case "":
	case "horizontal":
		opts.FlipH = true
	case "vertical":
		opts.FlipV = true
	case "both":
		opts.FlipH, opts.FlipV = true, true
	default:
		return opts, fmt.Errorf("flip must be horizontal, vertical or both")
	}

	if r.FormValue("cropWidth") != "" || r.FormValue("cropHeight") != "" {
		crop := CropRect{}
		for _, field := range []struct {
			name string
			dst  *int
		}{
			{"cropX", &crop.X},
			{"cropY", &crop.Y},
			{"cropWidth", &crop.Width},
			{"cropHeight", &crop.Height},
		} {
			if v := r.FormValue(field.name); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil {
					return opts, fmt.Errorf("%s must be an integer", field.name)
				}
				*field.dst = n
			}
		}
		opts.Crop = &crop
		opts.AdjustCrop = r.FormValue("adjustCrop") != "false"
	}

	for _, field := range []struct {
		name string
		dst  *int
	}{
		{"width", &opts.Width},
		{"height", &opts.Height},
	} {
		if v := r.FormValue(field.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return opts, fmt.Errorf("%s must be a positive integer", field.name)
			}
			*field.dst = n
		}
	}

	if v := r.FormValue("mode"); v != "" {
		mode, err := ParseResizeMode(v)
		if err != nil {
			return opts, fmt.Errorf("mode must be fit, width, height or stretch")
		}
		opts.Mode = mode
	}

	return opts, nil
}

func (h *Handler) writeOpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		http.Error(w, "unsupported image format", http.StatusUnsupportedMediaType)
	case errors.Is(err, ErrEmptyCrop):
		http.Error(w, "crop region outside image", http.StatusBadRequest)
	case errors.Is(err, ErrBadDimensions), errors.Is(err, ErrBadResizeMode):
		http.Error(w, "invalid resize parameters", http.StatusBadRequest)
	case errors.Is(err, ErrTargetTooSmall):
		http.Error(w, "target size not reachable at lowest quality", http.StatusUnprocessableEntity)
	default:
		h.logger.Error("image operation failed", "error", err)
		http.Error(w, "image processing failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
