package document

import (
	"time"

	"github.com/imgstudio/imgstudio/backend-go/internal/geometry"
)

// Document is the persisted state of one editing session: which image is
// loaded, how it is displayed, and where the crop box sits. It is the unit
// stored per project and synchronized over the live channel.
type Document struct {
	ImageID   string                 `json:"imageId"`
	Name      string                 `json:"name"`
	Geometry  geometry.ImageGeometry `json:"geometry"`
	Transform geometry.Transform     `json:"transform"`
	Crop      geometry.CropBox       `json:"crop"`
	Version   int                    `json:"version"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// NewDocument creates the initial document for an image: identity transform
// and the default crop box for the computed container.
func NewDocument(imageID, name string, g geometry.ImageGeometry) *Document {
	b := g.Bounds()
	return &Document{
		ImageID:   imageID,
		Name:      name,
		Geometry:  g,
		Transform: geometry.DefaultTransform(),
		Crop:      geometry.DefaultCropBox(b.Width, b.Height),
		Version:   1,
		UpdatedAt: time.Now().UTC(),
	}
}

// Reset returns the document to its initial transform and crop, keeping the
// loaded image.
func (d *Document) Reset() {
	b := d.Geometry.Bounds()
	d.Transform = geometry.DefaultTransform()
	d.Crop = geometry.DefaultCropBox(b.Width, b.Height)
}
