package domain

import (
	"context"
	"time"
)

// Side is the in-game team role a pixel belongs to.
type Side string

const (
	SideCT Side = "CT"
	SideTR Side = "TR"
)

// Maps is the fixed set of map names. It is enforced at the HTTP edge only;
// the store accepts any non-empty value.
var Maps = []string{
	"Mirage",
	"Dust 2",
	"Inferno",
	"Nuke",
	"Overpass",
	"Ancient",
	"Vertigo",
	"Anubis",
}

// Pixel is a named callout/tactic record tied to a map and side.
type Pixel struct {
	ID          string
	Name        string
	Description string
	Map         string
	Side        Side
	CreatedAt   time.Time
	Images      []PixelImage
}

// PixelImage is one ordered step image owned by a pixel. SortOrder is the
// original upload submission index, so skipped uploads leave gaps, and no
// reordering operation exists.
type PixelImage struct {
	ID        string
	PixelID   string
	URL       string // relative URL under the public uploads prefix
	SortOrder int
}

// PixelFilter narrows a listing. Zero-value fields leave that dimension
// unrestricted.
type PixelFilter struct {
	Query string // case-sensitive substring matched against name or description
	Map   string // exact match
	Side  string // exact match
}

// PixelFields carries the mutable metadata of a pixel for create and update.
type PixelFields struct {
	Name        string
	Description string
	Map         string
	Side        Side
}

// Upload is one file submitted with a create request, in submission order.
type Upload struct {
	Filename string
	Data     []byte
}

// PixelRepository handles pixel persistence.
type PixelRepository interface {
	// List returns matching pixels newest first, each carrying at most its
	// first image (lowest sort order).
	List(ctx context.Context, filter PixelFilter) ([]Pixel, error)
	// GetByID returns the pixel with its full image list ordered by SortOrder.
	GetByID(ctx context.Context, id string) (*Pixel, error)
	Create(ctx context.Context, pixel *Pixel) error
	// Update overwrites name/description/map/side; it never touches images.
	Update(ctx context.Context, id string, fields PixelFields) error
	// Delete removes the pixel row and its image rows.
	Delete(ctx context.Context, id string) error
}

// FileStore persists uploaded image bytes under a publicly served root.
// The initial implementation writes to the local filesystem; this interface
// allows swapping to S3 or another backend later.
type FileStore interface {
	// EnsureRoot creates the storage root if it is missing. Idempotent.
	EnsureRoot() error
	// Save writes the bytes under a generated unique name and returns the
	// public relative URL. seq is the upload submission index.
	Save(ctx context.Context, data []byte, originalName string, seq int) (string, error)
	// Delete removes the file backing a previously returned relative URL.
	Delete(ctx context.Context, relativeURL string) error
}
