package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/avelis/pixelbook/internal/domain"
)

// unrestricted is the filter value the presentation layer sends when a map
// or side dimension should not be restricted.
const unrestricted = "All"

// placeholderName is what browsers submit for an empty file input.
const placeholderName = "undefined"

// CatalogService orchestrates pixel persistence and image file storage.
// It is the one place the catalog's business rules live.
type CatalogService struct {
	pixels domain.PixelRepository
	files  domain.FileStore
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(pixels domain.PixelRepository, files domain.FileStore) *CatalogService {
	return &CatalogService{pixels: pixels, files: files}
}

// List returns pixels matching the given filters, newest first, each with at
// most its first image. An empty string or the literal "All" leaves a
// dimension unrestricted.
func (s *CatalogService) List(ctx context.Context, query, mapName, side string) ([]domain.Pixel, error) {
	filter := domain.PixelFilter{Query: query}
	if mapName != "" && mapName != unrestricted {
		filter.Map = mapName
	}
	if side != "" && side != unrestricted {
		filter.Side = side
	}
	return s.pixels.List(ctx, filter)
}

// GetDetail returns one pixel with its full ordered image list.
func (s *CatalogService) GetDetail(ctx context.Context, id string) (*domain.Pixel, error) {
	return s.pixels.GetByID(ctx, id)
}

// Create validates the metadata, stores the kept uploads, and records the
// pixel. Image sort order is the original submission index, so skipped
// uploads leave gaps. Files already written when a later step fails are
// removed best-effort.
func (s *CatalogService) Create(ctx context.Context, fields domain.PixelFields, uploads []domain.Upload) (*domain.Pixel, error) {
	if fields.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if fields.Map == "" {
		return nil, fmt.Errorf("%w: map is required", domain.ErrInvalidInput)
	}
	if fields.Side == "" {
		return nil, fmt.Errorf("%w: side is required", domain.ErrInvalidInput)
	}

	if err := s.files.EnsureRoot(); err != nil {
		return nil, fmt.Errorf("ensure uploads root: %w", err)
	}

	var images []domain.PixelImage
	for i, up := range uploads {
		if len(up.Data) == 0 || up.Filename == "" || up.Filename == placeholderName {
			continue
		}
		url, err := s.files.Save(ctx, up.Data, up.Filename, i)
		if err != nil {
			s.cleanupFiles(ctx, images)
			return nil, fmt.Errorf("save upload %d: %w", i, err)
		}
		images = append(images, domain.PixelImage{URL: url, SortOrder: i})
	}

	pixel := &domain.Pixel{
		Name:        fields.Name,
		Description: fields.Description,
		Map:         fields.Map,
		Side:        fields.Side,
		Images:      images,
	}
	if err := s.pixels.Create(ctx, pixel); err != nil {
		s.cleanupFiles(ctx, images)
		return nil, fmt.Errorf("create pixel: %w", err)
	}

	return pixel, nil
}

// Update overwrites the pixel's metadata. Images are never part of this path.
func (s *CatalogService) Update(ctx context.Context, id string, fields domain.PixelFields) error {
	return s.pixels.Update(ctx, id, fields)
}

// Remove deletes the pixel, its image rows, and its backing files. Unknown
// ids are a no-op success, and a failed file delete never aborts the row
// deletion.
func (s *CatalogService) Remove(ctx context.Context, id string) error {
	pixel, err := s.pixels.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get pixel: %w", err)
	}

	for _, img := range pixel.Images {
		if err := s.files.Delete(ctx, img.URL); err != nil {
			slog.Warn("delete upload file", "pixel", id, "url", img.URL, "error", err)
		}
	}

	if err := s.pixels.Delete(ctx, id); err != nil {
		// A concurrent remove may have won the race; that still counts.
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete pixel: %w", err)
	}
	return nil
}

// cleanupFiles removes files written before a failed create.
func (s *CatalogService) cleanupFiles(ctx context.Context, images []domain.PixelImage) {
	for _, img := range images {
		if err := s.files.Delete(ctx, img.URL); err != nil {
			slog.Warn("cleanup upload file", "url", img.URL, "error", err)
		}
	}
}
