package handler

import (
	"time"

	"github.com/avelis/pixelbook/internal/domain"
)

// pixelSummary is the list-view shape of a pixel: metadata plus its first
// image URL, if it has any images.
type pixelSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Map         string    `json:"map"`
	Side        string    `json:"side"`
	CreatedAt   time.Time `json:"createdAt"`
	FirstImage  string    `json:"firstImage,omitempty"`
}

type pixelImageResponse struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Order int    `json:"order"`
}

type pixelDetail struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Map         string               `json:"map"`
	Side        string               `json:"side"`
	CreatedAt   time.Time            `json:"createdAt"`
	Images      []pixelImageResponse `json:"images"`
}

// pixelFieldsRequest is the JSON body of an update request.
type pixelFieldsRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Map         string `json:"map"`
	Side        string `json:"side"`
}

func toSummary(p domain.Pixel) pixelSummary {
	s := pixelSummary{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Map:         p.Map,
		Side:        string(p.Side),
		CreatedAt:   p.CreatedAt,
	}
	if len(p.Images) > 0 {
		s.FirstImage = p.Images[0].URL
	}
	return s
}

func toDetail(p *domain.Pixel) pixelDetail {
	d := pixelDetail{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Map:         p.Map,
		Side:        string(p.Side),
		CreatedAt:   p.CreatedAt,
		Images:      make([]pixelImageResponse, 0, len(p.Images)),
	}
	for _, img := range p.Images {
		d.Images = append(d.Images, pixelImageResponse{ID: img.ID, URL: img.URL, Order: img.SortOrder})
	}
	return d
}
