package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/avelis/pixelbook/internal/domain"
	"github.com/google/uuid"
)

// pixelRepo implements domain.PixelRepository using SQLite.
type pixelRepo struct {
	db *sql.DB
}

func (r *pixelRepo) Create(ctx context.Context, pixel *domain.Pixel) error {
	if pixel.ID == "" {
		pixel.ID = uuid.NewString()
	}
	if pixel.CreatedAt.IsZero() {
		pixel.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pixels (id, name, description, map, side, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		pixel.ID, pixel.Name, pixel.Description, pixel.Map, string(pixel.Side), pixel.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pixel: %w", err)
	}

	for i := range pixel.Images {
		img := &pixel.Images[i]
		if img.ID == "" {
			img.ID = uuid.NewString()
		}
		img.PixelID = pixel.ID
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO pixel_images (id, pixel_id, url, sort_order)
			 VALUES (?, ?, ?, ?)`,
			img.ID, img.PixelID, img.URL, img.SortOrder,
		)
		if err != nil {
			return fmt.Errorf("insert pixel image: %w", err)
		}
	}

	return nil
}

// List returns pixels newest first, each joined with its first image only.
// The text filter uses instr() because SQLite LIKE is case-insensitive for
// ASCII and the search is defined as a case-sensitive substring match.
func (r *pixelRepo) List(ctx context.Context, filter domain.PixelFilter) ([]domain.Pixel, error) {
	// The join key must be unique per pixel: sort orders can collide, so
	// joining on MIN(sort_order) could match more than one image row and
	// duplicate the pixel in the result.
	query := `SELECT p.id, p.name, p.description, p.map, p.side, p.created_at,
	                 i.id, i.url, i.sort_order
	          FROM pixels p
	          LEFT JOIN pixel_images i ON i.rowid =
	              (SELECT rowid FROM pixel_images WHERE pixel_id = p.id
	               ORDER BY sort_order, rowid LIMIT 1)`

	var conds []string
	var args []any
	if filter.Query != "" {
		conds = append(conds, "(instr(p.name, ?) > 0 OR instr(p.description, ?) > 0)")
		args = append(args, filter.Query, filter.Query)
	}
	if filter.Map != "" {
		conds = append(conds, "p.map = ?")
		args = append(args, filter.Map)
	}
	if filter.Side != "" {
		conds = append(conds, "p.side = ?")
		args = append(args, filter.Side)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY p.created_at DESC, p.rowid DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pixels: %w", err)
	}
	defer rows.Close()

	var pixels []domain.Pixel
	for rows.Next() {
		var p domain.Pixel
		var imgID, imgURL sql.NullString
		var imgOrder sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Map, &p.Side, &p.CreatedAt,
			&imgID, &imgURL, &imgOrder); err != nil {
			return nil, fmt.Errorf("scan pixel: %w", err)
		}
		if imgID.Valid {
			p.Images = []domain.PixelImage{{
				ID:        imgID.String,
				PixelID:   p.ID,
				URL:       imgURL.String,
				SortOrder: int(imgOrder.Int64),
			}}
		}
		pixels = append(pixels, p)
	}
	return pixels, rows.Err()
}

func (r *pixelRepo) GetByID(ctx context.Context, id string) (*domain.Pixel, error) {
	p := &domain.Pixel{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, map, side, created_at
		 FROM pixels WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Map, &p.Side, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get pixel: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, url, sort_order FROM pixel_images
		 WHERE pixel_id = ? ORDER BY sort_order`, id)
	if err != nil {
		return nil, fmt.Errorf("list pixel images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		img := domain.PixelImage{PixelID: id}
		if err := rows.Scan(&img.ID, &img.URL, &img.SortOrder); err != nil {
			return nil, fmt.Errorf("scan pixel image: %w", err)
		}
		p.Images = append(p.Images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return p, nil
}

func (r *pixelRepo) Update(ctx context.Context, id string, fields domain.PixelFields) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE pixels SET name = ?, description = ?, map = ?, side = ? WHERE id = ?`,
		fields.Name, fields.Description, fields.Map, string(fields.Side), id,
	)
	if err != nil {
		return fmt.Errorf("update pixel: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pixelRepo) Delete(ctx context.Context, id string) error {
	// Image rows cascade via the foreign key.
	result, err := r.db.ExecContext(ctx, "DELETE FROM pixels WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete pixel: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
