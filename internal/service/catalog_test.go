package service_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"testing"

	"github.com/avelis/pixelbook/internal/domain"
	"github.com/avelis/pixelbook/internal/filestore"
	"github.com/avelis/pixelbook/internal/repository/sqlite"
	"github.com/avelis/pixelbook/internal/service"
)

func newTestCatalog(t *testing.T) (*service.CatalogService, *sqlite.DB, *filestore.DiskStore) {
	t.Helper()
	dir := t.TempDir()

	db, err := sqlite.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := filestore.New(filepath.Join(dir, "uploads"))
	return service.NewCatalogService(db.Pixels(), store), db, store
}

// uploadedFiles lists the file names currently present in the store root.
func uploadedFiles(t *testing.T, store *filestore.DiskStore) []string {
	t.Helper()
	entries, err := os.ReadDir(store.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read uploads root: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCatalogService_Create_RoundTrip(t *testing.T) {
	svc, _, store := newTestCatalog(t)
	ctx := context.Background()

	step1 := []byte("first step bytes")
	step2 := []byte("second step bytes")

	pixel, err := svc.Create(ctx, domain.PixelFields{
		Name:        "Mirage Connector Smoke",
		Description: "Aim at antenna tip",
		Map:         "Mirage",
		Side:        domain.SideCT,
	}, []domain.Upload{
		{Filename: "step1.png", Data: step1},
		{Filename: "step2.png", Data: step2},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.GetDetail(ctx, pixel.ID)
	if err != nil {
		t.Fatalf("GetDetail: %v", err)
	}

	if got.Name != "Mirage Connector Smoke" || got.Description != "Aim at antenna tip" ||
		got.Map != "Mirage" || got.Side != domain.SideCT {
		t.Fatalf("unexpected metadata: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}
	if len(got.Images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(got.Images))
	}
	if got.Images[0].SortOrder != 0 || got.Images[1].SortOrder != 1 {
		t.Fatalf("expected orders 0,1, got %d,%d",
			got.Images[0].SortOrder, got.Images[1].SortOrder)
	}

	// The stored files must hold the originally submitted bytes.
	for i, want := range [][]byte{step1, step2} {
		data, err := os.ReadFile(filepath.Join(store.Root, path.Base(got.Images[i].URL)))
		if err != nil {
			t.Fatalf("read stored image %d: %v", i, err)
		}
		if !bytes.Equal(data, want) {
			t.Fatalf("image %d bytes differ", i)
		}
	}
}

func TestCatalogService_Create_MissingFields(t *testing.T) {
	svc, _, store := newTestCatalog(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		fields domain.PixelFields
	}{
		{"missing name", domain.PixelFields{Map: "Mirage", Side: domain.SideCT}},
		{"missing map", domain.PixelFields{Name: "x", Side: domain.SideCT}},
		{"missing side", domain.PixelFields{Name: "x", Map: "Mirage"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.fields, []domain.Upload{
				{Filename: "step.png", Data: []byte("bytes")},
			})
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	// Validation happens before any file I/O.
	if names := uploadedFiles(t, store); len(names) != 0 {
		t.Fatalf("expected no files written, found %v", names)
	}
}

func TestCatalogService_Create_SkipRule(t *testing.T) {
	svc, _, store := newTestCatalog(t)
	ctx := context.Background()

	pixel, err := svc.Create(ctx, domain.PixelFields{
		Name: "Skips", Map: "Nuke", Side: domain.SideCT,
	}, []domain.Upload{
		{Filename: "kept0.png", Data: []byte("zero")},
		{Filename: "empty.png", Data: nil},
		{Filename: "undefined", Data: []byte("placeholder name")},
		{Filename: "kept3.png", Data: []byte("three")},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.GetDetail(ctx, pixel.ID)
	if err != nil {
		t.Fatalf("GetDetail: %v", err)
	}

	// Orders keep the original submission indices, so gaps are expected.
	if len(got.Images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(got.Images))
	}
	if got.Images[0].SortOrder != 0 || got.Images[1].SortOrder != 3 {
		t.Fatalf("expected orders 0,3, got %d,%d",
			got.Images[0].SortOrder, got.Images[1].SortOrder)
	}
	if names := uploadedFiles(t, store); len(names) != 2 {
		t.Fatalf("expected 2 stored files, found %v", names)
	}
}

// failingRepo rejects every insert so the file-cleanup path can be observed.
type failingRepo struct {
	domain.PixelRepository
}

func (f *failingRepo) Create(ctx context.Context, pixel *domain.Pixel) error {
	return errors.New("database is locked")
}

func TestCatalogService_Create_CleansUpFilesOnStoreFailure(t *testing.T) {
	_, db, store := newTestCatalog(t)
	svc := service.NewCatalogService(&failingRepo{db.Pixels()}, store)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.PixelFields{
		Name: "Doomed insert", Map: "Mirage", Side: domain.SideCT,
	}, []domain.Upload{
		{Filename: "a.png", Data: []byte("a")},
		{Filename: "b.png", Data: []byte("b")},
	})
	if err == nil {
		t.Fatal("expected create to fail")
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected a store failure, got %v", err)
	}

	// Files written before the failed insert must be removed again.
	if names := uploadedFiles(t, store); len(names) != 0 {
		t.Fatalf("expected written files cleaned up, found %v", names)
	}
}

func TestCatalogService_Create_NoImages(t *testing.T) {
	svc, _, _ := newTestCatalog(t)
	ctx := context.Background()

	pixel, err := svc.Create(ctx, domain.PixelFields{
		Name: "Ramp hold", Map: "Dust 2", Side: domain.SideTR,
	}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.GetDetail(ctx, pixel.ID)
	if err != nil {
		t.Fatalf("GetDetail: %v", err)
	}
	if len(got.Images) != 0 {
		t.Fatalf("expected no images, got %d", len(got.Images))
	}

	listed, err := svc.List(ctx, "", "", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 pixel, got %d", len(listed))
	}
	if len(listed[0].Images) != 0 {
		t.Fatalf("expected no first image in listing, got %+v", listed[0].Images)
	}
}

func TestCatalogService_List_AllMeansUnrestricted(t *testing.T) {
	svc, _, _ := newTestCatalog(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, domain.PixelFields{Name: "a", Map: "Mirage", Side: domain.SideCT}, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, domain.PixelFields{Name: "b", Map: "Inferno", Side: domain.SideTR}, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.List(ctx, "", "All", "All")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf(`expected "All" to leave filters unrestricted, got %d pixels`, len(got))
	}

	got, err = svc.List(ctx, "", "Inferno", "All")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Name != "b" {
		t.Fatalf("expected only the Inferno pixel, got %+v", got)
	}
}

func TestCatalogService_Update(t *testing.T) {
	svc, _, _ := newTestCatalog(t)
	ctx := context.Background()

	pixel, err := svc.Create(ctx, domain.PixelFields{
		Name: "Original", Map: "Mirage", Side: domain.SideCT,
	}, []domain.Upload{{Filename: "step.png", Data: []byte("img")}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = svc.Update(ctx, pixel.ID, domain.PixelFields{
		Name: "Renamed", Map: "Mirage", Side: domain.SideCT,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := svc.GetDetail(ctx, pixel.ID)
	if err != nil {
		t.Fatalf("GetDetail: %v", err)
	}
	if got.Name != "Renamed" {
		t.Fatalf("expected name Renamed, got %s", got.Name)
	}
	if len(got.Images) != 1 {
		t.Fatalf("expected attachments unchanged, got %d", len(got.Images))
	}
}

func TestCatalogService_Update_NotFound(t *testing.T) {
	svc, _, _ := newTestCatalog(t)

	err := svc.Update(context.Background(), "no-such-id", domain.PixelFields{Name: "x"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogService_Remove(t *testing.T) {
	svc, _, store := newTestCatalog(t)
	ctx := context.Background()

	pixel, err := svc.Create(ctx, domain.PixelFields{
		Name: "Doomed", Map: "Ancient", Side: domain.SideCT,
	}, []domain.Upload{
		{Filename: "a.png", Data: []byte("a")},
		{Filename: "b.png", Data: []byte("b")},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Remove(ctx, pixel.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if _, err := svc.GetDetail(ctx, pixel.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
	if names := uploadedFiles(t, store); len(names) != 0 {
		t.Fatalf("expected backing files removed, found %v", names)
	}

	// Removing again is a no-op success.
	if err := svc.Remove(ctx, pixel.ID); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestCatalogService_Remove_UnknownID(t *testing.T) {
	svc, _, _ := newTestCatalog(t)

	if err := svc.Remove(context.Background(), "never-existed"); err != nil {
		t.Fatalf("expected success for unknown id, got %v", err)
	}
}

func TestCatalogService_Remove_MissingFileIsNonFatal(t *testing.T) {
	svc, _, store := newTestCatalog(t)
	ctx := context.Background()

	pixel, err := svc.Create(ctx, domain.PixelFields{
		Name: "Leaky", Map: "Vertigo", Side: domain.SideTR,
	}, []domain.Upload{{Filename: "gone.png", Data: []byte("x")}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Simulate a file that diverged from its row (manually removed on disk).
	got, err := svc.GetDetail(ctx, pixel.ID)
	if err != nil {
		t.Fatalf("GetDetail: %v", err)
	}
	if err := os.Remove(filepath.Join(store.Root, path.Base(got.Images[0].URL))); err != nil {
		t.Fatalf("remove backing file: %v", err)
	}

	// The row delete must still go through.
	if err := svc.Remove(ctx, pixel.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := svc.GetDetail(ctx, pixel.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected pixel gone, got %v", err)
	}
}
