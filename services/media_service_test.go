package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"sync"
	"testing"

	"eventflow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStorage keeps uploaded keys in memory.
type memStorage struct {
	mu      sync.Mutex
	objects map[string]bool
}

func (m *memStorage) Put(_ context.Context, key string, _ *multipart.FileHeader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string]bool{}
	}
	m.objects[key] = true
	return "https://cdn.test/" + key, nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func fileHeader(t *testing.T, filename string) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("content"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

func TestMedia_UploadListDelete(t *testing.T) {
	store := &memStorage{}
	svc := NewMediaService(openTestDB(t), store)
	ctx := context.Background()

	asset, err := svc.Upload(ctx, models.MediaMap, "", fileHeader(t, "Venue Map.PNG"))
	require.NoError(t, err)
	assert.Equal(t, "image", asset.Type)
	assert.Equal(t, "Venue Map.PNG", asset.Name)
	assert.Contains(t, asset.ObjectKey, "map/venue-map-")
	assert.Equal(t, "https://cdn.test/"+asset.ObjectKey, asset.URL)

	_, err = svc.Upload(ctx, models.MediaMap, "Floor 2", fileHeader(t, "floor.pdf"))
	require.NoError(t, err)

	list, err := svc.List(ctx, models.MediaMap)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.Latest(ctx, models.MediaMap)
	require.NoError(t, err)
	_, err = svc.Latest(ctx, models.MediaBrochure)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(ctx, asset.ID))
	assert.Equal(t, 1, store.count())
	assert.ErrorIs(t, svc.Delete(ctx, asset.ID), ErrNotFound)

	n, err := svc.DeleteAll(ctx, models.MediaMap)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, store.count())

	_, err = svc.Upload(ctx, "poster", "", fileHeader(t, "a.png"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMedia_PageBackgrounds(t *testing.T) {
	svc := NewMediaService(openTestDB(t), &memStorage{})
	ctx := context.Background()

	bg, err := svc.Upload(ctx, models.MediaBackground, "Stage", fileHeader(t, "stage.jpg"))
	require.NoError(t, err)

	require.NoError(t, svc.SetPageBackground(ctx, PageAll, &bg.ID))
	pages, err := svc.PageBackgrounds(ctx)
	require.NoError(t, err)
	assert.Len(t, pages, len(models.KnownPages))
	assert.Equal(t, bg.URL, pages["bracket"])

	assert.ErrorIs(t, svc.SetPageBackground(ctx, "lobby", &bg.ID), ErrInvalidInput)
	assert.ErrorIs(t, svc.SetPageBackground(ctx, "index", ptr("ghost")), ErrNotFound)

	require.NoError(t, svc.SetPageBackground(ctx, "index", nil))
	pages, err = svc.PageBackgrounds(ctx)
	require.NoError(t, err)
	assert.NotContains(t, pages, "index")

	// Deleting the background leaves the pages without one.
	require.NoError(t, svc.Delete(ctx, bg.ID))
	pages, err = svc.PageBackgrounds(ctx)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestMedia_LinksAndSettings(t *testing.T) {
	svc := NewMediaService(openTestDB(t), &memStorage{})
	ctx := context.Background()

	link, err := svc.AddLink(ctx, "Tickets", "https://example.com/t", nil, ptr(""))
	require.NoError(t, err)
	assert.Nil(t, link.BackgroundPath)
	_, err = svc.AddLink(ctx, "", "https://example.com", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	links, err := svc.ListLinks(ctx)
	require.NoError(t, err)
	assert.Len(t, links, 1)
	require.NoError(t, svc.DeleteLink(ctx, link.ID))
	assert.ErrorIs(t, svc.DeleteLink(ctx, link.ID), ErrNotFound)

	_, err = svc.GetSetting(ctx, "welcome")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.SetSetting(ctx, "welcome", "Hello")
	require.NoError(t, err)
	_, err = svc.SetSetting(ctx, "welcome", "Hi again")
	require.NoError(t, err)
	s, err := svc.GetSetting(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, "Hi again", s.Value)
}
