package memory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwerioflow/link/internal/storage"
)

var _ storage.Storage = (*Storage)(nil)

func TestMemoryStorage(t *testing.T) {
	s := New("http://cdn.test/")
	ctx := context.Background()

	res, err := s.Upload(ctx, &storage.UploadInput{
		Key:         "downloads/p1/menu.pdf",
		ContentType: "application/pdf",
		Data:        strings.NewReader("%PDF"),
	})
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.test/media/downloads/p1/menu.pdf", res.URL)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/downloads/p1/menu.pdf", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF", rec.Body.String())

	require.NoError(t, s.Delete(ctx, "downloads/p1/menu.pdf"))
	_, err = s.GetURL(ctx, "downloads/p1/menu.pdf")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/downloads/p1/menu.pdf", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
