package database

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ds124wfegd/coloringbook/internal/entity"
	"github.com/ds124wfegd/coloringbook/internal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) ConversionRepository {
	t.Helper()
	return NewConversionRepository(storage.NewFileStorage(t.TempDir()))
}

func TestConversionRepositorySaveAndFind(t *testing.T) {
	repo := newTestRepository(t)
	now := time.Now().UTC().Truncate(time.Second)

	conv := &entity.Conversion{
		ID:           "c1",
		Status:       entity.StatusPending,
		Theme:        "cute",
		OriginalName: "봄.jpg",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Save(conv))

	got, err := repo.FindByID("c1")
	require.NoError(t, err)
	assert.Equal(t, conv, got)

	_, err = repo.FindByID("missing")
	assert.ErrorIs(t, err, entity.ErrConversionNotFound)
}

func TestConversionRepositoryList(t *testing.T) {
	repo := newTestRepository(t)
	for _, id := range []string{"b", "a", "c"} {
		require.NoError(t, repo.Save(&entity.Conversion{ID: id, Status: entity.StatusCompleted}))
	}

	list, err := repo.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "c", list[2].ID)
}

func TestConversionRepositoryFiles(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, repo.Save(&entity.Conversion{ID: "c2", OriginalName: "Photo.PNG"}))
	require.NoError(t, repo.SaveOriginal("c2", "Photo.PNG", strings.NewReader("original-bytes")))
	assert.True(t, strings.HasSuffix(repo.OriginalPath("c2", "Photo.PNG"), "c2.png"))

	data, err := os.ReadFile(repo.OriginalPath("c2", "Photo.PNG"))
	require.NoError(t, err)
	assert.Equal(t, "original-bytes", string(data))

	_, err = repo.OpenResult("c2")
	assert.ErrorIs(t, err, entity.ErrResultNotReady)

	require.NoError(t, os.MkdirAll(strings.TrimSuffix(repo.ResultPath("c2"), "c2.jpg"), 0o755))
	require.NoError(t, os.WriteFile(repo.ResultPath("c2"), []byte("jpeg"), 0o644))

	rc, err := repo.OpenResult("c2")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "jpeg", string(body))

	require.NoError(t, repo.Delete("c2"))
	assert.NoFileExists(t, repo.OriginalPath("c2", "Photo.PNG"))
	assert.NoFileExists(t, repo.ResultPath("c2"))
	_, err = repo.FindByID("c2")
	assert.ErrorIs(t, err, entity.ErrConversionNotFound)

	assert.ErrorIs(t, repo.Delete("c2"), entity.ErrConversionNotFound)
}
