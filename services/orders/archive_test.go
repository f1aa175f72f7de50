package orders

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/orderstack/orderstack/internal/errors"
)

func TestBuildArchive_ContainsEveryFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "FoodCo", "Almaty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "FoodCo", "Almaty", "a.xlsx"), []byte("aaa"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "FoodCo", "b.xls"), []byte("bbb"), 0o644))

	zipDir := t.TempDir()
	zipPath, err := buildArchive(root, zipDir, "FoodCo_2024-05-10")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(zipDir, "FoodCo_2024-05-10.zip"), zipPath)

	reader, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer reader.Close()

	var names []string
	for _, file := range reader.File {
		names = append(names, file.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"FoodCo/Almaty/a.xlsx", "FoodCo/b.xls"}, names)
}

func TestBuildArchive_MissingFolder(t *testing.T) {
	_, err := buildArchive(filepath.Join(t.TempDir(), "absent"), t.TempDir(), "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerrors.ErrArchiveFailed))
}
