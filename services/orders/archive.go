package orders

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	coreerrors "github.com/orderstack/orderstack/internal/errors"
)

// buildArchive zips the job folder into zipDir/<name>.zip and returns
// the archive path. Entries keep their paths relative to folderPath.
func buildArchive(folderPath, zipDir, name string) (string, error) {
	if err := os.MkdirAll(zipDir, 0o755); err != nil {
		return "", errors.WithMessagef(coreerrors.ErrArchiveFailed, "creating %s: %v", zipDir, err)
	}

	zipPath := filepath.Join(zipDir, name+".zip")
	out, err := os.Create(zipPath)
	if err != nil {
		return "", errors.WithMessagef(coreerrors.ErrArchiveFailed, "creating %s: %v", zipPath, err)
	}
	defer out.Close()

	writer := zip.NewWriter(out)

	walkErr := filepath.WalkDir(folderPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(folderPath, path)
		if err != nil {
			return err
		}

		entry, err := writer.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(entry, file)
		return err
	})
	if walkErr != nil {
		writer.Close()
		return "", errors.WithMessagef(coreerrors.ErrArchiveFailed, "archiving %s: %v", folderPath, walkErr)
	}

	if err := writer.Close(); err != nil {
		return "", errors.WithMessagef(coreerrors.ErrArchiveFailed, "finalizing %s: %v", zipPath, err)
	}
	if err := out.Close(); err != nil {
		return "", errors.WithMessagef(coreerrors.ErrArchiveFailed, "closing %s: %v", zipPath, err)
	}

	return zipPath, nil
}
