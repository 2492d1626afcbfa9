package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/facette/natsort"

	"github.com/openphotolab/enhancebackend/media"
)

// ListImageFiles walks dir recursively and returns the paths of raster image
// files in natural sort order, so IMG_2 comes before IMG_10.
func ListImageFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if media.IsRasterImage(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dir, err)
	}

	natsort.Sort(paths)
	return paths, nil
}
