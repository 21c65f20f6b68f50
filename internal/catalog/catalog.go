// package catalog enumerates local photo files eligible for upload.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dcheno/flickrup/internal/shared"
)

// supportedExtensions holds the photo formats flickr accepts for upload.
var supportedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".tif":  {},
	".tiff": {},
}

// ListCandidates scans dir and returns the full paths of uploadable photos,
// sorted lexicographically so repeated runs dispatch in the same order.
//
// Hidden entries, non-regular files and unsupported extensions are skipped.
func ListCandidates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", shared.ErrDirectoryNotFound, dir)
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var candidates []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !isRegular(dir, entry) {
			continue
		}
		if _, ok := supportedExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		candidates = append(candidates, filepath.Join(dir, name))
	}

	sort.Strings(candidates)
	return candidates, nil
}

// isRegular reports whether entry is a regular file, following symlinks so a
// linked photo still counts. Broken links do not.
func isRegular(dir string, entry os.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.Mode().IsRegular()
}

// Title derives the remote photo title from a local path: the base filename,
// extension included, matching how resumed runs find already-uploaded photos.
func Title(path string) string {
	return filepath.Base(path)
}
