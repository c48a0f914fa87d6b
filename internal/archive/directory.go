package archive

import (
	"os"
	"path/filepath"

	"riffle/internal/files"
	"riffle/internal/natsort"
)

// newDirectoryArchive reads the supported page files of one directory.
// Non recursive; subdirectories are their own archives.
func newDirectoryArchive(deps *Deps, path, id, tempDir string) (*Archive, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !files.IsSupportedPage(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	natsort.SortStrings(names)

	pages := make([]*Page, len(names))
	for i, name := range names {
		pages[i] = newOriginalPage(deps, name, name, i, tempDir, filepath.Join(path, name))
	}
	return &Archive{
		deps:    deps,
		id:      id,
		name:    filepath.Base(path),
		path:    path,
		kind:    Directory,
		pages:   pages,
		tempDir: tempDir,
	}, nil
}
