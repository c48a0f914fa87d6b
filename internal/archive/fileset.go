package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"riffle/internal/logging"
)

// OpenFileSet builds an archive from an explicit list of files, kept in
// exactly the order given. Nothing is filtered; a file that turns out not
// to be displayable fails at scan time like any other page.
func OpenFileSet(deps *Deps, paths []string, tempRoot string) (*Archive, int) {
	abs := make([]string, len(paths))
	for i, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			a = p
		}
		abs[i] = a
	}
	stripped, prefix := stripCommonPrefix(abs)
	if prefix == "" {
		if wd, err := os.Getwd(); err == nil {
			prefix = wd
		} else {
			prefix = string(filepath.Separator)
		}
	}

	id := uuid.NewString()
	adeps := &Deps{
		Pools: deps.Pools,
		Logger: deps.Logger.With(
			logging.String(logging.FieldCorrelationID, id),
			logging.String(logging.FieldArchive, prefix)),
	}
	tempDir, err := makeTempDir(tempRoot, id)
	if err != nil {
		adeps.Logger.Error("failed to create temp dir", logging.Error(err))
		return newBroken(deps, prefix,
			fmt.Sprintf("Could not create temporary directory: %v", err)), -1
	}

	pages := make([]*Page, len(abs))
	for i := range abs {
		pages[i] = newOriginalPage(adeps, stripped[i], stripped[i], i, tempDir, abs[i])
	}
	a := &Archive{
		deps:    adeps,
		id:      id,
		name:    "files in " + prefix,
		path:    prefix,
		kind:    FileSet,
		pages:   pages,
		tempDir: tempDir,
	}
	initial := -1
	if len(pages) > 0 {
		initial = 0
	}
	adeps.Logger.Debug("opened archive",
		logging.String("kind", a.kind.String()),
		logging.Int("pages", len(pages)))
	return a, initial
}
