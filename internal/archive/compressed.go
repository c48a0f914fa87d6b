package archive

import (
	"path/filepath"
	"sort"
	"strconv"

	"riffle/internal/files"
	"riffle/internal/natsort"
	"riffle/internal/pools"
)

// newCompressedArchive lists the archive, keeps the supported page files
// and builds an extraction plan mapping each member to a numbered file in
// the temp dir. Pages sort naturally by their stripped names; the plan
// stays keyed by the full member path since that is what the extractor
// sees.
func newCompressedArchive(deps *Deps, path, id, tempDir string) (*Archive, error) {
	members, err := deps.Pools.ListArchive(path)
	if err != nil {
		return nil, err
	}
	kept := members[:0]
	for _, name := range members {
		if files.IsSupportedPage(name) {
			kept = append(kept, name)
		}
	}
	members = kept
	stripped, _ := stripCommonPrefix(members)

	order := make([]int, len(members))
	for i := range order {
		order[i] = i
	}
	sorter := natsort.NewSorter()
	sort.SliceStable(order, func(x, y int) bool {
		return sorter.Less(stripped[order[x]], stripped[order[y]])
	})

	// One jump slot. Jumping only ever happens for the page on screen,
	// and a taken slot means order is already being bent.
	jump := make(chan string, 1)
	plan := pools.PendingExtraction{
		Archive: path,
		Pages:   make(map[string]pools.PageExtraction, len(order)),
		Jump:    jump,
	}
	pages := make([]*Page, 0, len(order))
	for index, oi := range order {
		relPath := members[oi]
		dest := filepath.Join(tempDir, strconv.Itoa(index)+filepath.Ext(relPath))
		result := pools.NewExtractionResult()
		pages = append(pages,
			newExtractedPage(deps, stripped[oi], relPath, index, tempDir, dest, result, jump))
		plan.Pages[relPath] = pools.PageExtraction{Name: relPath, Dest: dest, Completion: result}
	}

	return &Archive{
		deps:    deps,
		id:      id,
		name:    filepath.Base(path),
		path:    path,
		kind:    Compressed,
		pages:   pages,
		tempDir: tempDir,
		plan:    &plan,
	}, nil
}
