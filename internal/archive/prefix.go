package archive

import (
	"path/filepath"
	"strings"
)

// stripCommonPrefix removes the longest shared leading directory from a
// list of member names, returning the stripped names and the prefix. The
// prefix starts as the first name's directory and walks upward until it
// covers every name, so a lone wrapper directory inside an archive does
// not show up in page names.
func stripCommonPrefix(names []string) ([]string, string) {
	if len(names) == 0 {
		return nil, ""
	}
	prefix := parentDir(names[0])
	for _, name := range names {
		for prefix != "" && !underPrefix(name, prefix) {
			prefix = parentDir(prefix)
		}
		if prefix == "" {
			break
		}
	}
	stripped := make([]string, len(names))
	for i, name := range names {
		s := strings.TrimPrefix(name, prefix)
		stripped[i] = strings.TrimLeft(s, "/")
	}
	return stripped, prefix
}

func parentDir(p string) string {
	if p == "" || p == "/" {
		return ""
	}
	d := filepath.Dir(p)
	if d == "." {
		return ""
	}
	return d
}

// underPrefix reports whether name sits inside prefix at a component
// boundary, so "abc" is not under "ab".
func underPrefix(name, prefix string) bool {
	if !strings.HasPrefix(name, prefix) {
		return false
	}
	if strings.HasSuffix(prefix, "/") {
		return true
	}
	rest := name[len(prefix):]
	return rest == "" || strings.HasPrefix(rest, "/")
}
