// Package files classifies paths by extension. Probing every file's contents
// up front would be unreasonably slow for large archives, so the pipeline
// trusts extensions until a page is scanned.
package files

import (
	"path/filepath"
	"strings"
)

var imageExtensions = []string{
	"jpg", "jpeg", "png", "apng", "gif", "webp", "bmp", "tif", "tiff",
}

var videoExtensions = []string{"webm"}

var archiveExtensions = []string{
	"zip", "cbz", "rar", "cbr", "7z", "cb7z", "tar", "pax", "gz", "bz2", "zst", "lz4", "xz",
}

func ext(path string) string {
	e := filepath.Ext(path)
	if e == "" {
		return ""
	}
	return strings.ToLower(e[1:])
}

func matches(path string, list []string) bool {
	e := ext(path)
	if e == "" {
		return false
	}
	for _, candidate := range list {
		if e == candidate {
			return true
		}
	}
	return false
}

// IsSupportedPage reports whether the path can become a page at all.
func IsSupportedPage(path string) bool {
	return matches(path, imageExtensions) || matches(path, videoExtensions)
}

// IsImage reports whether the path has a decodable still image extension.
func IsImage(path string) bool {
	return matches(path, imageExtensions)
}

// IsGIF reports whether the path is a gif.
func IsGIF(path string) bool {
	return ext(path) == "gif"
}

// IsPNG reports whether the path is a png or apng.
func IsPNG(path string) bool {
	e := ext(path)
	return e == "png" || e == "apng"
}

// IsWebP reports whether the path is a webp.
func IsWebP(path string) bool {
	return ext(path) == "webp"
}

// IsVideo reports whether the path has a video extension.
func IsVideo(path string) bool {
	return matches(path, videoExtensions)
}

// IsArchive reports whether the path looks like a compressed archive.
func IsArchive(path string) bool {
	return matches(path, archiveExtensions)
}

// IsRar reports whether the path is a rar archive eligible for the external
// unrar fast path.
func IsRar(path string) bool {
	e := ext(path)
	return e == "rar" || e == "cbr"
}

// Formats describes the supported extension sets for user-facing output.
func Formats() (images, videos, archives []string) {
	return append([]string(nil), imageExtensions...),
		append([]string(nil), videoExtensions...),
		append([]string(nil), archiveExtensions...)
}
