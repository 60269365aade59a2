package normalizer

import (
	"path/filepath"
	"sort"
	"strings"
)

var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".gif":  true,
	".heic": true,
	".heif": true,
}

// ValidateImageFormat reports whether path has an allow-listed extension.
// It only inspects the name and never touches the filesystem.
func ValidateImageFormat(path string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(exts)
	return exts
}
