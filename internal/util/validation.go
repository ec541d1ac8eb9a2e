package util

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxImageSize caps avatar and post image uploads
const MaxImageSize = 10 << 20

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// IsValidImageFile checks the extension of an uploaded image
func IsValidImageFile(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// IsUUID reports whether id can name a row keyed by a uuid column
func IsUUID(id string) bool {
	return len(id) == 36 && uuid.Validate(id) == nil
}
