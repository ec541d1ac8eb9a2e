package util

import (
	"fmt"
	"io"
	"mime/multipart"
)

// ReadImageUpload validates and reads an uploaded image into memory
func ReadImageUpload(file *multipart.FileHeader) ([]byte, error) {
	if !IsValidImageFile(file.Filename) {
		return nil, fmt.Errorf("unsupported image type %q", file.Filename)
	}
	if file.Size > MaxImageSize {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageSize)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return io.ReadAll(io.LimitReader(src, MaxImageSize+1))
}
