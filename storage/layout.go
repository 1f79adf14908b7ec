// Package storage computes the date-partitioned archive layout and persists
// generated images with their prompt sidecars.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"
)

// hashLength is the number of hex characters of the content hash kept in
// file names.
const hashLength = 8

// StorageKey is the relative archive location of one generated image and its
// prompt sidecar.
type StorageKey struct {
	// Year is the calendar year directory.
	Year int

	// Week is the ISO week subdirectory number.
	Week int

	// FileName is the image file name, image_<yyyyMMdd>_<HHmmss>_<hash8>.png.
	FileName string
}

// ImagePath returns the key's relative image path using the platform
// separator.
func (k StorageKey) ImagePath() string {
	return filepath.Join(
		fmt.Sprintf("%d", k.Year),
		fmt.Sprintf("week_%02d", k.Week),
		k.FileName,
	)
}

// PromptPath returns the sidecar path: the image path with a .txt extension.
func (k StorageKey) PromptPath() string {
	p := k.ImagePath()
	return p[:len(p)-len(filepath.Ext(p))] + ".txt"
}

// ContentHash returns the first hashLength hex characters of the SHA-256 of
// data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:hashLength]
}

// KeyFor computes the storage key for image bytes generated at ts. It is a
// pure function: the same timestamp and bytes always produce the same key,
// and different bytes at the same timestamp differ in the hash suffix.
func KeyFor(ts time.Time, imageData []byte) StorageKey {
	_, week := ts.ISOWeek()
	return StorageKey{
		Year: ts.Year(),
		Week: week,
		FileName: fmt.Sprintf("image_%s_%s.png",
			ts.Format("20060102_150405"),
			ContentHash(imageData)),
	}
}
