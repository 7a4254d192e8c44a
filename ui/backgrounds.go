package ui

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/gabriel-vasile/mimetype"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Backgrounds maps a predicted label to a page background image. Encoded
// data URIs are cached by path.
type Backgrounds struct {
	paths    map[string]string
	fallback string
	cache    *lru.Cache[string, string]
}

func NewBackgrounds(paths map[string]string, fallback string, size int) (*Backgrounds, error) {
	if size <= 0 {
		size = 16
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create background cache: %w", err)
	}

	copied := make(map[string]string, len(paths))
	for label, path := range paths {
		copied[label] = path
	}
	return &Backgrounds{paths: copied, fallback: fallback, cache: cache}, nil
}

// Default returns the data URI of the fallback image, or "" if none is set.
func (b *Backgrounds) Default() (string, error) {
	if b.fallback == "" {
		return "", nil
	}
	return b.dataURI(b.fallback)
}

// For returns the data URI configured for label. Labels without an image
// get the fallback.
func (b *Backgrounds) For(label string) (string, error) {
	path, ok := b.paths[label]
	if !ok {
		return b.Default()
	}
	return b.dataURI(path)
}

func (b *Backgrounds) dataURI(path string) (string, error) {
	if uri, ok := b.cache.Get(path); ok {
		return uri, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read background %s: %w", path, err)
	}
	mtype := mimetype.Detect(data)
	if !mtype.Is("image/jpeg") && !mtype.Is("image/png") && !mtype.Is("image/webp") && !mtype.Is("image/gif") {
		return "", fmt.Errorf("background %s is %s, not an image", path, mtype.String())
	}

	uri := "data:" + mtype.String() + ";base64," + base64.StdEncoding.EncodeToString(data)
	b.cache.Add(path, uri)
	return uri, nil
}
