// Package media reads image files into data URLs and stores them one at a
// time in the media collection.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/theo/internal/intake"
	"github.com/user/theo/internal/types"
)

// ErrTooLarge is returned when a file exceeds the configured size limit.
var ErrTooLarge = errors.New("file too large")

// sniffLen is how many leading bytes http.DetectContentType inspects.
const sniffLen = 512

// Adder stores a validated image.
type Adder interface {
	AddMedia(ctx context.Context, form intake.MediaForm) (types.MediaAsset, error)
}

// Ingester turns files into MediaAsset records.
type Ingester struct {
	target  Adder
	maxSize int64
}

// NewIngester creates an Ingester. maxSize <= 0 disables the size limit.
func NewIngester(target Adder, maxSize int64) *Ingester {
	return &Ingester{target: target, maxSize: maxSize}
}

// IngestFiles reads each path in order. Non-image files are skipped. Each
// image is persisted before the next file is opened; the first read or
// persistence error stops the run and returns what was stored so far.
func (in *Ingester) IngestFiles(ctx context.Context, paths []string) ([]types.MediaAsset, error) {
	var stored []types.MediaAsset
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		asset, ok, err := in.ingestPath(ctx, path)
		if err != nil {
			return stored, err
		}
		if ok {
			stored = append(stored, asset)
		}
	}
	return stored, nil
}

func (in *Ingester) ingestPath(ctx context.Context, path string) (types.MediaAsset, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.MediaAsset{}, false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return in.IngestReader(ctx, filepath.Base(path), f)
}

// IngestReader reads one file. It returns ok=false when the content is not an image.
func (in *Ingester) IngestReader(ctx context.Context, name string, r io.Reader) (types.MediaAsset, bool, error) {
	if in.maxSize > 0 {
		r = io.LimitReader(r, in.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return types.MediaAsset{}, false, fmt.Errorf("read %s: %w", name, err)
	}
	if in.maxSize > 0 && int64(len(data)) > in.maxSize {
		return types.MediaAsset{}, false, fmt.Errorf("%s over %d bytes: %w", name, in.maxSize, ErrTooLarge)
	}

	contentType := DetectImageType(name, data)
	if !strings.HasPrefix(contentType, "image/") {
		slog.Debug("skipping non-image file", "name", name, "content_type", contentType)
		return types.MediaAsset{}, false, nil
	}

	asset, err := in.target.AddMedia(ctx, intake.MediaForm{
		Name:        name,
		ContentType: contentType,
		DataURL:     DataURL(contentType, data),
	})
	if err != nil {
		return types.MediaAsset{}, false, err
	}
	slog.Info("media stored", "id", asset.ID, "name", name, "bytes", len(data))
	return asset, true, nil
}

// DetectImageType sniffs the content, falling back to the file extension for
// formats http.DetectContentType does not know (svg).
func DetectImageType(name string, data []byte) string {
	ct := http.DetectContentType(data[:min(len(data), sniffLen)])
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	if strings.EqualFold(filepath.Ext(name), ".svg") {
		return "image/svg+xml"
	}
	return ct
}

// DataURL encodes data as "data:<contentType>;base64,<payload>".
func DataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
