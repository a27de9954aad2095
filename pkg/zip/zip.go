// Package zip bundles generated assets into a single download.
package zip

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// ManifestName is the archive entry holding the optional manifest.
const ManifestName = "storyboard.json"

// Write streams assets to w. Media that is already compressed is stored
// as-is; a non-nil manifest is written as indented JSON first.
func Write(w io.Writer, assets []Asset, manifest any, modified time.Time) error {
	zw := zip.NewWriter(w)
	if manifest != nil {
		raw, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return fmt.Errorf("zip: encode manifest: %w", err)
		}
		if err := writeEntry(zw, ManifestName, zip.Deflate, raw, modified); err != nil {
			return err
		}
	}
	seen := make(map[string]struct{}, len(assets))
	for _, asset := range assets {
		if _, dup := seen[asset.Filename]; dup {
			return fmt.Errorf("zip: duplicate entry %q", asset.Filename)
		}
		seen[asset.Filename] = struct{}{}
		method := zip.Deflate
		if compressed(asset.MIME) {
			method = zip.Store
		}
		if err := writeEntry(zw, asset.Filename, method, asset.Data, modified); err != nil {
			return err
		}
	}
	return zw.Close()
}

func writeEntry(zw *zip.Writer, name string, method uint16, data []byte, modified time.Time) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method, Modified: modified})
	if err != nil {
		return fmt.Errorf("zip: create %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("zip: write %s: %w", name, err)
	}
	return nil
}

func compressed(mime string) bool {
	mime = strings.ToLower(mime)
	return strings.HasPrefix(mime, "image/png") ||
		strings.HasPrefix(mime, "image/jpeg") ||
		strings.HasPrefix(mime, "video/")
}
