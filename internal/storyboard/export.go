package storyboard

import (
	"context"
	"fmt"

	"adstory/internal/audio"
	"adstory/internal/domain"
	"adstory/internal/storage"
	"adstory/pkg/zip"
)

// Download is a ready asset rendered for the user.
type Download struct {
	Filename string
	MIME     string
	Data     []byte
}

// DownloadName follows the adstory_<kind>_<n> convention, numbering from 1.
func DownloadName(kind domain.AssetKind, scene int) string {
	n := scene + 1
	switch kind {
	case domain.AssetKindImage:
		return fmt.Sprintf("adstory_image_%d.png", n)
	case domain.AssetKindAudio:
		return fmt.Sprintf("adstory_vo_%d.wav", n)
	default:
		return fmt.Sprintf("adstory_video_%d.mp4", n)
	}
}

// Render turns a ready asset into its downloadable form. Speech is wrapped
// in a WAV header; images and videos pass through.
func Render(asset domain.Asset, scene, sampleRate int) (Download, error) {
	if !asset.Ready() {
		return Download{}, fmt.Errorf("%w: scene %d %s is %s", domain.ErrNotFound, scene, asset.Kind, asset.State)
	}
	d := Download{Filename: DownloadName(asset.Kind, scene), MIME: asset.MIME, Data: asset.Data}
	switch asset.Kind {
	case domain.AssetKindAudio:
		d.MIME = "audio/wav"
		d.Data = audio.EncodeWAV(asset.Data, sampleRate)
	case domain.AssetKindImage:
		if d.MIME == "" {
			d.MIME = "image/png"
		}
	case domain.AssetKindVideo:
		d.MIME = "video/mp4"
	}
	return d, nil
}

// Bundle collects every ready asset of a view for a zip export.
func Bundle(v View, sampleRate int) []zip.Asset {
	var out []zip.Asset
	for _, sv := range v.Scenes {
		for _, kind := range domain.AssetKinds {
			d, err := Render(sv.Assets[kind], sv.Scene.Index, sampleRate)
			if err != nil {
				continue
			}
			out = append(out, zip.Asset{Filename: d.Filename, MIME: d.MIME, Data: d.Data})
		}
	}
	return out
}

// FileSink writes ready assets under Prefix, one directory per scene.
type FileSink struct {
	Files      *storage.FileStore
	Prefix     string
	SampleRate int
}

func (s *FileSink) Persist(ctx context.Context, scene int, kind domain.AssetKind, media domain.Media) error {
	d, err := Render(domain.Asset{Kind: kind, State: domain.AssetStateReady, Data: media.Data, MIME: media.MIME}, scene, s.SampleRate)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s/scene-%02d/%s", s.Prefix, scene+1, d.Filename)
	_, err = s.Files.Write(ctx, key, d.Data)
	return err
}
