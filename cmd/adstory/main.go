// Command adstory drafts a storyboard from product photos and renders its
// assets without the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"adstory/internal/audio"
	"adstory/internal/domain"
	"adstory/internal/domain/jsoncfg"
	"adstory/internal/infra"
	"adstory/internal/infra/credentials"
	"adstory/internal/jobs"
	"adstory/internal/providers"
	"adstory/internal/storage"
	"adstory/internal/storyboard"
	"adstory/pkg/zip"
)

const cliDevice = "cli"

type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }
func (f *fileList) Set(v string) error { *f = append(*f, v); return nil }

type options struct {
	products fileList
	model    string
	plan     jsoncfg.PlanOptions
	outDir   string
	animate  bool
	narrate  bool
	play     bool
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.Var(&opts.products, "product", "product photo (repeat up to 3 times)")
	flag.StringVar(&opts.model, "model", "", "optional model photo")
	flag.StringVar(&opts.plan.Style, "style", domain.DefaultStyleKey, "content style: cinematic, ugc, faceless or model")
	flag.StringVar(&opts.plan.Language, "language", domain.DefaultLanguage, "narration language (BCP 47)")
	flag.StringVar(&opts.plan.AspectRatio, "aspect", domain.DefaultAspectRatio, "aspect ratio: 1:1, 9:16 or 16:9")
	flag.StringVar(&opts.plan.Voice, "voice", string(domain.DefaultVoice), "narration voice")
	flag.BoolVar(&opts.plan.PreserveFace, "preserve-face", false, "keep the model's face from the model photo")
	flag.StringVar(&opts.outDir, "out", "./out", "directory for the exported zip")
	flag.BoolVar(&opts.animate, "animate", false, "animate every scene once its image is ready")
	flag.BoolVar(&opts.narrate, "narrate", true, "narrate every scene")
	flag.BoolVar(&opts.play, "play", false, "play each narration with ffplay")
	flag.Parse()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, opts); err != nil {
		logger.Error().Err(err).Str("code", domain.ErrorCode(err)).Msg("adstory: failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *infra.Config, logger infra.Logger, opts options) error {
	profile, err := infra.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return err
	}
	catalog := profile.Catalog()

	opts.plan.Normalize("")
	if err := opts.plan.Validate(catalog); err != nil {
		return err
	}
	if len(opts.products) == 0 || len(opts.products) > jsoncfg.MaxProductImages {
		return fmt.Errorf("between 1 and %d -product photos required", jsoncfg.MaxProductImages)
	}
	products := make([]domain.ReferenceImage, 0, len(opts.products))
	for _, path := range opts.products {
		img, err := readImage(path)
		if err != nil {
			return err
		}
		products = append(products, img)
	}
	var model *domain.ReferenceImage
	if opts.model != "" {
		img, err := readImage(opts.model)
		if err != nil {
			return err
		}
		model = &img
	}

	keys := credentials.NewMemoryStore("")
	resolver := &credentials.Resolver{Store: keys, DefaultKey: cfg.GeminiAPIKey}
	provider, err := providers.New(cfg, resolver.Resolve, &logger)
	if err != nil {
		return err
	}

	files, err := storage.NewFileStore(opts.outDir)
	if err != nil {
		return err
	}
	projects := storyboard.NewRegistry(storyboard.RegistryOptions{
		Provider:    provider,
		Logger:      logger,
		Base:        ctx,
		SampleRate:  cfg.AudioSampleRate,
		FanOutLimit: cfg.FanOutLimit,
		Jobs: jobs.Options{
			PollInterval:     cfg.VideoPollInterval,
			PollTimeout:      cfg.VideoPollTimeout,
			MaxPolls:         cfg.VideoMaxPolls,
			ProgressInterval: cfg.ProgressInterval,
			ProgressMessages: profile.ProgressMessages,
		},
		Notify: func(_ string, scene int, kind domain.AssetKind, err error) {
			fmt.Fprintf(os.Stderr, "scene %d %s failed: %v\n", scene+1, kind, err)
		},
	})

	settings := storyboard.Settings{
		Style:        catalog.Style(opts.plan.Style),
		Language:     catalog.MatchLanguage(opts.plan.Language),
		AspectRatio:  opts.plan.AspectRatio,
		Voice:        catalog.Voice(opts.plan.Voice),
		PreserveFace: opts.plan.PreserveFace,
		ProductImage: &products[0],
		ModelImage:   model,
	}
	plan, err := provider.GeneratePlan(ctx, domain.PlanRequest{
		ProductImages: products,
		ModelImage:    model,
		Style:         settings.Style,
		Language:      settings.Language,
	})
	if err != nil {
		return fmt.Errorf("generate plan: %w", err)
	}
	if err := jsoncfg.ValidatePlan(plan); err != nil {
		return err
	}
	fmt.Printf("%s\n%s\n\n", plan.ContentTitle, plan.KillerHook)

	project, err := projects.Create(ctx, cliDevice, plan, settings)
	if err != nil {
		return err
	}
	o := project.Orchestrator
	if err := o.Wait(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, scene := range plan.Scenes {
		if opts.narrate {
			g.Go(func() error {
				_, _ = o.Narrate(gctx, scene.Index)
				return nil
			})
		}
		if opts.animate {
			g.Go(func() error {
				_, _ = o.Animate(gctx, scene.Index)
				return nil
			})
		}
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	view := o.Snapshot()
	printSummary(view)

	if opts.play {
		player := audio.NewFFPlay()
		for _, sv := range view.Scenes {
			vo := sv.Assets[domain.AssetKindAudio]
			if !vo.Ready() {
				continue
			}
			fmt.Printf("playing scene %d (%s)\n", sv.Scene.Number, audio.Duration(vo.Data, cfg.AudioSampleRate).Round(100*time.Millisecond))
			if err := audio.Play(ctx, player, vo.Data, cfg.AudioSampleRate); err != nil {
				logger.Warn().Err(err).Int("scene", sv.Scene.Index).Msg("adstory: playback failed")
				break
			}
		}
	}

	bundle := storyboard.Bundle(view, cfg.AudioSampleRate)
	if len(bundle) == 0 {
		return errors.New("no asset was generated")
	}
	name := fmt.Sprintf("adstory_%s.zip", time.Now().Format("20060102_150405"))
	path := filepath.Join(files.BasePath(), name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := zip.Write(f, bundle, plan, time.Now()); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("\nexported %d assets to %s\n", len(bundle), path)
	return nil
}

func readImage(path string) (domain.ReferenceImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ReferenceImage{}, fmt.Errorf("read %s: %w", path, err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return domain.ReferenceImage{}, fmt.Errorf("%s is not an image (%s)", path, mime)
	}
	return domain.ReferenceImage{Filename: filepath.Base(path), MIME: mime, Data: data}, nil
}

func printSummary(v storyboard.View) {
	for _, sv := range v.Scenes {
		fmt.Printf("scene %d: %s\n", sv.Scene.Number, sv.Scene.TextOverlay)
		for _, kind := range domain.AssetKinds {
			asset := sv.Assets[kind]
			line := string(asset.State)
			if asset.ErrorCode != "" {
				line += " (" + asset.ErrorCode + ")"
			}
			fmt.Printf("  %-5s %s\n", kind, line)
		}
	}
}
