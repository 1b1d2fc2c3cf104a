package main

import (
	"context"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"vtoverlay/internal/config"
	"vtoverlay/internal/log"
	"vtoverlay/internal/model"
	"vtoverlay/internal/overlay"
	"vtoverlay/internal/stage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(2)
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn("unknown log level, keeping info", "level", cfg.LogLevel)
	} else {
		log.SetLevel(level)
	}

	ebiten.SetWindowTitle("vtoverlay")
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowDecorated(false)
	ebiten.SetWindowFloating(true)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowMousePassthrough(cfg.ClickThrough)

	st := stage.New(cfg.Width, cfg.Height)
	st.Debug = cfg.Debug

	loader := model.NewLoader(os.DirFS(cfg.AssetRoot))
	ctrl := overlay.New(cfg, st, func(ctx context.Context, locator string) (overlay.Character, error) {
		m, err := loader.Load(ctx, locator)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
	ctrl.AttachListeners()
	defer ctrl.Close()

	err = ebiten.RunGameWithOptions(st, &ebiten.RunGameOptions{ScreenTransparent: true})
	if err != nil {
		log.Error("overlay stopped", "err", err)
		os.Exit(1)
	}
}
