// Package overlay places a character model on a stage: it loads the model once
// the stage is ready, gives it its initial placement and idle motion, and
// re-places it whenever the stage is resized.
package overlay

import (
	"context"
	"errors"
	"time"

	"vtoverlay/internal/config"
	"vtoverlay/internal/log"
	"vtoverlay/internal/stage"
)

var errNoModel = errors.New("loader returned no model")

// Surface is the part of a stage the controller drives.
type Surface interface {
	Width() int
	Height() int
	AddChild(stage.Node)
	OnReady(func())
	OnResize(func(w, h int))
	Post(func())
}

// Character is a loaded, placeable model.
type Character interface {
	stage.Node
	SetPosition(x, y float32)
	SetAnchor(x, y float32)
	SetScale(s float32)
	Motion(name string) error
}

// LoadFunc produces a character from an asset locator. It runs off the game
// goroutine.
type LoadFunc func(ctx context.Context, locator string) (Character, error)

// Controller owns the surface and the optional model reference. Apart from
// construction, Close and Done, its methods run on the surface's game
// goroutine; the async load hands its result back through Surface.Post.
type Controller struct {
	cfg     config.Config
	surface Surface
	load    LoadFunc

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	attached bool
	started  bool
	loaded   bool
	model    Character
	err      error
}

func New(cfg config.Config, surface Surface, load LoadFunc) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:     cfg,
		surface: surface,
		load:    load,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// AttachListeners registers the ready and resize handlers. Repeated calls do nothing.
func (c *Controller) AttachListeners() {
	if c.attached {
		return
	}
	c.attached = true
	c.surface.OnReady(c.handleReady)
	c.surface.OnResize(c.handleResize)
}

func (c *Controller) handleReady() {
	if c.started {
		return
	}
	c.started = true
	locator := c.cfg.ModelPath
	log.Info("loading model", "locator", locator)
	go func() {
		ctx, cancel := c.ctx, context.CancelFunc(func() {})
		if c.cfg.LoadTimeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, c.cfg.LoadTimeout)
		}
		defer cancel()
		start := time.Now()
		m, err := c.load(ctx, locator)
		elapsed := time.Since(start)
		c.surface.Post(func() {
			c.finishLoad(m, err, elapsed)
		})
	}()
}

func (c *Controller) finishLoad(m Character, err error, elapsed time.Duration) {
	defer close(c.done)
	if err == nil && m == nil {
		err = errNoModel
	}
	if err != nil {
		c.err = err
		log.Error("model load failed", "locator", c.cfg.ModelPath, "err", err)
		return
	}
	c.surface.AddChild(m)
	m.SetAnchor(c.cfg.AnchorX, c.cfg.AnchorY)
	m.SetScale(c.cfg.Scale)
	m.SetPosition(float32(c.surface.Width())/2, float32(c.surface.Height())+c.cfg.OffsetY)
	if err := m.Motion(c.cfg.IdleMotion); err != nil {
		log.Warn("idle motion not started", "motion", c.cfg.IdleMotion, "err", err)
	}
	c.model = m
	c.loaded = true
	log.Info("model ready", "locator", c.cfg.ModelPath, "elapsed", elapsed)
}

// handleResize is a no-op until the model has loaded.
func (c *Controller) handleResize(w, h int) {
	if !c.loaded {
		log.Debug("resize before model load ignored", "width", w, "height", h)
		return
	}
	c.model.SetPosition(float32(w)/2, float32(h)*c.cfg.ResizeFactorY)
}

// Model returns the loaded model, or nil before a successful load.
func (c *Controller) Model() Character {
	return c.model
}

func (c *Controller) Loaded() bool {
	return c.loaded
}

// Err returns the load error, if the load failed.
func (c *Controller) Err() error {
	return c.err
}

// Done is closed once the load has settled and its result has been applied.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Close cancels a load still in flight.
func (c *Controller) Close() {
	c.cancel()
}
