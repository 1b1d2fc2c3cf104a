package overlay

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"vtoverlay/internal/config"
	"vtoverlay/internal/stage"
)

type fakeCharacter struct {
	pos       [2]float32
	anchor    [2]float32
	scale     float32
	motion    string
	motionErr error
	moves     int
}

func (f *fakeCharacter) Update(time.Duration)     {}
func (f *fakeCharacter) Draw(*ebiten.Image)       {}
func (f *fakeCharacter) SetAnchor(x, y float32)   { f.anchor = [2]float32{x, y} }
func (f *fakeCharacter) SetScale(s float32)       { f.scale = s }
func (f *fakeCharacter) SetPosition(x, y float32) { f.pos = [2]float32{x, y}; f.moves++ }

func (f *fakeCharacter) Motion(name string) error {
	if f.motionErr != nil {
		return f.motionErr
	}
	f.motion = name
	return nil
}

// gatedLoader blocks every load until release is closed.
type gatedLoader struct {
	release  chan struct{}
	model    *fakeCharacter
	err      error
	locators chan string
}

func newGatedLoader(m *fakeCharacter, err error) *gatedLoader {
	return &gatedLoader{release: make(chan struct{}), model: m, err: err, locators: make(chan string, 4)}
}

func (g *gatedLoader) Load(ctx context.Context, locator string) (Character, error) {
	g.locators <- locator
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.model, nil
}

// pump runs the stage until the controller's load has settled.
func pump(t *testing.T, st *stage.Stage, c *Controller) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if err := st.Update(); err != nil {
			t.Fatalf("Update: %v", err)
		}
		select {
		case <-c.Done():
			return
		case <-deadline:
			t.Fatal("load did not settle")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func newStage(w, h int) *stage.Stage {
	st := stage.New(w, h)
	st.Layout(w, h)
	return st
}

func TestReadyPlacesModel(t *testing.T) {
	cfg := config.Default()
	st := newStage(1280, 720)
	char := &fakeCharacter{}
	loader := newGatedLoader(char, nil)
	close(loader.release)
	c := New(cfg, st, loader.Load)
	c.AttachListeners()
	defer c.Close()

	pump(t, st, c)

	if got := <-loader.locators; got != cfg.ModelPath {
		t.Errorf("loaded %q, want %q", got, cfg.ModelPath)
	}
	if !c.Loaded() || c.Err() != nil {
		t.Fatalf("loaded=%v err=%v", c.Loaded(), c.Err())
	}
	if c.Model() != Character(char) {
		t.Error("Model() is not the loaded character")
	}
	if char.pos != [2]float32{640, 720 + 660} {
		t.Errorf("position = %v, want (640, 1380)", char.pos)
	}
	if char.anchor != [2]float32{0.5, 1} {
		t.Errorf("anchor = %v, want (0.5, 1)", char.anchor)
	}
	if char.scale != 0.35 {
		t.Errorf("scale = %v, want 0.35", char.scale)
	}
	if char.motion != "Idle" {
		t.Errorf("motion = %q, want Idle", char.motion)
	}
	if n := len(st.Children()); n != 1 {
		t.Errorf("stage has %d children, want 1", n)
	}
}

func TestResizeAfterLoad(t *testing.T) {
	st := newStage(1280, 720)
	char := &fakeCharacter{}
	loader := newGatedLoader(char, nil)
	close(loader.release)
	c := New(config.Default(), st, loader.Load)
	c.AttachListeners()
	pump(t, st, c)

	st.Layout(1000, 800)
	st.Update()
	if char.pos != [2]float32{500, 600} {
		t.Fatalf("position after resize = %v, want (500, 600)", char.pos)
	}

	// same size again: no event, no drift
	for i := 0; i < 3; i++ {
		st.Layout(1000, 800)
		st.Update()
	}
	if char.pos != [2]float32{500, 600} {
		t.Errorf("position drifted to %v", char.pos)
	}
}

func TestResizeIsIdempotent(t *testing.T) {
	char := &fakeCharacter{}
	c := New(config.Default(), newStage(10, 10), nil)
	c.model, c.loaded = char, true
	for i := 0; i < 5; i++ {
		c.handleResize(1920, 1080)
		if char.pos != [2]float32{960, 810} {
			t.Fatalf("call %d: position = %v, want (960, 810)", i, char.pos)
		}
	}
}

func TestResizeBeforeLoadIsIgnored(t *testing.T) {
	st := newStage(1280, 720)
	char := &fakeCharacter{}
	loader := newGatedLoader(char, nil)
	c := New(config.Default(), st, loader.Load)
	c.AttachListeners()

	st.Update() // ready, load now blocked
	<-loader.locators
	st.Layout(900, 600)
	st.Update()
	if char.moves != 0 || len(st.Children()) != 0 {
		t.Fatalf("resize touched an unloaded model: moves=%d children=%d", char.moves, len(st.Children()))
	}

	close(loader.release)
	pump(t, st, c)
	// placement uses the size current at load completion
	if char.pos != [2]float32{450, 600 + 660} {
		t.Errorf("position = %v, want (450, 1260)", char.pos)
	}
}

func TestLoadFailureLeavesStageRunning(t *testing.T) {
	st := newStage(1280, 720)
	loadErr := errors.New("404 Not Found")
	loader := newGatedLoader(nil, loadErr)
	close(loader.release)
	c := New(config.Default(), st, loader.Load)
	c.AttachListeners()
	pump(t, st, c)

	if c.Loaded() || c.Model() != nil {
		t.Fatal("model attached after failed load")
	}
	if !errors.Is(c.Err(), loadErr) {
		t.Errorf("Err() = %v, want %v", c.Err(), loadErr)
	}
	if len(st.Children()) != 0 {
		t.Errorf("stage has %d children after failed load", len(st.Children()))
	}

	st.Layout(800, 600)
	for i := 0; i < 3; i++ {
		if err := st.Update(); err != nil {
			t.Fatalf("stage stopped after failed load: %v", err)
		}
	}
}

func TestNilModelIsAnError(t *testing.T) {
	st := newStage(100, 100)
	c := New(config.Default(), st, func(context.Context, string) (Character, error) { return nil, nil })
	c.AttachListeners()
	pump(t, st, c)
	if c.Err() == nil || c.Loaded() {
		t.Errorf("err=%v loaded=%v, want failure", c.Err(), c.Loaded())
	}
}

func TestMissingIdleMotionStillAttaches(t *testing.T) {
	st := newStage(1280, 720)
	char := &fakeCharacter{motionErr: fmt.Errorf("motion not found: Idle")}
	loader := newGatedLoader(char, nil)
	close(loader.release)
	c := New(config.Default(), st, loader.Load)
	c.AttachListeners()
	pump(t, st, c)

	if !c.Loaded() || len(st.Children()) != 1 {
		t.Errorf("loaded=%v children=%d, want attached model", c.Loaded(), len(st.Children()))
	}
}

func TestLoadTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.LoadTimeout = 10 * time.Millisecond
	st := newStage(100, 100)
	loader := newGatedLoader(&fakeCharacter{}, nil)
	c := New(cfg, st, loader.Load)
	c.AttachListeners()
	pump(t, st, c)
	if !errors.Is(c.Err(), context.DeadlineExceeded) {
		t.Errorf("Err() = %v, want deadline exceeded", c.Err())
	}
}

func TestCloseCancelsLoad(t *testing.T) {
	st := newStage(100, 100)
	loader := newGatedLoader(&fakeCharacter{}, nil)
	c := New(config.Default(), st, loader.Load)
	c.AttachListeners()
	st.Update()
	<-loader.locators
	c.Close()
	pump(t, st, c)
	if !errors.Is(c.Err(), context.Canceled) {
		t.Errorf("Err() = %v, want canceled", c.Err())
	}
}

func TestAttachListenersTwice(t *testing.T) {
	st := newStage(100, 100)
	loader := newGatedLoader(&fakeCharacter{}, nil)
	close(loader.release)
	c := New(config.Default(), st, loader.Load)
	c.AttachListeners()
	c.AttachListeners()
	pump(t, st, c)
	st.Update()
	if len(loader.locators) != 1 {
		t.Errorf("loads started = %d, want 1", len(loader.locators))
	}
	if len(st.Children()) != 1 {
		t.Errorf("children = %d, want 1", len(st.Children()))
	}
}
