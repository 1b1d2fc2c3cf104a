// Package stage is the rendering surface: an ebiten game that owns a display
// tree, tracks the live outside size and turns the game loop into ready and
// resize events.
package stage

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"vtoverlay/internal/log"
)

// Node is anything placed in the display tree.
type Node interface {
	Update(dt time.Duration)
	Draw(dst *ebiten.Image)
}

// Stage implements ebiten.Game. Everything except Post and Layout must be
// called from the game goroutine.
type Stage struct {
	// Debug prints frame statistics in the top-left corner.
	Debug bool

	width, height int
	children      []Node

	ready          bool
	sized          bool
	readyHandlers  []func()
	resizeHandlers []func(w, h int)

	mu       sync.Mutex
	posted   []func()
	laidOut  bool
	outsideW int
	outsideH int
}

// New returns a stage reporting width x height until the first layout.
func New(width, height int) *Stage {
	return &Stage{width: width, height: height}
}

func (s *Stage) Width() int {
	return s.width
}

func (s *Stage) Height() int {
	return s.height
}

func (s *Stage) AddChild(n Node) {
	s.children = append(s.children, n)
}

func (s *Stage) RemoveChild(n Node) {
	s.children = slices.DeleteFunc(s.children, func(c Node) bool { return c == n })
}

func (s *Stage) Children() []Node {
	return s.children
}

// OnReady registers fn to run once, on the first Update.
func (s *Stage) OnReady(fn func()) {
	s.readyHandlers = append(s.readyHandlers, fn)
}

// OnResize registers fn to run on the Update after each change of the outside
// size. The initial size does not count as a resize.
func (s *Stage) OnResize(fn func(w, h int)) {
	s.resizeHandlers = append(s.resizeHandlers, fn)
}

// Post queues fn to run on the game goroutine at the start of the next
// Update. It is safe to call from any goroutine.
func (s *Stage) Post(fn func()) {
	s.mu.Lock()
	s.posted = append(s.posted, fn)
	s.mu.Unlock()
}

func (s *Stage) Update() error {
	s.mu.Lock()
	posted := s.posted
	s.posted = nil
	w, h, laidOut := s.outsideW, s.outsideH, s.laidOut
	s.mu.Unlock()

	if laidOut && !s.sized {
		s.sized = true
		s.width, s.height = w, h
	}
	if !s.ready {
		s.ready = true
		for _, fn := range s.readyHandlers {
			fn()
		}
	}
	for _, fn := range posted {
		fn()
	}
	if s.sized && (w != s.width || h != s.height) {
		log.Debug("stage resized", "from", fmt.Sprintf("%dx%d", s.width, s.height), "to", fmt.Sprintf("%dx%d", w, h))
		s.width, s.height = w, h
		for _, fn := range s.resizeHandlers {
			fn(w, h)
		}
	}

	dt := tickDuration()
	for _, child := range s.children {
		child.Update(dt)
	}
	return nil
}

func (s *Stage) Draw(screen *ebiten.Image) {
	screen.Clear()
	for _, child := range s.children {
		child.Draw(screen)
	}
	if s.Debug {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("TPS: %0.2f\nFPS: %0.2f\n%dx%d",
			ebiten.ActualTPS(), ebiten.ActualFPS(), s.width, s.height))
	}
}

// Layout keeps the logical screen equal to the outside size. The first size
// is adopted silently by the next Update; later changes fire resize handlers.
func (s *Stage) Layout(outsideWidth, outsideHeight int) (int, int) {
	s.mu.Lock()
	s.laidOut = true
	s.outsideW, s.outsideH = outsideWidth, outsideHeight
	s.mu.Unlock()
	return outsideWidth, outsideHeight
}

func tickDuration() time.Duration {
	tps := ebiten.TPS()
	if tps <= 0 {
		tps = ebiten.DefaultTPS
	}
	return time.Second / time.Duration(tps)
}
