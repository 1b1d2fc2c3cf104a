package stage

import (
	"sync"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

type countNode struct {
	updates int
	elapsed time.Duration
}

func (n *countNode) Update(dt time.Duration) {
	n.updates++
	n.elapsed += dt
}

func (n *countNode) Draw(*ebiten.Image) {}

func TestReadyFiresOnce(t *testing.T) {
	s := New(800, 600)
	calls := 0
	s.OnReady(func() { calls++ })
	for i := 0; i < 3; i++ {
		if err := s.Update(); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("ready fired %d times, want 1", calls)
	}
}

func TestInitialSizeAndLayout(t *testing.T) {
	s := New(800, 600)
	if s.Width() != 800 || s.Height() != 600 {
		t.Fatalf("initial size = %dx%d", s.Width(), s.Height())
	}
	var resized int
	s.OnResize(func(w, h int) { resized++ })

	if w, h := s.Layout(1280, 720); w != 1280 || h != 720 {
		t.Errorf("Layout returned %dx%d, want outside size", w, h)
	}
	s.Update()
	if s.Width() != 1280 || s.Height() != 720 {
		t.Errorf("size after first layout = %dx%d, want 1280x720", s.Width(), s.Height())
	}
	if resized != 0 {
		t.Errorf("first layout fired %d resize events, want 0", resized)
	}
}

func TestResizeFiresOnChange(t *testing.T) {
	s := New(800, 600)
	var got [][2]int
	var readyW int
	s.OnReady(func() { readyW = s.Width() })
	s.OnResize(func(w, h int) {
		if s.Width() != w || s.Height() != h {
			t.Errorf("handler saw stage %dx%d, event %dx%d", s.Width(), s.Height(), w, h)
		}
		got = append(got, [2]int{w, h})
	})

	s.Layout(1280, 720)
	s.Update()
	if readyW != 1280 {
		t.Errorf("ready saw width %d, want the laid out 1280", readyW)
	}

	s.Layout(1280, 720)
	s.Update()
	s.Layout(1000, 500)
	s.Update()
	s.Layout(1000, 500)
	s.Update()
	s.Layout(640, 480)
	s.Update()

	want := [][2]int{{1000, 500}, {640, 480}}
	if len(got) != len(want) {
		t.Fatalf("resize events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPostRunsOnNextUpdate(t *testing.T) {
	s := New(10, 10)
	var wg sync.WaitGroup
	ran := 0
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Post(func() { ran++ })
		}()
	}
	wg.Wait()
	if ran != 0 {
		t.Fatalf("posted functions ran before Update")
	}
	s.Update()
	if ran != 4 {
		t.Errorf("ran %d posted functions, want 4", ran)
	}
	s.Update()
	if ran != 4 {
		t.Errorf("posted functions ran twice")
	}
}

func TestChildrenUpdated(t *testing.T) {
	s := New(10, 10)
	a, b := &countNode{}, &countNode{}
	s.AddChild(a)
	s.AddChild(b)
	s.Update()
	s.RemoveChild(a)
	s.Update()

	if a.updates != 1 || b.updates != 2 {
		t.Errorf("updates a=%d b=%d, want 1 and 2", a.updates, b.updates)
	}
	if want := 2 * (time.Second / time.Duration(ebiten.DefaultTPS)); b.elapsed != want {
		t.Errorf("elapsed = %v, want %v", b.elapsed, want)
	}
	if len(s.Children()) != 1 || s.Children()[0] != b {
		t.Errorf("children = %v", s.Children())
	}
}
