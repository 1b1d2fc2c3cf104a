package model

import (
	"context"
	"errors"
	"image"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"vtoverlay/internal/spine"
)

func loadFixture(t *testing.T) *Model {
	t.Helper()
	m, err := NewLoader(fixtureFS(t)).Load(context.Background(), "static/model/VT.model3.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func near(a, b mgl32.Vec2) bool {
	return a.Sub(b).Len() < 1e-3
}

func TestAnchorLandsOnPosition(t *testing.T) {
	m := loadFixture(t)
	m.SetAnchor(0.5, 1)
	m.SetScale(0.35)
	m.SetPosition(640, 1380)

	// bounds are x in [-50,50], y in [0,200]; bottom-center is the origin
	if got := m.ToScreen(mgl32.Vec2{0, 0}); !near(got, mgl32.Vec2{640, 1380}) {
		t.Errorf("bottom-center maps to %v, want (640,1380)", got)
	}
	if got := m.ToScreen(mgl32.Vec2{0, 200}); !near(got, mgl32.Vec2{640, 1310}) {
		t.Errorf("top-center maps to %v, want (640,1310)", got)
	}
	if got := m.ToScreen(mgl32.Vec2{50, 0}); !near(got, mgl32.Vec2{657.5, 1380}) {
		t.Errorf("bottom-right maps to %v, want (657.5,1380)", got)
	}

	m.SetAnchor(0, 0)
	if got := m.ToScreen(mgl32.Vec2{-50, 200}); !near(got, mgl32.Vec2{640, 1380}) {
		t.Errorf("top-left anchor maps to %v, want (640,1380)", got)
	}
}

func TestMotion(t *testing.T) {
	m := loadFixture(t)
	if err := m.Motion("Idle"); err != nil {
		t.Fatalf("Motion(Idle): %v", err)
	}
	if m.CurrentMotion() != "Idle" {
		t.Errorf("motion = %q, want Idle", m.CurrentMotion())
	}

	err := m.Motion("Dance")
	if !errors.Is(err, ErrMotionNotFound) {
		t.Fatalf("Motion(Dance) err = %v, want ErrMotionNotFound", err)
	}
	if m.CurrentMotion() != "Idle" {
		t.Errorf("failed motion replaced current: %q", m.CurrentMotion())
	}

	// animations without a group are reachable by name
	if err := m.Motion("wave"); err != nil {
		t.Errorf("Motion(wave): %v", err)
	}
}

func TestMotionWithoutManifest(t *testing.T) {
	skel, err := spine.ParseSkel(strings.NewReader(fixtureSkel))
	if err != nil {
		t.Fatalf("ParseSkel: %v", err)
	}
	atlas, err := spine.ParseAtlas(strings.NewReader(fixtureAtlas))
	if err != nil {
		t.Fatalf("ParseAtlas: %v", err)
	}
	m, err := New(nil, skel, atlas, image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Motion("idle"); err != nil {
		t.Errorf("Motion(idle): %v", err)
	}
	if err := m.Motion("Idle"); !errors.Is(err, ErrMotionNotFound) {
		t.Errorf("Motion(Idle) err = %v, want ErrMotionNotFound", err)
	}
}

func TestUpdateAdvancesMotion(t *testing.T) {
	m := loadFixture(t)
	if err := m.Motion("Idle"); err != nil {
		t.Fatalf("Motion: %v", err)
	}
	body := m.Skeleton.Bones[1]
	m.Update(500 * time.Millisecond)
	if math.Abs(float64(body.LocalRotate-10)) > 1e-3 {
		t.Errorf("rotate after 0.5s = %v, want 10", body.LocalRotate)
	}
	m.Update(250 * time.Millisecond)
	if math.Abs(float64(body.LocalRotate-15)) > 1e-3 {
		t.Errorf("rotate after 0.75s = %v, want 15", body.LocalRotate)
	}
}

func TestUpdateWithoutMotionKeepsSetupPose(t *testing.T) {
	m := loadFixture(t)
	m.Update(time.Second)
	if got := m.Skeleton.Bones[1].LocalRotate; got != 0 {
		t.Errorf("rotate = %v, want setup 0", got)
	}
}
