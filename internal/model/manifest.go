package model

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Manifest is the model descriptor, shaped after a Live2D model3.json:
// file references are relative to the manifest and motions are named groups.
type Manifest struct {
	Version        int            `json:"Version"`
	FileReferences FileReferences `json:"FileReferences"`
}

type FileReferences struct {
	Skeleton string                 `json:"Skeleton"`
	Atlas    string                 `json:"Atlas"`
	Motions  map[string][]MotionRef `json:"Motions"`
}

// MotionRef points a motion group entry at a skeleton animation.
type MotionRef struct {
	Animation string `json:"Animation"`
}

func ParseManifest(data []byte) (*Manifest, error) {
	res := &Manifest{}
	if err := json.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if res.FileReferences.Skeleton == "" {
		return nil, fmt.Errorf("%w: missing FileReferences.Skeleton", ErrInvalidManifest)
	}
	if res.FileReferences.Atlas == "" {
		return nil, fmt.Errorf("%w: missing FileReferences.Atlas", ErrInvalidManifest)
	}
	return res, nil
}

// MotionAnimation resolves a motion group to the animation it plays.
// Names without a group fall through to an animation of the same name, as do
// all names on a nil manifest.
func (m *Manifest) MotionAnimation(name string) string {
	if m == nil {
		return name
	}
	for _, ref := range m.FileReferences.Motions[name] {
		if ref.Animation != "" {
			return ref.Animation
		}
	}
	return name
}

func isURL(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

// resolve returns ref relative to the directory of base.
func resolve(base, ref string) (string, error) {
	if isURL(ref) {
		return ref, nil
	}
	if isURL(base) {
		baseURL, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("parse %q: %w", base, err)
		}
		refURL, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("parse %q: %w", ref, err)
		}
		return baseURL.ResolveReference(refURL).String(), nil
	}
	if strings.HasPrefix(ref, "/") {
		return ref, nil
	}
	return path.Join(path.Dir(base), ref), nil
}
