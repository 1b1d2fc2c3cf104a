package model

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"
)

const fixtureManifest = `{
	"Version": 3,
	"FileReferences": {
		"Skeleton": "VT.skel.json",
		"Atlas": "VT.atlas",
		"Motions": {"Idle": [{"Animation": "idle"}]}
	}
}`

const fixtureSkel = `{
	"header": {"version": "3.8.99", "pos": [-50, 0], "size": [100, 200]},
	"bones": [
		{"name": "root", "parent_index": -1},
		{"name": "body", "parent_index": 0, "pos": [0, 100]}
	],
	"slots": [{"name": "body", "bone_index": 1, "attachment": "body"}],
	"skin": {"attachments": [{"name": "body", "slot_index": 0, "attachment_type": 0}]},
	"animations": [
		{"name": "idle", "duration": 1, "timelines": [
			{"timeline_type": 0, "bone_index": 1, "key_frames": [
				{"time": 0, "rotation": 0},
				{"time": 1, "rotation": 20}
			]}
		]},
		{"name": "wave", "duration": 1, "timelines": []}
	]
}`

const fixtureAtlas = `
VT.png
size: 4,4
format: RGBA8888
filter: Linear,Linear
repeat: none
body
  rotate: false
  xy: 0, 0
  size: 2, 3
  orig: 2, 3
  offset: 0, 0
  index: -1
`

func fixturePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// fixtureFS lays a complete model out under static/model/.
func fixtureFS(t *testing.T) fstest.MapFS {
	t.Helper()
	return fstest.MapFS{
		"static/model/VT.model3.json": {Data: []byte(fixtureManifest)},
		"static/model/VT.skel.json":   {Data: []byte(fixtureSkel)},
		"static/model/VT.atlas":       {Data: []byte(fixtureAtlas)},
		"static/model/VT.png":         {Data: fixturePNG(t)},
	}
}
