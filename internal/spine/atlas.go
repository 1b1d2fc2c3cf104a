package spine

import (
	"bufio"
	"fmt"
	"image"
	"image/draw"
	"io"
	"strconv"
	"strings"
)

type AtlasItem struct {
	Name         string
	Rotate       int // degrees the region was rotated when packed
	X, Y         int
	W, H         int
	OrigW, OrigH int
	OrigX, OrigY int
	Index        int
}

type AtlasHeader struct {
	Image            string
	W, H             int
	Format           string
	WFilter, HFilter string
	Repeat           string
}

// Atlas is a single-page libgdx text atlas.
type Atlas struct {
	Header *AtlasHeader
	Items  []*AtlasItem
}

// ParseAtlas reads the page header and its regions. Lines are "key: value"
// pairs; any other non-blank line starts the page (first) or a new region.
func ParseAtlas(r io.Reader) (*Atlas, error) {
	res := &Atlas{}
	var item *AtlasItem
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, isProp := strings.Cut(line, ":")
		if !isProp {
			if res.Header == nil {
				res.Header = &AtlasHeader{Image: line}
				continue
			}
			if item != nil {
				if err := finishAtlasItem(item); err != nil {
					return nil, err
				}
			}
			item = &AtlasItem{Name: line, Index: -1}
			res.Items = append(res.Items, item)
			continue
		}
		if res.Header == nil {
			return nil, fmt.Errorf("%w: line %d: property before page name", ErrInvalidAtlas, lineNo)
		}
		key = strings.TrimSpace(key)
		var err error
		if item == nil {
			err = parseAtlasHeader(res.Header, key, value)
		} else {
			err = parseAtlasItem(item, key, value)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidAtlas, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAtlas, err)
	}
	if res.Header == nil {
		return nil, fmt.Errorf("%w: no page", ErrInvalidAtlas)
	}
	if item != nil {
		if err := finishAtlasItem(item); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func parseAtlasHeader(header *AtlasHeader, key, value string) error {
	switch key {
	case "size":
		size, err := parseIntList(value, 2)
		if err != nil {
			return err
		}
		header.W, header.H = size[0], size[1]
	case "format":
		header.Format = strings.TrimSpace(value)
	case "filter":
		filter := parseStrList(value)
		header.WFilter = filter[0]
		if len(filter) > 1 {
			header.HFilter = filter[1]
		}
	case "repeat":
		header.Repeat = strings.TrimSpace(value)
	}
	return nil
}

func parseAtlasItem(item *AtlasItem, key, value string) error {
	switch key {
	case "rotate":
		value = strings.TrimSpace(value)
		switch value {
		case "true":
			item.Rotate = 90
		case "false":
			item.Rotate = 0
		default:
			deg, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("rotate %q: %w", value, err)
			}
			item.Rotate = deg
		}
	case "xy":
		xy, err := parseIntList(value, 2)
		if err != nil {
			return err
		}
		item.X, item.Y = xy[0], xy[1]
	case "size":
		size, err := parseIntList(value, 2)
		if err != nil {
			return err
		}
		item.W, item.H = size[0], size[1]
	case "orig":
		orig, err := parseIntList(value, 2)
		if err != nil {
			return err
		}
		item.OrigW, item.OrigH = orig[0], orig[1]
	case "offset":
		offset, err := parseIntList(value, 2)
		if err != nil {
			return err
		}
		item.OrigX, item.OrigY = offset[0], offset[1]
	case "index":
		index, err := parseIntList(value, 1)
		if err != nil {
			return err
		}
		item.Index = index[0]
	}
	return nil
}

// finishAtlasItem fills defaults and converts sizes to packed orientation.
func finishAtlasItem(item *AtlasItem) error {
	switch item.Rotate {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("%w: region %q: unsupported rotate %d", ErrInvalidAtlas, item.Name, item.Rotate)
	}
	if item.OrigW == 0 && item.OrigH == 0 {
		item.OrigW, item.OrigH = item.W, item.H
	}
	if item.Rotate == 90 || item.Rotate == 270 {
		item.W, item.H = item.H, item.W
		item.OrigW, item.OrigH = item.OrigH, item.OrigW
	}
	return nil
}

func parseStrList(line string) []string {
	items := strings.Split(line, ",")
	res := make([]string, 0, len(items))
	for _, item := range items {
		res = append(res, strings.TrimSpace(item))
	}
	return res
}

func parseIntList(line string, want int) ([]int, error) {
	items := parseStrList(line)
	if len(items) < want {
		return nil, fmt.Errorf("%q: want %d values", line, want)
	}
	res := make([]int, 0, len(items))
	for _, item := range items {
		val, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", line, err)
		}
		res = append(res, val)
	}
	return res, nil
}

func (a *Atlas) Find(name string) (*AtlasItem, bool) {
	for _, item := range a.Items {
		if item.Name == name {
			return item, true
		}
	}
	return nil, false
}

// RegionImage cuts the named region out of the page, restores its whitespace
// padding and undoes the packing rotation.
func (a *Atlas) RegionImage(name string, page image.Image) (image.Image, error) {
	item, ok := a.Find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRegionNotFound, name)
	}
	origin := page.Bounds().Min
	src := image.Rect(item.X, item.Y, item.X+item.W, item.Y+item.H).Add(origin)
	if !src.In(page.Bounds()) {
		return nil, fmt.Errorf("%w: region %s %v outside page %v", ErrInvalidAtlas, name, src, page.Bounds())
	}
	res := image.NewRGBA(image.Rect(0, 0, item.OrigW, item.OrigH))
	draw.Draw(res, image.Rect(item.OrigX, item.OrigY, item.OrigX+item.W, item.OrigY+item.H),
		page, src.Min, draw.Src)
	switch item.Rotate {
	case 90:
		return rotate90(res), nil
	case 180:
		return rotate180(res), nil
	case 270:
		return rotate270(res), nil
	default:
		return res, nil
	}
}

func rotate90(img *image.RGBA) *image.RGBA {
	bound := img.Bounds()
	width, height := bound.Dx(), bound.Dy()
	res := image.NewRGBA(image.Rect(0, 0, height, width))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			res.Set(height-1-y, x, img.At(x, y))
		}
	}
	return res
}

func rotate180(img *image.RGBA) *image.RGBA {
	bound := img.Bounds()
	width, height := bound.Dx(), bound.Dy()
	res := image.NewRGBA(bound)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			res.Set(width-1-x, height-1-y, img.At(x, y))
		}
	}
	return res
}

func rotate270(img *image.RGBA) *image.RGBA {
	bound := img.Bounds()
	width, height := bound.Dx(), bound.Dy()
	res := image.NewRGBA(image.Rect(0, 0, height, width))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			res.Set(y, width-1-x, img.At(x, y))
		}
	}
	return res
}
