package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"vtoverlay/internal/log"
	"vtoverlay/internal/spine"
)

// DefaultMaxAssetSize bounds a single HTTP asset body.
const DefaultMaxAssetSize = 32 << 20

// Loader fetches model assets from an asset root or over HTTP.
type Loader struct {
	Root   fs.FS
	Client *http.Client
	// MaxAssetSize caps each HTTP response body; zero means DefaultMaxAssetSize.
	MaxAssetSize int64
}

func NewLoader(root fs.FS) *Loader {
	return &Loader{Root: root, Client: http.DefaultClient}
}

// Load fetches the manifest at locator and everything it references, and
// returns a model in its setup pose with no motion started.
func (l *Loader) Load(ctx context.Context, locator string) (*Model, error) {
	data, err := l.fetch(ctx, locator)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", locator, err)
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", locator, err)
	}
	skelLoc, err := resolve(locator, manifest.FileReferences.Skeleton)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", locator, err)
	}
	atlasLoc, err := resolve(locator, manifest.FileReferences.Atlas)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", locator, err)
	}

	var (
		skel  *spine.Skeleton
		atlas *spine.Atlas
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := l.fetch(gctx, skelLoc)
		if err != nil {
			return err
		}
		skel, err = spine.ParseSkel(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("%s: %w", skelLoc, err)
		}
		return nil
	})
	g.Go(func() error {
		data, err := l.fetch(gctx, atlasLoc)
		if err != nil {
			return err
		}
		atlas, err = spine.ParseAtlas(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("%s: %w", atlasLoc, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load model %s: %w", locator, err)
	}

	pageLoc, err := resolve(atlasLoc, atlas.Header.Image)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", locator, err)
	}
	page, err := l.loadImage(ctx, pageLoc)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", locator, err)
	}
	res, err := New(manifest, skel, atlas, page)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", locator, err)
	}
	log.Debug("model loaded", "locator", locator, "bones", len(skel.Bones), "slots", len(skel.Slots),
		"animations", len(skel.Animations))
	return res, nil
}

func (l *Loader) loadImage(ctx context.Context, locator string) (image.Image, error) {
	data, err := l.fetch(ctx, locator)
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", locator, err)
	}
	return img, nil
}

func (l *Loader) fetch(ctx context.Context, locator string) ([]byte, error) {
	if isURL(locator) {
		return l.fetchHTTP(ctx, locator)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.Root == nil {
		return nil, fmt.Errorf("%w: %s: no asset root", ErrAssetNotFound, locator)
	}
	name := strings.TrimPrefix(path.Clean("/"+locator), "/")
	data, err := fs.ReadFile(l.Root, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, locator)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", locator, err)
	}
	log.Debug("asset read", "path", name, "bytes", len(data))
	return data, nil
}

func (l *Loader) fetchHTTP(ctx context.Context, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", locator, err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", locator, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, locator)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", locator, resp.Status)
	}
	limit := l.MaxAssetSize
	if limit <= 0 {
		limit = DefaultMaxAssetSize
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", locator, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrAssetTooLarge, locator, limit)
	}
	log.Debug("asset fetched", "url", locator, "bytes", len(data))
	return data, nil
}
