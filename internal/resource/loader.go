// Package resource loads the images a drawing needs before it accepts input, such as the
// anatomical template painted behind the doodles.
package resource

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
	"time"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// ErrTimeout is returned when resources are not ready within the allowed time.
var ErrTimeout = errors.New("resources not ready in time")

// Loader produces one named image.
type Loader interface {
	Name() string
	Load(ctx context.Context) (image.Image, error)
}

// FileLoader decodes a PNG, JPEG or WebP image from disk.
type FileLoader struct {
	Key  string
	Path string
}

func (f FileLoader) Name() string { return f.Key }

func (f FileLoader) Load(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Key, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Key, err)
	}
	return img, nil
}

// LoaderFunc adapts a function to a Loader.
type LoaderFunc struct {
	Key string
	Fn  func(ctx context.Context) (image.Image, error)
}

func (l LoaderFunc) Name() string { return l.Key }

func (l LoaderFunc) Load(ctx context.Context) (image.Image, error) { return l.Fn(ctx) }

// LoadAll runs the loaders concurrently and returns their images by name. It fails with
// ErrTimeout if they have not all finished within timeout; loaders are expected to honour
// context cancellation, but LoadAll returns at the deadline even if one does not.
func LoadAll(ctx context.Context, timeout time.Duration, loaders ...Loader) (map[string]image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu     sync.Mutex
		images = make(map[string]image.Image, len(loaders))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range loaders {
		g.Go(func() error {
			img, err := l.Load(gctx)
			if err != nil {
				return err
			}
			mu.Lock()
			images[l.Name()] = img
			mu.Unlock()
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
			}
			return nil, err
		}
		return images, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return nil, ctx.Err()
	}
}
