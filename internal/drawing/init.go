package drawing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eyedraw/eyedraw/backend-go/internal/resource"
)

// TemplateKey names the background template among the loaded resources.
const TemplateKey = "template"

// Init loads the drawing's resources and marks it ready, emitting ready. Pointer input
// is ignored until then. If the resources are not loaded within timeout Init fails with
// ErrInitializationTimeout and the drawing stays not ready.
func (d *Drawing) Init(ctx context.Context, timeout time.Duration, loaders ...resource.Loader) error {
	images, err := resource.LoadAll(ctx, timeout, loaders...)
	if err != nil {
		if errors.Is(err, resource.ErrTimeout) {
			d.logger.Error("drawing initialization timed out", "timeout", timeout)
			return fmt.Errorf("%w: %w", ErrInitializationTimeout, err)
		}
		return fmt.Errorf("initialize drawing: %w", err)
	}

	if img, ok := images[TemplateKey]; ok {
		d.template = img
	}
	d.ready.Store(true)
	d.emit(Notification{Event: EventReady})
	d.repaint()
	return nil
}
