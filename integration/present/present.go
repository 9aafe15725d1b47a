// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package present

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/compositor/backend/headless"
	"github.com/gogpu/compositor/framebuffer"
	"github.com/gogpu/compositor/region"
)

// Common errors returned by Presenter operations.
var (
	// ErrClosed is returned when operations are attempted on a closed presenter.
	ErrClosed = errors.New("present: presenter is closed")

	// ErrNilProvider is returned when a nil DeviceProvider is passed.
	ErrNilProvider = errors.New("present: nil DeviceProvider")

	// ErrNilScreen is returned when no headless backend is passed.
	ErrNilScreen = errors.New("present: nil screen")
)

// textureDestroyer is the interface for destroying textures.
type textureDestroyer interface {
	Destroy()
}

// Presenter uploads the screen of a headless backend to a GPU texture.
type Presenter struct {
	provider gpucontext.DeviceProvider
	screen   *headless.Backend

	texture    any // lazily created texture
	oldTexture any // previous texture awaiting deferred destruction

	dirty       bool
	sizeChanged bool
	width       int
	height      int

	// damage is the screen area changed since the last upload.
	damage  region.Region
	uploads int
	closed  bool
}

// New creates a presenter for screen. The provider should come from
// gogpu.App.GPUContextProvider().
func New(provider gpucontext.DeviceProvider, screen *headless.Backend) (*Presenter, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if screen == nil {
		return nil, ErrNilScreen
	}
	w, h := screen.Size()
	p := &Presenter{
		provider: provider,
		screen:   screen,
		width:    w,
		height:   h,
		dirty:    true, // first Flush creates the texture
	}
	p.damage.UnionRect(screen.Pixels().Image().Bounds())
	screen.OnPresent(p.presented)
	return p, nil
}

// presented runs after every swap of the screen.
func (p *Presenter) presented(pr *headless.Presentation) {
	if p.closed {
		return
	}
	w, h := p.screen.Size()
	if w != p.width || h != p.height {
		p.width, p.height = w, h
		p.sizeChanged = true
		p.damage.Clear()
		p.damage.UnionRect(p.screen.Pixels().Image().Bounds())
	} else {
		p.damage.Union(&pr.Damage)
	}
	p.dirty = true
}

// Size returns the size of the presented screen.
func (p *Presenter) Size() (width, height int) {
	return p.width, p.height
}

// IsDirty reports whether the screen changed since the last upload.
func (p *Presenter) IsDirty() bool {
	return p.dirty
}

// Damage returns the screen area changed since the last upload.
func (p *Presenter) Damage() region.Region {
	return p.damage.Clone()
}

// Uploads returns the number of texture uploads so far.
func (p *Presenter) Uploads() int {
	return p.uploads
}

// Device returns a device creating offscreen buffers on the provider's GPU.
// It fails with framebuffer.ErrNoHALDevice when the provider does not
// expose its HAL device.
func (p *Presenter) Device() (*framebuffer.HALDevice, error) {
	if p.closed {
		return nil, ErrClosed
	}
	return framebuffer.NewHALDevice(p.provider, p.provider.SurfaceFormat())
}

// Flush uploads the screen to the GPU texture if it changed.
//
// The texture is created lazily: the first Flush returns a placeholder
// that RenderTo turns into a real texture.
func (p *Presenter) Flush() (any, error) {
	if p.closed {
		return nil, ErrClosed
	}

	// The old texture may still be read by in-flight command buffers; it
	// is destroyed in RenderToPosition once the new one has been written.
	if p.sizeChanged {
		if p.texture != nil {
			destroy(p.oldTexture)
			p.oldTexture = p.texture
			p.texture = nil
		}
		p.sizeChanged = false
	}

	if !p.dirty && p.texture != nil {
		return p.texture, nil
	}

	data := p.screen.Pixels().Image().Pix
	if p.texture == nil || isPending(p.texture) {
		p.texture = &pendingTexture{
			width:  p.width,
			height: p.height,
			data:   append([]byte(nil), data...),
		}
		p.uploaded()
		return p.texture, nil
	}

	// Partial uploads need damage; an empty region after a swap means the
	// whole screen.
	if ru, ok := p.texture.(gpucontext.TextureRegionUpdater); ok && p.damage.NotEmpty() {
		if err := p.uploadDamage(ru); err != nil {
			return nil, err
		}
	} else if updater, ok := p.texture.(gpucontext.TextureUpdater); ok {
		if err := updater.UpdateData(data); err != nil {
			return nil, fmt.Errorf("present: texture update failed: %w", err)
		}
	}
	p.uploaded()
	return p.texture, nil
}

// uploadDamage uploads the damaged rectangles of the screen, each packed
// into its own buffer.
func (p *Presenter) uploadDamage(ru gpucontext.TextureRegionUpdater) error {
	img := p.screen.Pixels().Image()
	bounds := img.Bounds()
	var buf []byte
	for _, rc := range p.damage.Rects() {
		rc = rc.Intersect(bounds)
		if rc.Empty() {
			continue
		}
		w, h := rc.Dx(), rc.Dy()
		row := w * 4
		if cap(buf) < row*h {
			buf = make([]byte, row*h)
		}
		buf = buf[:row*h]
		for y := 0; y < h; y++ {
			off := img.PixOffset(rc.Min.X, rc.Min.Y+y)
			copy(buf[y*row:(y+1)*row], img.Pix[off:off+row])
		}
		if err := ru.UpdateRegion(rc.Min.X, rc.Min.Y, w, h, buf); err != nil {
			return fmt.Errorf("present: texture region update failed: %w", err)
		}
	}
	return nil
}

func (p *Presenter) uploaded() {
	p.dirty = false
	p.damage.Clear()
	p.uploads++
}

// Texture returns the current texture without flushing, or nil.
func (p *Presenter) Texture() any {
	return p.texture
}

// Close releases the textures. Close is idempotent.
func (p *Presenter) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.dirty = false
	destroy(p.oldTexture)
	destroy(p.texture)
	p.oldTexture, p.texture = nil, nil
	p.provider = nil
	return nil
}

func destroy(tex any) {
	if d, ok := tex.(textureDestroyer); ok {
		d.Destroy()
	}
}

func isPending(tex any) bool {
	_, ok := tex.(*pendingTexture)
	return ok
}

// pendingTexture holds the pixels of a texture that has not been created
// yet because no TextureCreator was available.
type pendingTexture struct {
	width  int
	height int
	data   []byte
}
