package capture

import (
	"fmt"

	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is the encoding quality for captured stills.
const DefaultJPEGQuality = 92

// Capturer grabs the current camera frame as an encoded JPEG still.
//
// The preview shown to the user is mirrored, so the captured still is
// mirrored too: what the user sees is what they get. Both countdown-expiry
// and auto-shutter captures go through the same encoding path.
type Capturer struct {
	camera  Camera
	mirror  bool
	quality int

	// OnFlash and OnShutter are fire-and-forget side-effect hooks (flash
	// animation, shutter sound). They run on their own goroutine and can
	// never block or fail the capture itself.
	OnFlash   func()
	OnShutter func()
}

// NewCapturer creates a Capturer for the given camera with mirroring enabled
// and default JPEG quality.
func NewCapturer(camera Camera) *Capturer {
	return &Capturer{
		camera:  camera,
		mirror:  true,
		quality: DefaultJPEGQuality,
	}
}

// SetMirror controls whether captured stills are horizontally mirrored.
func (c *Capturer) SetMirror(mirror bool) {
	c.mirror = mirror
}

// Capture reads the current frame and returns it as JPEG bytes.
func (c *Capturer) Capture() ([]byte, error) {
	frame, err := c.camera.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	defer frame.Close()

	mat := *frame
	if c.mirror {
		mirrored := gocv.NewMat()
		defer mirrored.Close()
		// Flip code 1 = around the vertical axis.
		gocv.Flip(*frame, &mirrored, 1)
		mat = mirrored
	}

	buf, err := gocv.IMEncodeWithParams(".jpg", mat, []int{gocv.IMWriteJpegQuality, c.quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	c.fireHooks()

	return data, nil
}

// fireHooks runs the side-effect hooks without letting them touch the
// capture result. A panicking or missing hook is swallowed.
func (c *Capturer) fireHooks() {
	for _, hook := range []func(){c.OnFlash, c.OnShutter} {
		if hook == nil {
			continue
		}
		go func(fn func()) {
			defer func() { _ = recover() }()
			fn()
		}(hook)
	}
}
