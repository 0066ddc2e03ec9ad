package render

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/ayusman/pinchview/internal/detector"
	"gocv.io/x/gocv"
)

// transform maps normalized coordinates onto the surface.
type transform struct {
	width  float64
	height float64
}

func (t transform) point(p detector.Point3D) image.Point {
	return image.Pt(int(math.Round(p.X*t.width)), int(math.Round(p.Y*t.height)))
}

// MatCanvas is a Canvas backed by two gocv Mats. Drawing goes to the back
// buffer; the outermost Restore copies it to the front buffer, which is the
// only one Snapshot reads. A draw call made outside any Save is published
// immediately.
type MatCanvas struct {
	mu    sync.Mutex
	back  gocv.Mat
	front gocv.Mat
	depth int
}

// NewMatCanvas creates a black width x height BGR surface.
func NewMatCanvas(width, height int) *MatCanvas {
	return &MatCanvas{
		back:  gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3),
		front: gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3),
	}
}

// Resize replaces both buffers with black ones of the new size.
func (c *MatCanvas) Resize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.back.Cols() == width && c.back.Rows() == height {
		return
	}
	c.back.Close()
	c.front.Close()
	c.back = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	c.front = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
}

// Size returns the surface's width and height in pixels.
func (c *MatCanvas) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.back.Cols(), c.back.Rows()
}

// Save implements Canvas. It opens a frame; nothing drawn until the matching
// outermost Restore is visible to Snapshot.
func (c *MatCanvas) Save() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.depth++
}

// Restore implements Canvas. An unmatched Restore is ignored.
func (c *MatCanvas) Restore() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.depth == 0 {
		return
	}
	c.depth--
	c.publish()
}

// Clear implements Canvas.
func (c *MatCanvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.back.SetTo(gocv.NewScalar(0, 0, 0, 0))
	c.publish()
}

// DrawImage implements Canvas.
func (c *MatCanvas) DrawImage(img *gocv.Mat) {
	if img == nil || img.Empty() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.publish()

	size := image.Pt(c.back.Cols(), c.back.Rows())
	if img.Cols() == size.X && img.Rows() == size.Y {
		img.CopyTo(&c.back)
		return
	}
	gocv.Resize(*img, &c.back, size, 0, 0, gocv.InterpolationLinear)
}

// DrawConnectors implements Canvas. Edges with an endpoint outside points are skipped.
func (c *MatCanvas) DrawConnectors(points detector.Landmarks, connections []detector.Connection, style Style) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.publish()

	t := c.transform()
	thickness := style.lineWidth()
	for _, conn := range connections {
		from, ok := points.At(conn.From)
		if !ok {
			continue
		}
		to, ok := points.At(conn.To)
		if !ok {
			continue
		}
		gocv.Line(&c.back, t.point(from), t.point(to), style.Color, thickness)
	}
}

// DrawLandmarks implements Canvas. Each dot is filled with FillColor and
// outlined with Color.
func (c *MatCanvas) DrawLandmarks(points detector.Landmarks, style Style) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.publish()

	t := c.transform()
	for i := range points {
		p, ok := points.At(i)
		if !ok {
			continue
		}
		center := t.point(p)
		radius := int(math.Round(style.radius(p)))
		if radius < 1 {
			radius = 1
		}
		gocv.Circle(&c.back, center, radius, style.FillColor, -1)
		gocv.Circle(&c.back, center, radius, style.Color, 2)
	}
}

// Snapshot encodes the last complete frame as JPEG, mirrored horizontally
// when mirror is set.
func (c *MatCanvas) Snapshot(mirror bool) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	src := c.front
	if mirror {
		flipped := gocv.NewMat()
		defer flipped.Close()
		gocv.Flip(c.front, &flipped, 1)
		src = flipped
	}

	buf, err := gocv.IMEncode(".jpg", src)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Close releases both buffers.
func (c *MatCanvas) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.back.Close(); err != nil {
		return err
	}
	return c.front.Close()
}

func (c *MatCanvas) transform() transform {
	return transform{width: float64(c.back.Cols()), height: float64(c.back.Rows())}
}

// publish copies the back buffer to the front once no frame is open.
// Callers hold mu.
func (c *MatCanvas) publish() {
	if c.depth > 0 {
		return
	}
	c.back.CopyTo(&c.front)
}
