// Package tray provides the system tray menu for pinchview.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray menu. It doubles as a presenter: the mirror
// checkbox, the pinch value and the frame rate follow the pipeline.
type Tray struct {
	onMirror func(on bool)
	onOpen   func()
	onQuit   func()

	mu     sync.RWMutex
	mirror bool
	metric string
	fps    float64

	// Menu items stored for later updates
	menuMirror *systray.MenuItem
	menuMetric *systray.MenuItem
	menuFPS    *systray.MenuItem
}

// New creates a Tray showing metric until the first reading arrives.
func New(mirror bool, metric string) *Tray {
	return &Tray{
		mirror: mirror,
		metric: metric,
	}
}

// OnMirror sets the callback run when the user toggles selfie mode.
func (t *Tray) OnMirror(fn func(on bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMirror = fn
}

// OnOpen sets the callback run when the viewer menu item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle(metricTitle(t.Metric()))
	systray.SetTooltip("pinchview hand tracking")

	t.mu.Lock()
	t.menuMetric = systray.AddMenuItem(metricTitle(t.metric), "Current pinch value")
	t.menuMetric.Disable()
	t.menuFPS = systray.AddMenuItem(fpsTitle(t.fps), "Frames processed per second")
	t.menuFPS.Disable()
	systray.AddSeparator()

	t.menuMirror = systray.AddMenuItemCheckbox("Selfie mode", "Mirror the video", t.mirror)
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Viewer...", "Open the viewer in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit pinchview")

	go func() {
		for {
			select {
			case <-t.menuMirror.ClickedCh:
				t.handleMirror()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleMirror flips selfie mode and asks the pipeline to apply it. The
// checkbox itself follows once SetMirror reports the applied value.
func (t *Tray) handleMirror() {
	t.mu.RLock()
	next := !t.mirror
	callback := t.onMirror
	t.mu.RUnlock()

	if callback != nil {
		callback(next)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetMirror updates the selfie mode checkbox.
func (t *Tray) SetMirror(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mirror = on
	if t.menuMirror == nil {
		return
	}
	if on {
		t.menuMirror.Check()
	} else {
		t.menuMirror.Uncheck()
	}
}

// SetMetric updates the pinch value shown in the menu bar.
func (t *Tray) SetMetric(value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.metric == value {
		return
	}
	t.metric = value
	if t.menuMetric != nil {
		systray.SetTitle(metricTitle(value))
		t.menuMetric.SetTitle(metricTitle(value))
	}
}

// SetFPS updates the frame rate item. Changes below one frame per second are not shown.
func (t *Tray) SetFPS(fps float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(fps) == int(t.fps) {
		t.fps = fps
		return
	}
	t.fps = fps
	if t.menuFPS != nil {
		t.menuFPS.SetTitle(fpsTitle(fps))
	}
}

// Mirror returns the selfie mode state.
func (t *Tray) Mirror() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mirror
}

// Metric returns the displayed pinch value.
func (t *Tray) Metric() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.metric
}

func metricTitle(value string) string {
	return "Pinch " + value
}

func fpsTitle(fps float64) string {
	return fmt.Sprintf("%.0f fps", fps)
}
