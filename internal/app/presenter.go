package app

// Presenter is the presentation boundary: the mirror flag on the video
// surface, the displayed metric text and the frame rate readout.
type Presenter interface {
	SetMirror(on bool)
	SetMetric(value string)
	SetFPS(fps float64)
}

// MultiPresenter forwards every call to each presenter in order.
type MultiPresenter []Presenter

func (m MultiPresenter) SetMirror(on bool) {
	for _, p := range m {
		p.SetMirror(on)
	}
}

func (m MultiPresenter) SetMetric(value string) {
	for _, p := range m {
		p.SetMetric(value)
	}
}

func (m MultiPresenter) SetFPS(fps float64) {
	for _, p := range m {
		p.SetFPS(fps)
	}
}

type nopPresenter struct{}

func (nopPresenter) SetMirror(bool)   {}
func (nopPresenter) SetMetric(string) {}
func (nopPresenter) SetFPS(float64)   {}
