package detector

import (
	"fmt"
	"os"
	"os/exec"
)

// Advisory describes an environment problem that does not stop the program.
type Advisory struct {
	Component string
	Message   string
}

func (a Advisory) String() string {
	return fmt.Sprintf("%s: %s", a.Component, a.Message)
}

// CheckEnvironment reports why the MediaPipe engine may not work here.
// An empty result means nothing was found wrong.
func CheckEnvironment(config MediaPipeConfig) []Advisory {
	var advisories []Advisory

	script := config.Script
	if script == "" {
		script = findMediaPipeScript()
	}
	if script == "" {
		advisories = append(advisories, Advisory{
			Component: "mediapipe",
			Message:   "mediapipe_service.py not found, hand tracking will be unavailable",
		})
	} else if _, err := os.Stat(script); err != nil {
		advisories = append(advisories, Advisory{
			Component: "mediapipe",
			Message:   fmt.Sprintf("cannot use %s: %v", script, err),
		})
	}

	python := config.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}
	if _, err := exec.LookPath(python); err != nil {
		advisories = append(advisories, Advisory{
			Component: "python",
			Message:   fmt.Sprintf("interpreter %s not found", python),
		})
	}

	return advisories
}
