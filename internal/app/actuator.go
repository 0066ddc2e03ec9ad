package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayusman/pinchview/internal/log"
	"github.com/ayusman/pinchview/internal/metric"
	"github.com/ayusman/pinchview/internal/plugin"
	"github.com/ayusman/pinchview/internal/publish"
)

// Actuator drives a plugin action, by default the system volume, from the
// control value. Publish only records the latest value; Run executes it, so
// a slow plugin never holds up the caller and stale values are skipped.
type Actuator struct {
	manager  *plugin.Manager
	executor *plugin.Executor
	plugin   string
	action   string
	logger   log.Logger

	pending chan int
	last    int
}

var _ publish.Publisher = (*Actuator)(nil)

// NewActuator creates an Actuator calling action on the named plugin with
// params {"percent": n}.
func NewActuator(manager *plugin.Manager, executor *plugin.Executor, pluginName, action string, logger log.Logger) *Actuator {
	return &Actuator{
		manager:  manager,
		executor: executor,
		plugin:   pluginName,
		action:   action,
		logger:   logger.WithField("component", "actuator"),
		pending:  make(chan int, 1),
		last:     -1,
	}
}

// Publish implements publish.Publisher. It replaces any value not yet executed.
func (a *Actuator) Publish(ctx context.Context, r metric.Reading) error {
	percent, err := metric.ParsePercentage(r.Value)
	if err != nil {
		return err
	}
	for {
		select {
		case a.pending <- percent:
			return nil
		default:
		}
		select {
		case <-a.pending:
		default:
		}
	}
}

// Run executes pending values until ctx is cancelled. A value equal to the
// last one executed successfully is skipped.
func (a *Actuator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case percent := <-a.pending:
			if percent == a.last {
				continue
			}
			if err := a.execute(ctx, percent); err != nil {
				a.logger.Warnf("%s/%s %d%%: %v", a.plugin, a.action, percent, err)
				continue
			}
			a.last = percent
		}
	}
}

func (a *Actuator) execute(ctx context.Context, percent int) error {
	p, err := a.manager.Find(a.plugin, a.action)
	if err != nil {
		return err
	}

	params, err := json.Marshal(plugin.VolumeParams{Percent: percent})
	if err != nil {
		return err
	}
	resp, err := a.executor.Execute(ctx, p, &plugin.Request{
		Action: a.action,
		Source: "pinch",
		Params: params,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin reported failure: %s", resp.Error)
	}
	a.logger.Debugf("%s set to %d%%", a.action, percent)
	return nil
}
