package lifecycle

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kilianp07/gridmarket/core/logger"
)

// Pruner removes stale games.
type Pruner interface {
	Prune(olderThan time.Duration) int
}

// Janitor periodically prunes finished and idle games.
type Janitor struct {
	Cron      *cron.Cron
	pruner    Pruner
	retention time.Duration
	log       logger.Logger
}

// NewJanitor schedules p.Prune(retention) on schedule, a six field cron
// expression with seconds.
func NewJanitor(p Pruner, schedule string, retention time.Duration, log logger.Logger) (*Janitor, error) {
	if log == nil {
		log = logger.Nop{}
	}
	j := &Janitor{
		Cron:      cron.New(cron.WithSeconds()),
		pruner:    p,
		retention: retention,
		log:       log,
	}
	if _, err := j.Cron.AddFunc(schedule, j.RunNow); err != nil {
		return nil, fmt.Errorf("register janitor: %w", err)
	}
	return j, nil
}

// RunNow prunes immediately.
func (j *Janitor) RunNow() {
	if n := j.pruner.Prune(j.retention); n > 0 {
		j.log.Infof("janitor pruned %d games", n)
	}
}

func (j *Janitor) Start() {
	j.Cron.Start()
	j.log.Infof("janitor started")
}

// Stop waits for a running prune to finish.
func (j *Janitor) Stop() {
	<-j.Cron.Stop().Done()
	j.log.Infof("janitor stopped")
}
