// Package balancing holds the between-round check that charges teams whose
// aggregate reserve margin fell below the system threshold.
package balancing

import (
	"fmt"
	"math"

	"github.com/kilianp07/gridmarket/core/factory"
	"github.com/kilianp07/gridmarket/core/model"
)

// Threshold is the reserve margin under which a team is penalised.
const Threshold = 0.40

// Policy computes the penalty owed by a team for one round.
type Policy interface {
	Name() string
	Penalty(tr model.TeamRoundResult) float64
}

// None never charges anything.
type None struct{}

func (None) Name() string                          { return "none" }
func (None) Penalty(model.TeamRoundResult) float64 { return 0 }

// Linear charges DollarsPerPoint for every percentage point the reserve
// margin sits below Threshold.
type Linear struct {
	DollarsPerPoint float64 `json:"dollars_per_point"`
	Threshold       float64 `json:"threshold"`
}

func (Linear) Name() string { return "linear" }

func (l Linear) Penalty(tr model.TeamRoundResult) float64 {
	th := l.Threshold
	if th <= 0 {
		th = Threshold
	}
	if tr.ReserveMargin >= th {
		return 0
	}
	return (th - tr.ReserveMargin) * 100 * l.DollarsPerPoint
}

// Apply charges every team of r and updates its net profit.
func Apply(p Policy, r *model.RoundResult) {
	if p == nil {
		p = None{}
	}
	for i := range r.Teams {
		tr := &r.Teams[i]
		tr.BalancingPenaltyDollars = math.Max(0, p.Penalty(*tr))
		tr.NetProfitDollars = tr.ProfitDollars - tr.BalancingPenaltyDollars
	}
}

var registry = factory.NewRegistry[Policy]()

func init() {
	_ = registry.Register("none", func(map[string]any) (Policy, error) { return None{}, nil })
	_ = registry.Register("linear", func(conf map[string]any) (Policy, error) {
		var l Linear
		if err := factory.Decode(conf, &l); err != nil {
			return nil, err
		}
		if l.DollarsPerPoint < 0 || l.Threshold < 0 || l.Threshold > 1 {
			return nil, fmt.Errorf("linear balancing: invalid config %+v", l)
		}
		return l, nil
	})
}

// Register adds a custom policy factory.
func Register(name string, f factory.Factory[Policy]) error {
	return registry.Register(name, f)
}

// Names lists the available policies.
func Names() []string { return registry.Names() }

// New builds the policy described by cfg. An empty type selects None.
func New(cfg factory.ModuleConfig) (Policy, error) {
	if cfg.Type == "" {
		return None{}, nil
	}
	return registry.Create(cfg)
}
