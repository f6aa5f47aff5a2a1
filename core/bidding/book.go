// Package bidding holds the per-round bid book: one slot per team, asset and
// period, replaced wholesale by each accepted submission.
package bidding

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/gridmarket/core/model"
)

const epsilonMW = 1e-9

// Requirement describes an asset that may be bid in the current round.
type Requirement struct {
	TeamID            string                        `json:"team_id"`
	AssetID           string                        `json:"asset_id"`
	Type              model.AssetType               `json:"type"`
	CapacityMW        float64                       `json:"capacity_mw"`
	EnergyCapacityMWh float64                       `json:"energy_capacity_mwh,omitempty"`
	SOCMWh            float64                       `json:"soc_mwh,omitempty"`
	SRMC              float64                       `json:"srmc_mwh"`
	AvailableMW       [model.PeriodsPerRound]float64 `json:"available_mw"`
	Locked            bool                          `json:"locked"`
}

// Required reports whether the asset must be bid for a team to be complete.
func (r Requirement) Required() bool {
	if r.Locked {
		return false
	}
	for _, v := range r.AvailableMW {
		if v > 0 {
			return true
		}
	}
	return false
}

// Key identifies one bid slot.
type Key struct {
	TeamID  string `json:"team_id"`
	AssetID string `json:"asset_id"`
	Period  int    `json:"period"`
}

// Entry is the last accepted submission for a slot.
type Entry struct {
	Bands       []model.BidBand   `json:"bands,omitempty"`
	Battery     *model.BatteryBid `json:"battery,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// OfferedMW sums the entry bands.
func (e Entry) OfferedMW() float64 {
	var sum float64
	for _, b := range e.Bands {
		sum += b.OfferedMW
	}
	return sum
}

// Book is safe for concurrent use.
type Book struct {
	mu      sync.RWMutex
	reqs    map[string]Requirement
	entries map[Key]Entry
	closed  bool
	now     func() time.Time
}

// NewBook creates an open book for the given assets.
func NewBook(reqs []Requirement) *Book {
	b := &Book{
		reqs:    make(map[string]Requirement, len(reqs)),
		entries: make(map[Key]Entry),
		now:     time.Now,
	}
	for _, r := range reqs {
		b.reqs[r.AssetID] = r
	}
	return b
}

// Close freezes the book. Further submissions fail with a PhaseError.
func (b *Book) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Closed reports whether the book is frozen.
func (b *Book) Closed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// Submit validates every slot of sub and, only if all pass, upserts them.
func (b *Book) Submit(teamID string, sub model.BidSubmission) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return &model.PhaseError{Action: "submit_bids", Phase: model.PhaseDispatching}
	}
	if len(sub.Bids) == 0 {
		return &model.ValidationError{Field: "bids", Reason: "empty submission"}
	}
	for _, bid := range sub.Bids {
		if err := b.validate(teamID, bid); err != nil {
			return fmt.Errorf("asset %s period %d: %w", bid.AssetID, bid.Period, err)
		}
	}
	for _, bid := range sub.Bids {
		b.upsert(teamID, bid)
	}
	return nil
}

// Upsert replaces a single slot.
func (b *Book) Upsert(teamID string, bid model.AssetBid) error {
	return b.Submit(teamID, model.BidSubmission{Bids: []model.AssetBid{bid}})
}

func (b *Book) upsert(teamID string, bid model.AssetBid) {
	req := b.reqs[bid.AssetID]
	if req.Type == model.AssetHydro {
		for p := 0; p < model.PeriodsPerRound; p++ {
			delete(b.entries, Key{TeamID: teamID, AssetID: bid.AssetID, Period: p})
		}
	}
	e := Entry{Bands: append([]model.BidBand(nil), bid.Bands...), SubmittedAt: b.now()}
	if bid.Battery != nil {
		bb := *bid.Battery
		if bid.Battery.TargetSOCMWh != nil {
			v := *bid.Battery.TargetSOCMWh
			bb.TargetSOCMWh = &v
		}
		e.Battery = &bb
	}
	b.entries[Key{TeamID: teamID, AssetID: bid.AssetID, Period: bid.Period}] = e
}

func validPrice(p float64) bool {
	return !math.IsNaN(p) && p >= model.PriceFloor && p <= model.PriceCap
}

func validQuantity(q float64) bool {
	return !math.IsNaN(q) && !math.IsInf(q, 0) && q >= 0
}

//gocyclo:ignore
func (b *Book) validate(teamID string, bid model.AssetBid) error {
	req, ok := b.reqs[bid.AssetID]
	if !ok || req.TeamID != teamID {
		return &model.NotFoundError{Kind: "asset", ID: bid.AssetID}
	}
	if !model.ValidPeriod(bid.Period) {
		return &model.ValidationError{Field: "period", Reason: fmt.Sprintf("must be in [0, %d)", model.PeriodsPerRound)}
	}
	if req.Locked {
		return &model.ValidationError{Field: "asset_id", Reason: "asset is locked this round"}
	}
	if req.Type == model.AssetBattery {
		bb := bid.Battery
		if bb == nil || len(bid.Bands) > 0 {
			return &model.ValidationError{Field: "battery", Reason: "battery slots take a single battery bid"}
		}
		if !bb.Mode.Valid() {
			return &model.ValidationError{Field: "battery.mode", Reason: fmt.Sprintf("unknown mode %q", bb.Mode)}
		}
		if !validQuantity(bb.MW) || bb.MW > req.AvailableMW[bid.Period]+epsilonMW {
			return &model.ValidationError{Field: "battery.mw", Reason: "outside [0, power rating]"}
		}
		if bb.TargetSOCMWh != nil {
			t := *bb.TargetSOCMWh
			if !validQuantity(t) || t > req.EnergyCapacityMWh+epsilonMW {
				return &model.ValidationError{Field: "battery.target_soc_mwh", Reason: "outside storage bounds"}
			}
		}
		if !validPrice(bb.PriceMWh) {
			return &model.ValidationError{Field: "battery.price_mwh", Reason: "outside price floor and cap"}
		}
		return nil
	}
	if bid.Battery != nil {
		return &model.ValidationError{Field: "battery", Reason: "only battery assets take a battery bid"}
	}
	avail := req.AvailableMW[bid.Period]
	if req.Type == model.AssetHydro {
		// reservoir limits are applied at settlement
		avail = math.Max(avail, req.CapacityMW)
	}
	var total float64
	for i, band := range bid.Bands {
		if !validPrice(band.PriceMWh) {
			return &model.ValidationError{Field: fmt.Sprintf("bands[%d].price_mwh", i), Reason: "outside price floor and cap"}
		}
		if !validQuantity(band.OfferedMW) || band.OfferedMW > avail+epsilonMW {
			return &model.ValidationError{Field: fmt.Sprintf("bands[%d].offered_mw", i), Reason: fmt.Sprintf("outside [0, %.1f]", avail)}
		}
		total += band.OfferedMW
	}
	if total > avail+epsilonMW {
		return &model.ValidationError{Field: "bands", Reason: fmt.Sprintf("total %.1f MW exceeds available %.1f MW", total, avail)}
	}
	return nil
}

// Get returns the slot entry.
func (b *Book) Get(teamID, assetID string, period int) (Entry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[Key{TeamID: teamID, AssetID: assetID, Period: period}]
	return e, ok
}

// Requirement returns the bidding constraints of an asset.
func (b *Book) Requirement(assetID string) (Requirement, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.reqs[assetID]
	return r, ok
}

// Requirements lists a team's assets sorted by id.
func (b *Book) Requirements(teamID string) []Requirement {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Requirement
	for _, r := range b.reqs {
		if r.TeamID == teamID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out
}

// HydroPeriod returns the period a hydro asset was bid in.
func (b *Book) HydroPeriod(teamID, assetID string) (int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for p := 0; p < model.PeriodsPerRound; p++ {
		if _, ok := b.entries[Key{TeamID: teamID, AssetID: assetID, Period: p}]; ok {
			return p, true
		}
	}
	return 0, false
}

// Missing lists the slots a team still has to fill. Hydro needs a single
// slot in any period and reports period -1 when absent.
func (b *Book) Missing(teamID string) []Key {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Key
	for _, r := range b.reqs {
		if r.TeamID != teamID || !r.Required() {
			continue
		}
		if r.Type == model.AssetHydro {
			found := false
			for p := 0; p < model.PeriodsPerRound && !found; p++ {
				_, found = b.entries[Key{TeamID: teamID, AssetID: r.AssetID, Period: p}]
			}
			if !found {
				out = append(out, Key{TeamID: teamID, AssetID: r.AssetID, Period: -1})
			}
			continue
		}
		for p := 0; p < model.PeriodsPerRound; p++ {
			k := Key{TeamID: teamID, AssetID: r.AssetID, Period: p}
			if _, ok := b.entries[k]; !ok {
				out = append(out, k)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssetID != out[j].AssetID {
			return out[i].AssetID < out[j].AssetID
		}
		return out[i].Period < out[j].Period
	})
	return out
}

// IsComplete reports whether every required slot of a team is filled.
func (b *Book) IsComplete(teamID string) bool { return len(b.Missing(teamID)) == 0 }

// Len returns the number of filled slots.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// BuildRequirements derives the bid slots of a round from team portfolios
// and the per-period availability table. srmc may be nil.
func BuildRequirements(teams []model.Team, round model.RoundConfig, avail map[string][model.PeriodsPerRound]float64, srmc func(model.Asset) float64) []Requirement {
	var out []Requirement
	for _, t := range teams {
		for _, a := range t.Assets {
			r := Requirement{
				TeamID:            t.ID,
				AssetID:           a.ID,
				Type:              a.Type,
				CapacityMW:        a.CapacityMW,
				EnergyCapacityMWh: a.EnergyCapacityMWh(),
				SRMC:              a.SRMC,
				AvailableMW:       avail[a.ID],
				Locked:            !round.IsUnlocked(a.Type),
			}
			if srmc != nil {
				r.SRMC = srmc(a)
			}
			if a.Battery != nil {
				r.SOCMWh = a.Battery.SOCMWh
			}
			out = append(out, r)
		}
	}
	return out
}
