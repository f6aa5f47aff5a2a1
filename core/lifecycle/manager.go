// Package lifecycle drives games through lobby, briefing, bidding,
// dispatching, results and final. Every mutation of a game happens under
// its room lock and is followed by a snapshot on the event bus.
package lifecycle

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/gridmarket/core/balancing"
	"github.com/kilianp07/gridmarket/core/bidding"
	"github.com/kilianp07/gridmarket/core/catalog"
	"github.com/kilianp07/gridmarket/core/demand"
	"github.com/kilianp07/gridmarket/core/dispatch"
	"github.com/kilianp07/gridmarket/core/events"
	"github.com/kilianp07/gridmarket/core/ledger"
	"github.com/kilianp07/gridmarket/core/logger"
	"github.com/kilianp07/gridmarket/core/model"
	"github.com/kilianp07/gridmarket/core/monitoring"
	"github.com/kilianp07/gridmarket/core/scenario"
	"github.com/kilianp07/gridmarket/internal/eventbus"
)

// MaxTeams bounds the number of teams of a game.
const MaxTeams = 12

// Manager owns every game of the process.
type Manager struct {
	store  GameStore
	calc   *ledger.Calculator
	policy balancing.Policy
	bus    eventbus.EventBus[events.Event]
	log    logger.Logger
	now    func() time.Time
	tick   time.Duration

	defaultMode   string
	defaultPreset *model.AssetConfigPreset
}

// NewManager wires a manager. Nil arguments fall back to an in-memory
// store, the merit order, no balancing penalty, a private bus and a no-op
// logger.
func NewManager(store GameStore, clearer dispatch.Clearer, policy balancing.Policy, bus eventbus.EventBus[events.Event], log logger.Logger) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	if policy == nil {
		policy = balancing.None{}
	}
	if bus == nil {
		bus = eventbus.NewTyped[events.Event]()
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Manager{
		store:  store,
		calc:   ledger.NewCalculator(clearer),
		policy: policy,
		bus:    bus,
		log:    log,
		now:    time.Now,
		tick:   DefaultTick,
	}
}

// SetClock replaces the wall clock used for timestamps.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// SetTickInterval changes the countdown resolution of games started later.
func (m *Manager) SetTickInterval(d time.Duration) {
	if d > 0 {
		m.tick = d
	}
}

// SetGameDefaults fills the mode and asset preset of create_game requests
// that omit them.
func (m *Manager) SetGameDefaults(mode string, preset *model.AssetConfigPreset) {
	m.defaultMode = mode
	m.defaultPreset = preset
}

// Bus returns the bus events are published on.
func (m *Manager) Bus() eventbus.EventBus[events.Event] { return m.bus }

func (m *Manager) room(id string) (*Room, error) {
	r, ok := m.store.Get(id)
	if !ok {
		return nil, &model.NotFoundError{Kind: "game", ID: id}
	}
	return r, nil
}

func (m *Manager) gameLog(r *Room) logger.Logger {
	return m.log.With(map[string]any{"game_id": r.game.ID})
}

func validateTeams(teams []model.TeamConfig) error {
	if len(teams) == 0 || len(teams) > MaxTeams {
		return &model.ValidationError{Field: "teams", Reason: fmt.Sprintf("need 1 to %d teams, got %d", MaxTeams, len(teams))}
	}
	seen := make(map[string]bool, len(teams))
	for i, t := range teams {
		if t.ID == "" {
			return &model.ValidationError{Field: fmt.Sprintf("teams[%d].id", i), Reason: "empty id"}
		}
		if seen[t.ID] {
			return &model.ValidationError{Field: fmt.Sprintf("teams[%d].id", i), Reason: fmt.Sprintf("duplicate id %q", t.ID)}
		}
		seen[t.ID] = true
	}
	return nil
}

// newGame builds the lobby state of a game from its configuration.
func newGame(id string, cfg model.GameConfig, total int, created time.Time) (model.Game, error) {
	teams := make([]model.Team, 0, len(cfg.Teams))
	for _, tc := range cfg.Teams {
		assets, err := catalog.BuildPortfolio(tc.ID, cfg.Preset)
		if err != nil {
			return model.Game{}, fmt.Errorf("team %s: %w", tc.ID, err)
		}
		name := tc.Name
		if name == "" {
			name = tc.ID
		}
		teams = append(teams, model.Team{ID: tc.ID, Name: name, Color: tc.Color, Assets: assets})
	}
	model.RankTeams(teams)
	return model.Game{
		ID:          id,
		Phase:       model.PhaseLobby,
		Config:      cfg,
		TotalRounds: total,
		Teams:       teams,
		CreatedAt:   created,
		UpdatedAt:   created,
	}, nil
}

func (r *Room) reset(g model.Game) {
	version := r.game.Version
	r.game = g
	r.game.Version = version
	r.book = nil
	r.effects = scenario.Neutral()
	r.avail = nil
	r.outage = nil
	seed := g.Config.Seed
	r.demand = demand.New(seed)
	r.rng = rand.New(rand.NewPCG(seed, seed^0x5bd1e995))
}

// CreateGame validates cfg and opens a game in the lobby. A zero seed is
// replaced by one derived from the clock.
func (m *Manager) CreateGame(cfg model.GameConfig) (model.Game, error) {
	if cfg.Mode == "" {
		cfg.Mode = m.defaultMode
	}
	if cfg.Preset == nil {
		cfg.Preset = m.defaultPreset
	}
	total, err := catalog.RoundCount(cfg.Mode)
	if err != nil {
		return model.Game{}, &model.ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", cfg.Mode)}
	}
	if err := validateTeams(cfg.Teams); err != nil {
		return model.Game{}, err
	}
	if err := catalog.ValidatePreset(cfg.Preset); err != nil {
		return model.Game{}, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(m.now().UnixNano())
	}
	cfg.Teams = append([]model.TeamConfig(nil), cfg.Teams...)
	g, err := newGame(uuid.NewString(), cfg, total, m.now())
	if err != nil {
		return model.Game{}, err
	}
	r := &Room{}
	r.reset(g)
	m.store.Put(r)

	r.mu.Lock()
	defer r.mu.Unlock()
	m.gameLog(r).Infof("game created in mode %s with %d teams", cfg.Mode, len(cfg.Teams))
	m.publishSnapshot(r)
	return r.game.Clone(), nil
}

// prepareRound loads round index from the catalogue and forecasts its
// demand. The room is left untouched on error.
func (m *Manager) prepareRound(r *Room, index int) error {
	rc, err := catalog.Lookup(r.game.Config.Mode, index)
	if err != nil {
		return err
	}
	eff, err := scenario.Compose(rc.Events)
	if err != nil {
		return fmt.Errorf("round %d: %w", index, err)
	}
	fleet := demand.FleetCapacityMW(r.game.Teams, rc)
	r.game.DemandForecastMW = r.demand.Forecast(fleet, rc.Season, eff.DemandMultiplier, rc.DemandVariationPct)
	r.game.DemandOverrideMW = nil
	r.game.CurrentRound = index
	r.game.Round = &rc
	r.game.BiddingTimeRemaining = rc.BiddingSeconds
	r.effects = eff
	r.book = nil
	r.avail = nil
	r.outage = nil
	return nil
}

func requirePhase(r *Room, action string, allowed ...model.Phase) error {
	for _, p := range allowed {
		if r.game.Phase == p {
			return nil
		}
	}
	return &model.PhaseError{Action: action, Phase: r.game.Phase}
}

// StartRound moves a game from the lobby into the briefing of its first round.
func (m *Manager) StartRound(gameID string) (model.Game, error) {
	r, err := m.room(gameID)
	if err != nil {
		return model.Game{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := requirePhase(r, "start_round", model.PhaseLobby); err != nil {
		return model.Game{}, err
	}
	if err := m.prepareRound(r, 0); err != nil {
		return model.Game{}, err
	}
	m.transition(r, model.PhaseBriefing)
	m.publishSnapshot(r)
	return r.game.Clone(), nil
}

// StartBidding draws the round outage, freezes availability and opens a
// fresh bid book with its countdown.
func (m *Manager) StartBidding(gameID string) (model.Game, error) {
	r, err := m.room(gameID)
	if err != nil {
		return model.Game{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := requirePhase(r, "start_bidding", model.PhaseBriefing); err != nil {
		return model.Game{}, err
	}
	round := *r.game.Round
	var outage *model.ForcedOutage
	if r.effects.ForcedOutage {
		outage = scenario.DrawOutage(r.rng, r.game.Teams, round)
	}
	r.outage = outage
	r.avail = r.effects.AvailabilityTable(r.game.Teams, round, outage)
	r.book = bidding.NewBook(bidding.BuildRequirements(r.game.Teams, round, r.avail, r.effects.SRMC))
	r.game.BiddingTimeRemaining = round.BiddingSeconds

	m.transition(r, model.PhaseBidding)
	if outage != nil {
		m.gameLog(r).Infof("forced outage of %s (team %s) in round %d", outage.AssetID, outage.TeamID, round.Index)
	}
	if round.BiddingSeconds > 0 {
		m.startTimer(r)
	}
	m.publishSnapshot(r)
	return r.game.Clone(), nil
}

// BidReceipt acknowledges an accepted submission.
type BidReceipt struct {
	Slots    int           `json:"slots"`
	Complete bool          `json:"complete"`
	Missing  []bidding.Key `json:"missing,omitempty"`
}

// SubmitBids upserts a team submission. Submissions of different teams do
// not contend on the room lock; the book serializes them per slot.
func (m *Manager) SubmitBids(gameID, teamID string, sub model.BidSubmission) (BidReceipt, error) {
	r, err := m.room(gameID)
	if err != nil {
		return BidReceipt{}, err
	}
	r.mu.Lock()
	perr := requirePhase(r, "submit_bids", model.PhaseBidding)
	_, known := r.game.Team(teamID)
	book := r.book
	r.mu.Unlock()
	if perr != nil {
		return BidReceipt{}, m.rejectBid(gameID, teamID, perr)
	}
	if !known {
		return BidReceipt{}, m.rejectBid(gameID, teamID, &model.NotFoundError{Kind: "team", ID: teamID})
	}
	if err := book.Submit(teamID, sub); err != nil {
		return BidReceipt{}, m.rejectBid(gameID, teamID, err)
	}
	missing := book.Missing(teamID)
	rc := BidReceipt{Slots: len(sub.Bids), Complete: len(missing) == 0, Missing: missing}
	bidsTotal.WithLabelValues("accepted").Inc()
	m.bus.Publish(events.BidAccepted{Game: gameID, TeamID: teamID, Slots: rc.Slots, Complete: rc.Complete})
	return rc, nil
}

func (m *Manager) rejectBid(gameID, teamID string, err error) error {
	bidsTotal.WithLabelValues("rejected").Inc()
	m.bus.Publish(events.BidRejected{Game: gameID, TeamID: teamID, Err: err})
	m.log.Debugw("bid rejected", map[string]any{"game_id": gameID, "team_id": teamID, "error": err.Error()})
	return err
}

// EndBidding closes the book and settles the round. When settlement fails
// the game stays in dispatching and EndBidding may be called again.
func (m *Manager) EndBidding(gameID string) (model.Game, error) {
	r, err := m.room(gameID)
	if err != nil {
		return model.Game{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := requirePhase(r, "end_bidding", model.PhaseBidding, model.PhaseDispatching); err != nil {
		return model.Game{}, err
	}
	if err := m.endBidding(r); err != nil {
		return r.game.Clone(), err
	}
	return r.game.Clone(), nil
}

// endBidding runs with r.mu held.
func (m *Manager) endBidding(r *Room) error {
	m.cancelTimer(r)
	if r.game.Phase == model.PhaseBidding {
		r.book.Close()
		r.game.BiddingTimeRemaining = 0
		m.transition(r, model.PhaseDispatching)
	}
	out, err := m.settle(r)
	if err != nil {
		m.gameLog(r).Errorf("settle round %d: %v", r.game.CurrentRound, err)
		m.publishSnapshot(r)
		return fmt.Errorf("settle round %d: %w", r.game.CurrentRound, err)
	}
	m.applySettlement(r, out)
	return nil
}

// settle clears and settles the frozen round. A panic is reported to the
// monitor and returned as an error.
func (m *Manager) settle(r *Room) (out ledger.Settlement, err error) {
	tags := map[string]string{"module": "lifecycle", "game_id": r.game.ID}
	defer func() {
		if rec := recover(); rec != nil {
			err = monitoring.CapturePanic(rec, tags)
		}
	}()
	demandMW := r.game.DemandForecastMW
	if len(r.game.DemandOverrideMW) == model.PeriodsPerRound {
		demandMW = r.game.DemandOverrideMW
	}
	out, err = m.calc.Settle(ledger.Input{
		Round:        *r.game.Round,
		Teams:        r.game.Teams,
		Book:         r.book,
		Effects:      r.effects,
		Availability: r.avail,
		DemandMW:     demandMW,
		Outage:       r.outage,
		Now:          m.now,
	})
	if err != nil {
		monitoring.CaptureException(err, tags)
	}
	return out, err
}

func (m *Manager) applySettlement(r *Room, out ledger.Settlement) {
	res := out.Result
	balancing.Apply(m.policy, &res)
	teams := out.Teams
	for i := range teams {
		tr, _ := res.Team(teams[i].ID)
		teams[i].CumulativeProfitDollars += tr.NetProfitDollars
		teams[i].History = append(teams[i].History, tr)
	}
	model.RankTeams(teams)
	r.game.Teams = teams
	r.game.RoundResults = append(r.game.RoundResults, res)
	roundsCleared.Inc()

	m.transition(r, model.PhaseResults)
	m.bus.Publish(events.RoundSettled{Game: r.game.ID, Mode: r.game.Config.Mode, Result: res})
	for _, f := range res.Withholding {
		m.bus.Publish(events.WithholdingFlagged{Game: r.game.ID, Round: res.Round, Flag: f})
	}
	m.gameLog(r).Infof("round %d settled with %d withholding flags", res.Round, len(res.Withholding))
	m.publishSnapshot(r)
}

// NextRound moves from results to the next briefing, or to final after the
// last round.
func (m *Manager) NextRound(gameID string) (model.Game, error) {
	r, err := m.room(gameID)
	if err != nil {
		return model.Game{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := requirePhase(r, "next_round", model.PhaseResults); err != nil {
		return model.Game{}, err
	}
	next := r.game.CurrentRound + 1
	if next >= r.game.TotalRounds {
		r.book = nil
		lb := model.RankTeams(r.game.Teams)
		m.transition(r, model.PhaseFinal)
		m.bus.Publish(events.GameFinished{Game: r.game.ID, Leaderboard: lb})
		m.gameLog(r).Infof("game finished after %d rounds", r.game.TotalRounds)
		m.publishSnapshot(r)
		return r.game.Clone(), nil
	}
	if err := m.prepareRound(r, next); err != nil {
		return model.Game{}, err
	}
	m.transition(r, model.PhaseBriefing)
	m.publishSnapshot(r)
	return r.game.Clone(), nil
}

// ResetGame cancels any countdown and rebuilds the game from its
// configuration, back in the lobby.
func (m *Manager) ResetGame(gameID string) (model.Game, error) {
	r, err := m.room(gameID)
	if err != nil {
		return model.Game{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	g, err := newGame(r.game.ID, r.game.Config, r.game.TotalRounds, r.game.CreatedAt)
	if err != nil {
		return model.Game{}, err
	}
	m.cancelTimer(r)
	from := r.game.Phase
	r.reset(g)
	r.game.Phase = from
	m.transition(r, model.PhaseLobby)
	m.gameLog(r).Warnf("game reset from phase %s", from)
	m.publishSnapshot(r)
	return r.game.Clone(), nil
}

// AdjustTimer adds seconds to the bidding countdown. Negative values remove
// time; the countdown never goes below zero and ends bidding on the next
// tick once it is there.
func (m *Manager) AdjustTimer(gameID string, seconds int) (model.Game, error) {
	r, err := m.room(gameID)
	if err != nil {
		return model.Game{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := requirePhase(r, "adjust_timer", model.PhaseBidding); err != nil {
		return model.Game{}, err
	}
	r.game.BiddingTimeRemaining = max(0, r.game.BiddingTimeRemaining+seconds)
	if r.stopTimer == nil {
		m.startTimer(r)
	}
	m.publishSnapshot(r)
	return r.game.Clone(), nil
}

// SetDemand overrides the demand of the current round. An empty override
// restores the forecast.
func (m *Manager) SetDemand(gameID string, mw []float64) (model.Game, error) {
	r, err := m.room(gameID)
	if err != nil {
		return model.Game{}, err
	}
	if len(mw) != 0 && len(mw) != model.PeriodsPerRound {
		return model.Game{}, &model.ValidationError{Field: "demand_mw", Reason: fmt.Sprintf("need %d periods, got %d", model.PeriodsPerRound, len(mw))}
	}
	for i, v := range mw {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return model.Game{}, &model.ValidationError{Field: fmt.Sprintf("demand_mw[%d]", i), Reason: "must be a finite non-negative number"}
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := requirePhase(r, "set_demand", model.PhaseBriefing, model.PhaseBidding); err != nil {
		return model.Game{}, err
	}
	r.game.DemandOverrideMW = append([]float64(nil), mw...)
	if len(mw) == 0 {
		r.game.DemandOverrideMW = nil
	}
	m.publishSnapshot(r)
	return r.game.Clone(), nil
}

// Game returns a snapshot of one game.
func (m *Manager) Game(gameID string) (model.Game, error) {
	r, err := m.room(gameID)
	if err != nil {
		return model.Game{}, err
	}
	return r.Snapshot(), nil
}

// Games returns snapshots of every game ordered by id.
func (m *Manager) Games() []model.Game {
	rooms := m.store.List()
	out := make([]model.Game, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Snapshot())
	}
	return out
}

// Leaderboard ranks the teams of a game by cumulative profit.
func (m *Manager) Leaderboard(gameID string) (model.Leaderboard, error) {
	g, err := m.Game(gameID)
	if err != nil {
		return nil, err
	}
	return model.RankTeams(g.Teams), nil
}

// TeamBidStatus is the bidding progress of one team.
type TeamBidStatus struct {
	TeamID   string        `json:"team_id"`
	Complete bool          `json:"complete"`
	Missing  []bidding.Key `json:"missing,omitempty"`
}

// BiddingStatus reports which teams still have slots to fill.
func (m *Manager) BiddingStatus(gameID string) ([]TeamBidStatus, error) {
	r, err := m.room(gameID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	book, phase := r.book, r.game.Phase
	ids := make([]string, 0, len(r.game.Teams))
	for _, t := range r.game.Teams {
		ids = append(ids, t.ID)
	}
	r.mu.Unlock()
	if book == nil {
		return nil, &model.PhaseError{Action: "bidding_status", Phase: phase}
	}
	out := make([]TeamBidStatus, 0, len(ids))
	for _, id := range ids {
		missing := book.Missing(id)
		out = append(out, TeamBidStatus{TeamID: id, Complete: len(missing) == 0, Missing: missing})
	}
	return out, nil
}

// Requirements lists the bid slots of a team for the open round.
func (m *Manager) Requirements(gameID, teamID string) ([]bidding.Requirement, error) {
	r, err := m.room(gameID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.game.Team(teamID); !ok {
		return nil, &model.NotFoundError{Kind: "team", ID: teamID}
	}
	if r.book == nil {
		return nil, &model.PhaseError{Action: "requirements", Phase: r.game.Phase}
	}
	return r.book.Requirements(teamID), nil
}

// DeleteGame stops the countdown of a game and forgets it.
func (m *Manager) DeleteGame(gameID string) error {
	r, err := m.room(gameID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	m.cancelTimer(r)
	r.mu.Unlock()
	m.store.Delete(gameID)
	m.bus.Publish(events.GameDeleted{Game: gameID})
	m.log.Infof("game %s deleted", gameID)
	return nil
}

// Prune deletes finished or idle lobby games not updated for olderThan and
// returns how many were removed.
func (m *Manager) Prune(olderThan time.Duration) int {
	cutoff := m.now().Add(-olderThan)
	var n int
	for _, r := range m.store.List() {
		phase, updated := r.phaseAndUpdate()
		if phase != model.PhaseFinal && phase != model.PhaseLobby {
			continue
		}
		if updated.After(cutoff) {
			continue
		}
		if err := m.DeleteGame(r.ID()); err == nil {
			n++
		}
	}
	return n
}

// transition runs with r.mu held.
func (m *Manager) transition(r *Room, to model.Phase) {
	from := r.game.Phase
	r.game.Phase = to
	phaseTransitions.WithLabelValues(string(to)).Inc()
	m.bus.Publish(events.PhaseChanged{Game: r.game.ID, Round: r.game.CurrentRound, From: from, To: to, At: m.now()})
	m.log.Debugw("phase changed", map[string]any{"game_id": r.game.ID, "from": string(from), "to": string(to)})
}

// publishSnapshot runs with r.mu held.
func (m *Manager) publishSnapshot(r *Room) {
	r.game.Version++
	r.game.UpdatedAt = m.now()
	m.bus.Publish(events.Snapshot{Game: r.game.Clone()})
}
