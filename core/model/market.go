package model

// Market conventions shared by every round. Prices are $/MWh, quantities MW.
const (
	PriceCap        = 20000.0
	PriceFloor      = -1000.0
	PeriodsPerRound = 4
	PeriodHours     = 6.0
)

// Season selects demand shapes and renewable capacity factors.
type Season string

const (
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
	SeasonWinter Season = "winter"
	SeasonSpring Season = "spring"
)

// Valid reports whether s is one of the four known seasons.
func (s Season) Valid() bool {
	switch s {
	case SeasonSummer, SeasonAutumn, SeasonWinter, SeasonSpring:
		return true
	}
	return false
}

// PeriodName returns the display label of a period index.
func PeriodName(p int) string {
	switch p {
	case 0:
		return "night"
	case 1:
		return "morning"
	case 2:
		return "afternoon"
	case 3:
		return "evening"
	default:
		return "unknown"
	}
}

// ValidPeriod reports whether p indexes one of the four periods of a round.
func ValidPeriod(p int) bool { return p >= 0 && p < PeriodsPerRound }

// BidBand is one price/quantity step offered for an asset in a period.
type BidBand struct {
	PriceMWh  float64 `json:"price_mwh"`
	OfferedMW float64 `json:"offered_mw"`
}

// BatteryMode is the single operating mode of a battery in a period.
type BatteryMode string

const (
	BatteryCharge    BatteryMode = "charge"
	BatteryIdle      BatteryMode = "idle"
	BatteryDischarge BatteryMode = "discharge"
)

// Valid reports whether m is a known battery mode.
func (m BatteryMode) Valid() bool {
	return m == BatteryCharge || m == BatteryIdle || m == BatteryDischarge
}

// BatteryBid describes what a battery does in one period. Either MW or
// TargetSOCMWh is set; a target is converted to an MW rate at clearing time.
type BatteryBid struct {
	Mode         BatteryMode `json:"mode"`
	MW           float64     `json:"mw"`
	TargetSOCMWh *float64    `json:"target_soc_mwh,omitempty"`
	PriceMWh     float64     `json:"price_mwh"`
}

// AssetBid is one team submission slot: an asset in a period.
type AssetBid struct {
	AssetID string      `json:"asset_id"`
	Period  int         `json:"period"`
	Bands   []BidBand   `json:"bands,omitempty"`
	Battery *BatteryBid `json:"battery,omitempty"`
}

// BidSubmission groups the slots a team sends in one message.
type BidSubmission struct {
	Bids []AssetBid `json:"bids"`
}
