package withholding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridmarket/core/model"
)

func TestEvaluateFlagsWithholdingTeams(t *testing.T) {
	positions := []Position{
		{TeamID: "red", AssetType: model.AssetCoal, AvailableMW: 800, OfferedMW: 200},
		{TeamID: "red", AssetType: model.AssetWind, AvailableMW: 200, OfferedMW: 200},
		{TeamID: "blue", AssetType: model.AssetCoal, AvailableMW: 800, OfferedMW: 800},
		{TeamID: "blue", AssetType: model.AssetHydro, AvailableMW: 200, OfferedMW: 0},
	}
	flags := Evaluate(2, positions)
	require.Len(t, flags, 1)
	f := flags[0]
	assert.Equal(t, "red", f.TeamID)
	assert.Equal(t, 2, f.Period)
	assert.Equal(t, 600.0, f.WithheldMW)
	assert.Equal(t, 1000.0, f.AvailableMW)
	assert.InDelta(t, 0.6, f.Share, 1e-12)
}

func TestEvaluateIgnoresRenewablesAndBoundary(t *testing.T) {
	positions := []Position{
		// exactly at the threshold is not flagged
		{TeamID: "red", AssetType: model.AssetGasCCGT, AvailableMW: 100, OfferedMW: 75},
		{TeamID: "sun", AssetType: model.AssetSolar, AvailableMW: 300, OfferedMW: 0},
		{TeamID: "green", AssetType: model.AssetBattery, AvailableMW: 100, OfferedMW: 0},
		{TeamID: "grey"},
	}
	assert.Empty(t, Evaluate(0, positions))
}

func TestEvaluateOrdersByTeam(t *testing.T) {
	positions := []Position{
		{TeamID: "zeta", AssetType: model.AssetCoal, AvailableMW: 100},
		{TeamID: "alpha", AssetType: model.AssetCoal, AvailableMW: 100},
	}
	flags := Evaluate(1, positions)
	require.Len(t, flags, 2)
	assert.Equal(t, "alpha", flags[0].TeamID)
	assert.Equal(t, "zeta", flags[1].TeamID)
}
