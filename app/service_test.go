package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridmarket/config"
	"github.com/kilianp07/gridmarket/core/bots"
	dispatchlog "github.com/kilianp07/gridmarket/core/dispatch/logging"
	"github.com/kilianp07/gridmarket/core/lifecycle"
	"github.com/kilianp07/gridmarket/core/model"
	"github.com/kilianp07/gridmarket/infra/mqtt"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.API.Addr = "127.0.0.1:0"
	cfg.RoundLog.Path = filepath.Join(t.TempDir(), "rounds.log")
	cfg.MQTT.Broker = "tcp://broker:1883"
	return cfg
}

func withMockBroker(t *testing.T) *mqtt.MockClient {
	t.Helper()
	cli := mqtt.NewMockClient()
	prev := newBrokerClient
	newBrokerClient = func(mqtt.Config) (BrokerClient, error) { return cli, nil }
	t.Cleanup(func() { newBrokerClient = prev })
	return cli
}

func TestNewRejectsUnknownPlugins(t *testing.T) {
	cfg := testConfig(t)
	cfg.Clearer.Type = "pay_as_bid"
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.RoundLog.Backend = "postgres"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestNewSkipsBrokerWhenDisabled(t *testing.T) {
	withMockBroker(t)
	cfg := testConfig(t)
	cfg.Publish.DisableEgress = true
	cfg.Publish.DisableIngress = true
	svc, err := New(cfg)
	require.NoError(t, err)
	defer svc.Close()
	assert.Nil(t, svc.client)
}

func TestServiceEndToEnd(t *testing.T) {
	cli := withMockBroker(t)
	cfg := testConfig(t)
	svc, err := New(cfg)
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	topics := cfg.MQTT.Topics()
	require.Eventually(t, func() bool { return cli.Subscribed(topics.Commands()) }, time.Second, 10*time.Millisecond)

	payload, err := json.Marshal(mqtt.CommandMessage{
		ConnectionID: "host",
		Type:         lifecycle.CmdCreateGame,
		Config:       &model.GameConfig{Seed: 9, Teams: []model.TeamConfig{{ID: "red"}, {ID: "blue"}}},
	})
	require.NoError(t, err)
	cli.Deliver(topics.Command("new"), payload)
	replies := cli.Messages(topics.Reply("new", "host"))
	require.Len(t, replies, 1)
	var reply mqtt.Reply
	require.NoError(t, json.Unmarshal(replies[0].Payload, &reply))
	require.True(t, reply.OK, "%+v", reply.Error)
	gameID := reply.GameID
	assert.Equal(t, cfg.Game.DefaultMode, reply.Game.Config.Mode)

	require.Eventually(t, func() bool { return len(cli.Messages(topics.Snapshot(gameID))) > 0 }, time.Second, 10*time.Millisecond)

	_, err = bots.Play(svc.Manager, gameID, nil, nil)
	require.NoError(t, err)
	g, err := svc.Manager.Game(gameID)
	require.NoError(t, err)

	var recs []dispatchlog.LogRecord
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/api/games/"+gameID+"/rounds", nil)
		rr := httptest.NewRecorder()
		svc.API.ServeHTTP(rr, req)
		recs = nil
		return rr.Code == http.StatusOK && json.Unmarshal(rr.Body.Bytes(), &recs) == nil && len(recs) == g.TotalRounds
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, gameID, recs[0].GameID)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
}
