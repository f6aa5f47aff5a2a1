//go:build !no_containers

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/gridmarket/core/lifecycle"
	"github.com/kilianp07/gridmarket/core/model"
	"github.com/kilianp07/gridmarket/core/session"
)

func waitForMQTTReady(broker string, timeout time.Duration) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		lastErr = token.Error()
		time.Sleep(100 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for broker")
	}
	return lastErr
}

func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	conf := "listener 1883\nallow_anonymous true\npersistence false\n"
	path := filepath.Join(t.TempDir(), "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		t.Fatalf("write conf: %v", err)
	}
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			HostFilePath:      path,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container start: %v", err)
	}
	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())
	if err := waitForMQTTReady(broker, 5*time.Second); err != nil {
		t.Logf("mosquitto not ready at %s: %v", broker, err)
		t.Skip("Mosquitto not ready after retries")
	}
	return cont, broker
}

func TestCommandsOverMosquitto(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cont, broker := startMosquitto(ctx, t)
	defer func() { _ = cont.Terminate(context.Background()) }()

	cfg := Config{Broker: broker, ClientID: "server", TopicPrefix: "e2e", QoS: map[string]byte{"command": 1, "reply": 1}}
	srv, err := NewPahoClient(cfg)
	if err != nil {
		t.Fatalf("server client: %v", err)
	}
	defer srv.Disconnect()

	mgr := lifecycle.NewManager(nil, nil, nil, nil, nil)
	NewPublisher(srv, cfg.Topics(), nil).Start(ctx, mgr.Bus())
	if err := NewCommandListener(srv, mgr, session.NewRegistry(), cfg.Topics(), "", nil).Start(); err != nil {
		t.Fatalf("listener: %v", err)
	}

	player := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("player"))
	if token := player.Connect(); token.Wait() && token.Error() != nil {
		t.Fatalf("player connect: %v", token.Error())
	}
	defer player.Disconnect(100)

	var mu sync.Mutex
	var replies []Reply
	snapshots := make(chan model.Game, 16)
	player.Subscribe("e2e/+/reply/p1", 1, func(_ paho.Client, m paho.Message) {
		var r Reply
		if err := json.Unmarshal(m.Payload(), &r); err == nil {
			mu.Lock()
			replies = append(replies, r)
			mu.Unlock()
		}
	}).Wait()
	player.Subscribe("e2e/+/snapshot", 0, func(_ paho.Client, m paho.Message) {
		var g model.Game
		if err := json.Unmarshal(m.Payload(), &g); err == nil {
			select {
			case snapshots <- g:
			default:
			}
		}
	}).Wait()

	msg, _ := json.Marshal(CommandMessage{
		ConnectionID: "p1",
		Type:         lifecycle.CmdCreateGame,
		Config: &model.GameConfig{
			Mode:  "beginner",
			Teams: []model.TeamConfig{{ID: "red", Name: "Red"}, {ID: "blue", Name: "Blue"}},
		},
	})
	player.Publish(cfg.Topics().Command("new"), 1, false, msg).Wait()

	deadline := time.After(5 * time.Second)
	var created Reply
	for created.GameID == "" {
		select {
		case <-deadline:
			t.Fatalf("no reply to create_game")
		case <-time.After(50 * time.Millisecond):
		}
		mu.Lock()
		if len(replies) > 0 {
			created = replies[0]
		}
		mu.Unlock()
	}
	if !created.OK {
		t.Fatalf("create refused: %+v", created.Error)
	}

	msg, _ = json.Marshal(CommandMessage{ConnectionID: "p1", Type: lifecycle.CmdStartRound})
	player.Publish(cfg.Topics().Command(created.GameID), 1, false, msg).Wait()
	for {
		select {
		case g := <-snapshots:
			if g.ID == created.GameID && g.Phase == model.PhaseBriefing {
				return
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("no briefing snapshot")
		}
	}
}
