package websocket

import (
	"testing"
	"time"

	"github.com/dreschagin/bench-history/internal/application/dto"
	"github.com/dreschagin/bench-history/pkg/logger"
)

func TestClientSubscriptionFilter(t *testing.T) {
	client := NewClient(nil, nil, logger.New("error"))

	// Без подписки клиент получает все наборы
	if !client.wantsSuite("pytest-benchmarks") {
		t.Error("Expected unfiltered client to receive any suite")
	}

	client.subscribe([]string{"asv-benchmarks"})

	if client.wantsSuite("pytest-benchmarks") {
		t.Error("Expected subscribed client to skip other suites")
	}
	if !client.wantsSuite("asv-benchmarks") {
		t.Error("Expected subscribed client to receive its suite")
	}

	// Сообщения без набора доставляются всегда
	if !client.wantsSuite("") {
		t.Error("Expected suite-less messages to pass the filter")
	}

	// Пустая подписка снимает фильтр
	client.subscribe(nil)
	if !client.wantsSuite("pytest-benchmarks") {
		t.Error("Expected empty subscribe to reset the filter")
	}
}

func receiveMessage(t *testing.T, client *Client) Message {
	t.Helper()

	select {
	case msg := <-client.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for message")
		return Message{}
	}
}

func expectNoMessage(t *testing.T, client *Client) {
	t.Helper()

	select {
	case msg := <-client.send:
		t.Fatalf("Expected no message, got %q", msg.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubBroadcastRespectsSubscriptions(t *testing.T) {
	log := logger.New("error")
	hub := NewHub(log)
	go hub.Run()

	all := NewClient(hub, nil, log)
	filtered := NewClient(hub, nil, log)
	filtered.subscribe([]string{"asv-benchmarks"})

	hub.Register(all)
	hub.Register(filtered)

	hub.Broadcast(&dto.RunSnapshotDTO{
		Timestamp: time.Now(),
		Run:       &dto.RunDTO{Suite: "pytest-benchmarks"},
	})

	if msg := receiveMessage(t, all); msg.Type != "snapshot" {
		t.Errorf("Expected snapshot message, got %q", msg.Type)
	}
	expectNoMessage(t, filtered)

	hub.BroadcastAlert(&dto.RegressionAlertDTO{
		Timestamp: time.Now(),
		Level:     "critical",
		Suite:     "asv-benchmarks",
	})

	if msg := receiveMessage(t, all); msg.Type != "alert" {
		t.Errorf("Expected alert message, got %q", msg.Type)
	}
	if msg := receiveMessage(t, filtered); msg.Type != "alert" {
		t.Errorf("Expected alert message for subscribed suite, got %q", msg.Type)
	}
}
