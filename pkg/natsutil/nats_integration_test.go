//go:build integration

package natsutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestPublishSubscribeRoundTrip(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("nats connect: %v", err)
	}
	defer nc.Close()

	got := make(chan IndexUpdated, 1)
	sub, err := Subscribe(nc, SubjectIndexUpdated, func(_ context.Context, e IndexUpdated) {
		got <- e
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	sent := IndexUpdated{Kind: "semantic", Path: "/tmp/semantic.json", Version: 1, Songs: 42}
	if err := Publish(context.Background(), nc, SubjectIndexUpdated, sent); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-got:
		if e != sent {
			t.Fatalf("got %+v, want %+v", e, sent)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
