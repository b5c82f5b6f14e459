package supervisor

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestProtocol_ServerClientHandshake(t *testing.T) {
	path := fmt.Sprintf("/rqc-test-%d", time.Now().UnixNano())

	server, err := CreateSharedRegion(path, 64)
	if err != nil {
		t.Fatalf("CreateSharedRegion: %v", err)
	}
	defer server.Close()

	client, err := OpenSharedRegion(path)
	if err != nil {
		t.Fatalf("OpenSharedRegion: %v", err)
	}
	defer func() { _ = client.Close() }()

	sup := New(Config{MaximumTestBytes: 64, Seed: 1}, zerolog.Nop())

	clientDone := make(chan ClientStatus, 1)
	go func() {
		client.storeClientStatus(ClientReady)
		for client.loadServerStatus() != ServerReady {
			time.Sleep(time.Millisecond)
		}
		payload := client.readPayload()
		if len(payload) == 0 {
			clientDone <- ClientFailed
			return
		}
		client.storeClientStatus(ClientPassed)
		clientDone <- ClientPassed
	}()

	var testsDelivered uint64
	deadline := time.Now().Add(time.Second)
	sawReady := false
	for testsDelivered == 0 && time.Now().Before(deadline) {
		progressed := sup.step(server, &testsDelivered)
		if progressed && server.loadServerStatus() == ServerReady {
			sawReady = true
		}
	}

	select {
	case status := <-clientDone:
		if status != ClientPassed {
			t.Fatalf("client reported %v, want ClientPassed", status)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for client")
	}

	if !sawReady {
		t.Fatalf("server never observed its own ServerReady transition")
	}
	if testsDelivered != 1 {
		t.Fatalf("testsDelivered = %d, want 1", testsDelivered)
	}
	if sup.stats.Passed.Load() != 1 {
		t.Fatalf("stats.Passed = %d, want 1", sup.stats.Passed.Load())
	}
}

func TestProtocol_NoReadyWithoutClientRequest(t *testing.T) {
	// Property 7: server_status must never be READY while client_status
	// is DEFAULT (the server only arms after the client requests work).
	path := fmt.Sprintf("/rqc-test-%d", time.Now().UnixNano())
	region, err := CreateSharedRegion(path, 64)
	if err != nil {
		t.Fatalf("CreateSharedRegion: %v", err)
	}
	defer region.Close()

	sup := New(Config{MaximumTestBytes: 64, Seed: 1}, zerolog.Nop())
	var testsDelivered uint64
	for i := 0; i < 10; i++ {
		sup.step(region, &testsDelivered)
		if region.loadServerStatus() == ServerReady && region.loadClientStatus() == ClientDefault {
			t.Fatalf("observed illegal state: server READY with client DEFAULT")
		}
	}
}
