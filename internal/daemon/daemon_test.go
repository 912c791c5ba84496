package daemon

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"skillswap/internal/bus"
	"skillswap/internal/cache"
	"skillswap/internal/config"
	"skillswap/internal/connection"
	"skillswap/internal/conversation"
	"skillswap/internal/durable"
	"skillswap/internal/handler"
	"skillswap/internal/lock"
	"skillswap/internal/notify"
)

func testComponents(t *testing.T, dir string) (*connection.Manager, *conversation.Manager, *handler.ConnectionHandler, *handler.ConversationHandler, *handler.NotificationHandler) {
	t.Helper()
	db, err := cache.Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop()
	b := bus.New()
	n := notify.New(db, b, logger)
	adapter := durable.NewMemory()
	conns := connection.NewManager(db, adapter, b, n, logger, "test")
	convs := conversation.NewManager(db, adapter, conns, b, n, nil, logger)
	return conns, convs,
		handler.NewConnectionHandler(conns),
		handler.NewConversationHandler(convs),
		handler.NewNotificationHandler(n)
}

func TestServerLifecycle(t *testing.T) {
	// Use a short path to avoid the 104-char Unix socket limit.
	tmpDir, err := os.MkdirTemp("/tmp", "swap-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	socketPath := filepath.Join(tmpDir, "d.sock")

	lk, err := lock.Acquire(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lk.Release() }()

	logger := zap.NewNop()
	_, _, connH, convH, notifH := testComponents(t, tmpDir)
	engine := handler.NewRouter(logger, connH, convH, notifH)

	p := Params{ProfileName: "test", SocketPath: socketPath, Durable: config.Durable{Driver: "memory"}}
	srv, err := NewServer(p, logger, engine)
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Start() }()

	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		},
		Timeout: 2 * time.Second,
	}

	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err = client.Get("http://daemon/healthz")
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("healthz over socket: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, body %s", resp.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	srv.Stop(ctx)

	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Error("socket file not removed on stop")
	}
}

func TestSeedIdempotent(t *testing.T) {
	conns, convs, _, _, _ := testComponents(t, t.TempDir())
	logger := zap.NewNop()
	ctx := context.Background()

	if err := Seed(ctx, "test", conns, convs, logger); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	views, err := conns.ListFor(ctx, "test")
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != len(seedPeers) {
		t.Fatalf("seeded %d relationships, want %d", len(views), len(seedPeers))
	}

	if err := Seed(ctx, "test", conns, convs, logger); err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}
	views, _ = conns.ListFor(ctx, "test")
	if len(views) != len(seedPeers) {
		t.Errorf("second seed changed relationship count to %d", len(views))
	}
}
