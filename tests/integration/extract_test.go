//go:build integration

package integration

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/rise-explorer-client/internal/testutil"
	"github.com/Sternrassler/rise-explorer-client/pkg/client"
	"github.com/Sternrassler/rise-explorer-client/pkg/explorer"
	"github.com/Sternrassler/rise-explorer-client/pkg/extractor"
	"github.com/Sternrassler/rise-explorer-client/pkg/manifest"
	"github.com/Sternrassler/rise-explorer-client/pkg/output"
	"github.com/Sternrassler/rise-explorer-client/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// newStack wires client, accumulator, API and extractor against baseURL.
func newStack(t *testing.T, baseURL string, store manifest.Store) (*extractor.Extractor, string) {
	t.Helper()

	cfg := client.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.RetryDelay = 10 * time.Millisecond
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	dir := t.TempDir()
	layout := output.NewLayout(dir)
	if err := layout.Init(); err != nil {
		t.Fatalf("Failed to init layout: %v", err)
	}

	api := explorer.New(c, pagination.NewAccumulator(c, pagination.DefaultConfig()))
	return extractor.New(api, layout, extractor.WithManifestStore(store)), dir
}

// TestExtract_TokenHoldersWithRedisManifest runs a paged extraction through
// a flaky explorer and records the manifest in a real Redis.
func TestExtract_TokenHoldersWithRedisManifest(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockExplorer()
	defer mock.Close()

	holders := make([]map[string]any, 0, 250)
	for i := 0; i < 250; i++ {
		holders = append(holders, map[string]any{"address": "0xholder", "value": "1"})
	}
	mock.SetPagedRecords("token.getTokenHolders", holders)
	mock.SetHandler("token.getToken", testutil.NewFlakyHandler(1,
		testutil.NewOKResponse(map[string]any{"name": "Rise", "symbol": "RISE"})))

	store := manifest.NewRedisStore(redisClient, manifest.DefaultRedisConfig())
	ext, dir := newStack(t, mock.URL(), store)

	ctx := context.Background()
	m, err := ext.TokenHolders(ctx, "0xcontract0000", 220)
	if err != nil {
		t.Fatalf("TokenHolders() failed: %v", err)
	}

	if m.Counts["holders"] != 220 {
		t.Errorf("Expected 220 holders, got %d", m.Counts["holders"])
	}
	if mock.CountAction("token.getToken") != 2 {
		t.Errorf("Expected token info to be retried once, got %d calls", mock.CountAction("token.getToken"))
	}

	for _, path := range m.Files {
		if !strings.HasPrefix(path, dir) {
			t.Errorf("File %s written outside %s", path, dir)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Manifest lists missing file %s: %v", path, err)
		}
	}

	stored, err := store.Get(ctx, m.Entity, m.Timestamp)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if stored.Subject != "0xcontract0000" {
		t.Errorf("Expected stored subject 0xcontract0000, got %q", stored.Subject)
	}

	latest, err := store.Latest(ctx, 5)
	if err != nil {
		t.Fatalf("Latest() failed: %v", err)
	}
	if len(latest) != 1 {
		t.Errorf("Expected 1 indexed manifest, got %d", len(latest))
	}
}

// TestExtract_CancelDuringBlocks stops a block range midway.
func TestExtract_CancelDuringBlocks(t *testing.T) {
	mock := testutil.NewMockExplorer()
	defer mock.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock.SetHandler("block.getblockreward", func(w http.ResponseWriter, r *http.Request, p url.Values) {
		if p.Get("blockno") == "5" {
			cancel()
		}
		w.Write([]byte(testutil.NewOKResponse(map[string]any{"blockNumber": p.Get("blockno")}).Body))
	})

	ext, _ := newStack(t, mock.URL(), manifest.NopStore{})

	_, err := ext.Blocks(ctx, 1, 100)
	if err == nil {
		t.Fatal("Expected cancellation error")
	}
	if n := mock.CountAction("block.getblockreward"); n >= 100 {
		t.Errorf("Expected extraction to stop early, got %d requests", n)
	}
}

// TestLiveExplorer_EthSupply talks to the public testnet explorer when
// RISE_LIVE_TESTS is set.
func TestLiveExplorer_EthSupply(t *testing.T) {
	if os.Getenv("RISE_LIVE_TESTS") == "" {
		t.Skip("RISE_LIVE_TESTS not set")
	}

	c, err := client.New(client.DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	env, err := explorer.New(c, nil).EthSupply(ctx)
	if err != nil {
		t.Fatalf("EthSupply() failed: %v", err)
	}
	if !env.OK() {
		t.Errorf("Expected status 1, got %q (%s)", env.Status, env.Message)
	}
}
