package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alanyoungcy/polyarb/internal/config"
	"github.com/alanyoungcy/polyarb/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunRefusesLiveBeforeWiring(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "live"
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1" // never dialled

	a := New(&cfg, discardLogger())
	defer a.Close()

	err := a.Run(context.Background(), true)
	if !errors.Is(err, domain.ErrLiveTradingUnsupported) {
		t.Fatalf("err = %v, want ErrLiveTradingUnsupported", err)
	}
}

func TestRunUnknownMode(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "monitor"

	if err := New(&cfg, discardLogger()).Run(context.Background(), true); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestRunSingleCycleAgainstFakeAPI(t *testing.T) {
	var listings, mids atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/markets":
			listings.Add(1)
			if r.URL.Query().Get("offset") != "0" {
				fmt.Fprint(w, `[]`)
				return
			}
			fmt.Fprint(w, `[{"id":"m1","question":"Will it rain?","volume_24hr":50000,"liquidity":1000,
				"tokens":[{"token_id":"y","outcome":"Yes","price":"0.45"},{"token_id":"n","outcome":"No","price":"0.50"}]}]`)
		case "/midpoint":
			mids.Add(1)
			if r.URL.Query().Get("token_id") == "y" {
				fmt.Fprint(w, `{"mid":"0.45"}`)
				return
			}
			fmt.Fprint(w, `{"mid":"0.50"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer api.Close()

	cfg := config.Defaults()
	cfg.Polymarket.GammaHost = api.URL
	cfg.Polymarket.ClobHost = api.URL
	cfg.Scan.PageDelay.Duration = 0
	cfg.Scan.EnrichDelay.Duration = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	a := New(&cfg, discardLogger())
	defer a.Close()

	if err := a.Run(context.Background(), true); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if listings.Load() != 1 {
		t.Errorf("listing requests = %d, want 1", listings.Load())
	}
	if mids.Load() != 2 {
		t.Errorf("midpoint requests = %d, want 2", mids.Load())
	}
}

func TestNewSessionID(t *testing.T) {
	a, b := newSessionID(), newSessionID()
	if len(a) != 8 || a == b {
		t.Fatalf("ids %q %q", a, b)
	}
}
