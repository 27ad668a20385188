package redis

import (
	"context"
	"testing"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

func TestKeySchema(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{marketKey("0xabc"), "polyarb:market:0xabc"},
		{marketTokenKey("123"), "polyarb:market:token:123"},
		{midKey("123"), "polyarb:mid:123"},
		{lockKey("engine:cycle"), "polyarb:lock:engine:cycle"},
		{rateLimitKey("polymarket:gamma", 42), "polyarb:ratelimit:polymarket:gamma:42"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("key = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestTokensOfSkipsEmpty(t *testing.T) {
	got := tokensOf(domain.Market{YesToken: "y"})
	if len(got) != 1 || got[0] != "y" {
		t.Fatalf("tokensOf = %v", got)
	}
}

func TestParseMid(t *testing.T) {
	mid, ts, ok, err := parseMid(map[string]string{"mid": "0.515", "ts": "1700000000000000000"})
	if err != nil || !ok {
		t.Fatalf("parseMid: ok=%v err=%v", ok, err)
	}
	if mid != 0.515 || ts.Unix() != 1700000000 {
		t.Errorf("mid=%v ts=%v", mid, ts)
	}

	if _, _, ok, _ := parseMid(map[string]string{}); ok {
		t.Error("empty hash reported as present")
	}
	if _, _, _, err := parseMid(map[string]string{"mid": "x"}); err == nil {
		t.Error("expected parse error")
	}
}

func TestRateLimiterDisabledWithoutLimit(t *testing.T) {
	rl := &RateLimiter{limit: 0}
	ok, err := rl.Allow(context.Background(), "k")
	if err != nil || !ok {
		t.Fatalf("Allow = %v, %v", ok, err)
	}
}

func TestClientOptions(t *testing.T) {
	opts := ClientConfig{Addr: "cache:6380", DB: 2, PoolSize: 4}.options()
	if opts.Addr != "cache:6380" || opts.DB != 2 || opts.PoolSize != 4 || opts.TLSConfig != nil {
		t.Fatalf("opts = %+v", opts)
	}
	if (ClientConfig{TLSEnabled: true}).options().TLSConfig == nil {
		t.Fatal("TLS not configured")
	}
}
