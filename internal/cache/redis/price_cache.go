package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/redis/go-redis/v9"
)

// midTTL bounds how long a mid-price survives without a refresh.
const midTTL = 10 * time.Minute

// PriceCache implements domain.PriceCache. Each token's last mid-price lives
// in a hash at "polyarb:mid:{tokenID}" with fields "mid" and "ts" (Unix
// nanoseconds).
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func midKey(tokenID string) string { return keyPrefix + "mid:" + tokenID }

// SetMid stores the latest mid-price for a token.
func (pc *PriceCache) SetMid(ctx context.Context, tokenID string, mid float64, ts time.Time) error {
	key := midKey(tokenID)
	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"mid": strconv.FormatFloat(mid, 'f', -1, 64),
		"ts":  strconv.FormatInt(ts.UnixNano(), 10),
	})
	pipe.Expire(ctx, key, midTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set mid %s: %w", tokenID, err)
	}
	return nil
}

// GetMid returns domain.ErrNotFound when no mid is cached for the token.
func (pc *PriceCache) GetMid(ctx context.Context, tokenID string) (float64, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, midKey(tokenID)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get mid %s: %w", tokenID, err)
	}
	mid, ts, ok, err := parseMid(vals)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse mid %s: %w", tokenID, err)
	}
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return mid, ts, nil
}

// GetMids fetches several tokens in one pipeline. Missing or unreadable
// entries are left out of the result.
func (pc *PriceCache) GetMids(ctx context.Context, tokenIDs []string) (map[string]float64, error) {
	if len(tokenIDs) == 0 {
		return map[string]float64{}, nil
	}

	pipe := pc.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(tokenIDs))
	for _, id := range tokenIDs {
		cmds[id] = pipe.HGetAll(ctx, midKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get mids pipeline: %w", err)
	}

	out := make(map[string]float64, len(tokenIDs))
	for id, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil {
			continue
		}
		if mid, _, ok, err := parseMid(vals); err == nil && ok {
			out[id] = mid
		}
	}
	return out, nil
}

func parseMid(vals map[string]string) (float64, time.Time, bool, error) {
	midStr, ok := vals["mid"]
	if !ok {
		return 0, time.Time{}, false, nil
	}
	mid, err := strconv.ParseFloat(midStr, 64)
	if err != nil {
		return 0, time.Time{}, false, err
	}
	var ts time.Time
	if tsStr, ok := vals["ts"]; ok {
		nanos, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return 0, time.Time{}, false, err
		}
		ts = time.Unix(0, nanos)
	}
	return mid, ts, true, nil
}

var _ domain.PriceCache = (*PriceCache)(nil)
