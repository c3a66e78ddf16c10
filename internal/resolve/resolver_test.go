// v1
// internal/resolve/resolver_test.go
package resolve

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"focusquality/engine/internal/core"
)

type fakeBackend struct {
	name      string
	cfgErr    error
	fetchErr  error
	value     float64
	calls     int
	fetchWait time.Duration
}

func (f *fakeBackend) Name() string    { return f.name }
func (f *fakeBackend) Validate() error { return f.cfgErr }

func (f *fakeBackend) Fetch(ctx context.Context) (float64, error) {
	f.calls++
	if f.fetchWait > 0 {
		select {
		case <-time.After(f.fetchWait):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if f.fetchErr != nil {
		return 0, f.fetchErr
	}
	return f.value, nil
}

func testConfig() Config {
	return Config{TTL: time.Minute, FetchTimeout: time.Second, ValueMin: 0, ValueMax: 200}
}

func TestFallbackOrderStopsAtFirstSuccess(t *testing.T) {
	a := &fakeBackend{name: "a", fetchErr: errors.New("down")}
	b := &fakeBackend{name: "b", value: 55}
	c := &fakeBackend{name: "c", value: 99}

	r := New(core.Physiological, []Backend{a, b, c}, nil, testConfig(), nil, nil)
	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got.Value != 55 || got.Source != "b" {
		t.Fatalf("expected b's value, got %+v", got)
	}
	if c.calls != 0 {
		t.Fatalf("lower-ranked backend must not be called after a success, got %d calls", c.calls)
	}
}

func TestCacheSuppressesFetchesWithinTTL(t *testing.T) {
	b := &fakeBackend{name: "b", value: 60}
	r := New(core.Physiological, []Backend{b}, nil, testConfig(), nil, nil)

	if _, err := r.Resolve(context.Background()); err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	if _, err := r.Resolve(context.Background()); err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if b.calls != 1 {
		t.Fatalf("expected a single backend fetch within the TTL window, got %d", b.calls)
	}
}

func TestInvalidConfigSkipped(t *testing.T) {
	a := &fakeBackend{name: "a", cfgErr: errors.New("missing access token")}
	b := &fakeBackend{name: "b", value: 48}

	r := New(core.Physiological, []Backend{a, b}, nil, testConfig(), nil, nil)
	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if a.calls != 0 {
		t.Fatalf("backend with incomplete config must not be fetched")
	}
	if got.Source != "b" {
		t.Fatalf("expected b, got %q", got.Source)
	}
}

func TestOutOfRangeValueTreatedAsFailure(t *testing.T) {
	a := &fakeBackend{name: "a", value: 5000}
	b := &fakeBackend{name: "b", value: 62}

	r := New(core.Physiological, []Backend{a, b}, nil, testConfig(), nil, nil)
	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got.Source != "b" || got.Value != 62 {
		t.Fatalf("out-of-range value should fall through to next backend, got %+v", got)
	}
}

func TestNonFiniteValueTreatedAsFailure(t *testing.T) {
	a := &fakeBackend{name: "a", value: math.NaN()}
	b := &fakeBackend{name: "b", value: 70}

	cfg := Config{TTL: time.Minute, FetchTimeout: time.Second}
	r := New(core.Physiological, []Backend{a, b}, nil, cfg, nil, nil)
	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got.Source != "b" {
		t.Fatalf("NaN should fall through to next backend, got %+v", got)
	}
}

func TestFetchTimeoutBoundsAttempt(t *testing.T) {
	slow := &fakeBackend{name: "slow", value: 50, fetchWait: time.Second}
	fast := &fakeBackend{name: "fast", value: 51}

	cfg := testConfig()
	cfg.FetchTimeout = 20 * time.Millisecond
	r := New(core.Physiological, []Backend{slow, fast}, nil, cfg, nil, nil)

	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got.Source != "fast" {
		t.Fatalf("slow backend should time out, got %+v", got)
	}
}

func TestAllFailWithFallback(t *testing.T) {
	a := &fakeBackend{name: "a", fetchErr: errors.New("down")}
	b := &fakeBackend{name: "b", fetchErr: errors.New("down")}
	sim := &fakeBackend{name: "simulated", value: 65}

	r := New(core.Physiological, []Backend{a, b}, sim, testConfig(), nil, nil)
	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got.Source != "simulated" {
		t.Fatalf("expected fallback value, got %+v", got)
	}
}

func TestAllFailNoFallbackSignalsExhaustion(t *testing.T) {
	a := &fakeBackend{name: "a", fetchErr: errors.New("down")}

	r := New(core.Physiological, []Backend{a}, nil, testConfig(), nil, nil)
	if _, err := r.Resolve(context.Background()); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestStalePolicyReturnsExpiredEntry(t *testing.T) {
	good := &fakeBackend{name: "good", value: 58}
	cfg := testConfig()
	cfg.TTL = 10 * time.Millisecond
	cfg.AllowStale = true

	r := New(core.Physiological, []Backend{good}, nil, cfg, nil, nil)
	if _, err := r.Resolve(context.Background()); err != nil {
		t.Fatalf("warmup resolve failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	good.fetchErr = errors.New("now down")

	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("stale policy should rescue the resolve: %v", err)
	}
	if got.Value != 58 || got.Source != "good" {
		t.Fatalf("expected stale entry, got %+v", got)
	}
}

func TestStalePolicyDisabledErrors(t *testing.T) {
	good := &fakeBackend{name: "good", value: 58}
	cfg := testConfig()
	cfg.TTL = 10 * time.Millisecond

	r := New(core.Physiological, []Backend{good}, nil, cfg, nil, nil)
	if _, err := r.Resolve(context.Background()); err != nil {
		t.Fatalf("warmup resolve failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	good.fetchErr = errors.New("now down")

	if _, err := r.Resolve(context.Background()); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted with stale policy off, got %v", err)
	}
}
