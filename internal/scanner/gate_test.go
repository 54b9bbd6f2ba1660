package scanner_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/insiderbot/internal/domain"
	"github.com/alejandrodnm/insiderbot/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockNotifier struct {
	mu       sync.Mutex
	notified []domain.Alert
	err      error
}

func (m *mockNotifier) Notify(_ context.Context, a domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, a)
	return m.err
}

func (m *mockNotifier) alerts() []domain.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Alert(nil), m.notified...)
}

type mockStorage struct {
	mu     sync.Mutex
	alerts []domain.AlertRecord
	cycles []domain.CycleStats
	err    error
}

func (m *mockStorage) SaveAlert(_ context.Context, rec domain.AlertRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, rec)
	return m.err
}

func (m *mockStorage) SaveCycle(_ context.Context, s domain.CycleStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles = append(m.cycles, s)
	return m.err
}

func (m *mockStorage) GetHistory(_ context.Context, _, _ time.Time) ([]domain.AlertRecord, error) {
	return nil, nil
}

func (m *mockStorage) Close() error { return nil }

// --- tests ---

func TestGate_ShouldAlert(t *testing.T) {
	g := scanner.NewGate(70)

	assert.True(t, g.ShouldAlert(domain.ScoreResult{Confidence: 70, Signals: []string{"x"}}))
	assert.True(t, g.ShouldAlert(domain.ScoreResult{Confidence: 100, Signals: []string{"x"}}))
	assert.False(t, g.ShouldAlert(domain.ScoreResult{Confidence: 69, Signals: []string{"x"}}))
	// sin señales no hay alerta, aunque la confianza alcance el umbral
	assert.False(t, g.ShouldAlert(domain.ScoreResult{Confidence: 100}))
}

func TestGate_ThresholdClamped(t *testing.T) {
	assert.Equal(t, 100, scanner.NewGate(150).Threshold())
	assert.Equal(t, 0, scanner.NewGate(-3).Threshold())
}

func TestDispatcher_MaybeAlert_Delivers(t *testing.T) {
	n := &mockNotifier{}
	store := &mockStorage{}
	d := scanner.NewDispatcher(scanner.NewGate(70), n, store, nil)

	tr := domain.Trade{
		Wallet:     "0x9d84ce0306f8551e02efef1680475fc0f1dc1344",
		MarketID:   "0xm",
		Timestamp:  time.Unix(1_760_000_000, 0),
		Notional:   60_000,
		Price:      0.03,
		MarketSlug: "will-x-happen",
	}
	res := domain.ScoreResult{Confidence: 95, Signals: []string{"💰 $60,000"}}

	ok := d.MaybeAlert(context.Background(), tr, domain.WalletProfile{}, res)

	require.True(t, ok)
	alerts := n.alerts()
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "https://polymarket.com/market/will-x-happen", a.MarketURL())
	assert.Equal(t, "0x9d84ce03...", a.WalletDisplay())
	assert.Equal(t, 95, a.Result.Confidence)

	require.Len(t, store.alerts, 1)
	assert.Equal(t, a.ID, store.alerts[0].ID)
	assert.True(t, store.alerts[0].Delivered)
}

func TestDispatcher_MaybeAlert_BelowThreshold(t *testing.T) {
	n := &mockNotifier{}
	d := scanner.NewDispatcher(scanner.NewGate(70), n, nil, nil)

	ok := d.MaybeAlert(context.Background(), domain.Trade{}, domain.WalletProfile{},
		domain.ScoreResult{Confidence: 40, Signals: []string{"x"}})

	assert.False(t, ok)
	assert.Empty(t, n.alerts())
}

func TestDispatcher_MaybeAlert_DeliveryFailureSwallowed(t *testing.T) {
	n := &mockNotifier{err: errors.New("discord down")}
	store := &mockStorage{}
	d := scanner.NewDispatcher(scanner.NewGate(70), n, store, nil)

	ok := d.MaybeAlert(context.Background(), domain.Trade{Wallet: "0xa"}, domain.WalletProfile{},
		domain.ScoreResult{Confidence: 80, Signals: []string{"x"}})

	assert.False(t, ok)
	assert.Len(t, n.alerts(), 1)
	require.Len(t, store.alerts, 1)
	assert.False(t, store.alerts[0].Delivered)
}

func TestDispatcher_MaybeAlert_UniqueIDs(t *testing.T) {
	n := &mockNotifier{}
	d := scanner.NewDispatcher(scanner.NewGate(0), n, nil, nil)
	res := domain.ScoreResult{Confidence: 10, Signals: []string{"x"}}

	d.MaybeAlert(context.Background(), domain.Trade{}, domain.WalletProfile{}, res)
	d.MaybeAlert(context.Background(), domain.Trade{}, domain.WalletProfile{}, res)

	alerts := n.alerts()
	require.Len(t, alerts, 2)
	assert.NotEqual(t, alerts[0].ID, alerts[1].ID)
	assert.Equal(t, 36, len(alerts[0].ID))
	assert.Equal(t, 4, strings.Count(alerts[0].ID, "-"))
}
