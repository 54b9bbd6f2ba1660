package scanner_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/insiderbot/internal/domain"
	"github.com/alejandrodnm/insiderbot/internal/ports"
	"github.com/alejandrodnm/insiderbot/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockTradeSource struct {
	mu      sync.Mutex
	trades  []domain.Trade
	err     error
	calls   int
	started chan struct{} // si no es nil, se cierra en la primera llamada
	release chan struct{} // si no es nil, bloquea hasta que se cierre
}

func (m *mockTradeSource) FetchRecentTrades(_ context.Context, _ int) ([]domain.Trade, error) {
	m.mu.Lock()
	m.calls++
	first := m.calls == 1
	m.mu.Unlock()

	if first && m.started != nil {
		close(m.started)
	}
	if m.release != nil {
		<-m.release
	}
	return m.trades, m.err
}

// --- helpers ---

type fixture struct {
	source   *mockTradeSource
	history  *mockHistoryProvider
	notifier *mockNotifier
	storage  *mockStorage
}

func newFixture(trades ...domain.Trade) *fixture {
	return &fixture{
		source:   &mockTradeSource{trades: trades},
		history:  &mockHistoryProvider{history: map[string][]domain.Trade{}},
		notifier: &mockNotifier{},
		storage:  &mockStorage{},
	}
}

func (f *fixture) scanner(cfg scanner.Config) *scanner.Scanner {
	var metrics ports.Metrics = ports.NopMetrics{}
	resolver := scanner.NewWalletResolver(scanner.DefaultResolverConfig(), f.history, metrics)
	engine := scanner.NewEngine(scanner.DefaultScoringConfig(), nil)
	dispatcher := scanner.NewDispatcher(scanner.NewGate(scanner.DefaultAlertThreshold), f.notifier, f.storage, metrics)
	return scanner.New(cfg, f.source, scanner.NewLedger(100), resolver, engine, dispatcher, f.storage, metrics)
}

func insiderTrade(wallet string) domain.Trade {
	return domain.Trade{
		Wallet:      wallet,
		MarketID:    "0xmarket",
		Timestamp:   time.Now().Add(-time.Minute).Truncate(time.Second),
		Side:        domain.SideBuy,
		Outcome:     "Yes",
		Price:       0.03,
		Notional:    60_000,
		MarketTitle: "Will X happen?",
		MarketSlug:  "will-x-happen",
	}
}

func smallTrade(wallet string) domain.Trade {
	t := insiderTrade(wallet)
	t.Notional = 3_000
	return t
}

// --- tests ---

func TestScanner_RunOnce_AlertsInsiderTrade(t *testing.T) {
	f := newFixture(insiderTrade("0xnew"))
	s := f.scanner(scanner.DefaultConfig())

	stats, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Fetched)
	assert.Equal(t, 1, stats.New)
	assert.Equal(t, 1, stats.Scored)
	assert.Equal(t, 1, stats.Alerts)

	alerts := f.notifier.alerts()
	require.Len(t, alerts, 1)
	assert.GreaterOrEqual(t, alerts[0].Result.Confidence, 80)
	assert.True(t, alerts[0].Result.Stage1Passed)
	assert.NotEmpty(t, alerts[0].Result.Signals)
	assert.Equal(t, int64(1), s.TotalAlerts())

	require.Len(t, f.storage.cycles, 1)
	require.Len(t, f.storage.alerts, 1)
}

func TestScanner_RunOnce_NoDuplicateAlerts(t *testing.T) {
	f := newFixture(insiderTrade("0xnew"))
	s := f.scanner(scanner.DefaultConfig())

	_, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	stats, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 0, stats.New)
	assert.Equal(t, 0, stats.Alerts)
	assert.Len(t, f.notifier.alerts(), 1)
	assert.Equal(t, int64(1), s.TotalAlerts())
}

func TestScanner_RunOnce_BelowFloorNoLookup(t *testing.T) {
	f := newFixture(smallTrade("0xa"), smallTrade("0xb"))
	s := f.scanner(scanner.DefaultConfig())

	stats, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Prefiltered)
	assert.Equal(t, 0, stats.Scored)
	assert.Equal(t, int32(0), f.history.calls.Load())
	assert.Empty(t, f.notifier.alerts())
}

func TestScanner_RunOnce_SingleStageLooksUpEveryTrade(t *testing.T) {
	f := newFixture(smallTrade("0xa"), insiderTrade("0xb"))
	cfg := scanner.DefaultConfig()
	cfg.TwoStage = false
	s := f.scanner(cfg)

	stats, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scored)
	assert.Equal(t, 1, stats.Alerts)
	assert.Equal(t, int32(2), f.history.calls.Load())
	assert.False(t, f.notifier.alerts()[0].Result.Stage1Passed)
}

func TestScanner_RunOnce_FeedErrorIsEmptyCycle(t *testing.T) {
	f := newFixture()
	f.source.err = fmt.Errorf("data-api.FetchRecentTrades: %w", domain.ErrFeedUnavailable)
	s := f.scanner(scanner.DefaultConfig())

	stats, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.True(t, stats.FeedError)
	assert.Equal(t, 0, stats.Fetched)
	assert.Empty(t, f.notifier.alerts())
	require.Len(t, f.storage.cycles, 1)
}

func TestScanner_RunOnce_RejectsUnscoreable(t *testing.T) {
	noWallet := insiderTrade("")
	noTime := insiderTrade("0xa")
	noTime.Timestamp = time.Time{}
	f := newFixture(noWallet, noTime, insiderTrade("0xb"))
	s := f.scanner(scanner.DefaultConfig())

	stats, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rejected)
	assert.Equal(t, 1, stats.New)
	assert.Len(t, f.notifier.alerts(), 1)
}

func TestScanner_RunOnce_WalletFailureFailsOpen(t *testing.T) {
	f := newFixture(insiderTrade("0xnew"))
	f.history.err = errors.New("data api timeout")
	s := f.scanner(scanner.DefaultConfig())

	stats, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.WalletErrors)
	assert.Equal(t, 1, stats.Alerts)
	alerts := f.notifier.alerts()
	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].Profile.FetchFailed)
}

func TestScanner_RunOnce_EstablishedWalletNoAlert(t *testing.T) {
	tr := insiderTrade("0xwhale")
	tr.Price = 0.5
	f := newFixture(tr)
	var history []domain.Trade
	for i := 0; i < 150; i++ {
		history = append(history, domain.Trade{MarketID: fmt.Sprintf("m%d", i%40), Notional: 100})
	}
	f.history.history["0xwhale"] = history
	s := f.scanner(scanner.DefaultConfig())

	stats, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Scored)
	assert.Equal(t, 0, stats.Alerts)
}

func TestScanner_RunOnce_NotifierFailureContinues(t *testing.T) {
	f := newFixture(insiderTrade("0xa"), insiderTrade("0xb"))
	f.notifier.err = errors.New("discord down")
	s := f.scanner(scanner.DefaultConfig())

	stats, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scored)
	assert.Equal(t, 0, stats.Alerts)
	assert.Len(t, f.notifier.alerts(), 2)
}

func TestScanner_RunOnce_MaxTradesPerCycle(t *testing.T) {
	var trades []domain.Trade
	for i := 0; i < 10; i++ {
		trades = append(trades, insiderTrade(fmt.Sprintf("0x%d", i)))
	}
	f := newFixture(trades...)
	cfg := scanner.DefaultConfig()
	cfg.MaxTradesPerCycle = 3
	s := f.scanner(cfg)

	stats, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 10, stats.Fetched)
	assert.Equal(t, 3, stats.New)
	assert.Len(t, f.notifier.alerts(), 3)
	// el recorte respeta el orden del feed
	assert.Equal(t, "0x0", f.notifier.alerts()[0].Trade.Wallet)
}

func TestScanner_RunOnce_ConcurrentWorkers(t *testing.T) {
	var trades []domain.Trade
	for i := 0; i < 20; i++ {
		trades = append(trades, insiderTrade(fmt.Sprintf("0x%d", i%5)))
		trades[i].MarketID = fmt.Sprintf("0xm%d", i)
	}
	f := newFixture(trades...)
	cfg := scanner.DefaultConfig()
	cfg.Workers = 4
	s := f.scanner(cfg)

	stats, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 20, stats.Scored)
	assert.Equal(t, 20, stats.Alerts)
	// 5 wallets distintos: un lookup por wallet gracias a caché + singleflight
	assert.LessOrEqual(t, f.history.calls.Load(), int32(5))
}

func TestScanner_RunOnce_OverlapSkipped(t *testing.T) {
	f := newFixture(insiderTrade("0xa"))
	f.source.started = make(chan struct{})
	f.source.release = make(chan struct{})
	s := f.scanner(scanner.DefaultConfig())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunOnce(context.Background())
	}()
	<-f.source.started

	_, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, scanner.ErrCycleInProgress)
	assert.Equal(t, int64(1), s.SkippedCycles())

	close(f.source.release)
	<-done
	assert.Len(t, f.notifier.alerts(), 1)
}

func TestScanner_RunOnce_CancelledStopsTakingTrades(t *testing.T) {
	f := newFixture(insiderTrade("0xa"), insiderTrade("0xb"))
	s := f.scanner(scanner.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := s.RunOnce(ctx)

	require.NoError(t, err)
	assert.True(t, stats.Interrupted)
	assert.Equal(t, 0, stats.Scored)
	assert.Empty(t, f.notifier.alerts())
}

func TestScanner_Run_Once(t *testing.T) {
	f := newFixture(insiderTrade("0xa"))
	cfg := scanner.DefaultConfig()
	cfg.Once = true
	s := f.scanner(cfg)

	err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Len(t, f.notifier.alerts(), 1)
}

func TestScanner_Run_StopsOnCancel(t *testing.T) {
	f := newFixture(insiderTrade("0xa"))
	cfg := scanner.DefaultConfig()
	cfg.ScanInterval = 20 * time.Millisecond
	s := f.scanner(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)

	require.NoError(t, err)
	f.source.mu.Lock()
	calls := f.source.calls
	f.source.mu.Unlock()
	assert.GreaterOrEqual(t, calls, 2)
	// el mismo trade en cada ciclo: una sola alerta
	assert.Len(t, f.notifier.alerts(), 1)
}
