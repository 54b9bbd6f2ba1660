package scanner

// concurrent.go: worker pool para evaluar los trades de un ciclo en paralelo.
//
// El ledger y el prefiltro ya corrieron en orden del feed; aquí solo se
// paraleliza lo que hace I/O (lookup del wallet) y el dispatch.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/insiderbot/internal/domain"
)

// evaluateConcurrent evalúa los trades con un pool de workers.
// Los workers dejan de tomar trades cuando runCtx se cancela; las llamadas
// en vuelo usan netCtx y terminan.
//
// Si workers <= 0 usa runtime.NumCPU() × 2.
func (s *Scanner) evaluateConcurrent(
	runCtx, netCtx context.Context,
	trades []domain.Trade,
	workers int,
) []evaluation {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	if workers > len(trades) {
		workers = len(trades)
	}

	workCh := make(chan domain.Trade, len(trades))
	resultCh := make(chan evaluation, len(trades))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range workCh {
				if runCtx.Err() != nil {
					continue
				}
				resultCh <- s.evaluate(netCtx, t)
			}
		}()
	}

	for _, t := range trades {
		workCh <- t
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]evaluation, 0, len(trades))
	for r := range resultCh {
		results = append(results, r)
	}

	slog.Debug("concurrent evaluation complete",
		"trades_queued", len(trades),
		"evaluated", len(results),
		"workers", workers,
	)
	return results
}
