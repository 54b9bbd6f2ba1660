package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/insiderbot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier imprimiendo cada alerta como tabla.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Notify imprime la alerta. Puede llamarse desde varios workers.
func (c *Console) Notify(_ context.Context, a domain.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := a.Trade
	fmt.Fprintf(c.out, "\n[%s] 🚨 INSIDER - %d%%  %s\n",
		a.CreatedAt.Local().Format("15:04:05"), a.Result.Confidence, marketLabel(t.MarketTitle, t.MarketID))

	table := tablewriter.NewWriter(c.out)
	table.Header("Field", "Value")
	table.Append("Outcome", orDash(t.Outcome))
	table.Append("Trade Value", formatUSD(t.Notional))
	table.Append("Odds", formatOdds(t.Price))
	table.Append("Side", string(t.Side))
	table.Append("Wallet", a.WalletDisplay())
	table.Append("History", historyLabel(a.Profile))
	table.Append("Signals", strings.Join(a.Result.Signals, "  "))
	table.Append("URL", a.MarketURL())
	table.Render()
	return nil
}

// PrintHistory imprime las alertas guardadas, más reciente primero.
func (c *Console) PrintHistory(records []domain.AlertRecord, from, to time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\nAlerts %s → %s: %d\n",
		from.Local().Format("2006-01-02 15:04"), to.Local().Format("2006-01-02 15:04"), len(records))
	if len(records) == 0 {
		fmt.Fprintln(c.out, "  No alerts in range.")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Sent", "Conf", "Market", "Outcome", "Value", "Odds", "Wallet", "Sent OK")

	var total float64
	delivered := 0
	for i, r := range records {
		total += r.Notional
		ok := "no"
		if r.Delivered {
			ok = "yes"
			delivered++
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			r.SentAt.Local().Format("01-02 15:04"),
			fmt.Sprintf("%d%%", r.Confidence),
			truncate(marketLabel(r.MarketTitle, r.MarketID), 40),
			orDash(r.Outcome),
			formatUSD(r.Notional),
			formatOdds(r.Price),
			domain.RedactWallet(r.Wallet),
			ok,
		)
	}
	table.Render()

	fmt.Fprintf(c.out, "  Delivered: %d/%d  |  Flagged volume: %s\n\n", delivered, len(records), formatUSD(total))
}

// --- helpers ---

func marketLabel(title, id string) string {
	if title != "" {
		return title
	}
	if len(id) > 14 {
		return id[:12] + "..."
	}
	return orDash(id)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
