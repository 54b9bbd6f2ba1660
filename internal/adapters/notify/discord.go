package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/alejandrodnm/insiderbot/internal/domain"
	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
)

const (
	colorCritical = 0xE74C3C // rojo: confianza >= 90
	colorHigh     = 0xE67E22 // naranja

	criticalConfidence = 90
)

// embedSender es la parte de discordgo.Session que usamos.
type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord implementa ports.Notifier publicando un embed por alerta.
type Discord struct {
	session   *discordgo.Session
	sender    embedSender
	channelID string
}

// NewDiscord crea el notificador con un bot token y un canal.
// Solo usa la API REST: no abre el gateway.
func NewDiscord(token, channelID string) (*Discord, error) {
	if token == "" || channelID == "" {
		return nil, errors.New("notify.NewDiscord: bot token and channel id are required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("notify.NewDiscord: %w", err)
	}
	slog.Info("discord notifier initialized", "channel_id", channelID)
	return &Discord{session: session, sender: session, channelID: channelID}, nil
}

// Notify envía la alerta como embed.
func (d *Discord) Notify(ctx context.Context, a domain.Alert) error {
	embed := buildEmbed(a)
	if _, err := d.sender.ChannelMessageSendEmbed(d.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("notify.Discord: send embed: %w", err)
	}
	slog.Debug("sent discord alert", "alert_id", a.ID, "market", a.Trade.MarketTitle)
	return nil
}

// Close cierra la sesión de Discord.
func (d *Discord) Close() error {
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}

func buildEmbed(a domain.Alert) *discordgo.MessageEmbed {
	t := a.Trade

	color := colorHigh
	if a.Result.Confidence >= criticalConfidence {
		color = colorCritical
	}

	title := t.MarketTitle
	if title == "" {
		title = t.MarketID
	}
	description := fmt.Sprintf("**%s**", title)
	if t.Outcome != "" {
		description += "\n→ " + t.Outcome
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "💰 Trade Value", Value: formatUSD(t.Notional), Inline: true},
		{Name: "📊 Odds", Value: formatOdds(t.Price), Inline: true},
		{Name: "↔️ Side", Value: sideLabel(t.Side), Inline: true},
		{Name: "👤 Wallet", Value: a.WalletDisplay(), Inline: true},
		{Name: "📜 Wallet history", Value: historyLabel(a.Profile), Inline: true},
	}
	if len(a.Result.Signals) > 0 {
		lines := make([]string, len(a.Result.Signals))
		for i, s := range a.Result.Signals {
			lines[i] = "• " + s
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "🔍 Signals",
			Value: strings.Join(lines, "\n"),
		})
	}

	ts := t.Timestamp
	if ts.IsZero() {
		ts = a.CreatedAt
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🚨 INSIDER - %d%%", a.Result.Confidence),
		URL:         a.MarketURL(),
		Description: description,
		Color:       color,
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: "insiderbot · " + a.ID},
		Timestamp:   ts.UTC().Format(time.RFC3339),
	}
}

func formatUSD(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}

func formatOdds(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

func sideLabel(s domain.Side) string {
	switch s {
	case domain.SideBuy:
		return "🟢 BUY"
	case domain.SideSell:
		return "🔴 SELL"
	default:
		return "?"
	}
}

func historyLabel(p domain.WalletProfile) string {
	if p.FetchFailed {
		return "unavailable"
	}
	if p.IsUnknown() {
		return "first trade"
	}
	label := fmt.Sprintf("%d trades · %d markets", p.TradeCount, p.DistinctMarkets)
	if p.HasPnL {
		label += fmt.Sprintf(" · win %.0f%%", p.WinRate*100)
	}
	return label
}
