package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/insiderbot/internal/domain"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	channel string
	embeds  []*discordgo.MessageEmbed
	err     error
}

func (f *fakeSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel = channelID
	f.embeds = append(f.embeds, embed)
	return &discordgo.Message{}, f.err
}

func makeAlert() domain.Alert {
	return domain.Alert{
		ID: "7f1c2a9e-0000-4000-8000-000000000001",
		Trade: domain.Trade{
			Wallet:      "0x9d84ce0306f8551e02efef1680475fc0f1dc1344",
			MarketID:    "0xmarket",
			Timestamp:   time.Date(2026, 3, 2, 2, 30, 0, 0, time.UTC),
			Side:        domain.SideBuy,
			Outcome:     "Yes",
			Price:       0.03,
			Notional:    60_000,
			MarketTitle: "Will X happen?",
			MarketSlug:  "will-x-happen",
		},
		Profile:   domain.WalletProfile{},
		Result:    domain.ScoreResult{Confidence: 95, Signals: []string{"💰 $60,000", "🚨 3.0%"}},
		CreatedAt: time.Date(2026, 3, 2, 2, 31, 0, 0, time.UTC),
	}
}

func TestNewDiscord_RequiresCredentials(t *testing.T) {
	_, err := NewDiscord("", "123")
	assert.Error(t, err)
	_, err = NewDiscord("token", "")
	assert.Error(t, err)
}

func TestNewDiscord_NoNetwork(t *testing.T) {
	d, err := NewDiscord("fake-token", "123")
	require.NoError(t, err)
	assert.Equal(t, "123", d.channelID)
	assert.NoError(t, d.Close())
}

func TestDiscord_Notify_Embed(t *testing.T) {
	sender := &fakeSender{}
	d := &Discord{sender: sender, channelID: "chan-1"}

	err := d.Notify(context.Background(), makeAlert())
	require.NoError(t, err)

	assert.Equal(t, "chan-1", sender.channel)
	require.Len(t, sender.embeds, 1)
	e := sender.embeds[0]

	assert.Equal(t, "🚨 INSIDER - 95%", e.Title)
	assert.Equal(t, "https://polymarket.com/market/will-x-happen", e.URL)
	assert.Equal(t, "**Will X happen?**\n→ Yes", e.Description)
	assert.Equal(t, colorCritical, e.Color)
	assert.Equal(t, "2026-03-02T02:30:00Z", e.Timestamp)

	fields := map[string]string{}
	for _, f := range e.Fields {
		fields[f.Name] = f.Value
	}
	assert.Equal(t, "$60,000", fields["💰 Trade Value"])
	assert.Equal(t, "3.0%", fields["📊 Odds"])
	assert.Equal(t, "🟢 BUY", fields["↔️ Side"])
	assert.Equal(t, "0x9d84ce03...", fields["👤 Wallet"])
	assert.Equal(t, "first trade", fields["📜 Wallet history"])
	assert.Equal(t, "• 💰 $60,000\n• 🚨 3.0%", fields["🔍 Signals"])

	// el wallet completo nunca aparece
	for _, f := range e.Fields {
		assert.False(t, strings.Contains(f.Value, "0x9d84ce0306f8551e02efef1680475fc0f1dc1344"))
	}
}

func TestDiscord_Notify_NoSlugLinksHome(t *testing.T) {
	sender := &fakeSender{}
	d := &Discord{sender: sender, channelID: "chan-1"}
	a := makeAlert()
	a.Trade.MarketSlug = ""
	a.Result.Confidence = 75

	require.NoError(t, d.Notify(context.Background(), a))

	assert.Equal(t, "https://polymarket.com", sender.embeds[0].URL)
	assert.Equal(t, colorHigh, sender.embeds[0].Color)
}

func TestDiscord_Notify_SendError(t *testing.T) {
	d := &Discord{sender: &fakeSender{err: errors.New("403 missing access")}, channelID: "chan-1"}

	err := d.Notify(context.Background(), makeAlert())
	assert.ErrorContains(t, err, "403 missing access")
}

func TestHistoryLabel(t *testing.T) {
	assert.Equal(t, "unavailable", historyLabel(domain.WalletProfile{FetchFailed: true}))
	assert.Equal(t, "first trade", historyLabel(domain.WalletProfile{}))
	assert.Equal(t, "12 trades · 3 markets", historyLabel(domain.WalletProfile{TradeCount: 12, DistinctMarkets: 3}))
	assert.Equal(t, "12 trades · 3 markets · win 75%",
		historyLabel(domain.WalletProfile{TradeCount: 12, DistinctMarkets: 3, HasPnL: true, WinRate: 0.75}))
}
