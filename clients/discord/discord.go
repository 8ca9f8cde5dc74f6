package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cescps/poly-insider/clients/notifier"
	"github.com/cescps/poly-insider/config"
	"go.uber.org/zap"
)

// DiscordClient sends alerts to Discord.
// Implements notifier.Notifier interface.
type DiscordClient struct {
	logger    *zap.Logger
	session   *discordgo.Session
	channelID string
	isProd    bool
}

func NewDiscordClient(logger *zap.Logger, cfg *config.Config) *DiscordClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	channelID := cfg.Discord.BetaChannelID
	if cfg.IsProd {
		channelID = cfg.Discord.ProdChannelID
	}

	token := cfg.Discord.BotToken
	if token == "" {
		logger.Warn("DISCORD_BOT_TOKEN not set, Discord alerts disabled")
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("failed to create discord session", zap.Error(err))
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	logger.Info("discord bot initialized",
		zap.Bool("isProd", cfg.IsProd),
		zap.String("channelID", channelID),
	)

	return &DiscordClient{
		logger:    logger,
		session:   session,
		channelID: channelID,
		isProd:    cfg.IsProd,
	}
}

// SendMessage sends a plain text message.
func (dc *DiscordClient) SendMessage(message string) {
	if dc.session == nil {
		dc.logger.Warn("discord session not initialized, skipping message")
		return
	}

	_, err := dc.session.ChannelMessageSend(dc.channelID, message)
	if err != nil {
		dc.logger.Error("failed to send discord message", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord message")
}

// SendTradeAlert sends a rich embedded insider trade alert.
// Implements notifier.Notifier interface.
func (dc *DiscordClient) SendTradeAlert(alert notifier.TradeAlert) {
	if dc.session == nil {
		dc.logger.Warn("discord session not initialized, skipping alert")
		return
	}

	embed := dc.buildTradeEmbed(alert)

	_, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed)
	if err != nil {
		dc.logger.Error("failed to send discord embed", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord trade alert",
		zap.String("wallet", shortAddress(alert.Wallet)),
		zap.String("market", alert.MarketName),
		zap.Int("score", alert.Score),
	)
}

func (dc *DiscordClient) buildTradeEmbed(alert notifier.TradeAlert) *discordgo.MessageEmbed {
	color := bandColor(alert.Band)

	sideEmoji := "🟢"
	if strings.ToUpper(alert.Side) == "SELL" {
		sideEmoji = "🔴"
	}

	walletDisplay := shortAddress(alert.Wallet)
	if alert.WalletName != "" {
		walletDisplay = fmt.Sprintf("%s (%s)", alert.WalletName, walletDisplay)
	}
	if alert.Wallet != "" {
		walletDisplay = fmt.Sprintf("[%s](https://polymarket.com/profile/%s)", walletDisplay, alert.Wallet)
	}

	marketDisplay := alert.MarketName
	if alert.MarketSlug != "" {
		marketDisplay = fmt.Sprintf("[%s](https://polymarket.com/event/%s)", alert.MarketName, alert.MarketSlug)
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Wallet",
			Value:  walletDisplay,
			Inline: true,
		},
		{
			Name:   "Side",
			Value:  fmt.Sprintf("%s %s", sideEmoji, alert.Side),
			Inline: true,
		},
		{
			Name:   "Size",
			Value:  fmt.Sprintf("$%.2f", alert.SizeUSD),
			Inline: true,
		},
		{
			Name:   "Outcome",
			Value:  alert.Outcome,
			Inline: true,
		},
		{
			Name:   "Insider Score",
			Value:  fmt.Sprintf("%d/100 (%s)", alert.Score, alert.Band),
			Inline: true,
		},
	}
	if alert.NewTrades > 1 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "New Trades",
			Value:  fmt.Sprintf("%d in this batch", alert.NewTrades),
			Inline: true,
		})
	}

	ts := alert.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return &discordgo.MessageEmbed{
		Title:       "🎯 New Insider Trade Detected",
		Description: fmt.Sprintf("**%s**", marketDisplay),
		Color:       color,
		Fields:      fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "poly-insider",
		},
		Timestamp: ts.Format(time.RFC3339),
	}
}

// bandColor maps a score band to an embed color.
func bandColor(band string) int {
	switch band {
	case "high":
		return 0xE74C3C // red
	case "elevated":
		return 0xE67E22 // orange
	case "moderate":
		return 0xF1C40F // yellow
	default:
		return 0x2ECC71 // green
	}
}

func shortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-6:]
}

// Close closes the Discord session.
func (dc *DiscordClient) Close() error {
	if dc.session != nil {
		return dc.session.Close()
	}
	return nil
}
