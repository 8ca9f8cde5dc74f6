package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cescps/poly-insider/clients/notifier"
	"github.com/cescps/poly-insider/config"

	"go.uber.org/zap"
)

const telegramAPIURL = "https://api.telegram.org/bot%s/%s"

// TelegramClient sends alerts to Telegram.
// Implements notifier.Notifier interface.
type TelegramClient struct {
	logger   *zap.Logger
	botToken string
	chatID   string
	isProd   bool
	client   *http.Client
}

func NewTelegramClient(logger *zap.Logger, cfg *config.Config) *TelegramClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	chatID := cfg.Telegram.BetaChatID
	if cfg.IsProd {
		chatID = cfg.Telegram.ProdChatID
	}

	token := cfg.Telegram.BotToken
	if token == "" {
		logger.Warn("TELEGRAM_BOT_KEY not set, Telegram alerts disabled")
		return &TelegramClient{
			logger: logger,
			chatID: chatID,
			isProd: cfg.IsProd,
		}
	}

	logger.Info("telegram bot initialized",
		zap.Bool("isProd", cfg.IsProd),
		zap.String("chatID", chatID),
	)

	return &TelegramClient{
		logger:   logger,
		botToken: token,
		chatID:   chatID,
		isProd:   cfg.IsProd,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SendTradeAlert sends a trade alert notification.
// Implements notifier.Notifier interface.
func (tc *TelegramClient) SendTradeAlert(alert notifier.TradeAlert) {
	if tc.botToken == "" || tc.chatID == "" {
		tc.logger.Warn("telegram not configured, skipping alert")
		return
	}

	message := tc.buildAlertMessage(alert)

	if err := tc.sendMessage(message); err != nil {
		tc.logger.Error("failed to send telegram message", zap.Error(err))
		return
	}

	tc.logger.Info("sent telegram trade alert",
		zap.String("wallet", shortAddress(alert.Wallet)),
		zap.String("market", alert.MarketName),
	)
}

func (tc *TelegramClient) buildAlertMessage(alert notifier.TradeAlert) string {
	var sb strings.Builder

	sb.WriteString("*🎯 New Insider Trade Detected*\n\n")

	// Market info
	if alert.MarketSlug != "" {
		marketURL := fmt.Sprintf("https://polymarket.com/event/%s", alert.MarketSlug)
		sb.WriteString(fmt.Sprintf("*Market:* [%s](%s)\n", escapeMarkdown(alert.MarketName), marketURL))
	} else {
		sb.WriteString(fmt.Sprintf("*Market:* %s\n", escapeMarkdown(alert.MarketName)))
	}
	sb.WriteString(fmt.Sprintf("*Outcome:* %s\n\n", escapeMarkdown(alert.Outcome)))

	// Wallet info
	walletDisplay := shortAddress(alert.Wallet)
	if alert.WalletName != "" {
		walletDisplay = fmt.Sprintf("%s (%s)", alert.WalletName, walletDisplay)
	}
	walletURL := fmt.Sprintf("https://polymarket.com/profile/%s", alert.Wallet)
	sb.WriteString(fmt.Sprintf("*Wallet:* [%s](%s)\n", escapeMarkdown(walletDisplay), walletURL))

	// Trade details
	sideEmoji := "🟢"
	if strings.ToUpper(alert.Side) == "SELL" {
		sideEmoji = "🔴"
	}
	sb.WriteString(fmt.Sprintf("*Side:* %s %s\n", sideEmoji, alert.Side))
	sb.WriteString(fmt.Sprintf("*Size:* $%.2f @ $%.3f\n\n", alert.SizeUSD, alert.Price))

	// Score
	sb.WriteString(fmt.Sprintf("*Insider Score:* %d/100 (%s)\n", alert.Score, alert.Band))
	if alert.NewTrades > 1 {
		sb.WriteString(fmt.Sprintf("*New Trades:* %d in this batch\n", alert.NewTrades))
	}

	// Timestamp
	ts := alert.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	sb.WriteString(fmt.Sprintf("\n_poly-insider • %s_", ts.UTC().Format("1/2/2006, 3:04:05PM (MST)")))

	return sb.String()
}

func (tc *TelegramClient) sendMessage(text string) error {
	url := fmt.Sprintf(telegramAPIURL, tc.botToken, "sendMessage")

	payload := map[string]interface{}{
		"chat_id":    tc.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := tc.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// Close cleans up resources. Implements notifier.Notifier interface.
func (tc *TelegramClient) Close() error {
	return nil
}

func shortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-6:]
}

// escapeMarkdown escapes special characters for Telegram Markdown.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
