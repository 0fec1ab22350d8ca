package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/referral-ledger/internal/logging"
	"github.com/referral-ledger/internal/models"
)

// Client is the part of *tgbotapi.BotAPI the poller uses.
type Client interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Poller long-polls Telegram and answers commands one at a time.
type Poller struct {
	client      Client
	dispatcher  *Dispatcher
	pollTimeout time.Duration
	logger      *logging.Logger
}

// NewPoller creates a poller.
func NewPoller(client Client, dispatcher *Dispatcher, pollTimeout time.Duration, logger *logging.Logger) *Poller {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Poller{
		client:      client,
		dispatcher:  dispatcher,
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

// Run processes updates until ctx is cancelled or the update channel closes.
func (p *Poller) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(p.pollTimeout.Seconds())
	updates := p.client.GetUpdatesChan(u)

	p.logger.Info("Polling for updates")
	for {
		select {
		case <-ctx.Done():
			p.client.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			p.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate answers a single update. Non-command messages are ignored.
func (p *Poller) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	req, chatID, ok := requestFromUpdate(update)
	if !ok {
		return
	}

	reply := p.dispatcher.Handle(ctx, req)
	if _, err := p.client.Send(tgbotapi.NewMessage(chatID, reply)); err != nil {
		p.logger.WithFields(map[string]interface{}{
			"user":    req.Caller.ID,
			"command": req.Command,
		}).WithError(err).Error("Failed to send reply")
	}
}

func requestFromUpdate(update tgbotapi.Update) (Request, int64, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || !msg.IsCommand() {
		return Request{}, 0, false
	}

	return Request{
		Caller: models.Identity{
			ID:        strconv.FormatInt(msg.From.ID, 10),
			Username:  msg.From.UserName,
			FirstName: msg.From.FirstName,
		},
		Command: msg.Command(),
		Args:    strings.Fields(msg.CommandArguments()),
	}, msg.Chat.ID, true
}
