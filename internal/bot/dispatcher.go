// Package bot is the chat command surface. The Dispatcher turns a command
// into a plain-text reply; the Poller connects it to Telegram.
package bot

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/referral-ledger/internal/errors"
	"github.com/referral-ledger/internal/ledger"
	"github.com/referral-ledger/internal/logging"
	"github.com/referral-ledger/internal/models"
	"github.com/referral-ledger/internal/ratelimit"
	"github.com/referral-ledger/internal/service"
	"github.com/referral-ledger/internal/types"
	"github.com/shopspring/decimal"
)

// Command names.
const (
	CmdStart       = "start"
	CmdHelp        = "help"
	CmdMyRef       = "myref"
	CmdMyStats     = "mystats"
	CmdLeaderboard = "leaderboard"
	CmdTable5      = "table5"
	CmdTable10     = "table10"
	CmdTable20     = "table20"
	CmdPending     = "pending"
	CmdMarkPaid    = "markpaid"
)

// Reply texts shared with tests.
const (
	HelpText = "🔥 AFFILIATE BEAST\n\n" +
		"Earn cash when players join through your link and play tables.\n\n" +
		"Commands:\n" +
		"/myref – your referral link\n" +
		"/mystats – your earnings\n" +
		"/leaderboard – top promoters\n" +
		"/table5 /table10 /table20 – log tables"

	MsgNotAuthorized  = "Not authorized."
	MsgMarkPaidUsage  = "Usage: /markpaid <userId> <amount>"
	MsgBadAmount      = "Amount must be a positive number with at most two decimals."
	MsgUserNotFound   = "User not found."
	MsgExceedsPending = "Exceeds pending amount."
	MsgInternal       = "⚠️ Something went wrong, please try again later."
	MsgSlowDown       = "⏳ Slow down, try again in a moment."
)

var tableCommands = map[string]types.Tier{
	CmdTable5:  types.Tier5,
	CmdTable10: types.Tier10,
	CmdTable20: types.Tier20,
}

// Ledger is the part of the ledger service the dispatcher uses.
type Ledger interface {
	Start(ctx context.Context, identity models.Identity, args []string) (service.StartResult, error)
	GetOrCreate(ctx context.Context, identity models.Identity) (models.Stats, error)
	RecordActivity(ctx context.Context, identity models.Identity, tier types.Tier) (service.ActivityResult, error)
	Leaderboard(n int) []models.LeaderboardEntry
	Pending(callerID string) (service.PendingReport, error)
	MarkPaid(ctx context.Context, callerID string, args []string) (models.Payout, error)
}

// Request is one parsed chat command.
type Request struct {
	Caller  models.Identity
	Command string
	Args    []string
}

// Dispatcher routes commands to the ledger and renders replies.
type Dispatcher struct {
	ledger  Ledger
	botName string
	limiter *ratelimit.Limiter
	logger  *logging.Logger
}

// NewDispatcher creates a dispatcher. botName is used to build referral
// links; limiter may be nil.
func NewDispatcher(l Ledger, botName string, limiter *ratelimit.Limiter, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Dispatcher{
		ledger:  l,
		botName: botName,
		limiter: limiter,
		logger:  logger,
	}
}

// ReferralLink returns the deep link that starts the bot with the user's
// referral code.
func (d *Dispatcher) ReferralLink(userID string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", d.botName, ledger.ReferralCode(userID))
}

// Handle executes req and returns the reply text.
func (d *Dispatcher) Handle(ctx context.Context, req Request) string {
	command := strings.ToLower(req.Command)
	logger := d.logger.WithFields(map[string]interface{}{
		"user":    req.Caller.ID,
		"command": command,
	})

	if !d.limiter.Allow(req.Caller.ID) {
		logger.Warn("Command rate limited")
		return MsgSlowDown
	}

	reply, err := d.dispatch(ctx, command, req)
	if err != nil {
		if apperrors.IsSystemError(err) {
			logger.WithError(err).Error("Command failed")
		} else {
			logger.WithError(err).Debug("Command rejected")
		}
		return d.renderError(command, err)
	}
	return reply
}

func (d *Dispatcher) dispatch(ctx context.Context, command string, req Request) (string, error) {
	if tier, ok := tableCommands[command]; ok {
		return d.table(ctx, req, tier)
	}

	switch command {
	case CmdStart:
		if _, err := d.ledger.Start(ctx, req.Caller, req.Args); err != nil {
			return "", err
		}
		return HelpText, nil

	case CmdMyRef:
		stats, err := d.ledger.GetOrCreate(ctx, req.Caller)
		if err != nil {
			return "", err
		}
		return "🔗 Your referral link:\n" + d.ReferralLink(stats.UserID), nil

	case CmdMyStats:
		stats, err := d.ledger.GetOrCreate(ctx, req.Caller)
		if err != nil {
			return "", err
		}
		return renderStats(stats), nil

	case CmdLeaderboard:
		return renderLeaderboard(d.ledger.Leaderboard(0)), nil

	case CmdPending:
		report, err := d.ledger.Pending(req.Caller.ID)
		if err != nil {
			return "", err
		}
		return renderPending(report), nil

	case CmdMarkPaid:
		payout, err := d.ledger.MarkPaid(ctx, req.Caller.ID, req.Args)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Paid %s to %s", money(payout.Amount), payout.UserID), nil

	default:
		return HelpText, nil
	}
}

func (d *Dispatcher) table(ctx context.Context, req Request, tier types.Tier) (string, error) {
	result, err := d.ledger.RecordActivity(ctx, req.Caller, tier)
	if err != nil {
		return "", err
	}
	reply := fmt.Sprintf("Logged your $%s table.", tier)
	if result.Credit != nil {
		reply += fmt.Sprintf("\nPromoter %s earned %s.", result.Credit.ReferrerName, money(result.Credit.Amount))
	}
	return reply, nil
}

func (d *Dispatcher) renderError(command string, err error) string {
	catErr := apperrors.Categorize(err)
	switch {
	case apperrors.IsUnauthorized(err):
		return MsgNotAuthorized
	case catErr.Code == apperrors.CodeUserNotFound:
		return withUsage(MsgUserNotFound)
	case apperrors.IsInsufficientPending(err):
		return MsgExceedsPending
	case apperrors.IsInvalidArgument(err) && command == CmdMarkPaid:
		if catErr.Details["parameter"] == "amount" {
			return withUsage(MsgBadAmount)
		}
		return MsgMarkPaidUsage
	default:
		return MsgInternal
	}
}

func withUsage(msg string) string {
	return msg + "\n" + MsgMarkPaidUsage
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func renderStats(s models.Stats) string {
	return fmt.Sprintf("📊 Stats:\nReferrals: %d\nEarnings total: %s\nPending: %s\nPaid: %s",
		s.ReferralsTotal, money(s.EarningsTotal), money(s.EarningsPending), money(s.EarningsPaid))
}

func renderLeaderboard(entries []models.LeaderboardEntry) string {
	var b strings.Builder
	b.WriteString("🏆 TOP PROMOTERS\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%d. %s – %s", e.Rank, e.DisplayName, money(e.EarningsTotal))
	}
	return b.String()
}

func renderPending(report service.PendingReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💰 Pending payouts ≥ %s", money(report.MinPayout))
	for _, e := range report.Entries {
		fmt.Fprintf(&b, "\n%s: %s", e.DisplayName, money(e.EarningsPending))
	}
	return b.String()
}
