package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mtzanidakis/feescope/internal/config"
	"github.com/mtzanidakis/feescope/internal/state"
	"github.com/mtzanidakis/feescope/internal/store"
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Runner launches one analysis run. Satisfied by workflow.Runner.
type Runner interface {
	Run(ctx context.Context, chains []string, timeframe string, source string) (state.Analysis, error)
}

type Bot struct {
	bot     *telego.Bot
	handler *th.BotHandler
	runner  Runner
	store   *store.Store
	cfg     config.TelegramConfig
	cancel  context.CancelFunc
}

func NewBot(cfg config.TelegramConfig, runner Runner, s *store.Store) (*Bot, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Bot{
		bot:    bot,
		runner: runner,
		store:  s,
		cfg:    cfg,
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	updates, err := b.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.bot, updates)
	if err != nil {
		cancel()
		return fmt.Errorf("create handler: %w", err)
	}
	b.handler = handler

	handler.HandleMessage(func(hctx *th.Context, message telego.Message) error {
		b.handleMessage(ctx, message)
		return nil
	})

	go handler.Start()

	<-ctx.Done()
	_ = handler.Stop()
	return nil
}

func (b *Bot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.handler != nil {
		_ = b.handler.Stop()
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg telego.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	// Check allow list
	if len(b.cfg.AllowFrom) > 0 {
		allowed := false
		for _, id := range b.cfg.AllowFrom {
			if id == userID {
				allowed = true
				break
			}
		}
		if !allowed {
			slog.Warn("unauthorized telegram user", "user_id", userID, "chat_id", chatID)
			return
		}
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	cmd, args, _ := strings.Cut(text, " ")
	switch cmd {
	case "/start", "/help":
		_ = b.SendMessage(ctx, chatID, usageText)
	case "/analyze":
		b.handleAnalyze(ctx, chatID, args)
	case "/runs":
		b.handleRuns(ctx, chatID)
	default:
		_ = b.SendMessage(ctx, chatID, "Unknown command. Try /help.")
	}
}

const usageText = `Commands:
/analyze <chains> [timeframe] - run a revenue analysis, e.g. /analyze base,mantle 7d
/runs - list recent analysis runs
/help - this message`

func (b *Bot) handleAnalyze(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		_ = b.SendMessage(ctx, chatID, "Usage: /analyze <chains> [timeframe]")
		return
	}

	chains := strings.Split(fields[0], ",")
	timeframe := string(state.Timeframe7d)
	if len(fields) > 1 {
		timeframe = fields[1]
	}
	if _, err := state.ParseTimeframe(timeframe); err != nil {
		_ = b.SendMessage(ctx, chatID, err.Error())
		return
	}

	_ = b.sendChatAction(ctx, chatID, "typing")
	_ = b.SendMessage(ctx, chatID, fmt.Sprintf("Analyzing %s over %s...", strings.Join(chains, ", "), timeframe))

	// The analysis takes minutes with LLM refinement, so it runs detached
	// from the update handler.
	go func() {
		sendCtx := context.WithoutCancel(ctx)
		a, err := b.runner.Run(sendCtx, chains, timeframe, store.RunSourceTelegram)
		if err != nil {
			if sendErr := b.SendMessage(sendCtx, chatID, fmt.Sprintf("Analysis failed: %s", err)); sendErr != nil {
				slog.Warn("failure notice not delivered", "chat_id", chatID, "error", sendErr)
			}
			return
		}
		if err := b.SendMessage(sendCtx, chatID, renderOutcome(a)); err != nil {
			slog.Warn("completion notice not delivered", "run_id", a.RunID, "chat_id", chatID, "error", err)
		}
	}()
}

func (b *Bot) handleRuns(ctx context.Context, chatID int64) {
	if b.store == nil {
		_ = b.SendMessage(ctx, chatID, "No run history available.")
		return
	}
	runs, err := b.store.ListRuns(5)
	if err != nil || len(runs) == 0 {
		_ = b.SendMessage(ctx, chatID, "No runs yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Recent runs:\n")
	for _, run := range runs {
		fmt.Fprintf(&sb, "%s %s %s (%s) - %s\n",
			run.ID[:8], strings.Join(run.Chains, ","), run.Timeframe, run.Source, run.Status)
	}
	_ = b.SendMessage(ctx, chatID, sb.String())
}

// renderOutcome formats a finished analysis for chat delivery.
func renderOutcome(a state.Analysis) string {
	if a.Failed() {
		return fmt.Sprintf("Analysis %s failed:\n%s", a.RunID[:8], strings.Join(a.Errors, "\n"))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Revenue Analysis %s**\n\n", a.RunID[:8])
	if a.Synthesis != nil {
		sb.WriteString(a.Synthesis.ExecutiveSummary)
		if len(a.Synthesis.Recommendations) > 0 {
			sb.WriteString("\n\n**Recommendations**\n")
			for _, rec := range a.Synthesis.Recommendations {
				sb.WriteString("- " + rec + "\n")
			}
		}
		if a.Synthesis.Narrative != "" {
			sb.WriteString("\n" + a.Synthesis.Narrative)
		}
	}
	return toTelegramMarkdown(sb.String())
}

func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	chunks := chunkMessage(text, 4096)
	for _, chunk := range chunks {
		msg := tu.Message(tu.ID(chatID), chunk)
		_, err := b.bot.SendMessage(ctx, msg)
		if err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

func (b *Bot) sendChatAction(ctx context.Context, chatID int64, action string) error {
	return b.bot.SendChatAction(ctx, tu.ChatAction(tu.ID(chatID), action))
}
