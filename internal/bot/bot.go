package bot

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"petprint-bot/internal/metrics"
	"petprint-bot/internal/session"
	"petprint-bot/internal/storage"
)

const genericErrorText = "エラーが発生しました。最初からやり直す場合は「限定」と送ってください。"

// Bot runs events through the state machine. It loads the user's session,
// applies one transition, saves the session and then dispatches messages.
type Bot struct {
	machine   *Machine
	store     session.Store
	messenger Messenger
	archive   OrderArchive
	metrics   *metrics.Recorder
	logger    *zap.Logger

	newRef func() string
	now    func() time.Time
}

type Option func(*Bot)

// WithArchive stores every completed order.
func WithArchive(a OrderArchive) Option {
	return func(b *Bot) { b.archive = a }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(b *Bot) { b.metrics = r }
}

func New(machine *Machine, store session.Store, messenger Messenger, logger *zap.Logger, opts ...Option) *Bot {
	b := &Bot{
		machine:   machine,
		store:     store,
		messenger: messenger,
		logger:    logger,
		newRef:    uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HandleEvents processes a batch in arrival order.
func (b *Bot) HandleEvents(ctx context.Context, events []Event) {
	for _, ev := range events {
		b.HandleEvent(ctx, ev)
	}
}

// HandleEvent never fails: every error is logged and reported to the user.
func (b *Bot) HandleEvent(ctx context.Context, ev Event) {
	if ev.UserID == "" {
		b.logger.Debug("Skipping event without user", zap.String("kind", string(ev.Kind)))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic while handling event",
				zap.String("user_id", ev.UserID),
				zap.Any("panic", r))
			b.metrics.Error("panic")
			b.reply(ctx, ev, []Prompt{TextPrompt(genericErrorText)})
		}
	}()

	b.metrics.Event(string(ev.Kind))

	s, err := b.store.Get(ctx, ev.UserID)
	if errors.Is(err, session.ErrNotFound) {
		s = session.New(ev.UserID)
	} else if err != nil {
		b.fail(ctx, ev, "load_session", err)
		return
	}

	from := s.Step
	out, err := b.machine.Handle(ctx, s, ev)
	if err != nil {
		b.fail(ctx, ev, "transition", err)
		return
	}

	if err := b.store.Save(ctx, s); err != nil {
		b.fail(ctx, ev, "save_session", err)
		return
	}
	b.metrics.Transition(string(from), string(s.Step))

	if from != s.Step {
		b.logger.Debug("Step changed",
			zap.String("user_id", s.UserID),
			zap.String("from", string(from)),
			zap.String("to", string(s.Step)))
	}

	if out.Completed {
		b.metrics.OrderCompleted(s.PaymentMethod, s.Total())
		b.archiveOrder(ctx, s)
	}

	b.reply(ctx, ev, out.Reply)
	for _, p := range out.Pushes {
		if err := b.messenger.PushTo(ctx, p.To, p.Prompts); err != nil {
			b.metrics.Error("push")
			b.logger.Error("Failed to push message",
				zap.String("user_id", ev.UserID),
				zap.String("to", p.To),
				zap.Error(err))
		}
	}
}

func (b *Bot) reply(ctx context.Context, ev Event, prompts []Prompt) {
	if len(prompts) == 0 {
		return
	}
	if err := b.messenger.ReplyTo(ctx, ev.ReplyToken, prompts); err != nil {
		b.metrics.Error("reply")
		b.logger.Error("Failed to send reply",
			zap.String("user_id", ev.UserID),
			zap.Error(err))
	}
}

func (b *Bot) fail(ctx context.Context, ev Event, stage string, err error) {
	b.metrics.Error(stage)
	b.logger.Error("Failed to handle event",
		zap.String("user_id", ev.UserID),
		zap.String("stage", stage),
		zap.Error(err))
	b.reply(ctx, ev, []Prompt{TextPrompt(genericErrorText)})
}

func (b *Bot) archiveOrder(ctx context.Context, s *session.Session) {
	if b.archive == nil {
		return
	}
	order := storage.NewOrder(b.newRef(), s, b.now())
	id, err := b.archive.SaveOrder(ctx, order)
	if err != nil {
		b.metrics.Error("archive")
		b.logger.Error("Failed to archive order",
			zap.String("user_id", s.UserID),
			zap.String("reference", order.Reference),
			zap.Error(err))
		return
	}
	b.logger.Info("Order archived",
		zap.String("user_id", s.UserID),
		zap.Int64("order_id", id),
		zap.Int("total", order.Total))
}
