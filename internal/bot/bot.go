// Package bot is the Telegram-facing layer: command handlers, outbound
// notifications, and the lifecycle of per-chat tracking/watching jobs.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"
	"golang.org/x/time/rate"

	"arissbot/internal/sched"
	"arissbot/internal/storage"
	"arissbot/internal/track"
	logx "arissbot/pkg/logx"
)

// tickTimeout bounds one scheduled fetch+evaluate cycle; it must stay well
// under the shortest tick interval so jobs never pile up.
const tickTimeout = 30 * time.Second

type Config struct {
	Token       string
	PollTimeout time.Duration

	// SendRatePerSec throttles outbound sends across all chats. Telegram
	// allows ~30 messages/second bot-wide; default stays below that.
	SendRatePerSec float64

	TrackInterval time.Duration
	WatchInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollTimeout <= 0 {
		c.PollTimeout = 10 * time.Second
	}
	if c.SendRatePerSec <= 0 {
		c.SendRatePerSec = 25
	}
	if c.TrackInterval <= 0 {
		c.TrackInterval = 60 * time.Second
	}
	if c.WatchInterval <= 0 {
		c.WatchInterval = 5 * time.Second
	}
	return c
}

type Bot struct {
	cfg     Config
	tb      *tele.Bot
	svc     *track.Service
	runner  *sched.Runner
	store   storage.Store
	log     logx.Logger
	limiter *rate.Limiter

	runMu   sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(cfg Config, svc *track.Service, runner *sched.Runner, store storage.Store, log logx.Logger) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	tb, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
	})
	if err != nil {
		return nil, err
	}
	b := &Bot{
		cfg:     cfg,
		tb:      tb,
		svc:     svc,
		runner:  runner,
		store:   store,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.SendRatePerSec), 1),
	}
	b.registerHandlers()
	return b, nil
}

func (b *Bot) registerHandlers() {
	b.tb.Handle("/start", b.onStart)
	b.tb.Handle("/help", b.onHelp)
	b.tb.Handle("/why", b.onWhy)
	b.tb.Handle("/lastheard", b.onLastHeard)
	b.tb.Handle("/track", b.onTrack)
	b.tb.Handle("/untrack", b.onUntrack)
	b.tb.Handle("/stop", b.onUntrack)
	b.tb.Handle("/watch", b.onWatch)
	b.tb.Handle("/unwatch", b.onUnwatch)
	b.tb.Handle(tele.OnText, b.onText)
}

// Start restores persisted subscriptions and begins long polling. It returns
// once polling is running; Stop shuts it down.
func (b *Bot) Start(ctx context.Context) error {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.running {
		return errors.New("bot already started")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.running = true

	if err := b.restoreSubscriptions(b.ctx); err != nil {
		b.log.Warn("subscription restore incomplete", logx.Err(err))
	}

	go b.tb.Start()
	b.log.Info("telegram polling started")
	return nil
}

func (b *Bot) Stop() {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if !b.running {
		return
	}
	b.running = false
	b.cancel()
	b.tb.Stop()
	b.log.Info("telegram polling stopped")
}

// restoreSubscriptions re-arms the scheduler from subscriptions persisted in
// earlier runs, so a restart doesn't drop anyone.
func (b *Bot) restoreSubscriptions(ctx context.Context) error {
	subs, err := b.store.Subscriptions(ctx)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	var firstErr error
	restored := 0
	for _, sub := range subs {
		if err := b.arm(sub); err != nil {
			b.log.Warn("restore subscription failed",
				logx.Int64("chat_id", sub.ChatID),
				logx.String("kind", string(sub.Kind)),
				logx.Err(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		restored++
	}
	if restored > 0 {
		b.log.Info("subscriptions restored", logx.Int("count", restored))
	}
	return firstErr
}

func jobKey(kind storage.Kind, chatID int64) string {
	return string(kind) + ":" + strconv.FormatInt(chatID, 10)
}

// arm schedules the repeating job for sub. The job notifies the chat when a
// tick reports new activity; tick errors are logged and retried on the next
// cadence.
func (b *Bot) arm(sub storage.Subscription) error {
	interval := b.cfg.TrackInterval
	if sub.Kind == storage.KindWatch {
		interval = b.cfg.WatchInterval
	}
	return b.runner.Add(jobKey(sub.Kind, sub.ChatID), interval, func() {
		b.tick(sub)
	})
}

func (b *Bot) tick(sub storage.Subscription) {
	ctx, cancel := context.WithTimeout(b.ctx, tickTimeout)
	defer cancel()

	var (
		res track.Result
		err error
	)
	switch sub.Kind {
	case storage.KindWatch:
		res, err = b.svc.TickWatching(ctx, sub.Subscriber, sub.Callsign)
	default:
		res, err = b.svc.TickTracking(ctx, sub.Subscriber, sub.Gap)
	}
	if err != nil {
		b.log.Warn("tick failed",
			logx.Int64("chat_id", sub.ChatID),
			logx.String("kind", string(sub.Kind)),
			logx.Err(err))
		return
	}
	if !res.Fired {
		return
	}
	switch sub.Kind {
	case storage.KindWatch:
		b.notify(sub.ChatID, msgMDNewActivity+"*"+track.EscapeMarkdown(sub.Callsign)+"*"+msgMDCallsignHeard)
	default:
		b.notify(sub.ChatID, msgMDNewActivity+res.Summary)
	}
}

// notify sends a MarkdownV2 message outside a handler context, respecting
// the bot-wide send rate.
func (b *Bot) notify(chatID int64, text string) {
	if err := b.limiter.Wait(b.ctx); err != nil {
		return
	}
	_, err := b.tb.Send(&tele.Chat{ID: chatID}, text, &tele.SendOptions{ParseMode: tele.ModeMarkdownV2})
	if err != nil {
		b.log.Warn("notify failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}

func subscriberID(c tele.Context) string {
	if s := c.Sender(); s != nil {
		return strconv.FormatInt(s.ID, 10)
	}
	return strconv.FormatInt(c.Chat().ID, 10)
}

func (b *Bot) onStart(c tele.Context) error {
	return c.Send(msgHello + msgHelp)
}

func (b *Bot) onHelp(c tele.Context) error {
	return c.Send(msgHelp)
}

func (b *Bot) onWhy(c tele.Context) error {
	return c.Send(msgWhy)
}

func (b *Bot) onLastHeard(c tele.Context) error {
	ctx, cancel := context.WithTimeout(b.ctx, tickTimeout)
	defer cancel()
	summary, err := b.svc.LastHeard(ctx)
	if err != nil {
		b.log.Warn("lastheard failed", logx.Int64("chat_id", c.Chat().ID), logx.Err(err))
		return c.Send(msgFetchFailed)
	}
	return c.Send(summary, &tele.SendOptions{ParseMode: tele.ModeMarkdownV2})
}

// parseGap reads an optional inactivity threshold argument. Go duration
// syntax ("6h", "90m") and bare seconds ("21600") are both accepted.
func parseGap(arg string, def time.Duration) (time.Duration, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(arg); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("threshold must be positive")
		}
		return d, nil
	}
	secs, err := strconv.ParseFloat(arg, 64)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid threshold %q", arg)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func (b *Bot) onTrack(c tele.Context) error {
	chatID := c.Chat().ID
	if b.runner.Has(jobKey(storage.KindTrack, chatID)) {
		return c.Send(msgAlreadyTracking)
	}

	gap := b.svc.DefaultGap()
	if args := c.Args(); len(args) > 0 {
		g, err := parseGap(args[0], gap)
		if err != nil {
			return c.Send("Usage: /track [threshold]\n\ne.g., /track 6h or /track 21600 (seconds).")
		}
		gap = g
	}

	sub := storage.Subscription{
		ChatID:     chatID,
		Kind:       storage.KindTrack,
		Subscriber: subscriberID(c),
		Gap:        gap,
		CreatedAt:  time.Now().UTC(),
	}
	if err := b.subscribe(sub); err != nil {
		b.log.Error("track subscribe failed", logx.Int64("chat_id", chatID), logx.Err(err))
		return c.Send(msgSubscribeFailed)
	}

	ctx, cancel := context.WithTimeout(b.ctx, tickTimeout)
	defer cancel()
	text := msgMDTrackSuccess
	if summary, err := b.svc.LastHeard(ctx); err == nil {
		text += summary
	}
	return c.Send(text, &tele.SendOptions{ParseMode: tele.ModeMarkdownV2})
}

func (b *Bot) onWatch(c tele.Context) error {
	chatID := c.Chat().ID
	if b.runner.Has(jobKey(storage.KindWatch, chatID)) {
		return c.Send(msgAlreadyWatching)
	}

	args := c.Args()
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return c.Send(msgWatchUsage)
	}
	callsign := strings.ToUpper(strings.TrimSpace(args[0]))

	sub := storage.Subscription{
		ChatID:     chatID,
		Kind:       storage.KindWatch,
		Subscriber: subscriberID(c),
		Callsign:   callsign,
		CreatedAt:  time.Now().UTC(),
	}
	if err := b.subscribe(sub); err != nil {
		b.log.Error("watch subscribe failed", logx.Int64("chat_id", chatID), logx.Err(err))
		return c.Send(msgSubscribeFailed)
	}

	text := msgMDWatchSuccess + "*" + track.EscapeMarkdown(callsign) + "*\\." + msgMDStopWatch
	return c.Send(text, &tele.SendOptions{ParseMode: tele.ModeMarkdownV2})
}

// subscribe persists the subscription, then schedules it. Persist-first
// ordering means a crash between the two steps restores the job on the next
// start instead of silently losing it.
func (b *Bot) subscribe(sub storage.Subscription) error {
	if err := b.store.SaveSubscription(b.ctx, sub); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	if err := b.arm(sub); err != nil {
		return fmt.Errorf("schedule subscription: %w", err)
	}
	return nil
}

func (b *Bot) onUntrack(c tele.Context) error {
	if !b.unsubscribe(c, storage.KindTrack) {
		return c.Send(msgUntrackError)
	}
	return c.Send(msgUntracked)
}

func (b *Bot) onUnwatch(c tele.Context) error {
	if !b.unsubscribe(c, storage.KindWatch) {
		return c.Send(msgUnwatchError)
	}
	return c.Send(msgUnwatched)
}

// resolveSubscriber returns the subscriber recorded on the chat's persisted
// subscription. In a group chat any member may cancel, so the caller's own ID
// is only a fallback: stored state must be deleted under the ID that created
// it, or the slot is orphaned and a re-subscribe skips its fresh bootstrap.
func resolveSubscriber(ctx context.Context, store storage.Store, chatID int64, kind storage.Kind, fallback string) string {
	subs, err := store.Subscriptions(ctx)
	if err != nil {
		return fallback
	}
	for _, s := range subs {
		if s.ChatID == chatID && s.Kind == kind {
			return s.Subscriber
		}
	}
	return fallback
}

// unsubscribe tears down the job, the persisted subscription, and the stored
// last-heard state, so a later re-subscribe starts from a fresh bootstrap.
func (b *Bot) unsubscribe(c tele.Context, kind storage.Kind) bool {
	chatID := c.Chat().ID
	// Resolve before the subscription row is deleted below.
	subscriber := resolveSubscriber(b.ctx, b.store, chatID, kind, subscriberID(c))
	if !b.runner.Remove(jobKey(kind, chatID)) {
		return false
	}
	if err := b.store.DeleteSubscription(b.ctx, chatID, kind); err != nil {
		b.log.Warn("delete subscription failed",
			logx.Int64("chat_id", chatID),
			logx.String("kind", string(kind)),
			logx.Err(err))
	}
	if err := b.svc.Cancel(b.ctx, subscriber, kind); err != nil {
		b.log.Warn("cancel state failed",
			logx.Int64("chat_id", chatID),
			logx.String("kind", string(kind)),
			logx.Err(err))
	}
	return true
}

func (b *Bot) onText(c tele.Context) error {
	if strings.HasPrefix(strings.TrimSpace(c.Text()), "/") {
		return c.Send(msgUnknown)
	}
	return nil
}
