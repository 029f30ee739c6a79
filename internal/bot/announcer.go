package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v3"
)

// Sender is the part of *tele.Bot used to deliver messages.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	ChatByID(id int64) (*tele.Chat, error)
}

// unreachable errors mean the message can never be delivered.
var unreachable = []error{
	tele.ErrBlockedByUser,
	tele.ErrUserIsDeactivated,
	tele.ErrNotStartedByUser,
	tele.ErrChatNotFound,
	tele.ErrKickedFromGroup,
}

// Announcer delivers match messages through the Telegram API. Sends to the same
// chat are rate limited, flood control is retried after the delay Telegram asks
// for and unreachable chats fail without retrying.
type Announcer struct {
	sender     Sender
	perMinute  int
	maxRetries uint64
	initial    time.Duration

	mu       sync.Mutex
	limiters *expirable.LRU[int64, *rate.Limiter]
}

// NewAnnouncer creates an Announcer allowing perMinute messages to each chat.
func NewAnnouncer(sender Sender, perMinute int) *Announcer {
	if perMinute < 1 {
		perMinute = 1
	}
	return &Announcer{
		sender:     sender,
		perMinute:  perMinute,
		maxRetries: 3,
		initial:    500 * time.Millisecond,
		limiters:   expirable.NewLRU[int64, *rate.Limiter](4096, nil, 10*time.Minute),
	}
}

func (a *Announcer) limiter(chatID int64) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()

	if l, ok := a.limiters.Get(chatID); ok {
		return l
	}
	burst := max(1, a.perMinute/4)
	l := rate.NewLimiter(rate.Every(time.Minute/time.Duration(a.perMinute)), burst)
	a.limiters.Add(chatID, l)
	return l
}

// Announce posts text to a group, inside the forum topic threadID if nonzero.
func (a *Announcer) Announce(ctx context.Context, chatID int64, threadID int, text string) error {
	opts := &tele.SendOptions{ThreadID: threadID}
	return a.send(ctx, chatID, text, opts)
}

// Notify sends text to a player in private.
func (a *Announcer) Notify(ctx context.Context, userID int64, text string) error {
	return a.send(ctx, userID, text, &tele.SendOptions{})
}

// SendMarkup posts text with an inline keyboard.
func (a *Announcer) SendMarkup(ctx context.Context, chatID int64, threadID int, text string, markup *tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ThreadID: threadID, ReplyMarkup: markup}
	return a.send(ctx, chatID, text, opts)
}

func (a *Announcer) send(ctx context.Context, chatID int64, text string, opts *tele.SendOptions) error {
	if err := a.limiter(chatID).Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for rate limit: %w", err)
	}

	b := &floodBackOff{BackOff: backoff.NewExponentialBackOff(backoff.WithInitialInterval(a.initial))}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, a.maxRetries), ctx)

	op := func() error {
		_, err := a.sender.Send(tele.ChatID(chatID), text, opts)
		if err == nil {
			return nil
		}
		var flood tele.FloodError
		if errors.As(err, &flood) {
			b.retryAfter = time.Duration(flood.RetryAfter) * time.Second
			return err
		}
		for _, target := range unreachable {
			if errors.Is(err, target) {
				return backoff.Permanent(err)
			}
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().
			Err(err).
			Int64("chat_id", chatID).
			Dur("retry_in", wait).
			Msg("Telegram send failed, retrying")
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// floodBackOff waits at least as long as the last flood error asked.
type floodBackOff struct {
	backoff.BackOff
	retryAfter time.Duration
}

func (b *floodBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if b.retryAfter > next {
		next = b.retryAfter
	}
	b.retryAfter = 0
	return next
}

// DisplayName returns the first and last name of a user, or the username.
func (a *Announcer) DisplayName(_ context.Context, userID int64) (string, error) {
	chat, err := a.sender.ChatByID(userID)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	return displayName(chat.FirstName, chat.LastName, chat.Username), nil
}

func displayName(first, last, username string) string {
	name := strings.TrimSpace(first + " " + last)
	if name != "" {
		return name
	}
	if username != "" {
		return "@" + username
	}
	return ""
}
