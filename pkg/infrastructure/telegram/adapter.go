// Package telegram connects the conversation engine to the Telegram Bot API,
// either by long polling or through a webhook.
package telegram

import (
	"context"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"chatshop/pkg/conversation"
	"chatshop/pkg/infrastructure/metrics"
)

// Handler is the part of the conversation engine the adapter drives.
type Handler interface {
	Handle(ctx context.Context, ev conversation.Event) []conversation.Reply
}

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Adapter struct {
	api      botAPI
	bot      *tgbotapi.BotAPI
	handler  Handler
	metrics  *metrics.Metrics
	logger   log.FieldLogger
	workers  int
	incoming chan tgbotapi.Update
}

func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	return bot, errors.Wrap(err, "connect to telegram")
}

func NewAdapter(bot *tgbotapi.BotAPI, m *metrics.Metrics, workers int, logger log.FieldLogger) *Adapter {
	return &Adapter{
		api:      bot,
		bot:      bot,
		metrics:  m,
		logger:   logger,
		workers:  workers,
		incoming: make(chan tgbotapi.Update, workers),
	}
}

// Bind sets the engine. The engine and the order notifier depend on each
// other through the adapter, so it is wired after construction.
func (a *Adapter) Bind(handler Handler) {
	a.handler = handler
}

// Send implements conversation.Sender.
func (a *Adapter) Send(_ context.Context, reply conversation.Reply) error {
	_, err := a.api.Send(toChattable(reply))
	return errors.Wrapf(err, "send message to %d", reply.To)
}

// Poll receives updates by long polling until ctx is done.
func (a *Adapter) Poll(ctx context.Context) error {
	if _, err := a.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return errors.Wrap(err, "delete webhook")
	}
	config := tgbotapi.NewUpdate(0)
	config.Timeout = 60
	updates := a.bot.GetUpdatesChan(config)
	defer a.bot.StopReceivingUpdates()

	a.logger.Info("polling for updates")
	return a.consume(ctx, updates)
}

// RegisterWebhook points Telegram at url.
func (a *Adapter) RegisterWebhook(url string) error {
	webhook, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return errors.Wrap(err, "build webhook")
	}
	if _, err := a.api.Request(webhook); err != nil {
		return errors.Wrap(err, "register webhook")
	}
	a.logger.WithField("url", url).Info("webhook registered")
	return nil
}

// WebhookHandler accepts updates posted by Telegram and queues them for
// ServeWebhook.
func (a *Adapter) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		update, err := a.bot.HandleUpdate(r)
		if err != nil {
			a.logger.WithError(err).Warn("rejected webhook payload")
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		select {
		case a.incoming <- *update:
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
		}
	})
}

// ServeWebhook handles queued webhook updates until ctx is done.
func (a *Adapter) ServeWebhook(ctx context.Context) error {
	return a.consume(ctx, a.incoming)
}

// consume handles every update on its own goroutine, at most workers at a time.
func (a *Adapter) consume(ctx context.Context, updates <-chan tgbotapi.Update) error {
	g := &errgroup.Group{}
	g.SetLimit(a.workers)

	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case update, ok := <-updates:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				a.handle(ctx, update)
				return nil
			})
		}
	}
}

func (a *Adapter) handle(ctx context.Context, update tgbotapi.Update) {
	ev, ok := toEvent(update)
	if !ok {
		a.metrics.Updates.WithLabelValues("ignored").Inc()
		return
	}

	kind := "message"
	if ev.CallbackID != "" {
		kind = "callback"
	}
	started := time.Now()
	defer func() {
		a.metrics.Updates.WithLabelValues(kind).Inc()
		a.metrics.Latency.WithLabelValues(kind).Observe(float64(time.Since(started).Milliseconds()))
	}()

	logger := a.logger.WithFields(log.Fields{"user_id": ev.UserID, "update_id": update.UpdateID})
	answered := false
	for _, reply := range a.handler.Handle(ctx, ev) {
		if reply.Alert && ev.CallbackID != "" && !answered {
			answered = true
			if _, err := a.api.Request(tgbotapi.NewCallbackWithAlert(ev.CallbackID, reply.Text)); err != nil {
				logger.WithError(err).Warn("failed to answer callback")
			}
			continue
		}
		if err := a.Send(ctx, reply); err != nil {
			logger.WithError(err).Warn("failed to deliver reply")
		}
	}

	if ev.CallbackID != "" && !answered {
		if _, err := a.api.Request(tgbotapi.NewCallback(ev.CallbackID, "")); err != nil {
			logger.WithError(err).Warn("failed to answer callback")
		}
	}
}
