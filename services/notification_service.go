package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/match-score/models"
	"github.com/Dosada05/match-score/repositories"
)

type EventType string

const (
	EventTypeMatch      EventType = "match"
	EventTypeTournament EventType = "tournament"
)

type EventDetails struct {
	ID    int
	Title string
	Date  *time.Time
}

// Notifier delivers user-facing notifications. Calls never block the caller
// on delivery and never report failures back; implementations log them.
type Notifier interface {
	NotifyAddedToEvent(ctx context.Context, recipient models.Recipient, eventType EventType, details EventDetails)
	NotifyRequestHandled(ctx context.Context, recipient models.Recipient, requestType models.ClaimType, approved bool)
}

type mailSender interface {
	SendEmail(to []string, subject string, body string) error
}

// EmailNotifier sends each notification from its own goroutine.
type EmailNotifier struct {
	sender mailSender
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewEmailNotifier(sender mailSender, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{sender: sender, logger: logger}
}

func (n *EmailNotifier) NotifyAddedToEvent(ctx context.Context, recipient models.Recipient, eventType EventType, details EventDetails) {
	date := ""
	if details.Date != nil {
		date = details.Date.UTC().Format("02.01.2006 15:04 UTC")
	}
	data := struct {
		Name      string
		EventType EventType
		Title     string
		Date      string
	}{recipient.Name, eventType, details.Title, date}

	subject := fmt.Sprintf("Вы добавлены: %s", details.Title)
	n.send(ctx, recipient, subject, "added_to_event", data)
}

func (n *EmailNotifier) NotifyRequestHandled(ctx context.Context, recipient models.Recipient, requestType models.ClaimType, approved bool) {
	data := struct {
		Name        string
		RequestType models.ClaimType
		Approved    bool
	}{recipient.Name, requestType, approved}

	n.send(ctx, recipient, "Ваша заявка рассмотрена", "request_handled", data)
}

func (n *EmailNotifier) send(ctx context.Context, recipient models.Recipient, subject, tmpl string, data interface{}) {
	if recipient.Email == "" {
		return
	}
	body, err := renderEmail(tmpl, data)
	if err != nil {
		n.logger.ErrorContext(ctx, "Failed to render notification", slog.String("template", tmpl), slog.Any("error", err))
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.sender.SendEmail([]string{recipient.Email}, subject, body); err != nil {
			n.logger.Error("Failed to send notification email",
				slog.Int("user_id", recipient.UserID), slog.String("template", tmpl), slog.Any("error", err))
		}
	}()
}

// Wait blocks until in-flight emails finish or ctx expires.
func (n *EmailNotifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogNotifier only records notifications; used when SMTP is not configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyAddedToEvent(ctx context.Context, recipient models.Recipient, eventType EventType, details EventDetails) {
	n.logger.InfoContext(ctx, "Notification: added to event",
		slog.Int("user_id", recipient.UserID), slog.String("event_type", string(eventType)),
		slog.Int("event_id", details.ID), slog.String("title", details.Title))
}

func (n *LogNotifier) NotifyRequestHandled(ctx context.Context, recipient models.Recipient, requestType models.ClaimType, approved bool) {
	n.logger.InfoContext(ctx, "Notification: request handled",
		slog.Int("user_id", recipient.UserID), slog.String("request_type", string(requestType)), slog.Bool("approved", approved))
}

// participantNotifier resolves linked users of player profiles and hands them
// to the Notifier. Lookup failures are logged and swallowed.
type participantNotifier struct {
	userRepo repositories.UserRepository
	notifier Notifier
	logger   *slog.Logger
}

func (p *participantNotifier) notifyAdded(ctx context.Context, profileIDs []int, eventType EventType, details EventDetails) {
	if p == nil || p.notifier == nil || len(profileIDs) == 0 {
		return
	}
	recipients, err := p.userRepo.RecipientsForProfiles(ctx, nil, profileIDs)
	if err != nil {
		p.logger.WarnContext(ctx, "Failed to load notification recipients",
			slog.String("event_type", string(eventType)), slog.Int("event_id", details.ID), slog.Any("error", err))
		return
	}
	for _, r := range recipients {
		p.notifier.NotifyAddedToEvent(ctx, r, eventType, details)
	}
}
