// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package notify delivers verification messages outside the request path.
//
// # Architecture
//
// Services hand a [Message] to the [Dispatcher], which sends it through a
// [Notifier] in a background goroutine. A failed send is logged and counted;
// it never fails the request that triggered it.
package notify

import (
	"context"
	"log/slog"
	"net/url"
)

// # Message Kinds

const (
	// KindIdentity verifies the email of a registered identity.
	KindIdentity = "identity"

	// KindWaitlist verifies the email of a waitlist entry.
	KindWaitlist = "waitlist"
)

// Message is a single verification notification.
type Message struct {
	Kind        string
	Destination string
	DisplayName string
	Token       string
}

// Notifier sends verification messages.
type Notifier interface {
	SendVerification(ctx context.Context, message Message) error
}

// # Log Transport

// LogNotifier writes notifications to the log instead of sending email.
type LogNotifier struct {
	logger  *slog.Logger
	baseURL string
}

// NewLogNotifier creates a notifier that logs the verification link built
// from baseURL.
func NewLogNotifier(logger *slog.Logger, baseURL string) *LogNotifier {
	return &LogNotifier{logger: logger, baseURL: baseURL}
}

// SendVerification logs the message. The link, which carries the token, is
// only emitted at debug level.
func (notifier *LogNotifier) SendVerification(ctx context.Context, message Message) error {
	notifier.logger.InfoContext(ctx, "verification_notification_logged",
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination),
	)
	notifier.logger.DebugContext(ctx, "verification_link",
		slog.String("destination", message.Destination),
		slog.String("link", VerificationLink(notifier.baseURL, message)),
	)
	return nil
}

// VerificationLink builds the URL a recipient follows to confirm their email.
func VerificationLink(baseURL string, message Message) string {
	query := url.Values{}
	query.Set("kind", message.Kind)
	query.Set("email", message.Destination)
	query.Set("token", message.Token)

	link, err := url.Parse(baseURL)
	if err != nil {
		return baseURL + "?" + query.Encode()
	}

	existing := link.Query()
	for key, values := range query {
		existing[key] = values
	}
	link.RawQuery = existing.Encode()

	return link.String()
}
