// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/taibuivan/waitgate/internal/notify"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
	fail     bool
}

func (notifier *recordingNotifier) SendVerification(ctx context.Context, message notify.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	notifier.messages = append(notifier.messages, message)
	if notifier.fail {
		return errors.New("smtp unavailable")
	}
	return nil
}

func (notifier *recordingNotifier) count() int {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	return len(notifier.messages)
}

type outcomeObserver struct {
	mu       sync.Mutex
	outcomes []bool
}

func (observer *outcomeObserver) ObserveNotification(_ string, delivered bool) {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	observer.outcomes = append(observer.outcomes, delivered)
}

/*
TestDispatcher_DeliversAfterCallerCancels checks a send is detached from the
request context and that Close drains it.
*/
func TestDispatcher_DeliversAfterCallerCancels(t *testing.T) {
	defer goleak.VerifyNone(t)

	notifier := &recordingNotifier{}
	observer := &outcomeObserver{}
	dispatcher := notify.NewDispatcher(notifier, 100, 10, slog.New(slog.NewTextHandler(io.Discard, nil)), observer)

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.Dispatch(ctx, notify.Message{Kind: notify.KindIdentity, Destination: "a@b.io", Token: "t"})
	cancel()

	require.NoError(t, dispatcher.Close(context.Background()))
	assert.Equal(t, 1, notifier.count())
	assert.Equal(t, []bool{true}, observer.outcomes)
}

/*
TestDispatcher_FailureIsLoggedWithoutToken ensures failures are logged with
the destination and never the token.
*/
func TestDispatcher_FailureIsLoggedWithoutToken(t *testing.T) {
	defer goleak.VerifyNone(t)

	var buffer bytes.Buffer
	var mu sync.Mutex
	logger := slog.New(slog.NewJSONHandler(&lockedWriter{mu: &mu, w: &buffer}, nil))

	notifier := &recordingNotifier{fail: true}
	dispatcher := notify.NewDispatcher(notifier, 100, 10, logger, nil)

	dispatcher.Dispatch(context.Background(), notify.Message{
		Kind:        notify.KindWaitlist,
		Destination: "user@example.com",
		Token:       "super-secret-token",
	})
	require.NoError(t, dispatcher.Close(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, buffer.String(), "verification_dispatch_failed")
	assert.Contains(t, buffer.String(), "user@example.com")
	assert.NotContains(t, buffer.String(), "super-secret-token")
}

/*
TestDispatcher_DropsAfterClose checks nothing is sent once closed.
*/
func TestDispatcher_DropsAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	notifier := &recordingNotifier{}
	dispatcher := notify.NewDispatcher(notifier, 100, 10, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	require.NoError(t, dispatcher.Close(context.Background()))

	dispatcher.Dispatch(context.Background(), notify.Message{Kind: notify.KindIdentity, Destination: "a@b.io"})
	assert.Equal(t, 0, notifier.count())
}

type blockingNotifier struct{ release chan struct{} }

func (notifier blockingNotifier) SendVerification(context.Context, notify.Message) error {
	<-notifier.release
	return nil
}

/*
TestDispatcher_CloseHonoursDeadline returns the context error while a send is
still in flight.
*/
func TestDispatcher_CloseHonoursDeadline(t *testing.T) {
	notifier := blockingNotifier{release: make(chan struct{})}
	dispatcher := notify.NewDispatcher(notifier, 100, 1, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	dispatcher.Dispatch(context.Background(), notify.Message{Kind: notify.KindIdentity, Destination: "a@b.io"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, dispatcher.Close(ctx), context.DeadlineExceeded)

	close(notifier.release)
	require.NoError(t, dispatcher.Close(context.Background()))
}

func TestVerificationLink(t *testing.T) {
	link := notify.VerificationLink("https://app.example.com/verify?lang=en", notify.Message{
		Kind:        notify.KindWaitlist,
		Destination: "a+b@example.com",
		Token:       "abc",
	})

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", parsed.Host)
	assert.Equal(t, "a+b@example.com", parsed.Query().Get("email"))
	assert.Equal(t, "abc", parsed.Query().Get("token"))
	assert.Equal(t, "waitlist", parsed.Query().Get("kind"))
	assert.Equal(t, "en", parsed.Query().Get("lang"))
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (writer *lockedWriter) Write(p []byte) (int, error) {
	writer.mu.Lock()
	defer writer.mu.Unlock()
	return writer.w.Write(p)
}
