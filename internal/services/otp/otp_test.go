// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package otp_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/Railfan3/RevenueRadar/internal/models"
	"github.com/Railfan3/RevenueRadar/internal/repository"
	"github.com/Railfan3/RevenueRadar/internal/repository/jsonfile"
	"github.com/Railfan3/RevenueRadar/internal/services/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	configured bool
	sendErr    error
	sentTo     []string
	sentCodes  []string
}

func (f *fakeNotifier) Send(ctx context.Context, recipientEmail, code string, purpose models.Purpose) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sentTo = append(f.sentTo, recipientEmail)
	f.sentCodes = append(f.sentCodes, code)
	return nil
}

func (f *fakeNotifier) Configured() bool {
	return f.configured
}

func newService(t *testing.T, notifier *fakeNotifier) (*otp.Service, repository.Challenges) {
	t.Helper()
	store, err := jsonfile.Open(t.TempDir())
	require.NoError(t, err)
	challenges := jsonfile.NewChallenges(store)
	return otp.NewService(challenges, notifier), challenges
}

func TestGenerateCode(t *testing.T) {
	sixDigits := regexp.MustCompile(`^[1-9][0-9]{5}$`)
	for range 50 {
		code, err := otp.GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
	}
}

func TestIssueStoresChallenge(t *testing.T) {
	svc, challenges := newService(t, &fakeNotifier{})
	ctx := context.Background()

	result, err := svc.Issue(ctx, "alice@example.com", "alice@example.com", models.PurposeRegistration)
	require.NoError(t, err)
	assert.Len(t, result.Code, 6)
	assert.False(t, result.Delivered)

	ch, err := challenges.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, result.Code, ch.Code)
	assert.Equal(t, models.PurposeRegistration, ch.Purpose)
	assert.Equal(t, 0, ch.Attempts)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), ch.ExpiresAt, 5*time.Second)
}

func TestIssueUsesLoginTTL(t *testing.T) {
	svc, challenges := newService(t, &fakeNotifier{})
	ctx := context.Background()

	_, err := svc.Issue(ctx, "alice", "alice@example.com", models.PurposeLogin)
	require.NoError(t, err)

	ch, err := challenges.Get(ctx, "alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), ch.ExpiresAt, 5*time.Second)
}

func TestIssueOverwritesLiveChallenge(t *testing.T) {
	svc, _ := newService(t, &fakeNotifier{})
	ctx := context.Background()

	first, err := svc.Issue(ctx, "alice@example.com", "alice@example.com", models.PurposeRegistration)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, "alice@example.com", "alice@example.com", models.PurposeRegistration)
	require.NoError(t, err)

	// The old code is dead even though its original TTL has not passed.
	if first.Code != second.Code {
		err = svc.Verify(ctx, "alice@example.com", first.Code, models.PurposeRegistration)
		assert.ErrorIs(t, err, otp.ErrIncorrectCode)
	}

	err = svc.Verify(ctx, "alice@example.com", second.Code, models.PurposeRegistration)
	assert.NoError(t, err)
}

func TestIssueDelivers(t *testing.T) {
	notifier := &fakeNotifier{configured: true}
	svc, _ := newService(t, notifier)
	ctx := context.Background()

	result, err := svc.Issue(ctx, "alice", "alice@example.com", models.PurposeLogin)
	require.NoError(t, err)
	assert.True(t, result.Delivered)
	require.Len(t, notifier.sentTo, 1)
	assert.Equal(t, "alice@example.com", notifier.sentTo[0])
	assert.Equal(t, result.Code, notifier.sentCodes[0])
}

// stalledNotifier blocks in Send until the context expires, like an SMTP
// server that accepts the connection and then goes silent.
type stalledNotifier struct{}

func (stalledNotifier) Send(ctx context.Context, _, _ string, _ models.Purpose) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledNotifier) Configured() bool { return true }

func TestIssueBoundsStalledDelivery(t *testing.T) {
	store, err := jsonfile.Open(t.TempDir())
	require.NoError(t, err)
	svc := otp.NewService(jsonfile.NewChallenges(store), stalledNotifier{})
	svc.SendTimeout = 50 * time.Millisecond
	ctx := context.Background()

	start := time.Now()
	result, err := svc.Issue(ctx, "alice", "alice@example.com", models.PurposeLogin)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, result.Delivered)
	assert.ErrorIs(t, result.DeliveryError, context.DeadlineExceeded)

	// The code stays valid for fallback display.
	err = svc.Verify(ctx, "alice", result.Code, models.PurposeLogin)
	assert.NoError(t, err)
}

func TestIssueDeliveryFailureKeepsChallenge(t *testing.T) {
	notifier := &fakeNotifier{configured: true, sendErr: errors.New("smtp down")}
	svc, _ := newService(t, notifier)
	ctx := context.Background()

	result, err := svc.Issue(ctx, "alice", "alice@example.com", models.PurposeLogin)
	require.NoError(t, err)
	assert.False(t, result.Delivered)
	assert.Error(t, result.DeliveryError)

	// The code stays valid for fallback display.
	err = svc.Verify(ctx, "alice", result.Code, models.PurposeLogin)
	assert.NoError(t, err)
}

func TestVerifyConsumesOnSuccess(t *testing.T) {
	svc, _ := newService(t, &fakeNotifier{})
	ctx := context.Background()

	result, err := svc.Issue(ctx, "alice", "alice@example.com", models.PurposeLogin)
	require.NoError(t, err)

	require.NoError(t, svc.Verify(ctx, "alice", result.Code, models.PurposeLogin))

	// A second verify with the same code finds nothing.
	err = svc.Verify(ctx, "alice", result.Code, models.PurposeLogin)
	assert.ErrorIs(t, err, otp.ErrChallengeNotFound)
}

func TestVerifyNotFound(t *testing.T) {
	svc, _ := newService(t, &fakeNotifier{})

	err := svc.Verify(context.Background(), "nobody", "123456", models.PurposeLogin)
	assert.ErrorIs(t, err, otp.ErrChallengeNotFound)
}

func TestVerifyExpiredRemoves(t *testing.T) {
	svc, challenges := newService(t, &fakeNotifier{})
	ctx := context.Background()

	require.NoError(t, challenges.Put(ctx, "alice", &models.Challenge{
		Code:      "123456",
		Purpose:   models.PurposeLogin,
		ExpiresAt: time.Now().Add(-time.Minute),
		CreatedAt: time.Now().Add(-10 * time.Minute),
	}))

	// Correctness of the code does not matter once expired.
	err := svc.Verify(ctx, "alice", "123456", models.PurposeLogin)
	assert.ErrorIs(t, err, otp.ErrChallengeExpired)

	_, err = challenges.Get(ctx, "alice")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestVerifyWrongCodeCountsAttempts(t *testing.T) {
	svc, challenges := newService(t, &fakeNotifier{})
	ctx := context.Background()

	result, err := svc.Issue(ctx, "alice", "alice@example.com", models.PurposeLogin)
	require.NoError(t, err)

	err = svc.Verify(ctx, "alice", "000000", models.PurposeLogin)
	var incorrect *otp.IncorrectCodeError
	require.ErrorAs(t, err, &incorrect)
	assert.Equal(t, 2, incorrect.Remaining)

	err = svc.Verify(ctx, "alice", "000000", models.PurposeLogin)
	require.ErrorAs(t, err, &incorrect)
	assert.Equal(t, 1, incorrect.Remaining)

	// Third wrong guess exhausts the cap and consumes the challenge.
	err = svc.Verify(ctx, "alice", "000000", models.PurposeLogin)
	assert.ErrorIs(t, err, otp.ErrTooManyAttempts)

	_, err = challenges.Get(ctx, "alice")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// The fourth attempt fails NotFound even with the correct code.
	err = svc.Verify(ctx, "alice", result.Code, models.PurposeLogin)
	assert.ErrorIs(t, err, otp.ErrChallengeNotFound)
}

func TestVerifyPurposeMismatchKeepsChallenge(t *testing.T) {
	svc, challenges := newService(t, &fakeNotifier{})
	ctx := context.Background()

	result, err := svc.Issue(ctx, "alice@example.com", "alice@example.com", models.PurposeLogin)
	require.NoError(t, err)

	err = svc.Verify(ctx, "alice@example.com", result.Code, models.PurposeRegistration)
	assert.ErrorIs(t, err, otp.ErrPurposeMismatch)

	// Challenge survives and still verifies under the right purpose.
	ch, err := challenges.Get(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, ch.Attempts)

	err = svc.Verify(ctx, "alice@example.com", result.Code, models.PurposeLogin)
	assert.NoError(t, err)
}

func TestVerifyPreseededExhaustedChallenge(t *testing.T) {
	svc, challenges := newService(t, &fakeNotifier{})
	ctx := context.Background()

	require.NoError(t, challenges.Put(ctx, "alice", &models.Challenge{
		Code:      "123456",
		Purpose:   models.PurposeLogin,
		ExpiresAt: time.Now().Add(5 * time.Minute),
		Attempts:  otp.MaxAttempts,
		CreatedAt: time.Now(),
	}))

	err := svc.Verify(ctx, "alice", "123456", models.PurposeLogin)
	assert.ErrorIs(t, err, otp.ErrTooManyAttempts)

	_, err = challenges.Get(ctx, "alice")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
