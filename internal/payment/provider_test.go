package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RobertEarleCodes/Scrittle/pkg/breaker"
	apperrors "github.com/RobertEarleCodes/Scrittle/pkg/errors"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "test" }

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, req *SessionRequest) (*Session, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*Session)
	return s, args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBreakerConfig(name string) breaker.Config {
	return breaker.Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func TestSessionRequest_Total(t *testing.T) {
	req := &SessionRequest{LineItems: []LineItem{
		{UnitAmount: 3500, Quantity: 1},
		{UnitAmount: 50, Quantity: 1},
	}}
	assert.Equal(t, int64(3550), req.Total())
	assert.Equal(t, int64(0), (&SessionRequest{}).Total())
}

func TestIsPlaceholderSecret(t *testing.T) {
	assert.True(t, IsPlaceholderSecret(""))
	assert.True(t, IsPlaceholderSecret("   "))
	assert.True(t, IsPlaceholderSecret("whsec_YOUR_WEBHOOK_SECRET"))
	assert.False(t, IsPlaceholderSecret("whsec_abc123"))
}

func TestBreakerProvider_PassesThrough(t *testing.T) {
	inner := new(mockProvider)
	req := &SessionRequest{LineItems: []LineItem{{UnitAmount: 3500, Quantity: 1}}}
	inner.On("CreateCheckoutSession", mock.Anything, req).Return(&Session{ID: "cs_1", URL: "https://pay/cs_1"}, nil)

	p := WithBreaker(inner, testBreakerConfig("provider-pass"), discardLogger())
	assert.Equal(t, "test", p.Name())

	s, err := p.CreateCheckoutSession(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "cs_1", s.ID)
	inner.AssertExpectations(t)
}

func TestBreakerProvider_TripsOnProviderFailures(t *testing.T) {
	inner := new(mockProvider)
	inner.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(nil, apperrors.PaymentProvider("Something went wrong", errors.New("api_error")))

	p := WithBreaker(inner, testBreakerConfig("provider-trip"), discardLogger())
	for i := 0; i < 3; i++ {
		_, err := p.CreateCheckoutSession(context.Background(), &SessionRequest{})
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "Something went wrong", appErr.Message)
	}
	assert.Equal(t, gobreaker.StateOpen, p.State())

	_, err := p.CreateCheckoutSession(context.Background(), &SessionRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPaymentProvider)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	inner.AssertNumberOfCalls(t, "CreateCheckoutSession", 3)
}

func TestBreakerProvider_InvalidRequestsDoNotTrip(t *testing.T) {
	inner := new(mockProvider)
	inner.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(nil, apperrors.InvalidInput("Invalid email address"))

	p := WithBreaker(inner, testBreakerConfig("provider-invalid"), discardLogger())
	for i := 0; i < 5; i++ {
		_, err := p.CreateCheckoutSession(context.Background(), &SessionRequest{})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateClosed, p.State())
}
