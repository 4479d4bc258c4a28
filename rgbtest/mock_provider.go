package rgbtest

import (
	"context"
	"encoding/json"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/rgbwebln/rgbwebln/events"
	"github.com/stretchr/testify/mock"
)

// MockProvider is a testify mock of a provider. Its On method is the
// provider's event registration, so expectations are set through m.Mock.On.
//
// NOTE: forcetypeassert is skipped for the mock because the test would fail if
// the returned value doesn't match the type.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Enable(ctx context.Context,
	origin fn.Option[string]) error {

	args := m.Called(ctx, origin)

	return args.Error(0)
}

func (m *MockProvider) IsEnabled(ctx context.Context) (bool, error) {
	args := m.Called(ctx)

	return args.Bool(0), args.Error(1)
}

func (m *MockProvider) Request(ctx context.Context, method string,
	params any) (json.RawMessage, error) {

	args := m.Called(ctx, method, params)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockProvider) On(event string, handler events.Handler) events.Token {
	args := m.Called(event, handler)

	return args.Get(0).(events.Token)
}

func (m *MockProvider) Off(event string, token events.Token) bool {
	args := m.Called(event, token)

	return args.Bool(0)
}
