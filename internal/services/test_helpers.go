package services

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockNotifier is a testify mock of Notifier.
type MockNotifier struct {
	mock.Mock
}

// Notify records the call.
func (m *MockNotifier) Notify(ctx context.Context, noticeType, level string, data interface{}) {
	m.Called(noticeType, level, data)
}
