package auth

import (
	"context"
	"sync"

	"github.com/projecty/backend/internal/models"
)

// MockCall records a method call for assertion
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockService is a ServiceInterface for handler tests. Unset funcs return
// DefaultError (or zero values).
type MockService struct {
	mu    sync.Mutex
	Calls []MockCall

	RegisterFunc           func(req RegisterRequest) (*AuthResponse, error)
	LoginFunc              func(req LoginRequest) (*AuthResponse, error)
	MeFunc                 func(userID string) (*MeResponse, error)
	InterestsFunc          func() ([]models.Interest, error)
	CompleteOnboardingFunc func(userID string, ids []uint) error
	ParseTokenFunc         func(token string) (*Claims, error)

	DefaultError error
}

func NewMockService() *MockService {
	return &MockService{}
}

func (m *MockService) record(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// CallCount returns how many times method was invoked
func (m *MockService) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (m *MockService) Register(_ context.Context, req RegisterRequest) (*AuthResponse, error) {
	m.record("Register", req)
	if m.RegisterFunc != nil {
		return m.RegisterFunc(req)
	}
	return nil, m.DefaultError
}

func (m *MockService) Login(_ context.Context, req LoginRequest) (*AuthResponse, error) {
	m.record("Login", req)
	if m.LoginFunc != nil {
		return m.LoginFunc(req)
	}
	return nil, m.DefaultError
}

func (m *MockService) Me(_ context.Context, userID string) (*MeResponse, error) {
	m.record("Me", userID)
	if m.MeFunc != nil {
		return m.MeFunc(userID)
	}
	return nil, m.DefaultError
}

func (m *MockService) Interests(_ context.Context) ([]models.Interest, error) {
	m.record("Interests")
	if m.InterestsFunc != nil {
		return m.InterestsFunc()
	}
	return nil, m.DefaultError
}

func (m *MockService) CompleteOnboarding(_ context.Context, userID string, ids []uint) error {
	m.record("CompleteOnboarding", userID, ids)
	if m.CompleteOnboardingFunc != nil {
		return m.CompleteOnboardingFunc(userID, ids)
	}
	return m.DefaultError
}

func (m *MockService) ParseToken(token string) (*Claims, error) {
	m.record("ParseToken", token)
	if m.ParseTokenFunc != nil {
		return m.ParseTokenFunc(token)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	return nil, ErrInvalidToken
}

var _ ServiceInterface = (*MockService)(nil)
