package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/pipeflow/deal-todo-api/internal/services"
)

// MockCRMClient implements services.CRMClient for testing
type MockCRMClient struct {
	// Configuration for mock responses
	ShouldError  bool
	ErrorMessage string
	MockGrant    *services.TokenGrant
	MockProfile  *services.Profile

	// Call tracking
	ExchangeCodeCalls []ExchangeCodeCall
	FetchProfileCalls []FetchProfileCall
	TotalCalls        int
}

type ExchangeCodeCall struct {
	Code      string
	Timestamp time.Time
}

type FetchProfileCall struct {
	APIDomain   string
	AccessToken string
	Timestamp   time.Time
}

// NewMockCRMClient creates a mock pre-loaded with a plausible install grant
// and profile.
func NewMockCRMClient() *MockCRMClient {
	return &MockCRMClient{
		MockGrant: &services.TokenGrant{
			AccessToken:  "mock_access_token_12345",
			RefreshToken: "mock_refresh_token_67890",
			TokenType:    "Bearer",
			Scope:        "base deals:read",
			ExpiresAt:    time.Now().Add(1 * time.Hour),
			APIDomain:    "https://testcompany.example-crm.com",
		},
		MockProfile: &services.Profile{
			UserID:        4242,
			CompanyID:     9001,
			CompanyName:   "Test Company",
			CompanyDomain: "testcompany",
			Email:         "test@example.com",
			Name:          "Test User",
			Locale:        "en_US",
			Language:      "en",
			Timezone:      "Europe/Berlin",
			IsAdmin:       true,
			ActiveFlag:    true,
		},
	}
}

// ExchangeCode mocks the authorization-code exchange
func (m *MockCRMClient) ExchangeCode(ctx context.Context, code string) (*services.TokenGrant, error) {
	m.ExchangeCodeCalls = append(m.ExchangeCodeCalls, ExchangeCodeCall{
		Code:      code,
		Timestamp: time.Now(),
	})
	m.TotalCalls++

	if m.ShouldError {
		return nil, errors.New(m.errorMessage())
	}

	grant := *m.MockGrant
	return &grant, nil
}

// FetchProfile mocks the /users/me profile fetch
func (m *MockCRMClient) FetchProfile(ctx context.Context, apiDomain, accessToken string) (*services.Profile, error) {
	m.FetchProfileCalls = append(m.FetchProfileCalls, FetchProfileCall{
		APIDomain:   apiDomain,
		AccessToken: accessToken,
		Timestamp:   time.Now(),
	})
	m.TotalCalls++

	if m.ShouldError {
		return nil, &services.ProviderError{Message: m.errorMessage()}
	}

	profile := *m.MockProfile
	return &profile, nil
}

// Reset clears all call tracking
func (m *MockCRMClient) Reset() {
	m.ExchangeCodeCalls = nil
	m.FetchProfileCalls = nil
	m.TotalCalls = 0
	m.ShouldError = false
	m.ErrorMessage = ""
}

func (m *MockCRMClient) errorMessage() string {
	if m.ErrorMessage != "" {
		return m.ErrorMessage
	}
	return "mock CRM error"
}
