package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pipeflow/deal-todo-api/internal/config"

	"golang.org/x/oauth2"
)

// CRMClient talks to the host CRM platform: authorization-code exchange
// during installation and profile fetches with an issued access token.
type CRMClient interface {
	ExchangeCode(ctx context.Context, code string) (*TokenGrant, error)
	FetchProfile(ctx context.Context, apiDomain, accessToken string) (*Profile, error)
}

// TokenGrant is the OAuth token payload issued by the platform. APIDomain is
// the tenant-specific API base the token is valid against.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresAt    time.Time
	APIDomain    string
}

// Profile is the provider-verified identity of the installing user and their
// company. It is the only trusted source of external ids during installation.
type Profile struct {
	UserID         int64
	CompanyID      int64
	CompanyName    string
	CompanyDomain  string
	CompanyCountry *string
	Email          string
	Name           string
	Locale         string
	Language       string
	Timezone       string
	IsAdmin        bool
	ActiveFlag     bool
}

type HTTPCRMClient struct {
	oauth      *oauth2.Config
	httpClient *http.Client
}

func NewCRMClient(cfg config.OAuthConfig) *HTTPCRMClient {
	return &HTTPCRMClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  fmt.Sprintf("%s/callback", cfg.RedirectBaseURL),
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *HTTPCRMClient) ExchangeCode(ctx context.Context, code string) (*TokenGrant, error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("code exchange failed: %v", err)}
	}

	grant := &TokenGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
	}

	if scope, ok := token.Extra("scope").(string); ok {
		grant.Scope = scope
	}
	if apiDomain, ok := token.Extra("api_domain").(string); ok {
		grant.APIDomain = apiDomain
	}
	if grant.APIDomain == "" {
		return nil, &ProviderError{Message: "token response missing api_domain"}
	}

	return grant, nil
}

// userMeEnvelope mirrors the platform's /users/me response shape. is_admin
// arrives as a 0/1 integer, language as a nested object.
type userMeEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		ID             int64   `json:"id"`
		CompanyID      int64   `json:"company_id"`
		CompanyName    string  `json:"company_name"`
		CompanyDomain  string  `json:"company_domain"`
		CompanyCountry *string `json:"company_country"`
		Email          string  `json:"email"`
		Name           string  `json:"name"`
		Locale         string  `json:"locale"`
		Language       *struct {
			LanguageCode string `json:"language_code"`
		} `json:"language"`
		TimezoneName string `json:"timezone_name"`
		IsAdmin      int    `json:"is_admin"`
		ActiveFlag   bool   `json:"active_flag"`
	} `json:"data"`
}

func (c *HTTPCRMClient) FetchProfile(ctx context.Context, apiDomain, accessToken string) (*Profile, error) {
	url := fmt.Sprintf("%s/api/v1/users/me", apiDomain)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("profile request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status fetching profile: %s", resp.Status),
		}
	}

	var envelope userMeEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("failed to decode profile response: %v", err)}
	}

	if !envelope.Success {
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    "provider flagged profile response unsuccessful",
		}
	}

	profile := &Profile{
		UserID:         envelope.Data.ID,
		CompanyID:      envelope.Data.CompanyID,
		CompanyName:    envelope.Data.CompanyName,
		CompanyDomain:  envelope.Data.CompanyDomain,
		CompanyCountry: envelope.Data.CompanyCountry,
		Email:          envelope.Data.Email,
		Name:           envelope.Data.Name,
		Locale:         envelope.Data.Locale,
		Language:       "en",
		Timezone:       envelope.Data.TimezoneName,
		IsAdmin:        envelope.Data.IsAdmin != 0,
		ActiveFlag:     envelope.Data.ActiveFlag,
	}
	if envelope.Data.Language != nil && envelope.Data.Language.LanguageCode != "" {
		profile.Language = envelope.Data.Language.LanguageCode
	}

	return profile, nil
}
