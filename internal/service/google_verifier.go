package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"propstake/internal/entity"
)

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleVerifier validates a Google ID token and extracts the identity it
// asserts.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*ExternalIdentity, error)
}

type GoogleTokenVerifier struct {
	ClientID   string
	HTTPClient *http.Client
	BaseURL    string
}

func NewGoogleTokenVerifier(clientID string) *GoogleTokenVerifier {
	return &GoogleTokenVerifier{
		ClientID:   clientID,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    googleTokenInfoURL,
	}
}

type googleTokenInfo struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

func (v *GoogleTokenVerifier) Verify(ctx context.Context, idToken string) (*ExternalIdentity, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, ErrTokenInvalid
	}
	endpoint := v.BaseURL
	if endpoint == "" {
		endpoint = googleTokenInfoURL
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet,
		endpoint+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return nil, err
	}
	client := v.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	response, err := client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("google token verification: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, ErrTokenInvalid
	}

	var info googleTokenInfo
	if err := json.NewDecoder(response.Body).Decode(&info); err != nil {
		return nil, ErrTokenInvalid
	}
	if v.ClientID != "" && info.Aud != v.ClientID {
		return nil, ErrTokenInvalid
	}
	if info.Sub == "" || info.Email == "" {
		return nil, ErrTokenInvalid
	}
	return &ExternalIdentity{
		Provider:      entity.ProviderGoogle,
		ProviderID:    info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified == "true",
		FirstName:     info.GivenName,
		LastName:      info.FamilyName,
		AvatarURL:     info.Picture,
	}, nil
}
