// Package google implements the "login with Google" authorization-code flow.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/iliyamo/advisor-scheduler/internal/config"
)

const userinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Profile is the part of the OpenID userinfo document the service uses.
type Profile struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Name          string `json:"name"`
}

// Provider wraps the OAuth client configuration.
type Provider struct {
	oauth       *oauth2.Config
	userinfoURL string
}

func New(cfg config.GoogleConfig) *Provider {
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     googleoauth.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userinfoURL: userinfoURL,
	}
}

// Enabled reports whether client credentials were configured.
func (p *Provider) Enabled() bool { return p.oauth.ClientID != "" && p.oauth.ClientSecret != "" }

// AuthCodeURL is where the browser is sent to consent.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for a token and loads the profile.
func (p *Provider) Exchange(ctx context.Context, code string) (Profile, *oauth2.Token, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return Profile{}, nil, fmt.Errorf("google: exchange: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userinfoURL, nil)
	if err != nil {
		return Profile{}, nil, err
	}
	resp, err := p.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return Profile{}, nil, fmt.Errorf("google: userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Profile{}, nil, fmt.Errorf("google: userinfo: status %d", resp.StatusCode)
	}
	var prof Profile
	if err := json.NewDecoder(resp.Body).Decode(&prof); err != nil {
		return Profile{}, nil, fmt.Errorf("google: userinfo: %w", err)
	}
	if prof.Email == "" {
		return Profile{}, nil, errors.New("google: userinfo without email")
	}
	return prof, tok, nil
}
