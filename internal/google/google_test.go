package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/iliyamo/advisor-scheduler/internal/config"
)

func TestAuthCodeURLCarriesState(t *testing.T) {
	p := New(config.GoogleConfig{ClientID: "cid", ClientSecret: "s", RedirectURL: "http://localhost:8000/auth"})
	u, err := url.Parse(p.AuthCodeURL("st4te"))
	require.NoError(t, err)
	assert.Equal(t, "st4te", u.Query().Get("state"))
	assert.Equal(t, "http://localhost:8000/auth", u.Query().Get("redirect_uri"))
	assert.True(t, p.Enabled())
	assert.False(t, New(config.GoogleConfig{}).Enabled())
}

func TestExchangeLoadsProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("code") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gtok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gtok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"email":"ana@example.com","email_verified":true,"given_name":"Ana","family_name":"Lopez"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := New(config.GoogleConfig{ClientID: "cid", ClientSecret: "s"})
	p.oauth.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	p.userinfoURL = srv.URL + "/userinfo"

	prof, tok, err := p.Exchange(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", prof.Email)
	assert.Equal(t, "Ana", prof.GivenName)
	assert.Equal(t, "gtok", tok.AccessToken)

	_, _, err = p.Exchange(context.Background(), "bad")
	assert.Error(t, err)
}
