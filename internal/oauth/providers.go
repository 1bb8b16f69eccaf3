package oauth

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/sujalbistaa/crown/internal/config"
	"github.com/sujalbistaa/crown/internal/identity"
)

var twitterEndpoint = oauth2.Endpoint{
	AuthURL:   "https://twitter.com/i/oauth2/authorize",
	TokenURL:  "https://api.twitter.com/2/oauth2/token",
	AuthStyle: oauth2.AuthStyleInHeader,
}

// ProvidersFromConfig returns every provider that has credentials configured.
func ProvidersFromConfig(cfg config.Config) []Provider {
	var providers []Provider

	if cfg.Google.ClientID != "" {
		providers = append(providers, Provider{
			Name: identity.ProviderGoogle,
			Config: &oauth2.Config{
				ClientID:     cfg.Google.ClientID,
				ClientSecret: cfg.Google.ClientSecret,
				Endpoint:     endpoints.Google,
				RedirectURL:  cfg.CallbackURL(identity.ProviderGoogle),
				Scopes:       []string{"profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
			SubjectPath: "sub",
		})
	}

	if cfg.Facebook.ClientID != "" {
		providers = append(providers, Provider{
			Name: identity.ProviderFacebook,
			Config: &oauth2.Config{
				ClientID:     cfg.Facebook.ClientID,
				ClientSecret: cfg.Facebook.ClientSecret,
				Endpoint:     endpoints.Facebook,
				RedirectURL:  cfg.CallbackURL(identity.ProviderFacebook),
				Scopes:       []string{"public_profile"},
			},
			UserInfoURL: "https://graph.facebook.com/me?fields=id",
			SubjectPath: "id",
		})
	}

	if cfg.Twitter.ClientID != "" {
		providers = append(providers, Provider{
			Name: identity.ProviderTwitter,
			Config: &oauth2.Config{
				ClientID:     cfg.Twitter.ClientID,
				ClientSecret: cfg.Twitter.ClientSecret,
				Endpoint:     twitterEndpoint,
				RedirectURL:  cfg.CallbackURL(identity.ProviderTwitter),
				Scopes:       []string{"users.read", "tweet.read"},
			},
			UserInfoURL: "https://api.twitter.com/2/users/me",
			SubjectPath: "data.id",
		})
	}

	return providers
}
