package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/sujalbistaa/crown/internal/logging"
	"github.com/sujalbistaa/crown/internal/models"
)

// maxProfileBytes caps how much of a userinfo response is read.
const maxProfileBytes = 1 << 20

// Provider describes one external login service. Providers differ only in
// endpoints, scopes and where the subject id sits in the userinfo document.
type Provider struct {
	Name        string
	Config      *oauth2.Config
	UserInfoURL string
	// SubjectPath is a gjson path to the stable subject id, e.g. "sub" or "data.id".
	SubjectPath string
}

// Redirect tells the caller where to send the browser and what to keep
// until the provider calls back.
type Redirect struct {
	URL      string
	State    string
	Verifier string
}

// UserResolver maps a provider subject to a local user.
type UserResolver interface {
	FindOrCreateByProvider(ctx context.Context, provider, providerID string) (*models.User, error)
}

// Broker exchanges provider assertions for local identities.
type Broker struct {
	providers  map[string]Provider
	users      UserResolver
	httpClient *http.Client
	log        logging.Logger
}

// NewBroker returns a Broker serving the given providers.
func NewBroker(users UserResolver, providers ...Provider) *Broker {
	b := &Broker{
		providers: make(map[string]Provider, len(providers)),
		users:     users,
		log:       logging.GetLogger("oauth.broker"),
	}
	for _, p := range providers {
		b.providers[p.Name] = p
	}

	return b
}

// WithHTTPClient sets the client used for token exchange and profile calls.
func (b *Broker) WithHTTPClient(client *http.Client) *Broker {
	b.httpClient = client
	return b
}

// Providers lists the enabled provider names in sorted order.
func (b *Broker) Providers() []string {
	names := make([]string, 0, len(b.providers))
	for name := range b.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// BeginAuth builds the consent redirect for provider. PKCE (S256) is always used.
func (b *Broker) BeginAuth(provider string) (Redirect, error) {
	p, ok := b.providers[provider]
	if !ok {
		return Redirect{}, fmt.Errorf("%w: %q", models.ErrUnknownProvider, provider)
	}

	state, err := randomState()
	if err != nil {
		return Redirect{}, fmt.Errorf("generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	return Redirect{
		URL:      p.Config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)),
		State:    state,
		Verifier: verifier,
	}, nil
}

// CompleteAuth verifies the authorization code with provider and returns the
// local user for the provider's subject. Provider-side failures are
// models.ErrAuthFailure.
func (b *Broker) CompleteAuth(ctx context.Context, provider, code, verifier string) (_ *models.User, err error) {
	log := b.log.With("provider", provider)

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "federated login failed", "error", err)
		}
	}()

	p, ok := b.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownProvider, provider)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing code", models.ErrAuthFailure)
	}

	if b.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	}

	token, err := p.Config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, errors.Join(models.ErrAuthFailure, fmt.Errorf("exchange code: %w", err))
	}

	subject, err := b.fetchSubject(ctx, p, token)
	if err != nil {
		return nil, errors.Join(models.ErrAuthFailure, err)
	}

	user, err := b.users.FindOrCreateByProvider(ctx, provider, subject)
	if err != nil {
		return nil, fmt.Errorf("find or create user: %w", err)
	}

	log.InfoContext(ctx, "federated login", "user_id", user.ID)

	return user, nil
}

func (b *Broker) fetchSubject(ctx context.Context, p Provider, token *oauth2.Token) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.Config.Client(ctx, token).Do(req)
	if err != nil {
		return "", fmt.Errorf("profile request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("profile request: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return "", fmt.Errorf("read profile: %w", err)
	}

	subject := gjson.GetBytes(body, p.SubjectPath)
	if !subject.Exists() || subject.String() == "" {
		return "", fmt.Errorf("profile has no %q", p.SubjectPath)
	}

	return subject.String(), nil
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
