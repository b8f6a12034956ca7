package auth

import (
	"context"
	"fmt"

	"github.com/santerelay/platform/pkg/common/logger"
	"golang.org/x/oauth2"
)

// OIDCAuthenticator validates tokens issued by a hospital network's SSO
// provider, for deployments that federate identity instead of using local
// accounts.
type OIDCAuthenticator struct {
	config *oauth2.Config
	issuer string
}

func NewOIDCAuthenticator(issuer, clientID, clientSecret string) (*OIDCAuthenticator, error) {
	if issuer == "" || clientID == "" {
		return nil, fmt.Errorf("OIDC configuration incomplete")
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("%s/authorize", issuer),
			TokenURL: fmt.Sprintf("%s/token", issuer),
		},
		Scopes: []string{"openid", "profile", "email"},
	}

	return &OIDCAuthenticator{
		config: config,
		issuer: issuer,
	}, nil
}

// ValidateToken checks an SSO bearer token. Signature verification against
// the issuer's JWKS is not implemented; only non-empty tokens pass and the
// returned claims carry no role.
func (a *OIDCAuthenticator) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}

	logger.Log.WithField("issuer", a.issuer).Debug("OIDC token validation")

	return &Claims{Issuer: a.issuer}, nil
}
