// Package identitysvc verifies identities vouched for by external providers.
package identitysvc

import (
	"context"

	googleverifier "github.com/futurenda/google-auth-id-token-verifier"
	"github.com/pkg/errors"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/auth"
)

// GoogleVerifier checks Google ID tokens issued for the configured client.
type GoogleVerifier struct {
	clientID string
	verifier googleverifier.Verifier
}

var _ auth.IdentityVerifier = (*GoogleVerifier)(nil) // interface compliance check

// NewGoogleVerifier returns nil when no client id is configured, which turns external sign-in off.
func NewGoogleVerifier(conf *core.Config) auth.IdentityVerifier {
	if conf.Google.ClientID == "" {
		return nil
	}
	return &GoogleVerifier{clientID: conf.Google.ClientID}
}

func (v *GoogleVerifier) Verify(_ context.Context, idToken string) (auth.Identity, error) {
	if err := v.verifier.VerifyIDToken(idToken, []string{v.clientID}); err != nil {
		return auth.Identity{}, errors.Wrap(auth.ErrInvalidToken, err.Error())
	}
	claims, err := googleverifier.Decode(idToken)
	if err != nil {
		return auth.Identity{}, errors.Wrap(err, "decoding id token")
	}
	if claims.Email == "" {
		return auth.Identity{}, errors.Wrap(auth.ErrInvalidToken, "token carries no email")
	}
	return auth.Identity{
		Subject:       claims.Sub,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}
