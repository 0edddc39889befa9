// Package apiauth issues API access tokens against configured client
// credentials. A token binds the holder to one ledger address; what
// that address may do is decided by the ledger services.
package apiauth

import (
	"context"
	"log/slog"
	"time"

	"wrkledger/pkg/domain"
	dErrors "wrkledger/pkg/domain-errors"
	"wrkledger/pkg/secrets"
)

// Credential is one registered API client: a key ID, the bcrypt hash of
// its secret, and the ledger address it acts as.
type Credential struct {
	KeyID      string
	SecretHash string
	Address    domain.Address
}

// Service exchanges client credentials for access tokens.
type Service struct {
	jwt      *JWT
	creds    map[string]Credential
	tokenTTL time.Duration
	logger   *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a Service over the configured credentials.
func New(jwt *JWT, creds []Credential, tokenTTL time.Duration, opts ...Option) *Service {
	byKey := make(map[string]Credential, len(creds))
	for _, c := range creds {
		byKey[c.KeyID] = c
	}
	s := &Service{jwt: jwt, creds: byKey, tokenTTL: tokenTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueToken verifies the client secret and returns a signed access
// token with its lifetime. Unknown key IDs and wrong secrets get the
// same answer.
func (s *Service) IssueToken(ctx context.Context, keyID, secret string) (string, time.Duration, error) {
	cred, ok := s.creds[keyID]
	if ok {
		if err := secrets.Verify(secret, cred.SecretHash); err == nil {
			token, err := s.jwt.GenerateAccessToken(cred.KeyID, cred.Address, s.tokenTTL)
			if err != nil {
				return "", 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
			}
			if s.logger != nil {
				s.logger.InfoContext(ctx, "access token issued", "key_id", keyID, "address", cred.Address)
			}
			return token, s.tokenTTL, nil
		}
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "token issuance rejected", "key_id", keyID)
	}
	return "", 0, dErrors.New(dErrors.CodeUnauthorized, "invalid client credentials")
}
