package identity

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/playsearch/internal/domain"
	"github.com/kailas-cloud/playsearch/internal/domain/catalog"
	"github.com/kailas-cloud/playsearch/internal/domain/user"
)

// DefaultTokenTTL is the access token lifetime when none is configured.
const DefaultTokenTTL = 8 * time.Hour

const tokenType = "bearer"

// Config holds the token signing settings.
type Config struct {
	Secret   string
	TokenTTL time.Duration
	// Password is the shared login password of the demo deployment.
	Password string
}

// Token is an issued access token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type claims struct {
	CompanyID string `json:"company_id"`
	jwt.RegisteredClaims
}

// Service issues and verifies HS256 access tokens and turns a verified
// subject into a user context built from the catalog.
type Service struct {
	cfg     Config
	catalog CatalogSource
	logger  *zap.Logger
	now     func() time.Time
}

// New creates the identity service.
func New(cfg Config, src CatalogSource, logger *zap.Logger) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("identity: signing secret is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	return &Service{cfg: cfg, catalog: src, logger: logger, now: time.Now}, nil
}

// Login checks the credentials of an active user and issues a token.
// Unknown users, inactive users and wrong passwords fail the same way.
func (s *Service) Login(_ context.Context, username, password string) (Token, error) {
	snap := s.catalog.Current()
	if snap == nil {
		return Token{}, fmt.Errorf("%w: catalog not loaded", domain.ErrInvalidCredentials)
	}

	u, ok := snap.UserByUsername(username)
	if !ok || !u.IsActive {
		s.logger.Warn("Failed login attempt", zap.String("username", username))
		return Token{}, domain.ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Password)) != 1 {
		s.logger.Warn("Failed login attempt, wrong password", zap.String("username", username))
		return Token{}, domain.ErrInvalidCredentials
	}

	tok, err := s.issue(u)
	if err != nil {
		return Token{}, err
	}
	s.logger.Info("User logged in", zap.String("user_id", u.ID), zap.String("username", u.Username))
	return tok, nil
}

// Issue mints a token for an active user without a password.
func (s *Service) Issue(userID string) (Token, error) {
	snap := s.catalog.Current()
	if snap == nil {
		return Token{}, fmt.Errorf("%w: catalog not loaded", domain.ErrNotFound)
	}
	u, ok := snap.User(userID)
	if !ok {
		return Token{}, fmt.Errorf("user %q: %w", userID, domain.ErrNotFound)
	}
	if !u.IsActive {
		return Token{}, fmt.Errorf("user %q is inactive: %w", userID, domain.ErrInvalidCredentials)
	}
	return s.issue(u)
}

func (s *Service) issue(u catalog.User) (Token, error) {
	now := s.now()
	c := claims{
		CompanyID: u.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{
		AccessToken: signed,
		TokenType:   tokenType,
		ExpiresIn:   int(s.cfg.TokenTTL.Seconds()),
	}, nil
}

// Authenticate verifies a token and builds the user context it grants.
func (s *Service) Authenticate(_ context.Context, raw string) (*user.Context, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c,
		func(*jwt.Token) (any, error) { return []byte(s.cfg.Secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	if c.Subject == "" || c.CompanyID == "" {
		return nil, fmt.Errorf("%w: token lacks subject or company", domain.ErrUnauthorized)
	}

	snap := s.catalog.Current()
	if snap == nil {
		return nil, fmt.Errorf("%w: catalog not loaded", domain.ErrUnauthorized)
	}
	return BuildContext(snap, c.Subject, c.CompanyID, s.logger)
}

// BuildContext assembles the trusted user context from the catalog.
// Assignments to plays missing from the catalog are logged and skipped.
func BuildContext(snap *catalog.Catalog, userID, companyID string, logger *zap.Logger) (*user.Context, error) {
	u, ok := snap.User(userID)
	if !ok {
		return nil, fmt.Errorf("%w: user %q not found", domain.ErrUnauthorized, userID)
	}
	if u.CompanyID != companyID {
		return nil, fmt.Errorf("%w: user %q does not belong to company %q", domain.ErrUnauthorized, userID, companyID)
	}

	companyName := companyID
	if co, ok := snap.Company(companyID); ok {
		companyName = co.Name
	}

	assignments := snap.AssignmentsForUser(userID)
	plays := make([]user.AssignedPlay, 0, len(assignments))
	for _, a := range assignments {
		p, ok := snap.Play(a.PlayID)
		if !ok {
			logger.Warn("Assignment references missing play, skipping",
				zap.String("assignment_id", a.ID),
				zap.String("play_id", a.PlayID),
				zap.String("user_id", userID),
			)
			continue
		}
		plays = append(plays, user.AssignedPlay{
			PlayID:      a.PlayID,
			PlayTitle:   p.Title,
			Status:      a.Status,
			CompletedAt: a.CompletedAt,
		})
	}

	return &user.Context{
		UserID:        u.ID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		CompanyID:     companyID,
		CompanyName:   companyName,
		AssignedPlays: plays,
	}, nil
}
