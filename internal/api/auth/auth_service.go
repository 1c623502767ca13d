package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/markbates/goth"

	obsmetrics "github.com/matchpoint-hq/matchpoint/app/observability/metrics"
	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service is the authentication application service: credential resolution,
// token issuance, registration and OAuth provisioning.
type Service interface {
	// Login resolves credentials and returns a signed token plus the
	// resolved identity. Failures are indistinguishable between "no such
	// account" and "wrong password".
	Login(ctx context.Context, email, password string) (string, *Resolved, error)

	Register(ctx context.Context, req RegisterRequest) (*types.Identity, error)

	// CheckEmail reports whether the email exists in any credential table.
	CheckEmail(ctx context.Context, email string) (bool, error)

	// GetPrincipal loads the current identity for a verified token's
	// subject and builds the normalized request principal. Returns
	// api.ErrNotFound if the identity no longer exists.
	GetPrincipal(ctx context.Context, origin types.Origin, id int64) (*types.Principal, error)

	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error

	// GetOrCreateUserFromProvider provisions a unified-table identity for
	// an external OAuth login. Such identities carry no password hash.
	GetOrCreateUserFromProvider(ctx context.Context, provider string, providerUser goth.User) (*types.Identity, error)
}

// adminRoles are the primary roles that trigger the legacy athlete-profile
// merge during resolution. Deprecated compatibility behavior for accounts
// from an incomplete data migration; do not extend to new account types.
var adminRoles = map[string]struct{}{
	"admin":         {},
	"athlete_admin": {},
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	issuer *TokenIssuer
}

func NewService(repo Repository, issuer *TokenIssuer, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		issuer: issuer,
	}
}

// resolve probes the credential tables in the fixed precedence order and
// returns the first table hit. It deliberately short-circuits on the first
// table match, not the first successful password match: the precedence
// rule, not the password, decides which table is authoritative.
func (s *ServiceImpl) resolve(ctx context.Context, email string) (*Resolved, error) {
	for _, origin := range ProbeOrder {
		ident, err := s.repo.LookupByEmail(ctx, origin, email)
		if err != nil {
			if errors.Is(err, api.ErrNotFound) {
				continue
			}
			if origin == types.OriginManager {
				// The managers table may be absent on older deployments;
				// resolution continues past it.
				s.logger.WarnContext(ctx, "Manager table probe failed, continuing resolution",
					slog.Any("error", err))
				continue
			}
			return nil, err
		}

		res := &Resolved{Identity: ident, Origin: origin}
		if origin == types.OriginUser {
			if _, isAdmin := adminRoles[ident.Role]; isAdmin {
				s.mergeAthleteProfile(ctx, res)
			}
		}
		return res, nil
	}
	return nil, api.ErrNotFound
}

// mergeAthleteProfile copies selected profile fields from a same-email
// athlete record onto an administrative identity. The admin role and the
// user-table password hash stay authoritative.
func (s *ServiceImpl) mergeAthleteProfile(ctx context.Context, res *Resolved) {
	athlete, err := s.repo.LookupByEmail(ctx, types.OriginAthlete, res.Identity.Email)
	if err != nil {
		if !errors.Is(err, api.ErrNotFound) {
			s.logger.WarnContext(ctx, "Athlete profile merge lookup failed",
				slog.Any("error", err))
		}
		return
	}
	if athlete.FirstName != nil {
		res.Identity.FirstName = athlete.FirstName
	}
	if athlete.LastName != nil {
		res.Identity.LastName = athlete.LastName
	}
	if athlete.Position != nil {
		res.Identity.Position = athlete.Position
	}
}

func (s *ServiceImpl) Login(ctx context.Context, email, password string) (string, *Resolved, error) {
	m := obsmetrics.Get()
	m.LoginAttemptsTotal.Add(ctx, 1)

	res, err := s.resolve(ctx, email)
	if err != nil {
		m.LoginFailuresTotal.Add(ctx, 1)
		if errors.Is(err, api.ErrNotFound) {
			return "", nil, api.ErrInvalidCredentials()
		}
		s.logger.ErrorContext(ctx, "Credential resolution failed", slog.Any("error", err))
		return "", nil, api.ErrAuthServerError()
	}

	// OAuth-provisioned identities have no hash and cannot password-login.
	if res.Identity.PasswordHash == nil || !VerifyPassword(*res.Identity.PasswordHash, password) {
		m.LoginFailuresTotal.Add(ctx, 1)
		return "", nil, api.ErrInvalidCredentials()
	}

	token, err := s.issuer.Issue(res.Identity.ID, res.Origin)
	if err != nil {
		s.logger.ErrorContext(ctx, "Token issuance failed", slog.Any("error", err))
		return "", nil, api.ErrAuthServerError()
	}
	return token, res, nil
}

func (s *ServiceImpl) Register(ctx context.Context, req RegisterRequest) (*types.Identity, error) {
	hash, err := EnsureHashed(req.Password)
	if err != nil {
		s.logger.ErrorContext(ctx, "Password hashing failed", slog.Any("error", err))
		return nil, api.ErrAuthServerError()
	}

	params := CreateUserParams{
		Email:        req.Email,
		PasswordHash: &hash,
		Role:         "user",
	}
	if req.FirstName != "" {
		params.FirstName = &req.FirstName
	}
	if req.LastName != "" {
		params.LastName = &req.LastName
	}

	ident, err := s.repo.CreateUser(ctx, params)
	if err != nil {
		if errors.Is(err, api.ErrConflict) {
			return nil, api.ErrConflictResponse("Email is already registered")
		}
		s.logger.ErrorContext(ctx, "User creation failed", slog.Any("error", err))
		return nil, api.ErrAuthServerError()
	}
	return ident, nil
}

func (s *ServiceImpl) CheckEmail(ctx context.Context, email string) (bool, error) {
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		s.logger.ErrorContext(ctx, "Email existence check failed", slog.Any("error", err))
		return false, api.ErrAuthServerError()
	}
	return exists, nil
}

func (s *ServiceImpl) GetPrincipal(ctx context.Context, origin types.Origin, id int64) (*types.Principal, error) {
	ident, err := s.repo.GetIdentity(ctx, origin, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.ErrNotFound
		}
		return nil, fmt.Errorf("load principal identity: %w", err)
	}

	var roles []string
	if origin == types.OriginUser {
		roles, err = s.repo.EffectiveRoles(ctx, id, ident.Role)
		if err != nil {
			return nil, fmt.Errorf("load principal roles: %w", err)
		}
	} else {
		// Legacy origins carry exactly their origin tag as the role set.
		roles = []string{string(origin)}
	}

	p := &types.Principal{
		ID:     ident.ID,
		Email:  ident.Email,
		Roles:  roles,
		Role:   ident.Role,
		Origin: origin,
	}
	if ident.FirstName != nil {
		p.FirstName = *ident.FirstName
	}
	if ident.LastName != nil {
		p.LastName = *ident.LastName
	}
	return p, nil
}

func (s *ServiceImpl) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	ident, err := s.repo.GetIdentity(ctx, types.OriginUser, userID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return api.ErrUnauthorized("")
		}
		return api.ErrAuthServerError()
	}

	if ident.PasswordHash == nil || !VerifyPassword(*ident.PasswordHash, oldPassword) {
		return api.ErrInvalidCredentials()
	}

	hash, err := EnsureHashed(newPassword)
	if err != nil {
		s.logger.ErrorContext(ctx, "Password hashing failed", slog.Any("error", err))
		return api.ErrAuthServerError()
	}

	// Previously issued tokens remain valid until expiry: the design is
	// stateless and keeps no revocation list.
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		s.logger.ErrorContext(ctx, "Password update failed", slog.Any("error", err))
		return api.ErrAuthServerError()
	}
	return nil
}

func (s *ServiceImpl) GetOrCreateUserFromProvider(ctx context.Context, provider string, providerUser goth.User) (*types.Identity, error) {
	ident, err := s.repo.LookupByEmail(ctx, types.OriginUser, providerUser.Email)
	if err == nil {
		return ident, nil
	}
	if !errors.Is(err, api.ErrNotFound) {
		return nil, fmt.Errorf("provider user lookup: %w", err)
	}

	params := CreateUserParams{
		Email:        providerUser.Email,
		PasswordHash: nil,
		Role:         "user",
		AuthProvider: &provider,
	}
	if providerUser.FirstName != "" {
		params.FirstName = &providerUser.FirstName
	}
	if providerUser.LastName != "" {
		params.LastName = &providerUser.LastName
	}

	created, err := s.repo.CreateUser(ctx, params)
	if err != nil {
		if errors.Is(err, api.ErrConflict) {
			// Raced with another callback for the same new account.
			return s.repo.LookupByEmail(ctx, types.OriginUser, providerUser.Email)
		}
		return nil, fmt.Errorf("provider user creation: %w", err)
	}
	return created, nil
}
