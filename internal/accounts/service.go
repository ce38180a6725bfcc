package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/vaulted-markets/vaulted-backend/pkg/auth"
	"github.com/vaulted-markets/vaulted-backend/pkg/auth/session"
	"github.com/vaulted-markets/vaulted-backend/pkg/config"
	"github.com/vaulted-markets/vaulted-backend/pkg/db/models"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	pkgerrors "github.com/vaulted-markets/vaulted-backend/pkg/errors"
	"github.com/vaulted-markets/vaulted-backend/pkg/outbox"
	"github.com/vaulted-markets/vaulted-backend/pkg/outbox/payloads"
	"github.com/vaulted-markets/vaulted-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// System account emails. These rows are created at startup and never
// log in.
const (
	TreasuryAccountEmail   = "treasury@vaulted.internal"
	RentEscrowAccountEmail = "rent-escrow@vaulted.internal"
)

// RegisterRequest onboards a trading account.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=12"`
	DisplayName string `json:"display_name" validate:"required"`
}

// CreateAccountRequest lets an admin provision privileged accounts.
type CreateAccountRequest struct {
	Email       string            `json:"email" validate:"required,email"`
	Password    string            `json:"password" validate:"required,min=12"`
	DisplayName string            `json:"display_name" validate:"required"`
	Role        enums.AccountRole `json:"role" validate:"required"`
}

// LoginRequest carries credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the session token pair.
type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Account      *models.Account `json:"account"`
}

// RefreshRequest rotates a session.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse carries the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SystemAccounts holds the platform-owned accounts every money flow
// needs: the external-funds treasury, the rent escrow and the fee
// collector.
type SystemAccounts struct {
	TreasuryID     uuid.UUID
	RentEscrowID   uuid.UUID
	FeeCollectorID uuid.UUID
}

// Service manages identities and sessions.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*models.Account, error)
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*models.Account, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error)
	Logout(ctx context.Context, accessToken string) error
	Get(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	EnsureSystemAccounts(ctx context.Context, feeCollectorEmail string) (*SystemAccounts, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type service struct {
	repo        Repository
	tx          txRunner
	events      outboxPublisher
	session     sessionManager
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	now         func() time.Time
}

// NewService wires the accounts service.
func NewService(
	repo Repository,
	tx txRunner,
	events outboxPublisher,
	sessions sessionManager,
	jwtCfg config.JWTConfig,
	passwordCfg config.PasswordConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounts repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox publisher is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		events:      events,
		session:     sessions,
		jwtCfg:      jwtCfg,
		passwordCfg: passwordCfg,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*models.Account, error) {
	return s.create(ctx, req.Email, req.Password, req.DisplayName, enums.AccountRoleTrader)
}

func (s *service) CreateAccount(ctx context.Context, req CreateAccountRequest) (*models.Account, error) {
	if !req.Role.IsValid() || req.Role == enums.AccountRoleSystem {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid account role")
	}
	return s.create(ctx, req.Email, req.Password, req.DisplayName, req.Role)
}

func (s *service) create(ctx context.Context, email, password, displayName string, role enums.AccountRole) (*models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if displayName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name is required")
	}

	passwordHash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	account := &models.Account{
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		Role:         role,
		IsActive:     true,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check account email")
		}
		if err := repo.Create(ctx, account); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
		}

		now := s.now()
		event := outbox.DomainEvent{
			EventType:     enums.EventAccountRegistered,
			AggregateType: enums.AggregateAccount,
			AggregateID:   account.ID,
			Data: payloads.AccountRegisteredEvent{
				AccountID:    account.ID,
				Email:        account.Email,
				Role:         account.Role,
				RegisteredAt: now,
			},
			Version:    1,
			OccurredAt: now,
		}
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to emit registration event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}

	valid, err := security.VerifyPassword(req.Password, account.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !account.IsActive || account.Role == enums.AccountRoleSystem {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	now := s.now()
	if err := s.repo.UpdateLastLogin(ctx, account.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	account.LastLoginAt = &now

	accessID := session.NewAccessID()
	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		AccountID: account.ID,
		Role:      account.Role,
		JTI:       accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Account:      account,
	}, nil
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, newRefreshToken, err := s.session.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
	}

	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		AccountID: claims.AccountID,
		Role:      claims.Role,
		JTI:       newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}
	if err := s.session.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) Get(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup account")
	}
	return account, nil
}

// EnsureSystemAccounts creates the platform-owned accounts on first
// boot and returns their identifiers afterwards.
func (s *service) EnsureSystemAccounts(ctx context.Context, feeCollectorEmail string) (*SystemAccounts, error) {
	if feeCollectorEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fee collector email is required")
	}

	var accounts SystemAccounts
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, sys := range []struct {
			email string
			name  string
			dest  *uuid.UUID
		}{
			{email: TreasuryAccountEmail, name: "Treasury", dest: &accounts.TreasuryID},
			{email: RentEscrowAccountEmail, name: "Rent Escrow", dest: &accounts.RentEscrowID},
			{email: strings.ToLower(feeCollectorEmail), name: "Fee Collector", dest: &accounts.FeeCollectorID},
		} {
			existing, err := repo.FindSystemAccount(ctx, sys.email)
			if err == nil {
				*sys.dest = existing.ID
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup system account")
			}

			secret, err := security.GenerateTempPassword(32)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate system credential")
			}
			hash, err := security.HashPassword(secret, s.passwordCfg)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash system credential")
			}
			account := &models.Account{
				Email:        sys.email,
				PasswordHash: hash,
				DisplayName:  sys.name,
				Role:         enums.AccountRoleSystem,
				IsActive:     true,
			}
			if err := repo.Create(ctx, account); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create system account")
			}
			*sys.dest = account.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &accounts, nil
}
