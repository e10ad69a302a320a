// Package accounts registers judges and players and checks their
// credentials. Password hashes are computed by the client and compared
// verbatim; the server never hashes them.
package accounts

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/playperu/geoquest/internal/admin"
	"github.com/playperu/geoquest/internal/geoquest"
)

// Registration is a sign-up or re-registration from one device.
type Registration struct {
	DeviceID     string
	PublicNick   string
	FullName     string
	Phone        string
	Email        string
	PasswordHash string
}

// LoginResult reports the outcome of a credential check. A mismatch is a
// result, not an error.
type LoginResult struct {
	Success   bool
	Status    geoquest.AccountStatus
	AccountID string
	DeviceID  string
	Error     string
}

// CanPlay reports whether the account may enter the game. Logging in and
// being approved are separate.
func (r LoginResult) CanPlay() bool {
	return r.Success && r.Status == geoquest.StatusApproved
}

const (
	msgUnknownAccount = "account not found"
	msgWrongPassword  = "wrong password"
)

type Service struct {
	store  geoquest.AccountStore
	gate   *admin.Gate
	logger *slog.Logger
	now    func() time.Time
}

func New(store geoquest.AccountStore, gate *admin.Gate, logger *slog.Logger) *Service {
	return &Service{store: store, gate: gate, logger: logger, now: time.Now}
}

func validRole(role geoquest.Role) error {
	if !role.Valid() {
		return geoquest.Invalidf("unknown role %q", role)
	}
	return nil
}

// Register creates a pending account. A nickname held by another device is
// rejected with ErrNicknameTaken. Registering again from the same device
// overwrites the profile and puts the account back into pending.
func (s *Service) Register(ctx context.Context, role geoquest.Role, reg Registration) (geoquest.Account, error) {
	if err := validRole(role); err != nil {
		return geoquest.Account{}, err
	}
	switch {
	case strings.TrimSpace(reg.DeviceID) == "":
		return geoquest.Account{}, geoquest.Invalidf("deviceId is required")
	case strings.TrimSpace(reg.PublicNick) == "":
		return geoquest.Account{}, geoquest.Invalidf("nickname is required")
	case reg.PasswordHash == "":
		return geoquest.Account{}, geoquest.Invalidf("password hash is required")
	}

	holder, err := s.store.AccountByNick(ctx, role, reg.PublicNick)
	switch {
	case err == nil && holder.DeviceID != reg.DeviceID:
		return geoquest.Account{}, geoquest.ErrNicknameTaken
	case err != nil && !errors.Is(err, geoquest.ErrNotFound):
		return geoquest.Account{}, err
	}

	acc := geoquest.Account{
		Role:         role,
		DeviceID:     reg.DeviceID,
		PublicNick:   reg.PublicNick,
		FullName:     reg.FullName,
		Phone:        reg.Phone,
		Email:        reg.Email,
		PasswordHash: reg.PasswordHash,
		Status:       geoquest.StatusPending,
	}

	existing, err := s.store.AccountByDevice(ctx, role, reg.DeviceID)
	switch {
	case err == nil:
		acc.ID = existing.ID
		acc.CreatedAt = existing.CreatedAt
		if err := s.store.UpdateAccountProfile(ctx, acc); err != nil {
			return geoquest.Account{}, err
		}
		s.logger.Info("account re-registered", "role", role, "account_id", acc.ID)
		return acc, nil
	case !errors.Is(err, geoquest.ErrNotFound):
		return geoquest.Account{}, err
	}

	acc.CreatedAt = s.now().UTC()
	acc, err = s.store.CreateAccount(ctx, acc)
	if err != nil {
		return geoquest.Account{}, err
	}
	s.logger.Info("account registered", "role", role, "account_id", acc.ID)
	return acc, nil
}

// Login looks the nickname up exactly and compares the presented hash with
// the stored one. It returns an error only when the lookup itself fails.
func (s *Service) Login(ctx context.Context, role geoquest.Role, nick, passwordHash string) (LoginResult, error) {
	if err := validRole(role); err != nil {
		return LoginResult{}, err
	}
	acc, err := s.store.AccountByNick(ctx, role, nick)
	if errors.Is(err, geoquest.ErrNotFound) {
		return LoginResult{Error: msgUnknownAccount}, nil
	}
	if err != nil {
		return LoginResult{}, err
	}
	if acc.PasswordHash == "" {
		return LoginResult{Error: msgUnknownAccount}, nil
	}
	if subtle.ConstantTimeCompare([]byte(acc.PasswordHash), []byte(passwordHash)) != 1 {
		return LoginResult{Error: msgWrongPassword}, nil
	}
	return LoginResult{
		Success:   true,
		Status:    acc.Status,
		AccountID: acc.ID,
		DeviceID:  acc.DeviceID,
	}, nil
}

func (s *Service) GetByDevice(ctx context.Context, role geoquest.Role, deviceID string) (geoquest.Account, error) {
	if err := validRole(role); err != nil {
		return geoquest.Account{}, err
	}
	return s.store.AccountByDevice(ctx, role, deviceID)
}

// List returns accounts of role, optionally in one status.
func (s *Service) List(ctx context.Context, adminKey string, role geoquest.Role, status geoquest.AccountStatus) ([]geoquest.Account, error) {
	if err := s.gate.Check(adminKey); err != nil {
		return nil, err
	}
	if err := validRole(role); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, geoquest.Invalidf("unknown status %q", status)
	}
	return s.store.Accounts(ctx, role, status)
}

func (s *Service) SetStatus(ctx context.Context, adminKey string, role geoquest.Role, id string, status geoquest.AccountStatus) error {
	if err := s.gate.Check(adminKey); err != nil {
		return err
	}
	if err := validRole(role); err != nil {
		return err
	}
	if !status.Valid() {
		return geoquest.Invalidf("unknown status %q", status)
	}
	if err := s.store.SetAccountStatus(ctx, role, id, status); err != nil {
		return err
	}
	s.logger.Info("account status changed", "role", role, "account_id", id, "status", status)
	return nil
}
