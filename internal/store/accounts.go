package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playperu/geoquest/internal/geoquest"
)

const accountColumns = `id, role, device_id, public_nick, full_name, phone, email, password_hash, status, created_at`

type accountRow struct {
	ID           string `db:"id"`
	Role         string `db:"role"`
	DeviceID     string `db:"device_id"`
	PublicNick   string `db:"public_nick"`
	FullName     string `db:"full_name"`
	Phone        string `db:"phone"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	Status       string `db:"status"`
	CreatedAt    int64  `db:"created_at"`
}

func (r accountRow) account() geoquest.Account {
	return geoquest.Account{
		ID:           r.ID,
		Role:         geoquest.Role(r.Role),
		DeviceID:     r.DeviceID,
		PublicNick:   r.PublicNick,
		FullName:     r.FullName,
		Phone:        r.Phone,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Status:       geoquest.AccountStatus(r.Status),
		CreatedAt:    fromMillis(r.CreatedAt),
	}
}

// uniqueErr maps a unique-index violation on accounts to a domain error.
func uniqueErr(err error) error {
	if !isUnique(err) {
		return err
	}
	if strings.Contains(err.Error(), "public_nick") {
		return geoquest.ErrNicknameTaken
	}
	return fmt.Errorf("%w: device already registered", geoquest.ErrConflict)
}

func (s *SQLiteStore) CreateAccount(ctx context.Context, a geoquest.Account) (geoquest.Account, error) {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Status == "" {
		a.Status = geoquest.StatusPending
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, string(a.Role), a.DeviceID, a.PublicNick, a.FullName, a.Phone, a.Email,
		a.PasswordHash, string(a.Status), millis(a.CreatedAt))
	if err != nil {
		return geoquest.Account{}, uniqueErr(err)
	}
	return a, nil
}

func (s *SQLiteStore) Account(ctx context.Context, role geoquest.Role, id string) (geoquest.Account, error) {
	return s.accountWhere(ctx, `role = ? AND id = ?`, string(role), id)
}

func (s *SQLiteStore) AccountByNick(ctx context.Context, role geoquest.Role, nick string) (geoquest.Account, error) {
	return s.accountWhere(ctx, `role = ? AND public_nick = ?`, string(role), nick)
}

func (s *SQLiteStore) AccountByDevice(ctx context.Context, role geoquest.Role, deviceID string) (geoquest.Account, error) {
	return s.accountWhere(ctx, `role = ? AND device_id = ?`, string(role), deviceID)
}

func (s *SQLiteStore) accountWhere(ctx context.Context, where string, args ...any) (geoquest.Account, error) {
	var r accountRow
	if err := s.db.GetContext(ctx, &r, `SELECT `+accountColumns+` FROM accounts WHERE `+where, args...); err != nil {
		return geoquest.Account{}, notFound(err)
	}
	return r.account(), nil
}

func (s *SQLiteStore) UpdateAccountProfile(ctx context.Context, a geoquest.Account) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET public_nick = ?, full_name = ?, phone = ?, email = ?, password_hash = ?, status = ?
		WHERE role = ? AND id = ?
	`, a.PublicNick, a.FullName, a.Phone, a.Email, a.PasswordHash, string(a.Status), string(a.Role), a.ID)
	if err != nil {
		return uniqueErr(err)
	}
	return mustAffect(res, nil)
}

func (s *SQLiteStore) Accounts(ctx context.Context, role geoquest.Role, status geoquest.AccountStatus) ([]geoquest.Account, error) {
	var rows []accountRow
	var err error
	if status == "" {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT `+accountColumns+` FROM accounts WHERE role = ? ORDER BY created_at, rowid
		`, string(role))
	} else {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT `+accountColumns+` FROM accounts WHERE role = ? AND status = ? ORDER BY created_at, rowid
		`, string(role), string(status))
	}
	if err != nil {
		return nil, err
	}
	accounts := make([]geoquest.Account, len(rows))
	for i, r := range rows {
		accounts[i] = r.account()
	}
	return accounts, nil
}

func (s *SQLiteStore) SetAccountStatus(ctx context.Context, role geoquest.Role, id string, status geoquest.AccountStatus) error {
	return mustAffect(s.db.ExecContext(ctx, `
		UPDATE accounts SET status = ? WHERE role = ? AND id = ?
	`, string(status), string(role), id))
}
