package accountstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medilocker/medigate/core"
	"github.com/medilocker/medigate/ports"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id                  TEXT PRIMARY KEY,
	address             TEXT NOT NULL UNIQUE,
	onboarding_complete INTEGER NOT NULL DEFAULT 0,
	created_at          INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS account_roles (
	account_id TEXT NOT NULL REFERENCES accounts(id),
	role       TEXT NOT NULL,
	UNIQUE(account_id, role)
);
`

// SQLiteStore is a sqlite-backed implementation of the AccountStore
// interface.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) a sqlite account store at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open account database: %w", err)
	}

	// modernc sqlite serializes writes through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate account database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

var _ ports.AccountStore = (*SQLiteStore)(nil)

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isConstraintViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// FindByAddress looks up an account and its roles by wallet address.
func (s *SQLiteStore) FindByAddress(ctx context.Context, address string) (*core.Account, error) {
	addr := core.NormalizeAddress(address)

	account := &core.Account{Address: addr}
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, onboarding_complete, created_at FROM accounts WHERE address = ?`, addr,
	).Scan(&account.ID, &account.OnboardingComplete, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account: %w", err)
	}
	account.CreatedAt = time.Unix(createdAt, 0)

	roles, err := s.Roles(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	account.Roles = roles

	return account, nil
}

// Create provisions a new account with exactly the given role. The unique
// constraint on address turns a concurrent create race into
// core.ErrAccountExists for the loser.
func (s *SQLiteStore) Create(ctx context.Context, address string, role core.Role) (*core.Account, error) {
	addr := core.NormalizeAddress(address)
	account := &core.Account{
		ID:        uuid.New().String(),
		Address:   addr,
		Roles:     []core.Role{role},
		CreatedAt: time.Now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (id, address, onboarding_complete, created_at) VALUES (?, ?, 0, ?)`,
		account.ID, addr, account.CreatedAt.Unix())
	if err != nil {
		if isConstraintViolation(err) {
			return nil, core.ErrAccountExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO account_roles (account_id, role) VALUES (?, ?)`,
		account.ID, role.String())
	if err != nil {
		return nil, fmt.Errorf("failed to assign role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit account: %w", err)
	}

	return account, nil
}

// AddRole grants a role to an account, ignoring duplicates.
func (s *SQLiteStore) AddRole(ctx context.Context, accountID string, role core.Role) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO account_roles (account_id, role) VALUES (?, ?)`,
		accountID, role.String())
	if err != nil {
		return fmt.Errorf("failed to add role: %w", err)
	}
	return nil
}

// Roles returns the role set of an account.
func (s *SQLiteStore) Roles(ctx context.Context, accountID string) ([]core.Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role FROM account_roles WHERE account_id = ? ORDER BY role`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read roles: %w", err)
	}
	defer rows.Close()

	var roles []core.Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, core.Role(role))
	}
	return roles, rows.Err()
}
