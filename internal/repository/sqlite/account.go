package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/repository"
)

// compile-time check that *AccountRepo implements repository.AccountRepository
var _ repository.AccountRepository = (*AccountRepo)(nil)

// AccountRepo implements repository.AccountRepository on the accounts table.
type AccountRepo struct {
	db *DB
}

// Accounts returns the account repository backed by this database.
func (db *DB) Accounts() *AccountRepo {
	return &AccountRepo{db: db}
}

const accountColumns = `id, email, name, password_hash, github_id, created_at, updated_at`

// Create stores a new account. The id and timestamps are assigned here.
// A duplicate email surfaces as a conflict.
func (repo *AccountRepo) Create(ctx context.Context, account *model.Account) error {
	account.ID = xid.New().String()
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := repo.db.conn.ExecContext(ctx,
		`INSERT INTO accounts (id, email, name, password_hash, github_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Email,
		account.Name,
		account.PasswordHash,
		account.GitHubID,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("account", account.Email)
		}
		return fmt.Errorf("sqlite: inserting account: %w", err)
	}

	return nil
}

// GetByID returns the account with the given internal id.
func (repo *AccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return repo.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

// GetByEmail returns the account registered under the given email.
func (repo *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return repo.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
}

// UpsertByGitHubID inserts the account on first GitHub sign-in; on
// subsequent sign-ins it keeps the existing internal ID and refreshes the
// profile fields GitHub may have changed.
func (repo *AccountRepo) UpsertByGitHubID(ctx context.Context, account *model.Account) error {
	if account.GitHubID == 0 {
		return apperror.ValidationFailed("githubId", "GitHub ID is required")
	}

	var existingID string
	err := repo.db.conn.QueryRowContext(ctx,
		`SELECT id FROM accounts WHERE github_id = ?`, account.GitHubID,
	).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up account by github_id %d: %w", account.GitHubID, err)
	}

	if existingID != "" {
		account.ID = existingID
		account.UpdatedAt = time.Now().UTC()
		_, err = repo.db.conn.ExecContext(ctx,
			`UPDATE accounts SET email = ?, name = ?, updated_at = ? WHERE id = ?`,
			account.Email, account.Name, account.UpdatedAt, account.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating account %s: %w", account.ID, err)
		}
		return nil
	}

	return repo.Create(ctx, account)
}

func (repo *AccountRepo) getAccount(ctx context.Context, query, arg string) (*model.Account, error) {
	var a model.Account
	err := repo.db.conn.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.GitHubID,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("account", arg)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", arg, err)
	}
	return &a, nil
}
