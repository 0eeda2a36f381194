package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"warden/internal/account/models"
	id "warden/pkg/domain"
	txcontext "warden/pkg/platform/tx"
)

// PostgresAccountStore persists accounts in PostgreSQL. Queries run against a
// context transaction when one is present so the unban history append and
// state clear commit atomically.
type PostgresAccountStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresAccountStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const accountColumns = `id, username, email, created_at, last_active_at, banned, ban_reason, ban_ends_at`

func (s *PostgresAccountStore) FindByID(ctx context.Context, userID id.UserID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := scanAccount(s.querier(ctx).QueryRowContext(ctx, query, uuid.UUID(userID)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

func (s *PostgresAccountStore) Save(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, username, email, created_at, last_active_at, banned, ban_reason, ban_ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			email = EXCLUDED.email,
			last_active_at = EXCLUDED.last_active_at,
			banned = EXCLUDED.banned,
			ban_reason = EXCLUDED.ban_reason,
			ban_ends_at = EXCLUDED.ban_ends_at
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		uuid.UUID(account.ID),
		account.Username,
		account.Email,
		account.CreatedAt,
		account.LastActiveAt,
		account.Banned,
		account.BanReason,
		account.BanEndsAt,
	)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) ListBanned(ctx context.Context, filter *BannedFilter, page, pageSize int) ([]*models.Account, int, error) {
	where := `banned = TRUE`
	args := []any{}
	if filter != nil {
		if filter.PermanentOnly {
			where += ` AND ban_ends_at IS NULL`
		} else {
			args = append(args, filter.ExpiresAfter)
			where += fmt.Sprintf(` AND ban_ends_at > $%d`, len(args))
			if filter.ExpiresBefore != nil {
				args = append(args, *filter.ExpiresBefore)
				where += fmt.Sprintf(` AND ban_ends_at < $%d`, len(args))
			}
		}
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM accounts WHERE ` + where
	if err := s.querier(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count banned accounts: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`
		SELECT %s FROM accounts
		WHERE %s
		ORDER BY ban_ends_at ASC NULLS LAST, id ASC
		LIMIT $%d OFFSET $%d
	`, accountColumns, where, len(args)-1, len(args))

	rows, err := s.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list banned accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan banned account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate banned accounts: %w", err)
	}
	return accounts, total, nil
}

func (s *PostgresAccountStore) CountCreatedAfter(ctx context.Context, t time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM accounts WHERE created_at > $1`
	if err := s.querier(ctx).QueryRowContext(ctx, query, t).Scan(&count); err != nil {
		return 0, fmt.Errorf("count accounts created after: %w", err)
	}
	return count, nil
}

func (s *PostgresAccountStore) ListCreatedBetween(ctx context.Context, start, end time.Time) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE created_at >= $1 AND created_at < $2`
	rows, err := s.querier(ctx).QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("list accounts created between: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

func (s *PostgresAccountStore) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := s.querier(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return count, nil
}

func (s *PostgresAccountStore) CountBanned(ctx context.Context) (int64, error) {
	var count int64
	if err := s.querier(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE banned = TRUE`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count banned accounts: %w", err)
	}
	return count, nil
}

func (s *PostgresAccountStore) CountActiveInPeriod(ctx context.Context, cohortStart, cohortEnd, activityStart, activityEnd time.Time) (int64, error) {
	var count int64
	query := `
		SELECT COUNT(*) FROM accounts
		WHERE created_at BETWEEN $1 AND $2
		  AND last_active_at BETWEEN $3 AND $4
	`
	if err := s.querier(ctx).QueryRowContext(ctx, query, cohortStart, cohortEnd, activityStart, activityEnd).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active in period: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		account   models.Account
		accountID uuid.UUID
	)
	err := row.Scan(
		&accountID,
		&account.Username,
		&account.Email,
		&account.CreatedAt,
		&account.LastActiveAt,
		&account.Banned,
		&account.BanReason,
		&account.BanEndsAt,
	)
	if err != nil {
		return nil, err
	}
	account.ID = id.UserID(accountID)
	return &account, nil
}
