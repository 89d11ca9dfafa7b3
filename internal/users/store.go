package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/ordergate/pkg/apperror"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrAccountNotFound は指定メールアドレスのアカウントが存在しないことを表す。
var ErrAccountNotFound = errors.New("account not found")

// Store はアカウントの永続化を担う。
type Store interface {
	// Insert はアカウントを保存する。メールアドレスが重複する場合はapperror.ErrDuplicateAccountを返す。
	Insert(ctx context.Context, a Account) error
	// FindByEmail はメールアドレスでアカウントを検索する。存在しない場合はErrAccountNotFoundを返す。
	FindByEmail(ctx context.Context, email string) (Account, error)
}

// SQLiteStore はSQLiteをバックエンドにしたStore実装。
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore は新しいSQLiteStoreを生成する。
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Insert はアカウントを保存する。
func (s *SQLiteStore) Insert(ctx context.Context, a Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, credential_hash, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.Email, a.CredentialHash, a.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return apperror.ErrDuplicateAccount
		}
		return fmt.Errorf("アカウントの保存に失敗: %w", err)
	}
	return nil
}

// FindByEmail はメールアドレスでアカウントを検索する。
func (s *SQLiteStore) FindByEmail(ctx context.Context, email string) (Account, error) {
	var (
		a         Account
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, credential_hash, created_at FROM accounts WHERE email = ?`, email,
	).Scan(&a.ID, &a.Email, &a.CredentialHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("アカウントの取得に失敗: %w", err)
	}

	a.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Account{}, fmt.Errorf("created_atの解析に失敗: %w", err)
	}
	return a, nil
}

// isConstraintViolation はSQLiteの制約違反エラーかどうかを判定する。
func isConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	// 拡張エラーコードの下位8bitが基本エラーコード
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
