package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nao1215/ordergate/pkg/apperror"
)

// ErrOrderNotFound は指定IDの注文が存在しないことを表す。
var ErrOrderNotFound = apperror.ErrNotFound.WithMessage("注文が見つかりません")

// Store は注文の永続化を担う。注文は削除されない。
type Store interface {
	// Insert は注文を保存し、採番したIDを設定した注文を返す。
	Insert(ctx context.Context, o Order) (Order, error)
	// FindByID はIDで注文を検索する。存在しない場合はErrOrderNotFoundを返す。
	FindByID(ctx context.Context, id string) (Order, error)
	// ListByOwner は所有者の注文を作成順に返す。
	ListByOwner(ctx context.Context, ownerID string) ([]Order, error)
	// Update は既存の注文を上書き保存する。
	Update(ctx context.Context, o Order) error
}

// SQLiteStore はSQLiteをバックエンドにしたStore実装。
// 注文IDはテーブルの自動採番列を10進文字列にしたもの。
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore は新しいSQLiteStoreを生成する。
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const selectOrderColumns = `SELECT seq, owner_id, items, total_amount, status, created_at, updated_at, cancelled_at FROM orders`

// Insert は注文を保存する。
func (s *SQLiteStore) Insert(ctx context.Context, o Order) (Order, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return Order{}, fmt.Errorf("注文明細のシリアライズに失敗: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (owner_id, items, total_amount, status, created_at, updated_at, cancelled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.OwnerID, string(items), o.TotalAmount, string(o.Status),
		formatTime(o.CreatedAt), formatTime(o.UpdatedAt), formatNullTime(o.CancelledAt),
	)
	if err != nil {
		return Order{}, fmt.Errorf("注文の保存に失敗: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return Order{}, fmt.Errorf("注文IDの取得に失敗: %w", err)
	}
	o.ID = strconv.FormatInt(seq, 10)
	return o, nil
}

// parseOrderID は注文IDを採番値に変換する。
// "01" や "+1" のように採番時の表記と一致しないIDは存在しない注文として扱う。
func parseOrderID(id string) (int64, bool) {
	seq, err := strconv.ParseInt(id, 10, 64)
	if err != nil || seq <= 0 || strconv.FormatInt(seq, 10) != id {
		return 0, false
	}
	return seq, true
}

// FindByID はIDで注文を検索する。
func (s *SQLiteStore) FindByID(ctx context.Context, id string) (Order, error) {
	seq, ok := parseOrderID(id)
	if !ok {
		return Order{}, ErrOrderNotFound
	}

	o, err := scanOrder(s.db.QueryRowContext(ctx, selectOrderColumns+` WHERE seq = ?`, seq))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("注文の取得に失敗: %w", err)
	}
	return o, nil
}

// ListByOwner は所有者の注文を作成順に返す。注文が無い場合は空のスライスを返す。
func (s *SQLiteStore) ListByOwner(ctx context.Context, ownerID string) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx, selectOrderColumns+` WHERE owner_id = ? ORDER BY seq`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("注文一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("注文の読み取りに失敗: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("注文一覧の取得に失敗: %w", err)
	}
	return orders, nil
}

// Update は既存の注文を上書き保存する。owner_idとcreated_atは更新しない。
func (s *SQLiteStore) Update(ctx context.Context, o Order) error {
	seq, ok := parseOrderID(o.ID)
	if !ok {
		return ErrOrderNotFound
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("注文明細のシリアライズに失敗: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET items = ?, total_amount = ?, status = ?, updated_at = ?, cancelled_at = ? WHERE seq = ?`,
		string(items), o.TotalAmount, string(o.Status), formatTime(o.UpdatedAt), formatNullTime(o.CancelledAt), seq,
	)
	if err != nil {
		return fmt.Errorf("注文の更新に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗: %w", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var (
		o                    Order
		seq                  int64
		items, status        string
		createdAt, updatedAt string
		cancelledAt          sql.NullString
	)
	if err := row.Scan(&seq, &o.OwnerID, &items, &o.TotalAmount, &status, &createdAt, &updatedAt, &cancelledAt); err != nil {
		return Order{}, err
	}

	o.ID = strconv.FormatInt(seq, 10)
	o.Status = Status(status)
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return Order{}, fmt.Errorf("注文明細のデシリアライズに失敗: %w", err)
	}

	var err error
	if o.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Order{}, fmt.Errorf("created_atの解析に失敗: %w", err)
	}
	if o.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return Order{}, fmt.Errorf("updated_atの解析に失敗: %w", err)
	}
	if cancelledAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, cancelledAt.String)
		if err != nil {
			return Order{}, fmt.Errorf("cancelled_atの解析に失敗: %w", err)
		}
		o.CancelledAt = &t
	}
	return o, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}
