package orders

import (
	"context"
	"time"

	"github.com/nao1215/ordergate/pkg/apperror"
)

// Service は注文のライフサイクル操作を行う。
// 既存注文に対する操作は注文IDごとに直列化される。
type Service struct {
	store Store
	locks *lockRegistry
	now   func() time.Time
}

// NewService は新しいServiceを生成する。
func NewService(store Store) *Service {
	return &Service{
		store: store,
		locks: newLockRegistry(),
		now:   time.Now,
	}
}

// Create は呼び出し元を所有者とするpending状態の注文を作成する。
func (s *Service) Create(ctx context.Context, callerID string, d Draft) (Order, error) {
	o, err := newOrder(callerID, d, s.now().UTC())
	if err != nil {
		return Order{}, err
	}
	return s.store.Insert(ctx, o)
}

// List は呼び出し元が所有する注文を作成順に返す。
func (s *Service) List(ctx context.Context, callerID string) ([]Order, error) {
	return s.store.ListByOwner(ctx, callerID)
}

// Get は呼び出し元が所有する注文を返す。
func (s *Service) Get(ctx context.Context, callerID, id string) (Order, error) {
	return s.withOwnedOrder(ctx, callerID, id, nil)
}

// Update はpending状態の注文の明細または合計金額を変更する。
func (s *Service) Update(ctx context.Context, callerID, id string, p Patch) (Order, error) {
	return s.withOwnedOrder(ctx, callerID, id, func(o *Order, now time.Time) error {
		return o.Apply(p, now)
	})
}

// Cancel はpending状態の注文をキャンセルする。
// キャンセル済みの注文にはapperror.ErrAlreadyCancelledを返す。
func (s *Service) Cancel(ctx context.Context, callerID, id string) (Order, error) {
	return s.withOwnedOrder(ctx, callerID, id, func(o *Order, now time.Time) error {
		return o.Cancel(now)
	})
}

// withOwnedOrder は注文IDのロックを保持したまま、検索、所有者確認、変更、保存を行う。
// mutateがnilの場合は所有者確認までを行い、注文をそのまま返す。
// mutateがエラーを返した場合、注文は保存されない。
// ロックは採番時の表記のIDに対して取得するため、同じ注文を別表記で指すIDは受け付けない。
func (s *Service) withOwnedOrder(ctx context.Context, callerID, id string, mutate func(o *Order, now time.Time) error) (Order, error) {
	if _, ok := parseOrderID(id); !ok {
		return Order{}, ErrOrderNotFound
	}

	unlock := s.locks.lock(id)
	defer unlock()

	o, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.OwnerID != callerID {
		return Order{}, apperror.ErrForbidden.WithMessage("他のユーザーの注文にはアクセスできません")
	}
	if mutate == nil {
		return o, nil
	}

	if err := mutate(&o, s.now().UTC()); err != nil {
		return Order{}, err
	}
	if err := s.store.Update(ctx, o); err != nil {
		return Order{}, err
	}
	return o, nil
}
