package orders

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nao1215/ordergate/pkg/apperror"
)

// Status は注文の状態を表す。
type Status string

const (
	// StatusPending は作成直後の変更・キャンセル可能な状態。
	StatusPending Status = "pending"
	// StatusCancelled はキャンセル済みの終端状態。
	StatusCancelled Status = "cancelled"
)

// Item は注文明細。
type Item struct {
	// ProductID は商品の識別子。
	ProductID string `json:"productId"`
	// Quantity は数量。1以上。
	Quantity int `json:"quantity"`
}

// Order は注文。OwnerIDは作成後に変更されない。
type Order struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Items       []Item     `json:"items"`
	TotalAmount float64    `json:"totalAmount"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CancelledAt *time.Time `json:"cancelledAt"`
}

// Draft は注文作成時の入力。
type Draft struct {
	Items       []Item
	TotalAmount float64
}

// Patch は注文変更時の入力。nilのフィールドは変更しない。
type Patch struct {
	Items       []Item
	TotalAmount *float64

	// bodyErr はリクエストボディの解釈に失敗した場合のエラー。
	// 所有者と状態の確認が済むまで報告を遅らせるために保持する。
	bodyErr error
}

// newOrder はDraftを検証し、pending状態の注文を生成する。IDは保存時に採番される。
func newOrder(ownerID string, d Draft, now time.Time) (Order, error) {
	if err := validateItems(d.Items); err != nil {
		return Order{}, err
	}
	if err := validateTotal(d.TotalAmount); err != nil {
		return Order{}, err
	}
	return Order{
		OwnerID:     ownerID,
		Items:       d.Items,
		TotalAmount: d.TotalAmount,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Cancel は注文をキャンセル済みにする。
// 既にキャンセル済みの場合はapperror.ErrAlreadyCancelledを返し、注文は変更しない。
func (o *Order) Cancel(now time.Time) error {
	switch o.Status {
	case StatusPending:
	case StatusCancelled:
		return apperror.ErrAlreadyCancelled
	default:
		return apperror.ErrInvalidState
	}

	o.Status = StatusCancelled
	o.UpdatedAt = now
	o.CancelledAt = &now
	return nil
}

// Apply はPatchを注文に反映する。
// pending以外の注文にはapperror.ErrInvalidStateを返し、状態の確認は入力の検証より先に行う。
func (o *Order) Apply(p Patch, now time.Time) error {
	if o.Status != StatusPending {
		return apperror.ErrInvalidState.WithMessage("キャンセル済みの注文は変更できません")
	}

	if p.bodyErr != nil {
		return p.bodyErr
	}
	if p.Items == nil && p.TotalAmount == nil {
		return apperror.ErrInvalidInput.WithMessage("items または totalAmount のいずれかを指定してください")
	}
	if p.Items != nil {
		if err := validateItems(p.Items); err != nil {
			return err
		}
	}
	if p.TotalAmount != nil {
		if err := validateTotal(*p.TotalAmount); err != nil {
			return err
		}
	}

	if p.Items != nil {
		o.Items = p.Items
	}
	if p.TotalAmount != nil {
		o.TotalAmount = *p.TotalAmount
	}
	o.UpdatedAt = now
	return nil
}

func validateItems(items []Item) error {
	if len(items) == 0 {
		return apperror.ErrInvalidInput.WithMessage("items は1件以上指定してください")
	}
	for i, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return apperror.ErrInvalidInput.WithMessage(fmt.Sprintf("items[%d].productId は必須です", i))
		}
		if item.Quantity <= 0 {
			return apperror.ErrInvalidInput.WithMessage(fmt.Sprintf("items[%d].quantity は1以上で指定してください", i))
		}
	}
	return nil
}

func validateTotal(total float64) error {
	if math.IsNaN(total) || math.IsInf(total, 0) || total <= 0 {
		return apperror.ErrInvalidInput.WithMessage("totalAmount は0より大きい値で指定してください")
	}
	return nil
}
