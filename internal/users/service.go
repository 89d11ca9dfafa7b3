package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/ordergate/pkg/apperror"
	"github.com/nao1215/ordergate/pkg/middleware"
)

// dummyPassword は未登録メールアドレスでのログイン時に照合するダミーのパスワード。
const dummyPassword = "ordergate-dummy-password"

// Service はアカウント登録とログインを行う。
type Service struct {
	store  Store
	hasher PasswordHasher
	issuer *middleware.TokenIssuer
	now    func() time.Time
	// dummyHash は未登録メールアドレスでも照合処理の時間を揃えるためのハッシュ。
	dummyHash string
}

// NewService は新しいServiceを生成する。
func NewService(store Store, hasher PasswordHasher, issuer *middleware.TokenIssuer) (*Service, error) {
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("ダミーハッシュの生成に失敗: %w", err)
	}
	return &Service{
		store:     store,
		hasher:    hasher,
		issuer:    issuer,
		now:       time.Now,
		dummyHash: dummyHash,
	}, nil
}

// Register は新しいアカウントを登録する。
// メールアドレスかパスワードが空の場合はapperror.ErrInvalidInput、
// 登録済みのメールアドレスの場合はapperror.ErrDuplicateAccountを返す。
func (s *Service) Register(ctx context.Context, email, password string) (AccountSummary, error) {
	if err := validateCredentials(email, password); err != nil {
		return AccountSummary{}, err
	}

	_, err := s.store.FindByEmail(ctx, email)
	if err == nil {
		return AccountSummary{}, apperror.ErrDuplicateAccount
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return AccountSummary{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return AccountSummary{}, err
	}

	account := Account{
		ID:             uuid.NewString(),
		Email:          email,
		CredentialHash: hash,
		CreatedAt:      s.now().UTC(),
	}
	// 同時登録は一意制約で検出される
	if err := s.store.Insert(ctx, account); err != nil {
		return AccountSummary{}, err
	}
	return AccountSummary{ID: account.ID, Email: account.Email}, nil
}

// Login はメールアドレスとパスワードを照合し、IDトークンを発行する。
// 未登録のメールアドレスとパスワード誤りはどちらもapperror.ErrInvalidCredentialsを返す。
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if err := validateCredentials(email, password); err != nil {
		return LoginResult{}, err
	}

	account, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		_ = s.hasher.Compare(s.dummyHash, password)
		return LoginResult{}, apperror.ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}

	if err := s.hasher.Compare(account.CredentialHash, password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return LoginResult{}, apperror.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	token, identity, err := s.issuer.Issue(account.ID, account.Email)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		Token:     token,
		ExpiresAt: identity.ExpiresAt,
		ID:        account.ID,
		Email:     account.Email,
	}, nil
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return apperror.ErrInvalidInput.WithMessage("メールアドレスは必須です")
	}
	if password == "" {
		return apperror.ErrInvalidInput.WithMessage("パスワードは必須です")
	}
	return nil
}
