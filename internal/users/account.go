package users

import "time"

// Account は登録済みアカウント。
// CredentialHashはレスポンスに含めてはならない。
type Account struct {
	// ID はアカウントの一意識別子（UUID）。
	ID string
	// Email はログインに使用するメールアドレス。大文字小文字を区別する。
	Email string
	// CredentialHash はbcryptでハッシュ化したパスワード。
	CredentialHash string
	// CreatedAt は登録日時。
	CreatedAt time.Time
}

// AccountSummary は登録結果としてクライアントへ返すアカウント情報。
type AccountSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// LoginResult はログイン成功時に返す署名済みトークンとアカウント情報。
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	ID        string    `json:"id"`
	Email     string    `json:"email"`
}
