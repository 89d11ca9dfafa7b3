package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nao1215/ordergate/pkg/apperror"
)

// tokenIssuer はJWTのiss（発行者）クレームに設定する値。
const tokenIssuer = "ordergate-users"

// contextKeyIdentity は検証済みIdentityをGinコンテキストに格納するキー。
const contextKeyIdentity = "identity"

// JWTClaims はJWTトークンのクレーム（ペイロード）を表す。
// ユーザーID等の情報をサービス間で伝播するために使用する。
type JWTClaims struct {
	jwt.RegisteredClaims
	// UserID は認証済みユーザーの一意識別子。
	UserID string `json:"userId"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
}

// Identity は検証済みトークンから取り出した呼び出し元の情報。
// リクエストの残りの処理はこのIdentityとして実行される。
type Identity struct {
	// UserID は呼び出し元のアカウントID。
	UserID string
	// Email は呼び出し元のメールアドレス。
	Email string
	// IssuedAt はトークンの発行日時。
	IssuedAt time.Time
	// ExpiresAt はトークンの有効期限。
	ExpiresAt time.Time
}

// TokenIssuer は共有シークレットでHS256署名したIDトークンを発行する。
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer は新しいTokenIssuerを生成する。
// ttlはトークンの有効期間で、通常は24時間を指定する。
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue はユーザー情報から署名済みトークンを生成し、埋め込んだクレームと共に返す。
func (i *TokenIssuer) Issue(userID, email string) (string, Identity, error) {
	issuedAt := i.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(i.ttl)

	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
		Email:  email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", Identity{}, fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, Identity{
		UserID:    userID,
		Email:     email,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// TokenVerifier はAuthorizationヘッダーのBearerトークンを検証する。
// 状態を持たず、共有シークレットだけを使って署名と有効期限を確認する。
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewTokenVerifier は新しいTokenVerifierを生成する。
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), now: time.Now}
}

// Verify はAuthorizationヘッダーの値を検証し、埋め込まれたIdentityを返す。
//
// ヘッダーが空ならapperror.ErrMissingHeader、"Bearer <token>" 形式でなければ
// apperror.ErrMalformedToken、署名は正しいが期限切れならapperror.ErrExpiredToken、
// それ以外の検証失敗はすべてapperror.ErrInvalidSignatureを返す。
func (v *TokenVerifier) Verify(authHeader string) (Identity, error) {
	if authHeader == "" {
		return Identity{}, apperror.ErrMissingHeader
	}

	scheme, tokenString, found := strings.Cut(authHeader, " ")
	tokenString = strings.TrimSpace(tokenString)
	if !found || tokenString == "" || !strings.EqualFold(scheme, "Bearer") {
		return Identity{}, apperror.ErrMalformedToken
	}

	claims := &JWTClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperror.ErrExpiredToken
		}
		return Identity{}, apperror.ErrInvalidSignature
	}
	if claims.UserID == "" {
		return Identity{}, apperror.ErrInvalidSignature
	}

	identity := Identity{
		UserID:    claims.UserID,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	return identity, nil
}

// JWTAuth はTokenVerifierでリクエストを検証するGinミドルウェアを返す。
// 検証に失敗した場合はonReject経由でエラーレスポンスを書き込み、後続のハンドラを実行しない。
// 成功した場合はコンテキストにIdentityと "user_id"、"email" を設定する。
func JWTAuth(v *TokenVerifier, onReject func(c *gin.Context, err error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := v.Verify(c.GetHeader("Authorization"))
		if err != nil {
			onReject(c, err)
			c.Abort()
			return
		}

		c.Set(contextKeyIdentity, identity)
		c.Set("user_id", identity.UserID)
		c.Set("email", identity.Email)
		c.Next()
	}
}

// GetIdentity はGinコンテキストから検証済みIdentityを取得する。
// JWTAuthミドルウェアが事前に適用されていない場合はfalseを返す。
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(contextKeyIdentity)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}
