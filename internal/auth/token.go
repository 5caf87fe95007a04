package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/notegraph/internal/model"
)

// ErrInvalidToken はトークンの形式・署名・有効期限のいずれかが不正な場合のエラー。
var ErrInvalidToken = errors.New("invalid token")

// Claims はセッショントークンに埋め込むクレーム。
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
}

// TokenIssuer はHS256署名のセッショントークンを発行・検証する。
// 署名鍵は起動時に一度だけ設定され、以後は読み取り専用。
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer はTokenIssuerを生成する。
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue は {userId, role} を持つトークンを発行する。
func (ti *TokenIssuer) Issue(userID int64, role string) (string, error) {
	now := ti.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
		UserID: userID,
		Role:   role,
	})

	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse はトークンを検証し、主体を返す。
// 失敗理由にかかわらず ErrInvalidToken を返す。
func (ti *TokenIssuer) Parse(tokenString string) (model.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return ti.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil || !token.Valid {
		return model.Identity{}, ErrInvalidToken
	}
	if claims.Role == "" {
		return model.Identity{}, ErrInvalidToken
	}

	return model.Identity{UserID: claims.UserID, Role: claims.Role}, nil
}
