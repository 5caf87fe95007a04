package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// ErrSecretTooLong はbcryptの入力上限（72バイト）を超えたシークレットを表す。
var ErrSecretTooLong = errors.New("secret exceeds 72 bytes")

// Hasher はシークレットのダイジェスト計算と照合を行う。
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, digest string) bool
}

// BcryptHasher はbcryptによるHasher実装。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はBcryptHasherを生成する。範囲外のcostはbcrypt.DefaultCostに置き換える。
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash はシークレットのbcryptダイジェストを返す。
func (h *BcryptHasher) Hash(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrSecretTooLong
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(digest), nil
}

// Verify はシークレットがダイジェストに一致するかを返す。
func (h *BcryptHasher) Verify(secret, digest string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret))
	return err == nil
}

// CodeGenerator は確認用の数値コードを生成する。
type CodeGenerator interface {
	Generate() (string, error)
}

// RandomCodeGenerator は100000〜999999の範囲から一様に6桁コードを引く。
type RandomCodeGenerator struct{}

const (
	codeMin = 100000
	codeMax = 999999
)

// Generate は6桁の数値コードを返す。
func (RandomCodeGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
