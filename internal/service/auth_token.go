package service

import (
	"errors"
	"strings"
	"time"

	"github.com/modamart/internal/config"
	"github.com/modamart/internal/constants"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenExpireHours = 24

// ErrTokenInvalid 令牌无效
var ErrTokenInvalid = errors.New("invalid token")

// UserJWTClaims 用户 JWT 声明，seller_id 仅卖家令牌携带
type UserJWTClaims struct {
	UserID   uint   `json:"user_id"`
	Role     string `json:"role"`
	SellerID uint   `json:"seller_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenService 用户令牌签发与校验
type TokenService struct {
	cfg config.JWTConfig
}

// NewTokenService 创建令牌服务
func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{cfg: cfg}
}

// Configured 是否已配置签名密钥
func (s *TokenService) Configured() bool {
	return s != nil && strings.TrimSpace(s.cfg.SecretKey) != ""
}

// Generate 为操作人签发令牌
func (s *TokenService) Generate(actor Actor, expireHours int) (string, time.Time, error) {
	if !s.Configured() {
		return "", time.Time{}, ErrTokenInvalid
	}
	if actor.UserID == 0 || !isKnownRole(actor.Role) {
		return "", time.Time{}, ErrTokenInvalid
	}
	if expireHours <= 0 {
		expireHours = defaultTokenExpireHours
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(expireHours) * time.Hour)
	claims := UserJWTClaims{
		UserID:   actor.UserID,
		Role:     actor.Role,
		SellerID: actor.SellerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Parse 校验令牌并还原操作人
func (s *TokenService) Parse(tokenString string) (*UserJWTClaims, error) {
	if !s.Configured() {
		return nil, ErrTokenInvalid
	}
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer := strings.TrimSpace(s.cfg.Issuer); issuer != "" {
		options = append(options, jwt.WithIssuer(issuer))
	}
	claims := &UserJWTClaims{}
	token, err := jwt.NewParser(options...).ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == 0 || !isKnownRole(claims.Role) {
		return nil, ErrTokenInvalid
	}
	if claims.Role == constants.RoleSeller && claims.SellerID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Actor 将声明转换为操作人
func (c *UserJWTClaims) Actor() Actor {
	return Actor{UserID: c.UserID, Role: c.Role, SellerID: c.SellerID}
}

func isKnownRole(role string) bool {
	switch role {
	case constants.RoleCustomer, constants.RoleSeller, constants.RoleAdmin:
		return true
	}
	return false
}
