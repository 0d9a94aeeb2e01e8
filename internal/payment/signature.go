package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// DefaultSignatureHeader 网关回调签名请求头
const DefaultSignatureHeader = "X-Signature"

const signaturePrefix = "sha256="

var (
	ErrConfigInvalid    = errors.New("payment callback secret not configured")
	ErrSignatureMissing = errors.New("payment callback signature missing")
	ErrSignatureInvalid = errors.New("payment callback signature invalid")
)

// Sign 计算回调原文签名（HMAC-SHA256，小写十六进制）
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(secret)))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCallback 校验网关回调签名，签名可带 sha256= 前缀
func VerifyCallback(secret string, body []byte, signature string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ErrConfigInvalid
	}
	sign := strings.ToLower(strings.TrimSpace(signature))
	sign = strings.TrimPrefix(sign, signaturePrefix)
	if sign == "" {
		return ErrSignatureMissing
	}
	got, err := hex.DecodeString(sign)
	if err != nil {
		return ErrSignatureInvalid
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrSignatureInvalid
	}
	return nil
}
