package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	orderNoPrefix           = "MM"
	orderGroupNoPrefix      = "OG"
	checkoutSessionNoPrefix = "CS"
)

func generateNo(prefix string) string {
	now := time.Now().Format("20060102150405")
	randPart := randNumeric(6)
	return fmt.Sprintf("%s%s%s", prefix, now, randPart)
}

func generateOrderNo() string {
	return generateNo(orderNoPrefix)
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}

// buildChildOrderNo 生成子订单号
func buildChildOrderNo(parentOrderNo string, seq int) string {
	if seq <= 0 {
		return parentOrderNo
	}
	return fmt.Sprintf("%s-%02d", parentOrderNo, seq)
}
