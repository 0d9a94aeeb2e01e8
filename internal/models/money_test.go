package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyMulQuantityRounds(t *testing.T) {
	unit := NewMoneyFromDecimal(decimal.RequireFromString("19.99"))
	if got := unit.MulQuantity(3); !got.Equal(decimal.RequireFromString("59.97")) {
		t.Fatalf("want 59.97 got %s", got)
	}
	if got := ZeroMoney().MulQuantity(5); !got.IsZero() {
		t.Fatalf("zero price should stay zero, got %s", got)
	}
}

func TestMoneyJSONFixedScale(t *testing.T) {
	raw, err := json.Marshal(NewMoneyFromInt(1500))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(raw) != `"1500.00"` {
		t.Fatalf("unexpected json: %s", raw)
	}

	var fromNumber, fromString Money
	if err := json.Unmarshal([]byte(`12.345`), &fromNumber); err != nil {
		t.Fatalf("unmarshal number failed: %v", err)
	}
	if err := json.Unmarshal([]byte(`"12.345"`), &fromString); err != nil {
		t.Fatalf("unmarshal string failed: %v", err)
	}
	if fromNumber.String() != "12.35" || fromString.String() != "12.35" {
		t.Fatalf("expected half-up rounding to 12.35, got %s / %s", fromNumber, fromString)
	}
}
