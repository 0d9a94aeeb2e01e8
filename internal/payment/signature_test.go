package payment

import (
	"errors"
	"testing"
)

func TestVerifyCallback(t *testing.T) {
	body := []byte(`{"txn_ref":"PAY-1","status":"success","amount":"1000"}`)
	sign := Sign("cb-secret", body)

	cases := []struct {
		name      string
		secret    string
		body      []byte
		signature string
		want      error
	}{
		{name: "valid", secret: "cb-secret", body: body, signature: sign},
		{name: "prefixed_upper", secret: "cb-secret", body: body, signature: "SHA256=" + sign},
		{name: "secret_missing", secret: " ", body: body, signature: sign, want: ErrConfigInvalid},
		{name: "signature_missing", secret: "cb-secret", body: body, signature: "", want: ErrSignatureMissing},
		{name: "not_hex", secret: "cb-secret", body: body, signature: "zz", want: ErrSignatureInvalid},
		{name: "wrong_secret", secret: "other", body: body, signature: sign, want: ErrSignatureInvalid},
		{name: "tampered_body", secret: "cb-secret", body: []byte(`{"txn_ref":"PAY-1","status":"success","amount":"9000"}`), signature: sign, want: ErrSignatureInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := VerifyCallback(tc.secret, tc.body, tc.signature)
			if tc.want == nil && err != nil {
				t.Fatalf("expected valid signature, got %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
