package heroku

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
)

func TestCheckSignature(t *testing.T) {
	secret := Secret("test-secret-key")
	body := []byte(`{"resource":"release","action":"update"}`)
	valid := Sign(secret, body)

	tests := []struct {
		name      string
		body      []byte
		signature string
		secret    Secret
		wantErr   error
	}{
		{name: "valid signature", body: body, signature: valid, secret: secret},
		{name: "missing signature", body: body, signature: "", secret: secret, wantErr: ErrMissingSignature},
		{name: "tampered body", body: []byte(`{"resource":"release","action":"create"}`), signature: valid, secret: secret, wantErr: ErrInvalidSignature},
		{name: "wrong secret", body: body, signature: valid, secret: "other", wantErr: ErrInvalidSignature},
		{name: "not base64", body: body, signature: "not base64!", secret: secret, wantErr: ErrInvalidSignature},
		{name: "hex instead of base64", body: body, signature: "3a8f7b2c1d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0c1d2e3f4a5b6c7d8e9f0a", secret: secret, wantErr: ErrInvalidSignature},
		{name: "truncated", body: body, signature: valid[:len(valid)-2], secret: secret, wantErr: ErrInvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSignature(tt.secret, tt.body, tt.signature)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				assert.True(t, Verify(tt.secret, tt.body, tt.signature))
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, Verify(tt.secret, tt.body, tt.signature))
		})
	}
}

func TestSign_KnownVector(t *testing.T) {
	// echo -n 'hello' | openssl dgst -sha256 -hmac 'secret' -binary | base64
	assert.Equal(t, "iKqz7ejTrflNJquQ07r9SiCDBww7zOnAFO4EpEOEfAs=", Sign("secret", []byte("hello")))
}

func TestVerify_SignedBodiesVerify(t *testing.T) {
	prop := func(secret string, body []byte) bool {
		return Verify(Secret(secret), body, Sign(Secret(secret), body))
	}
	assert.NoError(t, quick.Check(prop, nil))
}

func TestVerify_OtherSignaturesFail(t *testing.T) {
	prop := func(secret string, body []byte, claimed string) bool {
		if claimed == Sign(Secret(secret), body) {
			return true
		}
		return !Verify(Secret(secret), body, claimed)
	}
	assert.NoError(t, quick.Check(prop, nil))
}

func TestSecret_Redacted(t *testing.T) {
	s := Secret("hunter2")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", s.LogValue().String())
}
