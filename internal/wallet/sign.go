package wallet

import (
	"encoding/hex"

	"github.com/Klingon-tech/clawshield/internal/shieldkey"
	"github.com/Klingon-tech/clawshield/pkg/crypto"
)

// SignMessage signs msg and returns the hex signature the gateway expects
// in the "signature" request field.
func SignMessage(key crypto.Signer, msg []byte) (string, error) {
	sig, err := key.Sign(msg)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig[:]), nil
}

// SignBalanceMessage signs the fixed ownership message that the gateway
// derives the caller's encryption key from.
func SignBalanceMessage(key crypto.Signer) (string, error) {
	return SignMessage(key, []byte(shieldkey.BalanceMessage))
}
