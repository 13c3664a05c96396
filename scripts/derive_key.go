// derive_key.go prints the address, balance-message signature and
// encryption key fingerprint for a Solana secret key file.
// Usage: go run scripts/derive_key.go <keyfile>
package main

import (
	"fmt"
	"os"

	"github.com/Klingon-tech/clawshield/internal/shieldkey"
	"github.com/Klingon-tech/clawshield/internal/wallet"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key <keyfile>")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	key, err := wallet.ParseSecretKey(string(data))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer key.Zero()

	sig, err := wallet.SignBalanceMessage(key)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	enc, err := shieldkey.Derive(sig)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer enc.Zero()

	fmt.Printf("pubkey=%s\n", key.PublicKey())
	fmt.Printf("signature=%s\n", sig)
	fmt.Printf("encryption_key=%s\n", enc.Fingerprint())
}
