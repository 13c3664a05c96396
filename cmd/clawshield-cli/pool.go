package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/Klingon-tech/clawshield/internal/api"
	"github.com/Klingon-tech/clawshield/internal/shieldkey"
	"github.com/Klingon-tech/clawshield/internal/wallet"
	"github.com/Klingon-tech/clawshield/pkg/crypto"
)

// ── status ──────────────────────────────────────────────────────────────

func cmdStatus(ctx context.Context, client *api.Client) {
	st, err := client.Status(ctx)
	if err != nil {
		fatal("status: %v", err)
	}
	if !st.Healthy {
		fmt.Printf("Healthy:  no (%s)\n", st.Error)
		return
	}
	fmt.Printf("Healthy:  yes\n")
	fmt.Printf("Network:  %s\n", st.Network)
	fmt.Printf("Solana:   %s\n", st.SolanaVersion)
	fmt.Printf("Protocol: %s\n", st.ProtocolVersion)
}

// ownership signs the balance message, which the gateway turns into the
// caller's encryption key.
func ownership(key *crypto.PrivateKey) (pubkey, signature string) {
	sig, err := wallet.SignBalanceMessage(key)
	if err != nil {
		fatal("sign balance message: %v", err)
	}
	return key.PublicKey().String(), sig
}

// ── balance ─────────────────────────────────────────────────────────────

func cmdBalance(ctx context.Context, client *api.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	token := fs.String("token", "SOL", "Token symbol")
	fs.Parse(args)

	key := loadKey(ksDir, *name)
	defer key.Zero()
	pub, sig := ownership(key)

	bal, err := client.Balance(ctx, api.BalanceRequest{Pubkey: pub, Signature: sig, Token: *token})
	if err != nil {
		fatal("balance: %v", err)
	}
	fmt.Printf("%v %s (shielded)\n", bal.Balance, bal.Token)
}

// ── shield ──────────────────────────────────────────────────────────────

func cmdShield(ctx context.Context, client *api.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("shield", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	amount := fs.Float64("amount", 0, "Amount to shield")
	token := fs.String("token", "SOL", "Token symbol")
	fs.Parse(args)
	if *amount <= 0 {
		fatal("Usage: clawshield-cli shield --wallet <w> --amount <n> [--token <SYM>]")
	}

	key := loadKey(ksDir, *name)
	defer key.Zero()
	pub, sig := ownership(key)

	built, err := client.Shield(ctx, api.ShieldRequest{Pubkey: pub, Amount: amount, Signature: sig, Token: *token})
	if err != nil {
		fatal("shield: %v", err)
	}
	signed, err := signTx(built.UnsignedTx, key)
	if err != nil {
		fatal("sign deposit: %v", err)
	}
	fmt.Printf("Depositing %v %s (%d base units)...\n", built.Amount, built.Token, built.BaseUnits)

	res, err := client.Submit(ctx, signed)
	if err != nil {
		fatal("submit: %v", err)
	}
	fmt.Printf("Status:  %s\n", res.Status)
	fmt.Printf("Tx:      %s\n", res.TxHash)
	fmt.Printf("Slot:    %d\n", res.Slot)
}

// ── withdraw ────────────────────────────────────────────────────────────

func cmdWithdraw(ctx context.Context, client *api.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("withdraw", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	amount := fs.Float64("amount", 0, "Amount to withdraw")
	to := fs.String("to", "", "Recipient address (default: the wallet itself)")
	token := fs.String("token", "SOL", "Token symbol")
	fs.Parse(args)
	if *amount <= 0 {
		fatal("Usage: clawshield-cli withdraw --wallet <w> --amount <n> [--to <addr>] [--token <SYM>]")
	}

	key := loadKey(ksDir, *name)
	defer key.Zero()
	pub, sig := ownership(key)
	recipient := *to
	if recipient == "" {
		recipient = pub
	}

	res, err := client.Withdraw(ctx, api.WithdrawRequest{
		Pubkey: pub, Amount: amount, Recipient: recipient, Signature: sig, Token: *token,
	})
	if err != nil {
		fatal("withdraw: %v", err)
	}
	fmt.Printf("Withdrew %v %s to %s\n", res.Amount, res.Token, res.Recipient)
	fmt.Printf("Tx:      %s\n", res.Tx)
	switch {
	case res.FeeLamports != nil:
		fmt.Printf("Fee:     %d lamports\n", *res.FeeLamports)
	case res.FeeBaseUnits != nil:
		fmt.Printf("Fee:     %d base units\n", *res.FeeBaseUnits)
	}
	if res.IsPartial {
		fmt.Println("Note: the withdrawal was partial; the shielded balance did not cover the full amount.")
	}
}

// ── submit ──────────────────────────────────────────────────────────────

func cmdSubmit(ctx context.Context, client *api.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	name := fs.String("wallet", "", "Sign with this wallet before submitting")
	txB64 := fs.String("tx", "", "Base64 transaction")
	fs.Parse(args)
	if *txB64 == "" {
		fatal("Usage: clawshield-cli submit [--wallet <w>] --tx <base64>")
	}

	encoded := *txB64
	if *name != "" {
		key := loadKey(ksDir, *name)
		signed, err := signTx(encoded, key)
		key.Zero()
		if err != nil {
			fatal("sign: %v", err)
		}
		encoded = signed
	}

	res, err := client.Submit(ctx, encoded)
	if err != nil {
		fatal("submit: %v", err)
	}
	fmt.Printf("Status:  %s\n", res.Status)
	fmt.Printf("Tx:      %s\n", res.TxHash)
	fmt.Printf("Slot:    %d\n", res.Slot)
}

// ── sign-message ────────────────────────────────────────────────────────

func cmdSignMessage(args []string, ksDir string) {
	fs := flag.NewFlagSet("sign-message", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	message := fs.String("message", shieldkey.BalanceMessage, "Message to sign")
	fs.Parse(args)

	key := loadKey(ksDir, *name)
	defer key.Zero()
	sig, err := wallet.SignMessage(key, []byte(*message))
	if err != nil {
		fatal("sign: %v", err)
	}
	fmt.Printf("Pubkey:    %s\n", key.PublicKey())
	fmt.Printf("Signature: %s\n", sig)
}
