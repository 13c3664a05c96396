// clawshield-cli drives a clawshieldd gateway with a locally stored key.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Klingon-tech/clawshield/config"
	"github.com/Klingon-tech/clawshield/internal/api"
)

func main() {
	g, args := parseGlobals(os.Args[1:])
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(g.apiURL, g.timeout)
	ksDir := g.keystoreDir()
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(ctx, client)
	case "balance":
		cmdBalance(ctx, client, cmdArgs, ksDir)
	case "shield":
		cmdShield(ctx, client, cmdArgs, ksDir)
	case "withdraw":
		cmdWithdraw(ctx, client, cmdArgs, ksDir)
	case "submit":
		cmdSubmit(ctx, client, cmdArgs, ksDir)
	case "sign-message":
		cmdSignMessage(cmdArgs, ksDir)
	case "wallet":
		cmdWallet(cmdArgs, ksDir)
	case "keygen":
		cmdWalletCreate(cmdArgs, ksDir)
	case "import":
		cmdWalletImport(cmdArgs, ksDir)
	case "address":
		cmdWalletAddress(cmdArgs, ksDir)
	case "version", "--version":
		fmt.Printf("clawshield-cli %s\n", config.Version)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: clawshield-cli [global flags] <command> [flags]

Global flags:
  --api <url>         Gateway URL (default: %s)
  --datadir <path>    Data directory (default: %s)
  --network <net>     mainnet-beta (default), devnet, testnet, localnet
  --timeout <dur>     Request timeout (default: %s)

Commands:
  status                          Show gateway and Solana health
  balance --wallet <w> [--token <SYM>]
                                  Show shielded balance
  shield --wallet <w> --amount <n> [--token <SYM>]
                                  Build, sign and submit a deposit
  withdraw --wallet <w> --amount <n> [--to <addr>] [--token <SYM>]
                                  Withdraw from the pool (default: to self)
  submit [--wallet <w>] --tx <base64>
                                  Submit a transaction, signing it first if
                                  --wallet is given
  sign-message --wallet <w> [--message <text>]
                                  Print the hex signature of a message
                                  (default: the balance message)

  wallet create --name <n>        Create a new wallet from a fresh mnemonic
  wallet import --name <n> [--mnemonic "..." | --secret-file <path>]
                                  Import a mnemonic or Solana secret key
  wallet list                     List wallets
  wallet address --wallet <w>     Show wallet address
  wallet export --wallet <w>      Print the base58 secret key
  wallet delete --wallet <w>      Delete a wallet file

  keygen, import, address         Shorthands for the wallet subcommands
`, defaultAPIURL, config.DefaultDataDir(), defaultTimeout)
}

const (
	defaultAPIURL  = "http://127.0.0.1:3000"
	defaultTimeout = 3 * time.Minute
)
