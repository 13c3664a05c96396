package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/clawshield/internal/wallet"
	"github.com/Klingon-tech/clawshield/pkg/crypto"
)

func cmdWallet(args []string, ksDir string) {
	if len(args) == 0 {
		fatal("Usage: clawshield-cli wallet <create|import|list|address|export|delete>")
	}
	switch args[0] {
	case "create":
		cmdWalletCreate(args[1:], ksDir)
	case "import":
		cmdWalletImport(args[1:], ksDir)
	case "list":
		cmdWalletList(ksDir)
	case "address":
		cmdWalletAddress(args[1:], ksDir)
	case "export":
		cmdWalletExport(args[1:], ksDir)
	case "delete":
		cmdWalletDelete(args[1:], ksDir)
	default:
		fatal("unknown wallet command: %s", args[0])
	}
}

// newPassword prompts twice and insists the entries match.
func newPassword() []byte {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	defer zero(confirm)
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	if len(password) == 0 {
		fatal("password must not be empty")
	}
	return password
}

func storeKey(ksDir, name string, key *crypto.PrivateKey, source string) {
	ks, err := wallet.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	password := newPassword()
	defer zero(password)
	if err := ks.Store(name, key, source, password, wallet.DefaultParams()); err != nil {
		fatal("store wallet: %v", err)
	}
	fmt.Printf("\nWallet saved: %s\n", name)
	fmt.Printf("Address:      %s\n", key.PublicKey())
}

func cmdWalletCreate(args []string, ksDir string) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)
	if *name == "" {
		fatal("Usage: clawshield-cli wallet create --name <name>")
	}

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}
	key, err := wallet.KeyFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive key: %v", err)
	}
	defer key.Zero()

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)
	storeKey(ksDir, *name, key, wallet.SourceMnemonic)
}

func cmdWalletImport(args []string, ksDir string) {
	fs := flag.NewFlagSet("wallet import", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic")
	passphrase := fs.String("passphrase", "", "Optional BIP-39 passphrase")
	secretFile := fs.String("secret-file", "", "solana-keygen JSON file or base58 secret key file")
	fs.Parse(args)
	if *name == "" || (*mnemonic == "") == (*secretFile == "") {
		fatal("Usage: clawshield-cli wallet import --name <name> (--mnemonic \"...\" | --secret-file <path>)")
	}

	var (
		key    *crypto.PrivateKey
		source string
		err    error
	)
	if *mnemonic != "" {
		key, err = wallet.KeyFromMnemonic(strings.Join(strings.Fields(*mnemonic), " "), *passphrase)
		source = wallet.SourceMnemonic
	} else {
		var data []byte
		data, err = os.ReadFile(*secretFile)
		if err != nil {
			fatal("read secret file: %v", err)
		}
		key, err = wallet.ParseSecretKey(string(data))
		zero(data)
		source = wallet.SourceImported
	}
	if err != nil {
		fatal("import key: %v", err)
	}
	defer key.Zero()
	storeKey(ksDir, *name, key, source)
}

func cmdWalletList(ksDir string) {
	ks, err := wallet.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	names, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No wallets found.")
		return
	}
	for _, name := range names {
		info, err := ks.Info(name)
		if err != nil {
			fmt.Printf("  %-20s (unreadable: %v)\n", name, err)
			continue
		}
		fmt.Printf("  %-20s %s  [%s]\n", name, info.Address, info.Source)
	}
}

func cmdWalletAddress(args []string, ksDir string) {
	fs := flag.NewFlagSet("wallet address", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)
	if *name == "" {
		fatal("Usage: clawshield-cli wallet address --wallet <name>")
	}
	ks, err := wallet.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	info, err := ks.Info(*name)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(info.Address)
}

func cmdWalletExport(args []string, ksDir string) {
	fs := flag.NewFlagSet("wallet export", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)

	key := loadKey(ksDir, *name)
	defer key.Zero()
	fmt.Fprintln(os.Stderr, "WARNING: anyone with this key controls the wallet.")
	fmt.Println(wallet.EncodeSecretKey(key))
}

func cmdWalletDelete(args []string, ksDir string) {
	fs := flag.NewFlagSet("wallet delete", flag.ExitOnError)
	name := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)

	// Require the password so a typo cannot delete the wrong wallet.
	key := loadKey(ksDir, *name)
	key.Zero()

	ks, err := wallet.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if err := ks.Delete(*name); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Wallet deleted: %s\n", *name)
}
