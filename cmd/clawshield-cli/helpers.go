package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/Klingon-tech/clawshield/config"
	"github.com/Klingon-tech/clawshield/internal/wallet"
	"github.com/Klingon-tech/clawshield/pkg/crypto"
	"github.com/Klingon-tech/clawshield/pkg/tx"
	"golang.org/x/term"
)

// globals are the flags accepted before the subcommand.
type globals struct {
	apiURL  string
	dataDir string
	network string
	timeout time.Duration
}

func (g globals) keystoreDir() string {
	cfg := config.Default(config.NetworkType(g.network))
	cfg.DataDir = g.dataDir
	return cfg.KeystoreDir()
}

// parseGlobals consumes --api, --datadir, --network and --timeout ahead
// of the subcommand and returns the remaining arguments.
func parseGlobals(args []string) (globals, []string) {
	g := globals{
		apiURL:  defaultAPIURL,
		dataDir: config.DefaultDataDir(),
		network: string(config.Mainnet),
		timeout: defaultTimeout,
	}
	if v := os.Getenv("CLAWSHIELD_API_URL"); v != "" {
		g.apiURL = v
	}

	for len(args) > 0 {
		name, value, hasValue := strings.Cut(strings.TrimLeft(args[0], "-"), "=")
		if !strings.HasPrefix(args[0], "--") {
			break
		}
		switch name {
		case "api", "datadir", "network", "timeout":
		default:
			return g, args
		}
		if !hasValue {
			if len(args) < 2 {
				return g, args
			}
			value = args[1]
			args = args[2:]
		} else {
			args = args[1:]
		}
		switch name {
		case "api":
			g.apiURL = value
		case "datadir":
			g.dataDir = value
		case "network":
			g.network = value
		case "timeout":
			d, err := time.ParseDuration(value)
			if err != nil {
				fatal("invalid --timeout %q: %v", value, err)
			}
			g.timeout = d
		}
	}
	return g, args
}

// loadKey opens wallet name, prompting for its password.
func loadKey(ksDir, name string) *crypto.PrivateKey {
	if name == "" {
		fatal("--wallet is required")
	}
	ks, err := wallet.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	password, err := readPassword(fmt.Sprintf("Password for %s: ", name))
	if err != nil {
		fatal("read password: %v", err)
	}
	defer zero(password)
	key, err := ks.Load(name, password)
	if err != nil {
		fatal("%v", err)
	}
	return key
}

// signTx fills the signer's slot of a base64 wire transaction.
func signTx(encoded string, key crypto.Signer) (string, error) {
	t, err := tx.UnmarshalBase64(encoded)
	if err != nil {
		return "", fmt.Errorf("decode transaction: %w", err)
	}
	if err := t.Sign(key); err != nil {
		return "", err
	}
	return t.Base64()
}

// ── Password helper ─────────────────────────────────────────────────────

// readPassword reads without echo from a terminal. When stdin is piped the
// first line is used, so scripts can feed the password.
func readPassword(prompt string) ([]byte, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return nil, err
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return password, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
