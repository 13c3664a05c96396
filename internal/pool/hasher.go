package pool

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/Klingon-tech/clawshield/pkg/types"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/singleflight"
)

// ErrNoCircuit is returned when the hasher is initialised without a circuit.
var ErrNoCircuit = errors.New("circuit path not configured")

// Hasher computes note commitments and nullifiers. Its domain keys are
// bound to the circuit the relayer verifies against, so notes hashed for
// one circuit never validate under another.
type Hasher struct {
	circuit       string
	commitmentKey [32]byte
	nullifierKey  [32]byte
}

// NewHasher derives the hasher for the circuit at circuitPath. Only the
// circuit name (last path element) is significant.
func NewHasher(circuitPath string) (*Hasher, error) {
	name := filepath.Base(strings.TrimRight(strings.TrimSpace(circuitPath), "/"))
	if name == "" || name == "." || name == "/" {
		return nil, ErrNoCircuit
	}
	h := &Hasher{circuit: name}
	blake3.DeriveKey("clawshield "+name+" commitment", nil, h.commitmentKey[:])
	blake3.DeriveKey("clawshield "+name+" nullifier", nil, h.nullifierKey[:])
	return h, nil
}

// Circuit returns the circuit name the hasher is bound to.
func (h *Hasher) Circuit() string {
	return h.circuit
}

// Commitment binds a note's amount, blinding factor, owner tag and mint.
func (h *Hasher) Commitment(amount uint64, blinding types.Hash, owner [32]byte, mint types.PublicKey) types.Hash {
	var amt [8]byte
	binary.LittleEndian.PutUint64(amt[:], amount)
	return h.keyed(h.commitmentKey, amt[:], blinding[:], owner[:], mint[:])
}

// Nullifier is the spend tag of the note at leaf index. Only the holder of
// the owner secret can compute it.
func (h *Hasher) Nullifier(commitment types.Hash, index uint64, ownerSecret []byte) types.Hash {
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], index)
	return h.keyed(h.nullifierKey, commitment[:], idx[:], ownerSecret)
}

func (h *Hasher) keyed(key [32]byte, parts ...[]byte) types.Hash {
	hh, err := blake3.NewKeyed(key[:])
	if err != nil {
		// Key is always 32 bytes.
		panic(err)
	}
	var lenBuf [4]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(p)))
		hh.Write(lenBuf[:])
		hh.Write(p)
	}
	var out types.Hash
	copy(out[:], hh.Sum(nil))
	return out
}

// HasherProvider builds the hasher once, on first use. Concurrent first
// callers share one initialisation; a failed initialisation is not cached
// and the next call tries again.
type HasherProvider struct {
	init  func(ctx context.Context) (*Hasher, error)
	group singleflight.Group
	ready atomic.Pointer[Hasher]
}

// NewHasherProvider returns a provider for the circuit at circuitPath.
func NewHasherProvider(circuitPath string) *HasherProvider {
	return NewHasherProviderFunc(func(context.Context) (*Hasher, error) {
		return NewHasher(circuitPath)
	})
}

// NewHasherProviderFunc returns a provider with a custom initialiser.
func NewHasherProviderFunc(init func(ctx context.Context) (*Hasher, error)) *HasherProvider {
	return &HasherProvider{init: init}
}

// Get returns the shared hasher, initialising it if needed.
func (p *HasherProvider) Get(ctx context.Context) (*Hasher, error) {
	if h := p.ready.Load(); h != nil {
		return h, nil
	}
	v, err, _ := p.group.Do("hasher", func() (interface{}, error) {
		if h := p.ready.Load(); h != nil {
			return h, nil
		}
		h, err := p.init(ctx)
		if err != nil {
			return nil, err
		}
		p.ready.Store(h)
		return h, nil
	})
	if err != nil {
		return nil, fmt.Errorf("init hasher: %w", err)
	}
	return v.(*Hasher), nil
}
