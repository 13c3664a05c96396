package simnet

import (
	"encoding/json"

	"github.com/Klingon-tech/clawshield/internal/rpc"
	"github.com/Klingon-tech/clawshield/internal/rpcclient"
	"github.com/Klingon-tech/clawshield/pkg/tx"
	"github.com/Klingon-tech/clawshield/pkg/types"
)

// registerSolana installs the subset of the Solana JSON-RPC API the
// gateway uses.
func (n *Network) registerSolana(s *rpc.Server) {
	s.Handle("getVersion", n.handleGetVersion)
	s.Handle("getLatestBlockhash", n.handleGetLatestBlockhash)
	s.Handle("getBlockHeight", n.handleGetBlockHeight)
	s.Handle("sendTransaction", n.handleSendTransaction)
	s.Handle("getSignatureStatuses", n.handleGetSignatureStatuses)
}

func (n *Network) handleGetVersion(json.RawMessage) (interface{}, *rpc.Error) {
	return rpcclient.Version{SolanaCore: n.cfg.Version, FeatureSet: n.cfg.FeatureSet}, nil
}

func (n *Network) handleGetLatestBlockhash(json.RawMessage) (interface{}, *rpc.Error) {
	hash, lastValid, slot := n.ledger.LatestBlockhash()
	return map[string]interface{}{
		"context": rpcclient.Context{Slot: slot},
		"value": rpcclient.LatestBlockhash{
			Blockhash:            hash,
			LastValidBlockHeight: lastValid,
		},
	}, nil
}

func (n *Network) handleGetBlockHeight(json.RawMessage) (interface{}, *rpc.Error) {
	return n.ledger.Height(), nil
}

func (n *Network) handleSendTransaction(params json.RawMessage) (interface{}, *rpc.Error) {
	var args []json.RawMessage
	if err := rpc.ParseParams(params, &args); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, &rpc.Error{Code: rpc.CodeInvalidParams, Message: "missing transaction"}
	}
	var encoded string
	if err := json.Unmarshal(args[0], &encoded); err != nil {
		return nil, &rpc.Error{Code: rpc.CodeInvalidParams, Message: "transaction must be a string"}
	}
	if len(args) > 1 {
		var opts rpcclient.SendOptions
		if err := json.Unmarshal(args[1], &opts); err != nil {
			return nil, &rpc.Error{Code: rpc.CodeInvalidParams, Message: "invalid send options"}
		}
		if opts.Encoding != "base64" {
			return nil, &rpc.Error{Code: rpc.CodeInvalidParams, Message: "only base64 encoding is supported"}
		}
	}

	t, err := tx.UnmarshalBase64(encoded)
	if err != nil {
		return nil, &rpc.Error{Code: rpc.CodeInvalidParams, Message: "failed to deserialize transaction: " + err.Error()}
	}
	sig, rpcErr := n.ledger.Execute(t)
	if rpcErr != nil {
		return nil, rpcErr
	}
	n.logger.Debug().Str("signature", sig.String()).Msg("Transaction accepted")
	return sig, nil
}

func (n *Network) handleGetSignatureStatuses(params json.RawMessage) (interface{}, *rpc.Error) {
	var args []json.RawMessage
	if err := rpc.ParseParams(params, &args); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, &rpc.Error{Code: rpc.CodeInvalidParams, Message: "missing signatures"}
	}
	var sigs []types.Signature
	if err := json.Unmarshal(args[0], &sigs); err != nil {
		return nil, &rpc.Error{Code: rpc.CodeInvalidParams, Message: "invalid signatures: " + err.Error()}
	}

	// Every status poll observes one more slot.
	if n.cfg.SlotInterval <= 0 {
		n.ledger.Tick()
	}

	statuses := make([]*rpcclient.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		statuses[i] = n.ledger.Status(sig)
	}
	_, _, slot := n.ledger.LatestBlockhash()
	return map[string]interface{}{
		"context": rpcclient.Context{Slot: slot},
		"value":   statuses,
	}, nil
}
