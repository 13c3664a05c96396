package simnet

import (
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/clawshield/internal/pool"
	"github.com/Klingon-tech/clawshield/internal/rpc"
	"github.com/Klingon-tech/clawshield/pkg/tx"
	"github.com/Klingon-tech/clawshield/pkg/types"
)

// registerRelayer installs the pool relayer/indexer API.
func (n *Network) registerRelayer(s *rpc.Server) {
	s.Handle(pool.MethodGetOutputs, n.handleGetOutputs)
	s.Handle(pool.MethodCheckNullifiers, n.handleCheckNullifiers)
	s.Handle(pool.MethodBuildDeposit, n.handleBuildDeposit)
	s.Handle(pool.MethodRelayDeposit, n.handleRelayDeposit)
	s.Handle(pool.MethodGetConfig, n.handleGetConfig)
	s.Handle(pool.MethodWithdraw, n.handleWithdraw)
}

func parseMint(s string) (types.PublicKey, *rpc.Error) {
	if s == "" {
		return types.PublicKey{}, nil
	}
	pk, err := types.ParsePublicKey(s)
	if err != nil {
		return types.PublicKey{}, &rpc.Error{Code: rpc.CodeInvalidParams, Message: fmt.Sprintf("invalid mint: %v", err)}
	}
	return pk, nil
}

func (n *Network) checkCircuit(circuit string) *rpc.Error {
	if circuit != n.cfg.Circuit {
		return &rpc.Error{Code: rpc.CodeInvalidParams, Message: fmt.Sprintf("unknown circuit %q", circuit)}
	}
	return nil
}

func (n *Network) handleGetOutputs(params json.RawMessage) (interface{}, *rpc.Error) {
	var p pool.GetOutputsParams
	if err := rpc.ParseParams(params, &p); err != nil {
		return nil, err
	}
	if _, err := parseMint(p.Mint); err != nil {
		return nil, err
	}
	limit := p.Limit
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	outputs, total := n.ledger.Outputs(p.Mint, p.Offset, limit)
	return pool.GetOutputsResult{Outputs: outputs, Total: total}, nil
}

func (n *Network) handleCheckNullifiers(params json.RawMessage) (interface{}, *rpc.Error) {
	var p pool.CheckNullifiersParams
	if err := rpc.ParseParams(params, &p); err != nil {
		return nil, err
	}
	return pool.CheckNullifiersResult{Spent: n.ledger.Spent(p.Nullifiers)}, nil
}

func (n *Network) handleGetConfig(params json.RawMessage) (interface{}, *rpc.Error) {
	var p pool.GetConfigParams
	if len(params) > 0 {
		if err := rpc.ParseParams(params, &p); err != nil {
			return nil, err
		}
	}
	if _, err := parseMint(p.Mint); err != nil {
		return nil, err
	}
	rent := n.cfg.RentFee
	if p.Mint != "" {
		rent = n.cfg.TokenRentFee
	}
	return pool.GetConfigResult{
		Circuit:    n.cfg.Circuit,
		FeeRateBps: n.cfg.FeeRateBps,
		RentFee:    rent,
	}, nil
}

func (n *Network) handleBuildDeposit(params json.RawMessage) (interface{}, *rpc.Error) {
	var p pool.BuildDepositParams
	if err := rpc.ParseParams(params, &p); err != nil {
		return nil, err
	}
	if err := n.checkCircuit(p.Circuit); err != nil {
		return nil, err
	}
	mint, rpcErr := parseMint(p.Mint)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if p.Owner.IsZero() || p.Amount == 0 || len(p.Ciphertext) == 0 {
		return nil, &rpc.Error{Code: rpc.CodeInvalidParams, Message: "owner, amount and ciphertext are required"}
	}

	blockhash, _, _ := n.ledger.LatestBlockhash()
	b := tx.NewBuilder(p.Owner).SetRecentBlockhash(blockhash)
	if mint.IsZero() {
		b.AddInstruction(tx.Transfer(p.Owner, PoolVault, p.Amount))
	}
	b.AddInstruction(depositInstruction(p.Owner, deposit{
		Amount:     p.Amount,
		Mint:       mint,
		Commitment: p.Commitment,
		Ciphertext: p.Ciphertext,
	}))
	t, err := b.Build()
	if err != nil {
		return nil, &rpc.Error{Code: rpc.CodeInternalError, Message: fmt.Sprintf("build deposit: %v", err)}
	}
	enc, err := t.Base64()
	if err != nil {
		return nil, &rpc.Error{Code: rpc.CodeInternalError, Message: fmt.Sprintf("encode deposit: %v", err)}
	}
	return pool.TransactionResult{Transaction: enc}, nil
}

func (n *Network) handleRelayDeposit(params json.RawMessage) (interface{}, *rpc.Error) {
	var p pool.RelayDepositParams
	if err := rpc.ParseParams(params, &p); err != nil {
		return nil, err
	}
	t, err := tx.UnmarshalBase64(p.Transaction)
	if err != nil {
		return nil, &rpc.Error{Code: rpc.CodeInvalidParams, Message: fmt.Sprintf("invalid transaction: %v", err)}
	}
	deposits, err := poolDeposits(t)
	if err != nil || len(deposits) == 0 {
		return nil, &rpc.Error{Code: rpc.CodeInvalidParams, Message: "not a pool deposit"}
	}
	sig, rpcErr := n.ledger.Execute(t)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return pool.SignatureResult{Signature: sig}, nil
}

func (n *Network) handleWithdraw(params json.RawMessage) (interface{}, *rpc.Error) {
	var p pool.WithdrawRequest
	if err := rpc.ParseParams(params, &p); err != nil {
		return nil, err
	}
	if err := n.checkCircuit(p.Circuit); err != nil {
		return nil, err
	}
	if _, err := parseMint(p.Mint); err != nil {
		return nil, err
	}
	if p.Recipient.IsZero() {
		return nil, &rpc.Error{Code: rpc.CodeInvalidParams, Message: "recipient required"}
	}
	if len(p.Inputs) == 0 || len(p.Inputs) > 2 || len(p.Inputs) != len(p.Nullifiers) {
		return nil, &rpc.Error{Code: rpc.CodeInvalidParams, Message: "withdraw needs one or two inputs with matching nullifiers"}
	}
	if p.Amount <= p.Fee {
		return nil, &rpc.Error{Code: rpc.CodeInvalidParams, Message: "amount does not cover fee"}
	}

	// The relayer pays for and signs the withdraw transaction itself.
	blockhash, _, _ := n.ledger.LatestBlockhash()
	memo := fmt.Sprintf("withdraw %d to %s", p.Amount-p.Fee, p.Recipient)
	t, err := tx.NewBuilder(n.relayerKey.PublicKey()).
		SetRecentBlockhash(blockhash).
		AddInstruction(tx.Memo([]byte(memo), n.relayerKey.PublicKey())).
		Build()
	if err != nil {
		return nil, &rpc.Error{Code: rpc.CodeInternalError, Message: fmt.Sprintf("build withdraw: %v", err)}
	}
	if err := t.Sign(n.relayerKey); err != nil {
		return nil, &rpc.Error{Code: rpc.CodeInternalError, Message: fmt.Sprintf("sign withdraw: %v", err)}
	}

	if rpcErr := n.ledger.spend(&p); rpcErr != nil {
		return nil, rpcErr
	}
	sig, rpcErr := n.ledger.Execute(t)
	if rpcErr != nil {
		return nil, rpcErr
	}
	n.logger.Debug().Str("signature", sig.String()).Uint64("amount", p.Amount).Msg("Withdraw relayed")
	return pool.SignatureResult{Signature: sig}, nil
}
