package pool

import "github.com/Klingon-tech/clawshield/pkg/types"

// Relayer JSON-RPC methods.
const (
	MethodGetOutputs      = "pool_getOutputs"
	MethodCheckNullifiers = "pool_checkNullifiers"
	MethodBuildDeposit    = "pool_buildDeposit"
	MethodRelayDeposit    = "pool_relayDeposit"
	MethodGetConfig       = "pool_getConfig"
	MethodWithdraw        = "pool_withdraw"
)

// Output is one leaf of the pool's note tree as published by the indexer.
type Output struct {
	Index      uint64     `json:"index"`
	Commitment types.Hash `json:"commitment"`
	Ciphertext []byte     `json:"ciphertext"`
}

// GetOutputsParams pages through the outputs of one asset. An empty Mint
// selects the native asset.
type GetOutputsParams struct {
	Mint   string `json:"mint,omitempty"`
	Offset uint64 `json:"offset"`
	Limit  int    `json:"limit"`
}

// GetOutputsResult is one page of outputs.
type GetOutputsResult struct {
	Outputs []Output `json:"outputs"`
	Total   uint64   `json:"total"`
}

// CheckNullifiersParams asks which nullifiers have been spent.
type CheckNullifiersParams struct {
	Nullifiers []types.Hash `json:"nullifiers"`
}

// CheckNullifiersResult holds one spent flag per requested nullifier.
type CheckNullifiersResult struct {
	Spent []bool `json:"spent"`
}

// BuildDepositParams asks the relayer for an unsigned deposit transaction
// paying Amount base units from Owner into the pool and appending one
// output.
type BuildDepositParams struct {
	Owner      types.PublicKey `json:"owner"`
	Mint       string          `json:"mint,omitempty"`
	Amount     uint64          `json:"amount"`
	Circuit    string          `json:"circuit"`
	Commitment types.Hash      `json:"commitment"`
	Ciphertext []byte          `json:"ciphertext"`
}

// TransactionResult carries a base64 wire transaction.
type TransactionResult struct {
	Transaction string `json:"transaction"`
}

// RelayDepositParams submits a signed deposit transaction.
type RelayDepositParams struct {
	Transaction string `json:"transaction"`
}

// SignatureResult is the on-chain signature of a relayed transaction.
type SignatureResult struct {
	Signature types.Signature `json:"signature"`
}

// GetConfigParams selects the asset whose withdraw terms are wanted.
type GetConfigParams struct {
	Mint string `json:"mint,omitempty"`
}

// GetConfigResult holds the relayer's withdraw terms.
type GetConfigResult struct {
	Circuit    string `json:"circuit"`
	FeeRateBps uint64 `json:"feeRateBps"`
	RentFee    uint64 `json:"rentFee"`
}

// ChangeOutput is the remainder of a withdrawal, re-shielded to the owner.
type ChangeOutput struct {
	Commitment types.Hash `json:"commitment"`
	Ciphertext []byte     `json:"ciphertext"`
}

// WithdrawRequest asks the relayer to spend notes and pay a recipient.
// Amount includes Fee; the recipient receives Amount minus Fee.
type WithdrawRequest struct {
	Mint       string          `json:"mint,omitempty"`
	Circuit    string          `json:"circuit"`
	Recipient  types.PublicKey `json:"recipient"`
	Amount     uint64          `json:"amount"`
	Fee        uint64          `json:"fee"`
	Inputs     []types.Hash    `json:"inputs"`
	Nullifiers []types.Hash    `json:"nullifiers"`
	Change     *ChangeOutput   `json:"change,omitempty"`
}
