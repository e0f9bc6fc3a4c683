// Package rpctypes holds the JSON-RPC wire shapes consumed from a Solana
// node with encoding=jsonParsed, maxSupportedTransactionVersion=0.
package rpctypes

// RPCError is the standard JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type GetHealthResponse struct {
	Jsonrpc string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Result  string    `json:"result"`
	Error   *RPCError `json:"error,omitempty"`
}

type GetAccountInfoResponse struct {
	Jsonrpc string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Error   *RPCError `json:"error,omitempty"`
	Result  struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value *AccountInfo `json:"value"`
	} `json:"result"`
}

type AccountInfo struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"`
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
	Space      uint64   `json:"space"`
}

// SignatureInfo is one element of getSignaturesForAddress's result.
type SignatureInfo struct {
	Signature          string      `json:"signature"`
	Slot               uint64      `json:"slot"`
	Err                interface{} `json:"err"`
	Memo               *string     `json:"memo"`
	BlockTime          *int64      `json:"blockTime"`
	ConfirmationStatus *string     `json:"confirmationStatus"`
}

type GetSignaturesRequest struct {
	Commitment     string `json:"commitment,omitempty"`
	MinContextSlot uint64 `json:"minContextSlot,omitempty"`
	Limit          uint64 `json:"limit,omitempty"`
	Before         string `json:"before,omitempty"`
	Until          string `json:"until,omitempty"`
}

type GetSignaturesResponse struct {
	Jsonrpc string           `json:"jsonrpc"`
	ID      int              `json:"id"`
	Error   *RPCError        `json:"error,omitempty"`
	Result  []*SignatureInfo `json:"result"`
}

// AccountKeyInfo is one accountKeys entry as rendered by jsonParsed
// encoding (an object, not a bare pubkey string).
type AccountKeyInfo struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
	Source   string `json:"source,omitempty"`
}

// ParsedInstructionInfo carries the union of fields that appear under
// "parsed.info" for the instruction kinds this parser understands
// (system transfer, SPL token transfer / transferChecked).
type ParsedInstructionInfo struct {
	Source      string       `json:"source,omitempty"`
	Destination string       `json:"destination,omitempty"`
	Authority   string       `json:"authority,omitempty"`
	Lamports    uint64       `json:"lamports,omitempty"`
	Amount      string       `json:"amount,omitempty"`
	Mint        string       `json:"mint,omitempty"`
	TokenAmount *UITokenAmount `json:"tokenAmount,omitempty"`
}

type ParsedInstruction struct {
	Info *ParsedInstructionInfo `json:"info,omitempty"`
	Type string                 `json:"type,omitempty"`
}

type Instruction struct {
	Program     string              `json:"program,omitempty"`
	ProgramId   string              `json:"programId,omitempty"`
	Parsed      *ParsedInstruction  `json:"parsed,omitempty"`
	Accounts    []string            `json:"accounts,omitempty"`
	Data        string              `json:"data,omitempty"`
	StackHeight interface{}         `json:"stackHeight,omitempty"`
}

type TransactionMessage struct {
	AccountKeys     []AccountKeyInfo `json:"accountKeys"`
	Instructions    []Instruction    `json:"instructions"`
	RecentBlockhash string           `json:"recentBlockhash"`
}

type Transaction struct {
	Message    TransactionMessage `json:"message"`
	Signatures []string           `json:"signatures"`
}

type UITokenAmount struct {
	Amount         string  `json:"amount"`
	Decimals       int32   `json:"decimals"`
	UIAmount       float64 `json:"uiAmount"`
	UIAmountString string  `json:"uiAmountString"`
}

type TokenBalance struct {
	AccountIndex  int            `json:"accountIndex"`
	Mint          string         `json:"mint"`
	Owner         string         `json:"owner"`
	ProgramId     string         `json:"programId"`
	UITokenAmount UITokenAmount  `json:"uiTokenAmount"`
}

type TransactionMeta struct {
	Err               interface{}    `json:"err"`
	Fee               uint64         `json:"fee"`
	PreBalances       []uint64       `json:"preBalances"`
	PostBalances      []uint64       `json:"postBalances"`
	PreTokenBalances  []TokenBalance `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance `json:"postTokenBalances"`
	LogMessages       []string       `json:"logMessages"`
}

type TransactionResult struct {
	Slot        uint64          `json:"slot"`
	Version     any             `json:"version"`
	BlockTime   *int64          `json:"blockTime"`
	Transaction Transaction     `json:"transaction"`
	Meta        TransactionMeta `json:"meta"`
}

type GetTransactionResponse struct {
	Jsonrpc string             `json:"jsonrpc"`
	ID      int                `json:"id"`
	Error   *RPCError          `json:"error,omitempty"`
	Result  *TransactionResult `json:"result"`
}
