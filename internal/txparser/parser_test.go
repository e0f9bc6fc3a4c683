package txparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3-fighter/sidewallet-analytics/internal/sidewallet"
	"github.com/web3-fighter/sidewallet-analytics/internal/solrpc/rpctypes"
)

const (
	walletA = "Aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	walletB = "Bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	walletC = "Ccccccccccccccccccccccccccccccccccccccccccc"
)

func keysOf(writable ...string) []rpctypes.AccountKeyInfo {
	out := make([]rpctypes.AccountKeyInfo, len(writable))
	for i, w := range writable {
		out[i] = rpctypes.AccountKeyInfo{Pubkey: w, Writable: true}
	}
	return out
}

func TestParseRejectsMalformedTransaction(t *testing.T) {
	_, err := Parse("sig1", nil)
	require.Error(t, err)
	kind, ok := sidewallet.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, sidewallet.KindParseError, kind)

	_, err = Parse("sig2", &rpctypes.TransactionResult{})
	require.Error(t, err)
}

func TestParseBalanceDeltaSOLTransfer(t *testing.T) {
	tx := &rpctypes.TransactionResult{
		Slot: 100,
		Transaction: rpctypes.Transaction{
			Signatures: []string{"sig"},
			Message: rpctypes.TransactionMessage{
				AccountKeys: keysOf(walletA, walletB),
			},
		},
		Meta: rpctypes.TransactionMeta{
			Fee:          5000,
			PreBalances:  []uint64{1_000_000_000, 500_000_000},
			PostBalances: []uint64{899_995_000, 600_000_000},
		},
	}

	parsed, err := Parse("sig", tx)
	require.NoError(t, err)
	require.Len(t, parsed.SolTransfers, 1)

	transfer := parsed.SolTransfers[0]
	assert.Equal(t, walletA, transfer.From)
	assert.Equal(t, walletB, transfer.To)
	// fee-payer's delta is exempted by adding back the fee before pairing:
	// -100_005_000 + 5000 = -100_000_000 lamports sent.
	assert.Equal(t, int64(100_000_000), transfer.AmountLamports)
	assert.Equal(t, "balance_delta", transfer.TransferType)
}

func TestParseInstructionLevelWinsOverBalanceDelta(t *testing.T) {
	tx := &rpctypes.TransactionResult{
		Slot: 100,
		Transaction: rpctypes.Transaction{
			Signatures: []string{"sig"},
			Message: rpctypes.TransactionMessage{
				AccountKeys: keysOf(walletA, walletB),
				Instructions: []rpctypes.Instruction{
					{
						Program: "system",
						Parsed: &rpctypes.ParsedInstruction{
							Type: "transfer",
							Info: &rpctypes.ParsedInstructionInfo{
								Source:      walletA,
								Destination: walletB,
								Lamports:    100_000_000,
							},
						},
					},
				},
			},
		},
		Meta: rpctypes.TransactionMeta{
			Fee:          5000,
			PreBalances:  []uint64{1_000_000_000, 500_000_000},
			PostBalances: []uint64{899_995_000, 600_000_000},
		},
	}

	parsed, err := Parse("sig", tx)
	require.NoError(t, err)
	// only the instruction-level transfer should survive; the touched
	// addresses are excluded from the balance-delta pass entirely.
	require.Len(t, parsed.SolTransfers, 1)
	assert.Equal(t, "instruction", parsed.SolTransfers[0].TransferType)
	assert.Equal(t, 0, parsed.SolTransfers[0].InstructionIndex)
}

func TestParseTokenTransferByBalanceDelta(t *testing.T) {
	mint := "TokenMintAddress1111111111111111111111111"
	tx := &rpctypes.TransactionResult{
		Slot: 200,
		Transaction: rpctypes.Transaction{
			Signatures: []string{"sig"},
			Message: rpctypes.TransactionMessage{
				AccountKeys: keysOf(walletA, walletB),
			},
		},
		Meta: rpctypes.TransactionMeta{
			PreBalances:  []uint64{1_000_000_000, 1_000_000_000},
			PostBalances: []uint64{1_000_000_000, 1_000_000_000},
			PreTokenBalances: []rpctypes.TokenBalance{
				{AccountIndex: 0, Mint: mint, Owner: walletA, UITokenAmount: rpctypes.UITokenAmount{Amount: "500", Decimals: 6}},
				{AccountIndex: 1, Mint: mint, Owner: walletB, UITokenAmount: rpctypes.UITokenAmount{Amount: "0", Decimals: 6}},
			},
			PostTokenBalances: []rpctypes.TokenBalance{
				{AccountIndex: 0, Mint: mint, Owner: walletA, UITokenAmount: rpctypes.UITokenAmount{Amount: "300", Decimals: 6}},
				{AccountIndex: 1, Mint: mint, Owner: walletB, UITokenAmount: rpctypes.UITokenAmount{Amount: "200", Decimals: 6}},
			},
		},
	}

	parsed, err := Parse("sig", tx)
	require.NoError(t, err)
	require.Empty(t, parsed.SolTransfers)
	require.Len(t, parsed.TokenTransfers, 1)

	transfer := parsed.TokenTransfers[0]
	assert.Equal(t, mint, transfer.Mint)
	assert.Equal(t, walletA, transfer.FromOwner)
	assert.Equal(t, walletB, transfer.ToOwner)
	assert.Equal(t, int64(200), transfer.Amount)
	assert.InDelta(t, 0.0002, transfer.AmountUI, 1e-9)
}

func TestParseTokenTransferSkipsUnknownOwner(t *testing.T) {
	mint := "TokenMintAddress1111111111111111111111111"
	tx := &rpctypes.TransactionResult{
		Slot: 200,
		Transaction: rpctypes.Transaction{
			Signatures: []string{"sig"},
			Message:    rpctypes.TransactionMessage{AccountKeys: keysOf(walletA)},
		},
		Meta: rpctypes.TransactionMeta{
			PreTokenBalances: []rpctypes.TokenBalance{
				{AccountIndex: 0, Mint: mint, Owner: "unknown", UITokenAmount: rpctypes.UITokenAmount{Amount: "500", Decimals: 6}},
			},
			PostTokenBalances: []rpctypes.TokenBalance{
				{AccountIndex: 0, Mint: mint, Owner: "unknown", UITokenAmount: rpctypes.UITokenAmount{Amount: "0", Decimals: 6}},
			},
		},
	}

	parsed, err := Parse("sig", tx)
	require.NoError(t, err)
	assert.Empty(t, parsed.TokenTransfers)
}

func TestToEventsOrdersSOLBeforeToken(t *testing.T) {
	parsed := &ParsedTransaction{
		Signature: "sig",
		SolTransfers: []SolTransfer{
			{From: walletA, To: walletB, AmountLamports: 1, TransferType: "instruction"},
		},
		TokenTransfers: []TokenTransfer{
			{Mint: "mint", FromOwner: walletA, ToOwner: walletC, Amount: 1, TransferType: "balance_delta"},
		},
	}

	events := parsed.ToEvents()
	require.Len(t, events, 2)
	assert.Equal(t, sidewallet.TransferSOL, events[0].Kind)
	assert.Equal(t, int32(0), events[0].EventIndex)
	assert.Equal(t, sidewallet.TransferToken, events[1].Kind)
	assert.Equal(t, int32(1), events[1].EventIndex)
}
