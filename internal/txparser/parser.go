// Package txparser extracts SOL and SPL token transfers from a raw
// Solana transaction, producing a ParsedTransaction with deterministic
// event indices.
package txparser

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/web3-fighter/sidewallet-analytics/internal/sidewallet"
	"github.com/web3-fighter/sidewallet-analytics/internal/solrpc/rpctypes"
)

const lamportsPerSOL = 1_000_000_000

var decLamportsPerSOL = decimal.NewFromInt(lamportsPerSOL)

func lamportsToSOL(lamports int64) float64 {
	f, _ := decimal.NewFromInt(lamports).DivRound(decLamportsPerSOL, 18).Float64()
	return f
}

// SolTransfer is one extracted native-SOL movement.
type SolTransfer struct {
	From             string
	To               string
	AmountLamports   int64
	AmountSOL        float64
	InstructionIndex int
	TransferType     string
}

// TokenTransfer is one extracted SPL-token movement.
type TokenTransfer struct {
	Mint             string
	FromOwner        string
	ToOwner          string
	FromTokenAccount string
	ToTokenAccount   string
	Amount           int64
	Decimals         int32
	AmountUI         float64
	InstructionIndex int
	TransferType     string
}

// ParsedTransaction is the parser's normalized output.
type ParsedTransaction struct {
	Signature      string
	Slot           uint64
	BlockTime      *int64
	Fee            uint64
	Success        bool
	ErrorText      string
	SolTransfers   []SolTransfer
	TokenTransfers []TokenTransfer
}

// Parse extracts transfers from tx. A structurally malformed tx yields a
// parse_error; a tx with no extractable transfers is a valid, empty
// result.
func Parse(signature string, tx *rpctypes.TransactionResult) (*ParsedTransaction, error) {
	if tx == nil {
		return nil, sidewallet.ParseError("nil transaction result", nil)
	}
	if len(tx.Transaction.Signatures) == 0 {
		return nil, sidewallet.ParseError("transaction has no signatures", nil)
	}
	keys := tx.Transaction.Message.AccountKeys
	if len(keys) == 0 {
		return nil, sidewallet.ParseError("transaction has no account keys", nil)
	}

	out := &ParsedTransaction{
		Signature: signature,
		Slot:      tx.Slot,
		BlockTime: tx.BlockTime,
		Fee:       tx.Meta.Fee,
		Success:   tx.Meta.Err == nil,
	}
	if tx.Meta.Err != nil {
		out.ErrorText = fmt.Sprintf("%v", tx.Meta.Err)
	}

	instructionSOL := extractInstructionSOLTransfers(tx)
	touched := make(map[string]bool, len(instructionSOL)*2)
	for _, t := range instructionSOL {
		touched[t.From] = true
		touched[t.To] = true
	}

	balanceSOL := extractBalanceDeltaSOLTransfers(tx, keys, touched)

	out.SolTransfers = append(out.SolTransfers, instructionSOL...)
	out.SolTransfers = append(out.SolTransfers, balanceSOL...)

	out.TokenTransfers = extractTokenTransfers(tx, keys)

	return out, nil
}

// extractInstructionSOLTransfers finds top-level System Program transfer
// instructions decoded by jsonParsed encoding.
func extractInstructionSOLTransfers(tx *rpctypes.TransactionResult) []SolTransfer {
	var out []SolTransfer
	for i, ix := range tx.Transaction.Message.Instructions {
		if ix.Program != "system" || ix.Parsed == nil || ix.Parsed.Type != "transfer" {
			continue
		}
		info := ix.Parsed.Info
		if info == nil || info.Source == "" || info.Destination == "" {
			continue
		}
		out = append(out, SolTransfer{
			From:             info.Source,
			To:               info.Destination,
			AmountLamports:   int64(info.Lamports),
			AmountSOL:        lamportsToSOL(int64(info.Lamports)),
			InstructionIndex: i,
			TransferType:     "instruction",
		})
	}
	return out
}

// extractBalanceDeltaSOLTransfers pairs negative and positive SOL-balance
// deltas on writable accounts, excluding the fee-payer's fee portion and
// any account already covered by an instruction-level transfer.
func extractBalanceDeltaSOLTransfers(tx *rpctypes.TransactionResult, keys []rpctypes.AccountKeyInfo, touched map[string]bool) []SolTransfer {
	pre, post := tx.Meta.PreBalances, tx.Meta.PostBalances
	n := len(keys)
	if len(pre) < n || len(post) < n {
		return nil
	}

	type delta struct {
		addr  string
		index int
		d     int64
	}
	var senders, receivers []delta
	for i := 0; i < n; i++ {
		if !keys[i].Writable {
			continue
		}
		addr := keys[i].Pubkey
		if touched[addr] {
			continue
		}
		d := int64(post[i]) - int64(pre[i])
		if i == 0 {
			// fee payer: the fee itself is not a transfer
			d += int64(tx.Meta.Fee)
		}
		if d == 0 {
			continue
		}
		if d < 0 {
			senders = append(senders, delta{addr, i, -d})
		} else {
			receivers = append(receivers, delta{addr, i, d})
		}
	}
	sort.Slice(senders, func(i, j int) bool { return senders[i].index < senders[j].index })
	sort.Slice(receivers, func(i, j int) bool { return receivers[i].index < receivers[j].index })

	var out []SolTransfer
	si, ri := 0, 0
	for si < len(senders) && ri < len(receivers) {
		s, r := senders[si], receivers[ri]
		amt := s.d
		if r.d < amt {
			amt = r.d
		}
		out = append(out, SolTransfer{
			From:             s.addr,
			To:               r.addr,
			AmountLamports:   amt,
			AmountSOL:        lamportsToSOL(amt),
			InstructionIndex: -1,
			TransferType:     "balance_delta",
		})
		senders[si].d -= amt
		receivers[ri].d -= amt
		if senders[si].d == 0 {
			si++
		}
		if receivers[ri].d == 0 {
			ri++
		}
	}
	return out
}

type tokenLeg struct {
	owner     string
	account   string
	amount    int64
	decimals  int32
}

// extractTokenTransfers diffs pre/post token balances per mint, pairing
// owners whose balance decreased against owners whose balance increased.
func extractTokenTransfers(tx *rpctypes.TransactionResult, keys []rpctypes.AccountKeyInfo) []TokenTransfer {
	preByMint := indexTokenBalances(tx.Meta.PreTokenBalances, keys)
	postByMint := indexTokenBalances(tx.Meta.PostTokenBalances, keys)

	mints := make(map[string]bool)
	for m := range preByMint {
		mints[m] = true
	}
	for m := range postByMint {
		mints[m] = true
	}
	sortedMints := make([]string, 0, len(mints))
	for m := range mints {
		sortedMints = append(sortedMints, m)
	}
	sort.Strings(sortedMints)

	var out []TokenTransfer
	for _, mint := range sortedMints {
		pre := preByMint[mint]
		post := postByMint[mint]

		owners := make(map[string]bool)
		for o := range pre {
			owners[o] = true
		}
		for o := range post {
			owners[o] = true
		}

		var senders, receivers []tokenLeg
		for owner := range owners {
			preLeg, hadPre := pre[owner]
			postLeg, hadPost := post[owner]
			var preAmt, postAmt int64
			var decimals int32
			var account string
			if hadPre {
				preAmt = preLeg.amount
				decimals = preLeg.decimals
				account = preLeg.account
			}
			if hadPost {
				postAmt = postLeg.amount
				decimals = postLeg.decimals
				account = postLeg.account
			}
			d := postAmt - preAmt
			if d == 0 {
				continue
			}
			if d < 0 {
				senders = append(senders, tokenLeg{owner, account, -d, decimals})
			} else {
				receivers = append(receivers, tokenLeg{owner, account, d, decimals})
			}
		}
		sort.Slice(senders, func(i, j int) bool { return senders[i].owner < senders[j].owner })
		sort.Slice(receivers, func(i, j int) bool { return receivers[i].owner < receivers[j].owner })

		si, ri := 0, 0
		for si < len(senders) && ri < len(receivers) {
			s, r := senders[si], receivers[ri]
			amt := s.amount
			if r.amount < amt {
				amt = r.amount
			}
			decimals := s.decimals
			if decimals == 0 {
				decimals = r.decimals
			}
			out = append(out, TokenTransfer{
				Mint:             mint,
				FromOwner:        s.owner,
				ToOwner:          r.owner,
				FromTokenAccount: s.account,
				ToTokenAccount:   r.account,
				Amount:           amt,
				Decimals:         decimals,
				AmountUI:         uiAmount(amt, decimals),
				InstructionIndex: -1,
				TransferType:     "balance_delta",
			})
			senders[si].amount -= amt
			receivers[ri].amount -= amt
			if senders[si].amount == 0 {
				si++
			}
			if receivers[ri].amount == 0 {
				ri++
			}
		}
	}
	return out
}

func indexTokenBalances(balances []rpctypes.TokenBalance, keys []rpctypes.AccountKeyInfo) map[string]map[string]tokenLeg {
	out := make(map[string]map[string]tokenLeg)
	for _, b := range balances {
		if b.Owner == "" || b.Owner == "unknown" {
			continue
		}
		amt, err := strconv.ParseInt(b.UITokenAmount.Amount, 10, 64)
		if err != nil {
			continue
		}
		account := ""
		if b.AccountIndex >= 0 && b.AccountIndex < len(keys) {
			account = keys[b.AccountIndex].Pubkey
		}
		if out[b.Mint] == nil {
			out[b.Mint] = make(map[string]tokenLeg)
		}
		out[b.Mint][b.Owner] = tokenLeg{
			owner:    b.Owner,
			account:  account,
			amount:   amt,
			decimals: int32(b.UITokenAmount.Decimals),
		}
	}
	return out
}

func uiAmount(amount int64, decimals int32) float64 {
	d := decimal.NewFromInt(amount).Shift(-decimals)
	f, _ := d.Float64()
	return f
}

// ToEvents assigns deterministic event indices: SOL transfers first, then
// token transfers, in the parser's traversal order.
func (p *ParsedTransaction) ToEvents() []sidewallet.TransferEvent {
	events := make([]sidewallet.TransferEvent, 0, len(p.SolTransfers)+len(p.TokenTransfers))
	idx := int32(0)
	for _, t := range p.SolTransfers {
		events = append(events, sidewallet.TransferEvent{
			Signature:    p.Signature,
			EventIndex:   idx,
			Slot:         p.Slot,
			BlockTime:    p.BlockTime,
			Kind:         sidewallet.TransferSOL,
			TransferType: t.TransferType,
			From:         t.From,
			To:           t.To,
			AmountSOL:    t.AmountSOL,
		})
		idx++
	}
	for _, t := range p.TokenTransfers {
		events = append(events, sidewallet.TransferEvent{
			Signature:        p.Signature,
			EventIndex:       idx,
			Slot:             p.Slot,
			BlockTime:        p.BlockTime,
			Kind:             sidewallet.TransferToken,
			TransferType:     t.TransferType,
			From:             t.FromOwner,
			To:               t.ToOwner,
			Mint:             t.Mint,
			TokenAmount:      t.Amount,
			TokenDecimals:    t.Decimals,
			TokenAmountUI:    t.AmountUI,
			FromTokenAccount: t.FromTokenAccount,
			ToTokenAccount:   t.ToTokenAccount,
		})
		idx++
	}
	return events
}
