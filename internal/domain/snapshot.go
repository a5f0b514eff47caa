package domain

// LedgerSnapshot captures the full engine state at a journal position so a
// restarted service can load it and replay only the events after Sequence.
// All amounts are decimal strings.
type LedgerSnapshot struct {
	Sequence    uint64              // journal position the snapshot reflects
	TakenAt     int64               // capture timestamp (ms)
	TotalSupply string              // current total supply
	MaxSupply   string              // immutable cap, stored for replay checks
	Balances    map[string]string   // address → balance, zero balances omitted
	Roles       map[string][]string // role → member addresses, sorted
	Whitelist   []string            // fee-exempt addresses, sorted
	Threshold   string              // fee waiver threshold
	Allowances  map[string]string   // "owner|spender" → remaining allowance
}
