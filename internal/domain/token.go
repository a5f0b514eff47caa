package domain

// TokenInfo holds the immutable token metadata fixed at construction.
type TokenInfo struct {
	Name     string // human-readable token name
	Symbol   string // ticker symbol
	Decimals int    // display precision; amounts are always base units
}
