package domain

// PriceSample is one external reference-asset quote from a price provider.
// Sequences are ordered ascending by timestamp; spacing may be irregular
// and duplicate timestamps are possible.
type PriceSample struct {
	Timestamp int64   // Unix seconds
	Price     float64 // quote in the vs-currency (USD)
}
