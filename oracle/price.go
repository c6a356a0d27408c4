// Package oracle defines the external price API capability shared by the
// process. The composition core does not depend on it; it is an independent
// collaborator used by fee accounting.
package oracle

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TokenPrice is a price-in-dollars observation for a token.
type TokenPrice struct {
	Token      common.Address
	USD        float64
	ObservedAt time.Time
}

// PriceFetcher is the capability contract for an external price source.
// Multiple concrete sources implement it interchangeably; callers depend on
// the interface only.
type PriceFetcher interface {
	// FetchPrice returns the price for the token address in dollars.
	FetchPrice(ctx context.Context, token common.Address) (TokenPrice, error)
}
