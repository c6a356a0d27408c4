package oracle

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/syncstack/follower/shared/testutil/assert"
	"github.com/syncstack/follower/shared/testutil/require"
)

func TestFixedSource_AlwaysReturnsForcedPrice(t *testing.T) {
	src := NewFixedSource(1.5)
	for _, token := range []common.Address{{}, common.HexToAddress("0x01")} {
		price, err := src.FetchPrice(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, 1.5, price.USD)
		assert.Equal(t, token, price.Token)
	}
}

func TestMarketClient_FetchesAndCaches(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"usd": 2100.25}`)
	}))
	defer srv.Close()

	client := NewMarketClient(srv.URL, "")
	token := common.HexToAddress("0xabc")

	price, err := client.FetchPrice(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, 2100.25, price.USD)

	// Second lookup is served from the cache.
	_, err = client.FetchPrice(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestMarketClient_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewMarketClient(srv.URL, "")
	_, err := client.FetchPrice(context.Background(), common.HexToAddress("0xabc"))
	require.ErrorContains(t, "price provider returned status 502", err)
}
