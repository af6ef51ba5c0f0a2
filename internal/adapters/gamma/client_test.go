package gamma

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polytrader/internal/ports"
)

type mockLogger struct{}

func (mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		BaseURL:   server.URL,
		Attempts:  3,
		BaseDelay: time.Millisecond,
		Logger:    mockLogger{},
	})
	require.NoError(t, err)
	return client, server
}

const marketsPayload = `[
	{"id": "101", "question": "Bitcoin Up or Down - June 1, 4h?", "outcomePrices": "[\"0.45\", \"0.55\"]", "volume": "125000.5"},
	{"id": "102", "question": "Ethereum Up or Down - June 1, 4h?", "outcomePrices": "[\"0.30\", \"0.70\"]", "volume": "80000"},
	{"id": "103", "question": "Broken market", "outcomePrices": "not-json", "volume": "10"}
]`

func TestMarketsParsesPayload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		assert.Equal(t, "false", r.URL.Query().Get("closed"))
		w.Write([]byte(marketsPayload))
	}))

	markets, err := client.Markets(context.Background())
	require.NoError(t, err)
	// The market with unparseable prices is dropped, not fatal.
	require.Len(t, markets, 2)

	assert.Equal(t, "101", markets[0].ID)
	assert.Equal(t, 0.45, markets[0].YesPrice)
	assert.Equal(t, 125000.5, markets[0].Volume)
	assert.Equal(t, "102", markets[1].ID)
	assert.Equal(t, 0.30, markets[1].YesPrice)
}

func TestCurrentPrice(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/101", r.URL.Path)
		w.Write([]byte(`{"id": "101", "question": "Bitcoin 4h", "outcomePrices": "[\"0.62\", \"0.38\"]", "volume": "1"}`))
	}))

	price, err := client.CurrentPrice(context.Background(), "101")
	require.NoError(t, err)
	assert.Equal(t, 0.62, price)
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[]`))
	}))

	_, err := client.Markets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExhaustedRetriesReturnDataUnavailable(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.Markets(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrDataUnavailable)
	assert.Equal(t, 3, calls, "attempt budget is bounded")
}

func TestCurrentPriceRejectsOutOfRange(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "101", "outcomePrices": "[\"1.7\"]", "volume": "1"}`))
	}))

	_, err := client.CurrentPrice(context.Background(), "101")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrDataUnavailable)
}
