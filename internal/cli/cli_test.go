package cli

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/LeJamon/goMarketd/internal/core/market"
	"github.com/LeJamon/goMarketd/internal/rpc"
	mtest "github.com/LeJamon/goMarketd/internal/testing"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// startDaemon serves a standalone marketplace and returns its url.
func startDaemon(t *testing.T) (*mtest.TestEnv, string) {
	t.Helper()

	env := mtest.NewTestEnv(t)
	server, err := rpc.NewServer(&rpc.Services{
		Engine:     env.Engine,
		Store:      env.Store,
		Oracle:     env.Oracle,
		Ledger:     env.Ledger,
		Standalone: true,
		Version:    "test",
	}, nil, rpc.Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		server.Close()
		ts.Close()
	})
	t.Setenv(keyEnv, "")
	t.Cleanup(func() { resetFlags(rootCmd) })
	return env, ts.URL
}

// resetFlags restores every flag of cmd and its children to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if s, ok := f.Value.(pflag.SliceValue); ok {
			_ = s.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func run(t *testing.T, args ...string) (map[string]interface{}, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result), out.String())
	return result, nil
}

func TestKeygen(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"keygen"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "address:     0x")
	assert.Contains(t, out.String(), "private key: ")
}

func TestListAndBuyThroughCLI(t *testing.T) {
	env, url := startDaemon(t)
	seller := env.Account("alice")
	buyer := env.Account("bob")
	items := mtest.ItemsContract.String()

	_, err := run(t, "--url", url, "ledger", "mint", seller.Address.String(), "5", "--contract", items, "--token-id", "7")
	require.NoError(t, err)
	_, err = run(t, "--url", url, "ledger", "operator", items, seller.Address.String())
	require.NoError(t, err)

	created, err := run(t, "--url", url, "--key", seller.Key.PrivateKeyHex(),
		"offer", "create", "--contract", items, "--token-id", "7", "--amount", "5", "--price", "30", "--ttl", "1h")
	require.NoError(t, err)
	offerID := uint64(created["offer_id"].(float64))
	id := strconv.FormatUint(offerID, 10)

	got, err := run(t, "--url", url, "offer", "get", id)
	require.NoError(t, err)
	offer := got["offer"].(map[string]interface{})
	assert.Equal(t, "ACTIVE", offer["status"])
	assert.Equal(t, "30000000000000000000", offer["price"])

	// 30 units of account at 3000 per ETH.
	quote, err := run(t, "--url", url, "offer", "quote", id, "--asset", "ETH")
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000", quote["required"])

	_, err = run(t, "--url", url, "ledger", "fund", buyer.Address.String(), "1")
	require.NoError(t, err)
	bought, err := run(t, "--url", url, "--key", buyer.Key.PrivateKeyHex(), "buy", "native", id, "--value", "0.02")
	require.NoError(t, err)
	receipt := bought["receipt"].(map[string]interface{})
	assert.Equal(t, "10000000000000000", receipt["refund"])

	assert.Equal(t, int64(5), env.ItemBalance(buyer, 7))

	listed, err := run(t, "--url", url, "offer", "list", "--status", "sold")
	require.NoError(t, err)
	require.Len(t, listed["offers"], 1)
	env.RequireStatus(offerID, market.StatusSold)
}

func TestCLIErrors(t *testing.T) {
	env, url := startDaemon(t)

	_, err := run(t, "--url", url, "fee", "set-rate", "5")
	assert.ErrorIs(t, err, errNoKey)

	stranger := env.Account("mallory")
	_, err = run(t, "--url", url, "--key", stranger.Key.PrivateKeyHex(), "fee", "set-rate", "5")
	var rpcErr *rpc.RpcError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "forbidden", rpcErr.Class)

	_, err = run(t, "--url", url, "offer", "get", "abc")
	assert.EqualError(t, err, `invalid offer id "abc"`)

	_, err = run(t, "--url", url, "offer", "quote", "--asset", "ETH")
	assert.EqualError(t, err, "an offer id or --price is required")

	_, err = run(t, "--url", url, "ledger", "mint", env.Owner.Address.String(), "1")
	assert.EqualError(t, err, "--asset or --contract is required")

	_, err = run(t, "--url", url, "ledger", "balances", env.Owner.Address.String(), "--item", "nocolon")
	assert.EqualError(t, err, `item "nocolon" must be <contract>:<token-id>`)
}

func TestOfferDeadline(t *testing.T) {
	t.Cleanup(func() { resetFlags(rootCmd) })
	resetFlags(rootCmd)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	d, err := offerDeadlineTime(now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(24*time.Hour), d)

	offerDeadline = "2026-03-01T12:00:00Z"
	d, err = offerDeadlineTime(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), d)

	offerDeadline = "tomorrow"
	_, err = offerDeadlineTime(now)
	assert.Error(t, err)

	offerDeadline = ""
	offerTTL = -time.Minute
	_, err = offerDeadlineTime(now)
	assert.EqualError(t, err, "ttl must be positive")
}
