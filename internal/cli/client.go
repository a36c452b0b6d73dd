package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"

	"github.com/LeJamon/goMarketd/internal/config"
	"github.com/LeJamon/goMarketd/internal/core/account"
	"github.com/LeJamon/goMarketd/internal/crypto"
	"github.com/LeJamon/goMarketd/internal/rpc"
	"github.com/spf13/cobra"
)

// keyEnv holds the signing key when --key is not given.
const keyEnv = "MARKETD_KEY"

var errNoKey = errors.New("signing key required: pass --key or set " + keyEnv)

// newClient returns a client for --url. signed clients carry the key from
// --key or $MARKETD_KEY.
func newClient(signed bool) (*rpc.Client, error) {
	if !signed {
		return rpc.NewClient(rpcURL, callTimeout, nil), nil
	}
	hex := keyHex
	if hex == "" {
		hex = os.Getenv(keyEnv)
	}
	if hex == "" {
		return nil, errNoKey
	}
	key, err := crypto.ParsePrivateKey(hex)
	if err != nil {
		return nil, fmt.Errorf("parse key: %w", err)
	}
	return rpc.NewClient(rpcURL, callTimeout, key), nil
}

// call runs a guest method and prints the result.
func call(cmd *cobra.Command, method string, params interface{}) error {
	client, err := newClient(false)
	if err != nil {
		return err
	}
	var out json.RawMessage
	if err := client.Call(callContext(cmd), method, params, &out); err != nil {
		return err
	}
	return printResult(cmd, out)
}

// callSigned signs tx for method and prints the result.
func callSigned(cmd *cobra.Command, method string, tx interface{}) error {
	client, err := newClient(true)
	if err != nil {
		return err
	}
	var out json.RawMessage
	if err := client.CallSigned(callContext(cmd), method, tx, &out); err != nil {
		return err
	}
	return printResult(cmd, out)
}

func callContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printResult(cmd *cobra.Command, result json.RawMessage) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), string(result))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
	return nil
}

func parseOfferID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid offer id %q", s)
	}
	return id, nil
}

func parseAddress(s string) (account.Address, error) {
	a, err := account.Parse(s)
	if err != nil {
		return account.Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return a, nil
}

// parseInt parses a raw base-10 integer such as a token id or unit count.
func parseInt(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q", field, s)
	}
	return v, nil
}

// parseUnits parses a decimal amount scaled by --decimals.
func parseUnits(field, s string) (*big.Int, error) {
	v, err := config.ParseUnits(s, unitDecimals)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return v, nil
}
