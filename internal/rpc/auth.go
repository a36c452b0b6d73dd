package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/LeJamon/goMarketd/internal/core/account"
	"github.com/LeJamon/goMarketd/internal/crypto"
)

// authenticate resolves the caller of a RoleSigned method and returns the
// compacted tx the handler runs on. The tx sequence is spent once the
// signature verifies, whatever the outcome of the call.
func (s *Server) authenticate(ctx context.Context, method string, params json.RawMessage) (account.Address, json.RawMessage, *RpcError) {
	var signed SignedParams
	if rpcErr := decodeParams(params, &signed); rpcErr != nil {
		return account.Address{}, nil, rpcErr
	}
	if len(bytes.TrimSpace(signed.Tx)) == 0 {
		return account.Address{}, nil, RpcErrorMissingField("tx")
	}

	var tx bytes.Buffer
	if err := json.Compact(&tx, signed.Tx); err != nil {
		return account.Address{}, nil, RpcErrorInvalidField("tx")
	}

	var claimed struct {
		Account  *account.Address `json:"account"`
		Sequence *uint64          `json:"sequence"`
	}
	if err := json.Unmarshal(tx.Bytes(), &claimed); err != nil {
		return account.Address{}, nil, RpcErrorInvalidParams("Invalid field 'tx': " + err.Error())
	}

	if signed.PublicKey == "" && s.services.SkipSignatureVerification {
		if claimed.Account == nil || claimed.Account.IsZero() {
			return account.Address{}, nil, RpcErrorMissingField("tx.account")
		}
		if claimed.Sequence != nil {
			if rpcErr := s.spendSequence(ctx, *claimed.Account, *claimed.Sequence); rpcErr != nil {
				return account.Address{}, nil, rpcErr
			}
		}
		return *claimed.Account, tx.Bytes(), nil
	}

	if signed.PublicKey == "" {
		return account.Address{}, nil, RpcErrorMissingField("public_key")
	}
	if signed.Signature == "" {
		return account.Address{}, nil, RpcErrorMissingField("signature")
	}
	pub, err := hex.DecodeString(signed.PublicKey)
	if err != nil {
		return account.Address{}, nil, RpcErrorPublicMalformed()
	}
	sig, err := hex.DecodeString(signed.Signature)
	if err != nil {
		return account.Address{}, nil, RpcErrorBadSignature("Signature is not hex.")
	}

	caller, err := crypto.VerifyRequest(method, tx.Bytes(), pub, sig)
	switch {
	case errors.Is(err, crypto.ErrInvalidPublicKey):
		return account.Address{}, nil, RpcErrorPublicMalformed()
	case err != nil:
		return account.Address{}, nil, RpcErrorBadSignature("Signature verification failed.")
	}

	if claimed.Account != nil && *claimed.Account != caller {
		return account.Address{}, nil, RpcErrorBadSignature("Account does not match the signing key.")
	}
	if claimed.Sequence == nil {
		return account.Address{}, nil, RpcErrorMissingField("tx.sequence")
	}
	if rpcErr := s.spendSequence(ctx, caller, *claimed.Sequence); rpcErr != nil {
		return account.Address{}, nil, rpcErr
	}
	return caller, tx.Bytes(), nil
}

func (s *Server) spendSequence(ctx context.Context, caller account.Address, seq uint64) *RpcError {
	ok, err := s.sequences.AcceptSequence(ctx, caller, seq)
	if err != nil {
		return RpcErrorInternal(err.Error())
	}
	if ok {
		return nil
	}
	last, err := s.sequences.LastSequence(ctx, caller)
	if err != nil {
		return RpcErrorInternal(err.Error())
	}
	return RpcErrorBadSequence(last)
}

// SignParams builds the signed envelope for method over tx with the given
// sequence. A sequence already present in tx is replaced.
func SignParams(key *crypto.KeyPair, method string, sequence uint64, tx interface{}) (SignedParams, error) {
	fields, err := txFields(tx)
	if err != nil {
		return SignedParams{}, err
	}
	fields["sequence"] = json.RawMessage(strconv.FormatUint(sequence, 10))
	raw, err := json.Marshal(fields)
	if err != nil {
		return SignedParams{}, err
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return SignedParams{}, err
	}
	return SignedParams{
		Tx:        compact.Bytes(),
		PublicKey: key.PublicKeyHex(),
		Signature: hex.EncodeToString(key.SignRequest(method, compact.Bytes())),
	}, nil
}

// txFields flattens tx into its top-level JSON fields.
func txFields(tx interface{}) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("tx must be a JSON object: %w", err)
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}
	return fields, nil
}
