package harness

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/routerfuzz/fuzzinput"
)

// fuzzChainSource answers UTXO lookups from the same input stream that
// drives the rest of the run, so the oracle's behavior is reproducible from
// the input bytes alone. Each lookup consumes exactly two bytes: the first
// selects a failure mode or success, the second parameterizes the synthetic
// output script.
type fuzzChainSource struct {
	input *fuzzinput.Data
}

// A compile time check to ensure fuzzChainSource implements the ChainSource
// interface.
var _ ChainSource = (*fuzzChainSource)(nil)

// GetUtxo consumes the next two input bytes and turns them into a lookup
// result: a leading 0 is an unknown chain, a leading 1 an unknown
// transaction, anything else a zero-value output whose script commits to the
// second byte. Exhausted input degrades to an unknown transaction rather
// than stopping the run, since the graph treats a failed lookup as a plain
// rejection anyway.
//
// This is part of the ChainSource interface.
func (f *fuzzChainSource) GetUtxo(_ *chainhash.Hash,
	_ uint64) (*wire.TxOut, error) {

	b, ok := f.input.Next(2)
	if !ok {
		return nil, ErrUnknownTx
	}

	switch b[0] {
	case 0:
		return nil, ErrUnknownChain
	case 1:
		return nil, ErrUnknownTx
	}

	script, err := txscript.NewScriptBuilder().
		AddInt64(int64(b[1])).
		Script()
	if err != nil {
		return nil, ErrUnknownTx
	}

	pkScript, err := WitnessScriptHash(script)
	if err != nil {
		return nil, ErrUnknownTx
	}

	return &wire.TxOut{
		Value:    0,
		PkScript: pkScript,
	}, nil
}

// WitnessScriptHash generates a pay-to-witness-script-hash public key script
// paying to the passed redeem script.
func WitnessScriptHash(witnessScript []byte) ([]byte, error) {
	scriptHash := sha256.Sum256(witnessScript)

	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(scriptHash[:]).
		Script()
}
