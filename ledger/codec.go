package ledger

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Records are stored as Core Deterministic CBOR, so the same record always
// encodes to the same bytes and journal hashes are reproducible.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("ledger: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("ledger: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to deterministic CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// ReadRecord reads and decodes the record under key.
func ReadRecord(txn Txn, key Key, v any) error {
	data, err := txn.Read(key)
	if err != nil {
		return err
	}
	if err := Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// AllocateRecord encodes v and allocates it under key.
func AllocateRecord(txn Txn, key Key, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Allocate(key, data)
}

// WriteRecord encodes v and overwrites the existing record under key.
func WriteRecord(txn Txn, key Key, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Write(key, data)
}
