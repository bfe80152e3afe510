package wallet

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/ripemd160"
)

const (
	checksumLength = 4
	version        = byte(0x00)
	pubKeyHashLen  = ripemd160.Size
	addressLen     = 1 + pubKeyHashLen + checksumLength
)

// ErrInvalidAddress is returned for addresses that fail base58check decoding.
var ErrInvalidAddress = errors.New("invalid address")

// Address identifies a signer or a record on the ledger. It is the base58check
// encoding of version + RIPEMD160(SHA256(pubkey)) + checksum.
type Address string

// String function
func (a Address) String() string { return string(a) }

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool { return a == "" }

// Validate checks encoding, version byte and checksum.
func (a Address) Validate() error {
	_, err := a.PubKeyHash()
	return err
}

// PubKeyHash returns the 20 byte public key hash the address was built from.
func (a Address) PubKeyHash() ([]byte, error) {
	if a.IsZero() {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	full, err := Base58Decode([]byte(a))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(full) != addressLen {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidAddress, len(full))
	}
	if full[0] != version {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidAddress, full[0])
	}
	versionedHash := full[:len(full)-checksumLength]
	if !bytes.Equal(Checksum(versionedHash), full[len(full)-checksumLength:]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}
	return versionedHash[1:], nil
}

// Wallet struct
type Wallet struct {
	PrivateKey ecdsa.PrivateKey // Elliptic Curve Digital Signature Algorithm
	PublicKey  []byte
}

// Address function
func (w Wallet) Address() Address {
	return AddressFromPublicKey(w.PublicKey)
}

// AddressFromPublicKey derives the address of any public key, including the
// ed25519 keys peers present on the network.
func AddressFromPublicKey(pub []byte) Address {
	pubHash := PublicKeyHash(pub)

	versionedHash := append([]byte{version}, pubHash...)
	checksum := Checksum(versionedHash)

	fullHash := append(versionedHash, checksum...)

	return Address(Base58Encode(fullHash))
}

// NewKeyPair function
func NewKeyPair() (ecdsa.PrivateKey, []byte, error) {
	curve := elliptic.P256()

	private, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return ecdsa.PrivateKey{}, nil, err
	}

	pub := append(private.PublicKey.X.Bytes(), private.PublicKey.Y.Bytes()...)
	return *private, pub, nil
}

// MakeWallet function
func MakeWallet() (*Wallet, error) {
	private, public, err := NewKeyPair()
	if err != nil {
		return nil, err
	}

	return &Wallet{private, public}, nil
}

// NewAddress returns the address of a throwaway keypair. Records are allocated
// at fresh addresses the same way accounts are on the chain.
func NewAddress() (Address, error) {
	w, err := MakeWallet()
	if err != nil {
		return "", err
	}
	return w.Address(), nil
}

// PublicKeyHash function
func PublicKeyHash(pubKey []byte) []byte {
	pubHash := sha256.Sum256(pubKey)

	hasher := ripemd160.New()
	// hash.Hash writes never fail
	_, _ = hasher.Write(pubHash[:])

	return hasher.Sum(nil)
}

// Checksum function
func Checksum(payload []byte) []byte {
	firstHash := sha256.Sum256(payload)
	secondHash := sha256.Sum256(firstHash[:])

	return secondHash[:checksumLength]
}
