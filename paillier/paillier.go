// Package paillier wraps the threshold Paillier implementation of
// github.com/niclabs/tcpaillier with the operations needed to evaluate linear
// functions over encrypted integers.
package paillier

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/niclabs/tcpaillier"
)

var (
	// ErrVectorLength is returned when two vectors combined element-wise differ in length.
	ErrVectorLength = errors.New("paillier: vector length mismatch")
	// ErrNotEnoughShares is returned when fewer key shares than the threshold are combined.
	ErrNotEnoughShares = errors.New("paillier: not enough decryption shares")
)

// Scheme holds the key generation parameters. Plaintexts live in Z_N for a
// modulus N of BitSize bits. The private key is split into Shares key shares, any
// Threshold of which decrypt.
//
// tcpaillier combines decryption shares mod N only, so keys are always generated
// with the Damgård-Jurik exponent s = 1.
type Scheme struct {
	BitSize   int
	Shares    uint8
	Threshold uint8
}

// DefaultScheme is a 2048-bit Paillier key held as two shares by a single trusted party.
var DefaultScheme = Scheme{BitSize: 2048, Shares: 2, Threshold: 2}

// KeyPair binds a public key to the key shares of the matching private key.
type KeyPair struct {
	Public  *PublicKey
	Private *PrivateKey
}

// GenerateKeyPair runs the trusted dealer and returns a fresh key pair.
func (sc Scheme) GenerateKeyPair() (kp *KeyPair, err error) {
	if sc.Threshold == 0 || sc.Threshold > sc.Shares {
		return nil, fmt.Errorf("paillier: invalid threshold %d for %d shares", sc.Threshold, sc.Shares)
	}
	tcsks, tcpk, err := tcpaillier.NewKey(sc.BitSize, 1, sc.Shares, sc.Threshold)
	if err != nil {
		return nil, fmt.Errorf("paillier: key generation: %w", err)
	}
	pk := newPublicKey(tcpk)
	shares := make([]KeyShare, len(tcsks))
	for i, tcsk := range tcsks {
		shares[i] = KeyShare{tcsk}
	}
	kp = &KeyPair{
		Public:  pk,
		Private: &PrivateKey{pk: pk, shares: shares, threshold: int(sc.Threshold)},
	}
	return
}

// PublicKey is the public part of a key pair. It is read-only after generation and
// safe for concurrent use.
type PublicKey struct {
	*tcpaillier.PubKey
	nSquared *big.Int // size of ciphertext space
}

func newPublicKey(pk *tcpaillier.PubKey) *PublicKey {
	return &PublicKey{
		PubKey:   pk,
		nSquared: new(big.Int).Mul(pk.N, pk.N),
	}
}

// PlaintextModulus returns N.
func (pk *PublicKey) PlaintextModulus() *big.Int {
	return new(big.Int).Set(pk.N)
}

// CiphertextModulus returns N^2.
func (pk *PublicKey) CiphertextModulus() *big.Int {
	return new(big.Int).Set(pk.nSquared)
}

// CiphertextBitSize is the number of bits needed to transmit one ciphertext.
func (pk *PublicKey) CiphertextBitSize() int {
	return pk.nSquared.BitLen()
}

// Encrypt encrypts plaintext, which is reduced into [0, N).
func (pk *PublicKey) Encrypt(plaintext *big.Int) (ciphertext *big.Int, err error) {
	ciphertext, _, err = pk.PubKey.Encrypt(pk.reduce(plaintext))
	return
}

// Add returns an encryption of the sum of the plaintexts of terms.
func (pk *PublicKey) Add(terms ...*big.Int) (sum *big.Int, err error) {
	return pk.PubKey.Add(terms...)
}

// ScalarMultiply returns an encryption of k times the plaintext of ciphertext.
// Negative scalars are taken mod N. The result is not re-randomized; callers
// publishing it should add a fresh encryption (see AddPlain).
func (pk *PublicKey) ScalarMultiply(ciphertext, k *big.Int) (*big.Int, error) {
	if ciphertext.Sign() <= 0 || ciphertext.Cmp(pk.nSquared) >= 0 {
		return nil, fmt.Errorf("paillier: ciphertext out of range")
	}
	return new(big.Int).Exp(ciphertext, pk.reduce(k), pk.nSquared), nil
}

// AddPlain returns an encryption of plaintext(ciphertext) + m. The plaintext m is
// freshly encrypted, which also re-randomizes the result.
func (pk *PublicKey) AddPlain(ciphertext, m *big.Int) (*big.Int, error) {
	enc, err := pk.Encrypt(m)
	if err != nil {
		return nil, err
	}
	return pk.Add(ciphertext, enc)
}

func (pk *PublicKey) reduce(m *big.Int) *big.Int {
	return new(big.Int).Mod(m, pk.N)
}

// KeyShare is one share of a private key.
type KeyShare struct {
	*tcpaillier.KeyShare
}

// PartialDecrypt computes this share's contribution to the decryption of ciphertext.
func (ks KeyShare) PartialDecrypt(ciphertext *big.Int) (*DecryptionShare, error) {
	ds, err := ks.KeyShare.PartialDecrypt(ciphertext)
	if err != nil {
		return nil, err
	}
	return &DecryptionShare{ds}, nil
}

// DecryptionShare is a partial decryption produced by a KeyShare.
type DecryptionShare struct {
	*tcpaillier.DecryptionShare
}

// CombineShares recovers the plaintext from at least threshold decryption shares.
func (pk *PublicKey) CombineShares(parts ...*DecryptionShare) (*big.Int, error) {
	casted := make([]*tcpaillier.DecryptionShare, len(parts))
	for i, p := range parts {
		casted[i] = p.DecryptionShare
	}
	return pk.PubKey.CombineShares(casted...)
}

// PrivateKey holds all key shares of a key pair.
type PrivateKey struct {
	pk        *PublicKey
	shares    []KeyShare
	threshold int
}

// PublicKey returns the matching public key.
func (sk *PrivateKey) PublicKey() *PublicKey {
	return sk.pk
}

// Threshold returns the number of shares needed to decrypt.
func (sk *PrivateKey) Threshold() int {
	return sk.threshold
}

// Shares returns the key shares, e.g. to distribute them among decryptors.
func (sk *PrivateKey) Shares() []KeyShare {
	return sk.shares
}

// Decrypt decrypts ciphertext using the first threshold shares.
func (sk *PrivateKey) Decrypt(ciphertext *big.Int) (*big.Int, error) {
	if len(sk.shares) < sk.threshold {
		return nil, ErrNotEnoughShares
	}
	parts := make([]*DecryptionShare, sk.threshold)
	for i := range parts {
		part, err := sk.shares[i].PartialDecrypt(ciphertext)
		if err != nil {
			return nil, fmt.Errorf("paillier: partial decryption: %w", err)
		}
		parts[i] = part
	}
	return sk.pk.CombineShares(parts...)
}
