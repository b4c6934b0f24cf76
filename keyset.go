package cfhe

import (
	"fmt"
	"math/big"

	"github.com/ontanj/cfhe/lwe"
	"github.com/ontanj/cfhe/paillier"
)

// CompressionKey holds the Paillier encryptions of the LWE secret coefficients,
// switched into Z_q. It reveals nothing about the secret to whoever lacks the
// Paillier private key.
type CompressionKey struct {
	PublicKey *paillier.PublicKey
	Value     []*big.Int
	Q         uint64
}

// Len returns the LWE dimension the key was generated for.
func (ck *CompressionKey) Len() int {
	return len(ck.Value)
}

// NewCompressionKey encrypts the coefficients of sk, switched into Z_q, under pk.
func NewCompressionKey(pk *paillier.PublicKey, sk *lwe.SecretKey, q uint64) (*CompressionKey, error) {
	switched := sk.SwitchModulus(q)
	values := make([]*big.Int, len(switched))
	for i, s := range switched {
		values[i] = new(big.Int).SetUint64(s)
	}
	enc, err := pk.EncryptVector(values)
	if err != nil {
		return nil, fmt.Errorf("cfhe: encrypting secret key: %w", err)
	}
	return &CompressionKey{PublicKey: pk, Value: enc, Q: q}, nil
}

// KeySet is an LWE secret key, a Paillier key pair and the compression key
// binding them.
type KeySet struct {
	LWE            *lwe.SecretKey
	Paillier       *paillier.KeyPair
	CompressionKey *CompressionKey
}

// Public returns the part of ks that can be handed to an evaluator.
func (ks *KeySet) Public() *CompressionKey {
	return ks.CompressionKey
}

// GenerateKeySet generates an LWE secret key and a Paillier key pair and binds
// them with a compression key.
func (e *CompressedEngine) GenerateKeySet() (*KeySet, error) {
	params := e.lwe.Parameters()
	q, p := params.Q(), e.lwe.MaxPlaintextSpace()
	if err := validatePlaintext(q, p); err != nil {
		return nil, err
	}

	sk, err := e.lwe.KeyGen()
	if err != nil {
		return nil, fmt.Errorf("cfhe: LWE key generation: %w", err)
	}
	kp, err := e.paillier.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("cfhe: Paillier key generation: %w", err)
	}
	if err = validateModuli(kp.Public.PlaintextModulus(), sk.N(), q, p); err != nil {
		return nil, err
	}
	ck, err := NewCompressionKey(kp.Public, sk, q)
	if err != nil {
		return nil, err
	}
	return &KeySet{LWE: sk, Paillier: kp, CompressionKey: ck}, nil
}

// BTKeyGen installs the gate and lookup-table evaluation key of ks in the LWE
// engine.
func (e *CompressedEngine) BTKeyGen(ks *KeySet) error {
	if err := e.lwe.BTKeyGen(ks.LWE); err != nil {
		return fmt.Errorf("cfhe: evaluation key generation: %w", err)
	}
	return nil
}

// validatePlaintext checks that the rounding offset q/(2p) is exact.
func validatePlaintext(q, p uint64) error {
	if p == 0 || q%(2*p) != 0 {
		return fmt.Errorf("%w: q=%d is not a multiple of 2p=%d", ErrInvalidParameters, q, 2*p)
	}
	return nil
}

// validateModuli checks the plaintext encoding and that the inner product of k
// coefficients of Z_q plus b cannot wrap around n.
func validateModuli(n *big.Int, k int, q, p uint64) error {
	if err := validatePlaintext(q, p); err != nil {
		return err
	}
	qm1 := new(big.Int).SetUint64(q - 1)
	bound := new(big.Int).Mul(qm1, qm1)
	bound.Mul(bound, big.NewInt(int64(k)))
	bound.Add(bound, new(big.Int).SetUint64(q))
	if n.Cmp(bound) <= 0 {
		return fmt.Errorf("%w: Paillier plaintext modulus of %d bits too small for k=%d, q=%d", ErrInvalidParameters, n.BitLen(), k, q)
	}
	return nil
}
