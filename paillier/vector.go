package paillier

import (
	"fmt"
	"math/big"
)

// EncryptVector encrypts values element-wise.
func (pk *PublicKey) EncryptVector(values []*big.Int) (enc []*big.Int, err error) {
	enc = make([]*big.Int, len(values))
	for i, v := range values {
		if enc[i], err = pk.Encrypt(v); err != nil {
			return nil, err
		}
	}
	return
}

// DecryptVector decrypts ciphertexts element-wise.
func (sk *PrivateKey) DecryptVector(ciphertexts []*big.Int) (plain []*big.Int, err error) {
	plain = make([]*big.Int, len(ciphertexts))
	for i, c := range ciphertexts {
		if plain[i], err = sk.Decrypt(c); err != nil {
			return nil, err
		}
	}
	return
}

// InnerProduct returns an encryption of sum_i plain[i] * plaintext(encrypted[i]),
// i.e. the product of the plain row vector and the encrypted column vector.
func (pk *PublicKey) InnerProduct(plain, encrypted []*big.Int) (sum *big.Int, err error) {
	if len(plain) != len(encrypted) {
		return nil, fmt.Errorf("%w: %d plaintexts, %d ciphertexts", ErrVectorLength, len(plain), len(encrypted))
	}
	if len(plain) == 0 {
		return nil, fmt.Errorf("%w: empty vectors", ErrVectorLength)
	}
	sum, err = pk.ScalarMultiply(encrypted[0], plain[0])
	if err != nil {
		return
	}
	var r *big.Int
	for k := 1; k < len(plain); k++ {
		r, err = pk.ScalarMultiply(encrypted[k], plain[k])
		if err != nil {
			return
		}
		sum, err = pk.Add(sum, r)
		if err != nil {
			return
		}
	}
	return
}
