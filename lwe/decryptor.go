package lwe

import (
	"fmt"
)

// Decryptor recovers messages from ciphertexts under a secret key.
type Decryptor struct {
	params Parameters
	sk     []uint64
}

// NewDecryptor returns a Decryptor for sk.
func NewDecryptor(params Parameters, sk *SecretKey) (*Decryptor, error) {
	if sk.N() != params.N() {
		return nil, fmt.Errorf("%w: secret of dimension %d, parameters of dimension %d", ErrDimensionMismatch, sk.N(), params.N())
	}
	return &Decryptor{params: params, sk: sk.SwitchModulus(params.Q())}, nil
}

// Phase returns b - <a, s> mod q.
func (dec *Decryptor) Phase(ct *Ciphertext) (uint64, error) {
	q := dec.params.Q()
	if ct.Q != q {
		return 0, fmt.Errorf("%w: ciphertext modulus %d, key modulus %d", ErrModulusMismatch, ct.Q, q)
	}
	if ct.N() != len(dec.sk) {
		return 0, fmt.Errorf("%w: ciphertext of dimension %d, key of dimension %d", ErrDimensionMismatch, ct.N(), len(dec.sk))
	}
	return (ct.B%q + q - innerProduct(ct.A, dec.sk, q)) % q, nil
}

// DecryptNew returns the message of Z_p closest to the phase of ct.
func (dec *Decryptor) DecryptNew(ct *Ciphertext) (uint64, error) {
	phase, err := dec.Phase(ct)
	if err != nil {
		return 0, err
	}
	return Decode(phase, dec.params.Q(), dec.params.P()), nil
}
