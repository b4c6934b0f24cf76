package lwe

import (
	"math/bits"
)

// Ciphertext is an LWE sample (A, B) with B - <A, s> = Δm + e mod Q.
type Ciphertext struct {
	A []uint64
	B uint64
	Q uint64
}

// NewCiphertext allocates a zero ciphertext of dimension n modulo q.
func NewCiphertext(n int, q uint64) *Ciphertext {
	return &Ciphertext{A: make([]uint64, n), Q: q}
}

// N returns the dimension of the mask A.
func (ct *Ciphertext) N() int {
	return len(ct.A)
}

// CopyNew returns a deep copy of ct.
func (ct *Ciphertext) CopyNew() *Ciphertext {
	a := make([]uint64, len(ct.A))
	copy(a, ct.A)
	return &Ciphertext{A: a, B: ct.B, Q: ct.Q}
}

// BitSize is the number of bits needed to transmit ct: n+1 elements of Z_q.
func (ct *Ciphertext) BitSize() int {
	return (len(ct.A) + 1) * bits.Len64(ct.Q-1)
}
