// Package lwe implements an LWE engine: key generation, encryption and decryption
// of small plaintexts, linear homomorphic operations, binary gates and lookup-table
// evaluation.
//
// Secrets and errors are drawn with the lattigo ring samplers over an NTT-friendly
// key modulus and switched into the ciphertext modulus q, which only has to be a
// multiple of 2p. Gates and lookup tables are evaluated by blind rotation
// (lattigo he/hebin) in a ring of degree 2^LogNBR over the same key modulus.
package lwe

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/ring"
)

var (
	// ErrInvalidParameters is returned for inconsistent parameter literals.
	ErrInvalidParameters = errors.New("lwe: invalid parameters")
	// ErrModulusMismatch is returned when ciphertexts under different moduli are combined.
	ErrModulusMismatch = errors.New("lwe: modulus mismatch")
	// ErrDimensionMismatch is returned when a ciphertext and a key differ in dimension.
	ErrDimensionMismatch = errors.New("lwe: dimension mismatch")
	// ErrNoEvaluationKey is returned by gate and LUT evaluation before BTKeyGen.
	ErrNoEvaluationKey = errors.New("lwe: no evaluation key")
)

const (
	maxLogQ  = 32
	maxLogN  = 16
	minSlots = 32 // rotation steps per message slot, out of 2N
)

// ParametersLiteral is the user-facing description of a parameter set.
type ParametersLiteral struct {
	LogN                 int                         // LWE dimension n = 2^LogN
	Q                    uint64                      // ciphertext modulus
	P                    uint64                      // plaintext modulus, a power of two
	KeyModulus           uint64                      // NTT-friendly prime of the key and blind rotation rings
	LogNBR               int                         // ring degree of the blind rotation, at least LogN
	BaseTwoDecomposition int                         // log2 of the gadget base of the bootstrapping keys
	Xs                   ring.DistributionParameters // secret distribution, ternary by default
	Xe                   ring.DistributionParameters // error distribution, discrete Gaussian by default
}

// DefaultParams uses 4-bit messages, so 32-bit integers split into 8 limbs, and
// 2-bit gate operands.
var DefaultParams = ParametersLiteral{
	LogN:                 9,
	Q:                    1 << 14,
	P:                    16,
	KeyModulus:           0x7ff6001,
	LogNBR:               11,
	BaseTwoDecomposition: 7,
	Xs:                   ring.Ternary{P: 2.0 / 3.0},
	Xe:                   ring.DiscreteGaussian{Sigma: 3.2, Bound: 19},
}

// Parameters is an immutable, validated parameter set.
type Parameters struct {
	logN       int
	q, p       uint64
	keyModulus uint64
	logNBR     int
	baseTwo    int
	xs, xe     ring.DistributionParameters

	// paramsLWE is the ring of degree n the secret lives in, paramsBR the ring
	// the blind rotation accumulates in.
	paramsLWE rlwe.Parameters
	paramsBR  rlwe.Parameters
}

// NewParametersFromLiteral validates pl and builds the key and blind rotation rings.
func NewParametersFromLiteral(pl ParametersLiteral) (params Parameters, err error) {
	switch {
	case pl.LogN < rlwe.MinLogN || pl.LogN > maxLogN:
		return params, fmt.Errorf("%w: LogN=%d", ErrInvalidParameters, pl.LogN)
	case pl.P < 2 || pl.P&(pl.P-1) != 0:
		return params, fmt.Errorf("%w: plaintext modulus %d is not a power of two", ErrInvalidParameters, pl.P)
	case pl.Q == 0 || pl.Q > 1<<maxLogQ:
		return params, fmt.Errorf("%w: ciphertext modulus %d outside [1, 2^%d]", ErrInvalidParameters, pl.Q, maxLogQ)
	case pl.Q%(2*pl.P) != 0:
		return params, fmt.Errorf("%w: q=%d is not a multiple of 2p=%d", ErrInvalidParameters, pl.Q, 2*pl.P)
	}

	params = Parameters{
		logN:       pl.LogN,
		q:          pl.Q,
		p:          pl.P,
		keyModulus: pl.KeyModulus,
		logNBR:     pl.LogNBR,
		baseTwo:    pl.BaseTwoDecomposition,
		xs:         pl.Xs,
		xe:         pl.Xe,
	}
	if params.keyModulus == 0 {
		params.keyModulus = DefaultParams.KeyModulus
	}
	if params.logNBR == 0 {
		params.logNBR = max(DefaultParams.LogNBR, pl.LogN)
	}
	if params.baseTwo == 0 {
		params.baseTwo = DefaultParams.BaseTwoDecomposition
	}
	if params.xs == nil {
		params.xs = DefaultParams.Xs
	}
	if params.xe == nil {
		params.xe = DefaultParams.Xe
	}

	switch {
	case params.logNBR < pl.LogN || params.logNBR > maxLogN:
		return Parameters{}, fmt.Errorf("%w: LogNBR=%d for LogN=%d", ErrInvalidParameters, params.logNBR, pl.LogN)
	case params.baseTwo < 1 || params.baseTwo > bits.Len64(params.keyModulus):
		return Parameters{}, fmt.Errorf("%w: BaseTwoDecomposition=%d", ErrInvalidParameters, params.baseTwo)
	}

	// the key ring keeps the secret distribution so that it samples secrets itself
	if params.paramsLWE, err = rlwe.NewParametersFromLiteral(rlwe.ParametersLiteral{
		LogN:    pl.LogN,
		Q:       []uint64{params.keyModulus},
		Xs:      params.xs,
		Xe:      params.xe,
		NTTFlag: true,
	}); err != nil {
		return Parameters{}, fmt.Errorf("%w: key modulus %#x: %v", ErrInvalidParameters, params.keyModulus, err)
	}
	if params.paramsBR, err = rlwe.NewParametersFromLiteral(rlwe.ParametersLiteral{
		LogN:    params.logNBR,
		Q:       []uint64{params.keyModulus},
		Xe:      params.xe,
		NTTFlag: true,
	}); err != nil {
		return Parameters{}, fmt.Errorf("%w: key modulus %#x in degree 2^%d: %v", ErrInvalidParameters, params.keyModulus, params.logNBR, err)
	}
	return params, nil
}

// N returns the LWE dimension.
func (p Parameters) N() int {
	return 1 << p.logN
}

// LogN returns log2 of the LWE dimension.
func (p Parameters) LogN() int {
	return p.logN
}

// Q returns the ciphertext modulus.
func (p Parameters) Q() uint64 {
	return p.q
}

// LogQ returns the number of bits of a Z_q element.
func (p Parameters) LogQ() int {
	return bits.Len64(p.q - 1)
}

// P returns the plaintext modulus.
func (p Parameters) P() uint64 {
	return p.p
}

// KeyModulus returns the modulus the secret is sampled in.
func (p Parameters) KeyModulus() uint64 {
	return p.keyModulus
}

// Delta is the scaling factor q/p of an encoded message.
func (p Parameters) Delta() uint64 {
	return p.q / p.p
}

// Xs returns the secret distribution.
func (p Parameters) Xs() ring.DistributionParameters {
	return p.xs
}

// Xe returns the error distribution.
func (p Parameters) Xe() ring.DistributionParameters {
	return p.xe
}

// LogNBR returns log2 of the ring degree of the blind rotation.
func (p Parameters) LogNBR() int {
	return p.logNBR
}

// BaseTwoDecomposition returns log2 of the gadget base of the bootstrapping keys.
func (p Parameters) BaseTwoDecomposition() int {
	return p.baseTwo
}

// RingKey returns the ring used to sample secrets and errors.
func (p Parameters) RingKey() *ring.Ring {
	return p.paramsLWE.RingQ()
}

// GateBits is the width of a gate operand: two operands are packed into one
// message of Z_p before the gate table is applied.
func (p Parameters) GateBits() int {
	return (bits.Len64(p.p) - 1) / 2
}

// Bootstrappable reports whether the blind rotation ring leaves enough room
// between the messages of Z_p for gates and lookup tables.
func (p Parameters) Bootstrappable() bool {
	return p.p*minSlots <= 1<<p.logNBR
}

// ParametersLiteral returns the literal p was built from, with defaults filled in.
func (p Parameters) ParametersLiteral() ParametersLiteral {
	return ParametersLiteral{
		LogN:                 p.logN,
		Q:                    p.q,
		P:                    p.p,
		KeyModulus:           p.keyModulus,
		LogNBR:               p.logNBR,
		BaseTwoDecomposition: p.baseTwo,
		Xs:                   p.xs,
		Xe:                   p.xe,
	}
}

// Decode maps a phase in Z_q to the nearest message in Z_p: it adds q/(2p) and
// keeps floor(p*phase/q).
func Decode(phase, q, p uint64) uint64 {
	phase %= q
	phase = (phase + q/(2*p)) % q
	hi, lo := bits.Mul64(p, phase)
	quo, _ := bits.Div64(hi, lo, q)
	return quo
}
