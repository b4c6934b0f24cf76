package cfhe

import (
	"fmt"
	"math/bits"

	"github.com/ontanj/cfhe/lwe"
	"golang.org/x/sync/errgroup"
)

const valueBits = 32

// LimbBits returns the number of bits of a 32-bit value that fit in one message
// of Z_p.
func LimbBits(p uint64) int {
	return bits.Len64(p) - 1
}

// Decompose splits value into ceil(32/limbBits) limbs, least significant first,
// and encrypts each under sk.
func (e *CompressedEngine) Decompose(sk *lwe.SecretKey, value uint32, limbBits int) ([]*lwe.Ciphertext, error) {
	if limbBits < 1 || limbBits > LimbBits(e.lwe.MaxPlaintextSpace()) {
		return nil, fmt.Errorf("%w: %d-bit limbs do not fit p=%d", ErrInvalidInput, limbBits, e.lwe.MaxPlaintextSpace())
	}
	limbs := (valueBits + limbBits - 1) / limbBits
	mask := uint64(1)<<limbBits - 1
	v := uint64(value)
	cts := make([]*lwe.Ciphertext, limbs)
	for i := range cts {
		ct, err := e.lwe.Encrypt(sk, v&mask)
		if err != nil {
			return nil, fmt.Errorf("cfhe: encrypting limb %d: %w", i, err)
		}
		cts[i] = ct
		v >>= limbBits
	}
	return cts, nil
}

// Recompose is the inverse of the limb split done by Decompose.
func Recompose(limbs []uint64, limbBits int) uint32 {
	var v uint64
	for i := len(limbs) - 1; i >= 0; i-- {
		v = v<<limbBits | limbs[i]&(uint64(1)<<limbBits-1)
	}
	return uint32(v)
}

func isZero(m, _ uint64) uint64 {
	if m == 0 {
		return 1
	}
	return 0
}

// EvaluateEquality returns an encryption of 1 if x and y are decompositions of the
// same value and of 0 otherwise. Limbs are XORed pairwise, the differences ORed
// together, and the result mapped through a zero test. Gates only read GateBits
// bits per operand, so the limbs must be at most that wide.
func (e *CompressedEngine) EvaluateEquality(x, y []*lwe.Ciphertext) (*lwe.Ciphertext, error) {
	if len(x) != len(y) || len(x) == 0 {
		return nil, fmt.Errorf("%w: %d and %d limbs", ErrInvalidInput, len(x), len(y))
	}

	diffs := make([]*lwe.Ciphertext, len(x))
	g := new(errgroup.Group)
	g.SetLimit(e.setting.workers())
	for i := range x {
		g.Go(func() (err error) {
			diffs[i], err = e.lwe.EvalBinGate(lwe.XOR, x[i], y[i])
			return
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("cfhe: XOR of limbs: %w", err)
	}

	acc := diffs[0]
	for _, d := range diffs[1:] {
		var err error
		if acc, err = e.lwe.EvalBinGate(lwe.OR, acc, d); err != nil {
			return nil, fmt.Errorf("cfhe: OR of limb differences: %w", err)
		}
	}

	lut, err := e.lwe.GenerateLUT(isZero, e.lwe.MaxPlaintextSpace())
	if err != nil {
		return nil, err
	}
	out, err := e.lwe.EvalFunc(acc, lut)
	if err != nil {
		return nil, fmt.Errorf("cfhe: zero test: %w", err)
	}
	return out, nil
}

// EvaluateEqualityBatch compares query against every entry and returns one
// equality ciphertext per entry.
func (e *CompressedEngine) EvaluateEqualityBatch(query []*lwe.Ciphertext, entries [][]*lwe.Ciphertext) ([]*lwe.Ciphertext, error) {
	out := make([]*lwe.Ciphertext, len(entries))
	for i, entry := range entries {
		eq, err := e.EvaluateEquality(query, entry)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out[i] = eq
	}
	return out, nil
}
