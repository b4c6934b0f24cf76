package cfhe

import (
	"fmt"
	"math/big"

	"github.com/ontanj/cfhe/lwe"
	"golang.org/x/sync/errgroup"
)

// CompressedCiphertext is a Paillier encryption of the phase of an LWE ciphertext,
// as an integer congruent to b - <a, s> mod Q.
type CompressedCiphertext struct {
	Value       *big.Int
	Q           uint64
	ModulusBits int // bits of the Paillier ciphertext modulus
}

// BitSize is the number of bits needed to transmit cc.
func (cc *CompressedCiphertext) BitSize() int {
	return cc.ModulusBits
}

// CompressionRatio returns how many times smaller cc is than ct.
func CompressionRatio(ct *lwe.Ciphertext, cc *CompressedCiphertext) float64 {
	return float64(ct.BitSize()) / float64(cc.BitSize())
}

// Compress turns ct into a Paillier encryption of its phase using only the
// compression key.
func Compress(ck *CompressionKey, ct *lwe.Ciphertext) (*CompressedCiphertext, error) {
	return compress(ck, ct, 1)
}

// Compress is like the package level Compress but splits the inner product over
// the engine's workers.
func (e *CompressedEngine) Compress(ck *CompressionKey, ct *lwe.Ciphertext) (*CompressedCiphertext, error) {
	return compress(ck, ct, e.setting.workers())
}

// CompressBatch compresses every ciphertext of cts.
func (e *CompressedEngine) CompressBatch(ck *CompressionKey, cts []*lwe.Ciphertext) ([]*CompressedCiphertext, error) {
	out := make([]*CompressedCiphertext, len(cts))
	g := new(errgroup.Group)
	g.SetLimit(e.setting.workers())
	for i, ct := range cts {
		g.Go(func() (err error) {
			out[i], err = compress(ck, ct, 1)
			return
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func compress(ck *CompressionKey, ct *lwe.Ciphertext, workers int) (*CompressedCiphertext, error) {
	if ck == nil || ct == nil {
		return nil, fmt.Errorf("%w: nil key or ciphertext", ErrInvalidInput)
	}
	k := ck.Len()
	if k == 0 || len(ct.A) != k {
		return nil, fmt.Errorf("%w: ciphertext of dimension %d, compression key of length %d", ErrInvalidInput, len(ct.A), k)
	}
	if ct.Q != ck.Q {
		return nil, fmt.Errorf("%w: ciphertext modulus %d, compression key modulus %d", ErrInvalidInput, ct.Q, ck.Q)
	}
	q := ck.Q
	pk := ck.PublicKey

	// -a mod q, kept non-negative so that the sum never exceeds k(q-1)^2 + q
	neg := make([]*big.Int, k)
	for i, a := range ct.A {
		neg[i] = new(big.Int).SetUint64((q - a%q) % q)
	}

	chunks := min(max(workers, 1), k)
	size := (k + chunks - 1) / chunks
	chunks = (k + size - 1) / size
	partial := make([]*big.Int, chunks)
	g := new(errgroup.Group)
	for c := range partial {
		start, end := c*size, min((c+1)*size, k)
		g.Go(func() (err error) {
			partial[c], err = pk.InnerProduct(neg[start:end], ck.Value[start:end])
			return
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("cfhe: inner product: %w", err)
	}

	sum, err := pk.Add(partial...)
	if err != nil {
		return nil, fmt.Errorf("cfhe: summing partial products: %w", err)
	}
	value, err := pk.AddPlain(sum, new(big.Int).SetUint64(ct.B%q))
	if err != nil {
		return nil, fmt.Errorf("cfhe: adding b: %w", err)
	}
	return &CompressedCiphertext{
		Value:       value,
		Q:           q,
		ModulusBits: pk.CiphertextBitSize(),
	}, nil
}
