package lwe

import (
	"fmt"
	"math/bits"
	"sync"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/he/hebin"
	"github.com/tuneinsight/lattigo/v5/ring"
)

// rotator holds the buffers of one blind rotation. The lattigo evaluators are
// stateful, so concurrent evaluations each take their own from a pool.
type rotator struct {
	br   *hebin.Evaluator
	eval *rlwe.Evaluator
	in   *rlwe.Ciphertext // LWE sample laid out in the key ring
	out  *rlwe.Ciphertext // rotated sample switched back to the key ring
}

func newRotator(params Parameters) *rotator {
	return &rotator{
		br:   hebin.NewEvaluator(params.paramsBR, params.paramsLWE),
		eval: rlwe.NewEvaluator(params.paramsBR, nil),
		in:   rlwe.NewCiphertext(params.paramsLWE, 1, 0),
		out:  rlwe.NewCiphertext(params.paramsLWE, 1, 0),
	}
}

// bootstrapper evaluates lookup tables over Z_p with two blind rotations.
//
// Test polynomials are negacyclic, so one rotation only programs half of the
// torus. The sample is read mod 2q, which halves every message, and a first
// rotation with a constant table tells which half it sits in. Subtracting that
// answer folds the sample onto a window of half a turn where the second rotation
// applies the table.
type bootstrapper struct {
	params Parameters
	key    *BootstrappingKey
	pool   sync.Pool

	fold     ring.Poly
	identity ring.Poly
	gates    map[Gate]ring.Poly
}

func newBootstrapper(params Parameters, key *BootstrappingKey) *bootstrapper {
	b := &bootstrapper{params: params, key: key}
	b.pool.New = func() any { return newRotator(params) }

	b.fold = b.testPolynomial(func(float64) float64 { return -0.25 })

	p := params.P()
	identity := make(LUT, p)
	for m := range identity {
		identity[m] = uint64(m)
	}
	b.identity = b.lutPolynomial(identity)

	if w := params.GateBits(); w > 0 {
		b.gates = make(map[Gate]ring.Poly, XNOR+1)
		for g := AND; g <= XNOR; g++ {
			b.gates[g] = b.lutPolynomial(gateLUT(g, w, p))
		}
	}
	return b
}

// testPolynomial scales g, defined on [-1, 1), by the key modulus.
func (b *bootstrapper) testPolynomial(g func(x float64) float64) ring.Poly {
	return hebin.InitTestPolynomial(g, rlwe.NewScale(float64(b.params.KeyModulus())), b.params.paramsBR.RingQ(), -1, 1)
}

// lutPolynomial maps message m of Z_p, found at x = (2m+1)/p - 1 after folding,
// to lut[m]/p.
func (b *bootstrapper) lutPolynomial(lut LUT) ring.Poly {
	p := uint64(len(lut))
	return b.testPolynomial(func(x float64) float64 {
		m := int((x + 1) * float64(p) / 2)
		m = min(max(m, 0), len(lut)-1)
		return float64(lut[m]%p) / float64(p)
	})
}

// evaluate applies testPoly, built by lutPolynomial, to the message of ct.
func (b *bootstrapper) evaluate(ct *Ciphertext, testPoly *ring.Poly) (*Ciphertext, error) {
	q, p := b.params.Q(), b.params.P()
	q2 := 2 * q

	// same sample mod 2q, moved so that the window of half a turn holding the
	// halved messages is centered on zero
	in := NewCiphertext(ct.N(), q2)
	copy(in.A, ct.A)
	in.B = (ct.B + q2 - q/2 + q/(2*p)) % q2

	half, err := b.rotate(in, &b.fold, q2)
	if err != nil {
		return nil, err
	}
	// -1/4 inside the window and +1/4 outside
	for i := range in.A {
		in.A[i] = (in.A[i] + q2 - half.A[i]) % q2
	}
	in.B = (in.B + 2*q2 - half.B - q/2) % q2

	return b.rotate(in, testPoly, q)
}

// rotate blind-rotates testPoly by the phase of ct and returns the constant
// coefficient of the result as an LWE sample mod qOut.
func (b *bootstrapper) rotate(ct *Ciphertext, testPoly *ring.Poly, qOut uint64) (*Ciphertext, error) {
	r := b.pool.Get().(*rotator)
	defer b.pool.Put(r)

	n, qKey := ct.N(), b.params.KeyModulus()

	// b - <a, s> is the constant coefficient of c0 + c1*s for c1 = -a_0 - sum a_j X^(n-j)
	r.in.Value[0].Zero()
	r.in.IsNTT = false
	c0, c1 := r.in.Value[0].Coeffs[0], r.in.Value[1].Coeffs[0]
	c0[0] = switchModulus(ct.B, ct.Q, qKey)
	c1[0] = (qKey - switchModulus(ct.A[0], ct.Q, qKey)) % qKey
	for j := 1; j < n; j++ {
		c1[n-j] = switchModulus(ct.A[j], ct.Q, qKey)
	}

	res, err := r.br.Evaluate(r.in, map[int]*ring.Poly{0: testPoly}, b.key.BlindRotation)
	if err != nil {
		return nil, fmt.Errorf("lwe: blind rotation: %w", err)
	}
	if err = r.eval.ApplyEvaluationKey(res[0], b.key.RingSwitch, r.out); err != nil {
		return nil, fmt.Errorf("lwe: ring switch: %w", err)
	}
	if r.out.IsNTT {
		ringQ := b.params.paramsLWE.RingQ()
		ringQ.INTT(r.out.Value[0], r.out.Value[0])
		ringQ.INTT(r.out.Value[1], r.out.Value[1])
	}

	c0, c1 = r.out.Value[0].Coeffs[0], r.out.Value[1].Coeffs[0]
	out := NewCiphertext(n, qOut)
	out.B = switchModulus(c0[0], qKey, qOut)
	out.A[0] = switchModulus((qKey-c1[0])%qKey, qKey, qOut)
	for j := 1; j < n; j++ {
		out.A[j] = switchModulus(c1[n-j], qKey, qOut)
	}
	return out, nil
}

// switchModulus returns round(x*to/from) mod to for x < from.
func switchModulus(x, from, to uint64) uint64 {
	hi, lo := bits.Mul64(x, to)
	var carry uint64
	lo, carry = bits.Add64(lo, from>>1, 0)
	quo, _ := bits.Div64(hi+carry, lo, from)
	return quo % to
}
