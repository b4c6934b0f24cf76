package lwe

import (
	"fmt"
)

// Gate is a binary gate applied bitwise to two operands of GateBits bits.
type Gate int

const (
	AND Gate = iota
	OR
	XOR
	NAND
	NOR
	XNOR
)

func (g Gate) String() string {
	switch g {
	case AND:
		return "AND"
	case OR:
		return "OR"
	case XOR:
		return "XOR"
	case NAND:
		return "NAND"
	case NOR:
		return "NOR"
	case XNOR:
		return "XNOR"
	}
	return fmt.Sprintf("Gate(%d)", int(g))
}

// Apply evaluates g in the clear on the log2(p) low bits of x and y.
func (g Gate) Apply(x, y, p uint64) uint64 {
	mask := p - 1
	x, y = x&mask, y&mask
	switch g {
	case AND:
		return x & y
	case OR:
		return x | y
	case XOR:
		return x ^ y
	case NAND:
		return ^(x & y) & mask
	case NOR:
		return ^(x | y) & mask
	case XNOR:
		return ^(x ^ y) & mask
	}
	panic(fmt.Sprintf("lwe: unknown gate %d", int(g)))
}

func (g Gate) valid() bool {
	return g >= AND && g <= XNOR
}

// gateLUT tabulates g over the packed messages x*2^w + y of Z_p.
func gateLUT(g Gate, w int, p uint64) LUT {
	mask := uint64(1)<<w - 1
	lut := make(LUT, p)
	for z := range lut {
		lut[z] = g.Apply(uint64(z)>>w, uint64(z)&mask, mask+1)
	}
	return lut
}

// LUT is a lookup table over Z_p: entry m is the image of message m.
type LUT []uint64

// GenerateLUT tabulates f over [0, p), reducing each image mod p.
func GenerateLUT(f func(m, p uint64) uint64, p uint64) (LUT, error) {
	if p < 2 || p&(p-1) != 0 {
		return nil, fmt.Errorf("%w: plaintext modulus %d is not a power of two", ErrInvalidParameters, p)
	}
	lut := make(LUT, p)
	for m := range lut {
		lut[m] = f(uint64(m), p) % p
	}
	return lut, nil
}

// Evaluator performs homomorphic operations on ciphertexts of one parameter set.
// Linear operations only need the parameters; gates and lookup tables need a
// bootstrapping key. It is safe for concurrent use.
type Evaluator struct {
	params Parameters
	bs     *bootstrapper
}

// NewEvaluator returns an Evaluator. key may be nil, in which case only linear
// operations are available.
func NewEvaluator(params Parameters, key *BootstrappingKey) *Evaluator {
	eval := &Evaluator{params: params}
	if key != nil {
		eval.bs = newBootstrapper(params, key)
	}
	return eval
}

func (eval *Evaluator) check(cts ...*Ciphertext) error {
	q, n := eval.params.Q(), eval.params.N()
	for _, ct := range cts {
		if ct.Q != q {
			return fmt.Errorf("%w: ciphertext modulus %d, parameters modulus %d", ErrModulusMismatch, ct.Q, q)
		}
		if ct.N() != n {
			return fmt.Errorf("%w: ciphertext of dimension %d, parameters of dimension %d", ErrDimensionMismatch, ct.N(), n)
		}
	}
	return nil
}

// Add returns x + y. Noise adds up.
func (eval *Evaluator) Add(x, y *Ciphertext) (*Ciphertext, error) {
	if err := eval.check(x, y); err != nil {
		return nil, err
	}
	q := eval.params.Q()
	out := NewCiphertext(x.N(), q)
	for i := range out.A {
		out.A[i] = (x.A[i] + y.A[i]) % q
	}
	out.B = (x.B + y.B) % q
	return out, nil
}

// Sub returns x - y.
func (eval *Evaluator) Sub(x, y *Ciphertext) (*Ciphertext, error) {
	if err := eval.check(x, y); err != nil {
		return nil, err
	}
	q := eval.params.Q()
	out := NewCiphertext(x.N(), q)
	for i := range out.A {
		out.A[i] = (x.A[i] + q - y.A[i]) % q
	}
	out.B = (x.B + q - y.B) % q
	return out, nil
}

// Negate returns -x.
func (eval *Evaluator) Negate(x *Ciphertext) (*Ciphertext, error) {
	if err := eval.check(x); err != nil {
		return nil, err
	}
	q := eval.params.Q()
	out := NewCiphertext(x.N(), q)
	for i := range out.A {
		out.A[i] = (q - x.A[i]) % q
	}
	out.B = (q - x.B) % q
	return out, nil
}

// AddConstant returns x + m for a message m of Z_p.
func (eval *Evaluator) AddConstant(x *Ciphertext, m uint64) (*Ciphertext, error) {
	if err := eval.check(x); err != nil {
		return nil, err
	}
	out := x.CopyNew()
	out.B = (out.B + (m%eval.params.P())*eval.params.Delta()) % eval.params.Q()
	return out, nil
}

// MulConstant returns c*x. Noise grows by a factor c.
func (eval *Evaluator) MulConstant(x *Ciphertext, c uint64) (*Ciphertext, error) {
	if err := eval.check(x); err != nil {
		return nil, err
	}
	q := eval.params.Q()
	c %= q
	out := NewCiphertext(x.N(), q)
	for i := range out.A {
		out.A[i] = x.A[i] * c % q
	}
	out.B = x.B * c % q
	return out, nil
}

// EvalBinGate evaluates g on x and y, two messages below 2^GateBits, and returns
// a bootstrapped ciphertext. The operands are packed into x*2^GateBits + y and
// the gate is applied as a table over the packed message.
func (eval *Evaluator) EvalBinGate(g Gate, x, y *Ciphertext) (*Ciphertext, error) {
	if !g.valid() {
		return nil, fmt.Errorf("%w: unknown gate %d", ErrInvalidParameters, int(g))
	}
	if eval.bs == nil {
		return nil, ErrNoEvaluationKey
	}
	w := eval.params.GateBits()
	if w == 0 {
		return nil, fmt.Errorf("%w: p=%d leaves no room for two gate operands", ErrInvalidParameters, eval.params.P())
	}
	hi, err := eval.MulConstant(x, 1<<w)
	if err != nil {
		return nil, err
	}
	packed, err := eval.Add(hi, y)
	if err != nil {
		return nil, err
	}
	poly := eval.bs.gates[g]
	return eval.bs.evaluate(packed, &poly)
}

// EvalFunc evaluates lut on the message of ct and returns a bootstrapped
// ciphertext. The table must have exactly p entries.
func (eval *Evaluator) EvalFunc(ct *Ciphertext, lut LUT) (*Ciphertext, error) {
	if uint64(len(lut)) != eval.params.P() {
		return nil, fmt.Errorf("%w: LUT of length %d for p=%d", ErrInvalidParameters, len(lut), eval.params.P())
	}
	if eval.bs == nil {
		return nil, ErrNoEvaluationKey
	}
	if err := eval.check(ct); err != nil {
		return nil, err
	}
	poly := eval.bs.lutPolynomial(lut)
	return eval.bs.evaluate(ct, &poly)
}

// Bootstrap resets the noise of ct without changing its message.
func (eval *Evaluator) Bootstrap(ct *Ciphertext) (*Ciphertext, error) {
	if eval.bs == nil {
		return nil, ErrNoEvaluationKey
	}
	if err := eval.check(ct); err != nil {
		return nil, err
	}
	return eval.bs.evaluate(ct, &eval.bs.identity)
}
