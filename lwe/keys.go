package lwe

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/he/hebin"
	"github.com/tuneinsight/lattigo/v5/utils"
)

// SecretKey is an LWE secret of dimension n with coefficients in the key modulus.
type SecretKey struct {
	Value   []uint64
	Modulus uint64
}

// N returns the dimension of the secret.
func (sk *SecretKey) N() int {
	return len(sk.Value)
}

// CopyNew returns a deep copy of sk.
func (sk *SecretKey) CopyNew() *SecretKey {
	v := make([]uint64, len(sk.Value))
	copy(v, sk.Value)
	return &SecretKey{Value: v, Modulus: sk.Modulus}
}

// Centered returns the coefficients of sk lifted to (-Modulus/2, Modulus/2].
func (sk *SecretKey) Centered() []int64 {
	out := make([]int64, len(sk.Value))
	half := sk.Modulus >> 1
	for i, c := range sk.Value {
		if c > half {
			out[i] = -int64(sk.Modulus - c)
		} else {
			out[i] = int64(c)
		}
	}
	return out
}

// SwitchModulus returns the coefficients of sk switched into Z_q, keeping their
// centered representative.
func (sk *SecretKey) SwitchModulus(q uint64) []uint64 {
	out := make([]uint64, len(sk.Value))
	half := sk.Modulus >> 1
	for i, c := range sk.Value {
		if c > half {
			out[i] = (q - (sk.Modulus-c)%q) % q
		} else {
			out[i] = c % q
		}
	}
	return out
}

// BootstrappingKey is the public material BTKeyGen produces: RGSW encryptions of
// the secret under a ring key for the blind rotation, and the key switching the
// rotated sample from that ring key back to the LWE secret.
type BootstrappingKey struct {
	BlindRotation hebin.MemBlindRotationEvaluationKeySet
	RingSwitch    *rlwe.EvaluationKey
}

// GenBootstrappingKey generates the bootstrapping key of sk under a fresh ring key.
func GenBootstrappingKey(params Parameters, sk *SecretKey) (*BootstrappingKey, error) {
	if sk.N() != params.N() {
		return nil, fmt.Errorf("%w: secret of dimension %d, parameters of dimension %d", ErrDimensionMismatch, sk.N(), params.N())
	}
	if sk.Modulus != params.KeyModulus() {
		return nil, fmt.Errorf("%w: secret modulus %#x, key modulus %#x", ErrModulusMismatch, sk.Modulus, params.KeyModulus())
	}
	if !params.Bootstrappable() {
		return nil, fmt.Errorf("%w: p=%d needs a blind rotation ring of degree at least %d", ErrInvalidParameters, params.P(), params.P()*minSlots)
	}

	skLWE := params.ringSecret(sk)
	kgen := rlwe.NewKeyGenerator(params.paramsBR)
	skBR := kgen.GenSecretKeyNew()
	evkParams := rlwe.EvaluationKeyParameters{BaseTwoDecomposition: utils.Pointy(params.BaseTwoDecomposition())}

	return &BootstrappingKey{
		BlindRotation: hebin.GenEvaluationKeyNew(params.paramsBR, skBR, params.paramsLWE, skLWE, evkParams),
		RingSwitch:    kgen.GenEvaluationKeyNew(skBR, skLWE, evkParams),
	}, nil
}

// ringSecret lays sk out as a polynomial of the key ring, in NTT and Montgomery
// form.
func (p Parameters) ringSecret(sk *SecretKey) *rlwe.SecretKey {
	out := rlwe.NewSecretKey(p.paramsLWE)
	ringQ := p.paramsLWE.RingQ()
	copy(out.Value.Q.Coeffs[0], sk.Value)
	ringQ.NTT(out.Value.Q, out.Value.Q)
	ringQ.MForm(out.Value.Q, out.Value.Q)
	return out
}
