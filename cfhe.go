// Package cfhe compresses LWE ciphertexts into Paillier ciphertexts.
//
// A KeySet binds an LWE secret key to a Paillier key pair through a compression
// key: the Paillier encryptions of the secret coefficients. Anyone holding the
// compression key can turn an LWE ciphertext (a, b) into a single Paillier
// encryption of its phase b - <a, s>, and the Paillier key holder decodes the
// message from it. The equality protocol builds on this to answer "are these two
// 32-bit values equal" with one compact ciphertext.
package cfhe

import (
	"github.com/ontanj/cfhe/lwe"
	"github.com/ontanj/cfhe/paillier"
)

// LWEEngine is the LWE capability the compression protocol relies on.
// *lwe.Engine implements it.
type LWEEngine interface {
	Parameters() lwe.Parameters
	KeyGen() (*lwe.SecretKey, error)
	BTKeyGen(sk *lwe.SecretKey) error
	Encrypt(sk *lwe.SecretKey, m uint64) (*lwe.Ciphertext, error)
	Decrypt(sk *lwe.SecretKey, ct *lwe.Ciphertext) (uint64, error)
	EvalBinGate(g lwe.Gate, x, y *lwe.Ciphertext) (*lwe.Ciphertext, error)
	EvalFunc(ct *lwe.Ciphertext, lut lwe.LUT) (*lwe.Ciphertext, error)
	GenerateLUT(f func(m, p uint64) uint64, p uint64) (lwe.LUT, error)
	MaxPlaintextSpace() uint64
	GateBits() int
}

// PaillierEngine generates Paillier key pairs. paillier.Scheme implements it.
type PaillierEngine interface {
	GenerateKeyPair() (*paillier.KeyPair, error)
}

// CompressedEngine composes an LWE engine and a Paillier engine.
type CompressedEngine struct {
	lwe      LWEEngine
	paillier PaillierEngine
	setting  Setting
}

// NewCompressedEngine returns a CompressedEngine using the given engines.
func NewCompressedEngine(lweEngine LWEEngine, paillierEngine PaillierEngine, setting Setting) *CompressedEngine {
	return &CompressedEngine{
		lwe:      lweEngine,
		paillier: paillierEngine,
		setting:  setting,
	}
}

// NewDefaultEngine returns a CompressedEngine over lwe.DefaultParams and
// paillier.DefaultScheme.
func NewDefaultEngine() (*CompressedEngine, error) {
	params, err := lwe.NewParametersFromLiteral(lwe.DefaultParams)
	if err != nil {
		return nil, err
	}
	engine, err := lwe.NewEngine(params, nil)
	if err != nil {
		return nil, err
	}
	return NewCompressedEngine(engine, paillier.DefaultScheme, Setting{}), nil
}

// LWE returns the LWE engine.
func (e *CompressedEngine) LWE() LWEEngine {
	return e.lwe
}

// Setting returns the execution settings.
func (e *CompressedEngine) Setting() Setting {
	return e.setting
}
