package lwe

import (
	"fmt"
	"sync"

	"github.com/tuneinsight/lattigo/v5/ring"
	"github.com/tuneinsight/lattigo/v5/utils/sampling"
	"golang.org/x/crypto/blake2b"
)

// lockedPRNG serializes reads from a PRNG shared by several samplers.
type lockedPRNG struct {
	mu   sync.Mutex
	prng sampling.PRNG
}

func (l *lockedPRNG) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prng.Read(p)
}

// keyMaterial caches the encryptor and decryptor of the last key used.
type keyMaterial struct {
	sk  *SecretKey
	enc *Encryptor
	dec *Decryptor
}

// Engine bundles key generation, encryption, decryption and evaluation for one
// parameter set. All randomness it samples comes from the PRNG it was built
// with; the bootstrapping keys are encrypted by lattigo with its own randomness.
type Engine struct {
	params Parameters
	prng   *lockedPRNG

	mu     sync.Mutex
	xs     ring.Sampler
	cached *keyMaterial
	eval   *Evaluator
}

// NewEngine returns an Engine over params. A nil prng is replaced by a
// cryptographically secure one.
func NewEngine(params Parameters, prng sampling.PRNG) (*Engine, error) {
	if prng == nil {
		var err error
		if prng, err = sampling.NewPRNG(); err != nil {
			return nil, fmt.Errorf("lwe: %w", err)
		}
	}
	locked := &lockedPRNG{prng: prng}
	xs, err := ring.NewSampler(locked, params.RingKey(), params.Xs(), false)
	if err != nil {
		return nil, fmt.Errorf("lwe: secret sampler: %w", err)
	}
	return &Engine{
		params: params,
		prng:   locked,
		xs:     xs,
	}, nil
}

// NewEngineFromSeed returns an Engine whose randomness is derived from seed, so
// that keys and ciphertexts are reproducible.
func NewEngineFromSeed(params Parameters, seed []byte) (*Engine, error) {
	prng, err := sampling.NewKeyedPRNG(DeriveSeed(seed, "lwe/engine"))
	if err != nil {
		return nil, fmt.Errorf("lwe: %w", err)
	}
	return NewEngine(params, prng)
}

// DeriveSeed returns a 32-byte seed for label, bound to master.
func DeriveSeed(master []byte, label string) []byte {
	h, err := blake2b.New256(master)
	if err != nil {
		// keys longer than 64 bytes are hashed first
		sum := blake2b.Sum512(master)
		h, _ = blake2b.New256(sum[:])
	}
	h.Write([]byte(label))
	return h.Sum(nil)
}

// Parameters returns the parameter set of the engine.
func (e *Engine) Parameters() Parameters {
	return e.params
}

// MaxPlaintextSpace returns p.
func (e *Engine) MaxPlaintextSpace() uint64 {
	return e.params.P()
}

// KeyGen samples a new secret key from Xs.
func (e *Engine) KeyGen() (*SecretKey, error) {
	e.mu.Lock()
	pol := e.xs.ReadNew()
	e.mu.Unlock()

	sk := &SecretKey{
		Value:   make([]uint64, e.params.N()),
		Modulus: e.params.KeyModulus(),
	}
	copy(sk.Value, pol.Coeffs[0])
	return sk, nil
}

// GateBits returns the width of a gate operand.
func (e *Engine) GateBits() int {
	return e.params.GateBits()
}

// material returns the encryptor and decryptor of sk. Only the most recent key
// is kept, so alternating keys rebuilds them.
func (e *Engine) material(sk *SecretKey) (*keyMaterial, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if km := e.cached; km != nil && km.sk == sk {
		return km, nil
	}
	enc, err := NewEncryptor(e.params, sk, e.prng)
	if err != nil {
		return nil, err
	}
	dec, err := NewDecryptor(e.params, sk)
	if err != nil {
		return nil, err
	}
	e.cached = &keyMaterial{sk: sk, enc: enc, dec: dec}
	return e.cached, nil
}

// BTKeyGen generates the bootstrapping key of sk and installs it, enabling gates
// and lookup tables on its ciphertexts. It replaces any previously installed key.
func (e *Engine) BTKeyGen(sk *SecretKey) error {
	key, err := GenBootstrappingKey(e.params, sk)
	if err != nil {
		return err
	}
	eval := NewEvaluator(e.params, key)
	e.mu.Lock()
	e.eval = eval
	e.mu.Unlock()
	return nil
}

// Encrypt encrypts m mod p under sk.
func (e *Engine) Encrypt(sk *SecretKey, m uint64) (*Ciphertext, error) {
	km, err := e.material(sk)
	if err != nil {
		return nil, err
	}
	return km.enc.EncryptNew(m)
}

// Decrypt decrypts ct under sk.
func (e *Engine) Decrypt(sk *SecretKey, ct *Ciphertext) (uint64, error) {
	km, err := e.material(sk)
	if err != nil {
		return 0, err
	}
	return km.dec.DecryptNew(ct)
}

func (e *Engine) evaluator() (*Evaluator, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.eval == nil {
		return nil, ErrNoEvaluationKey
	}
	return e.eval, nil
}

// EvalBinGate evaluates g on x and y.
func (e *Engine) EvalBinGate(g Gate, x, y *Ciphertext) (*Ciphertext, error) {
	eval, err := e.evaluator()
	if err != nil {
		return nil, err
	}
	return eval.EvalBinGate(g, x, y)
}

// EvalFunc evaluates lut on ct.
func (e *Engine) EvalFunc(ct *Ciphertext, lut LUT) (*Ciphertext, error) {
	eval, err := e.evaluator()
	if err != nil {
		return nil, err
	}
	return eval.EvalFunc(ct, lut)
}

// GenerateLUT tabulates f over [0, p).
func (e *Engine) GenerateLUT(f func(m, p uint64) uint64, p uint64) (LUT, error) {
	return GenerateLUT(f, p)
}
