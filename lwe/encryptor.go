package lwe

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/tuneinsight/lattigo/v5/ring"
	"github.com/tuneinsight/lattigo/v5/utils/sampling"
)

// Encryptor encrypts messages of Z_p under a secret key. It is safe for
// concurrent use.
type Encryptor struct {
	params Parameters
	sk     []uint64 // secret switched into Z_q

	mu    sync.Mutex
	prng  sampling.PRNG
	xe    ring.Sampler
	noise []uint64 // unused error samples, in the key modulus
}

// NewEncryptor returns an Encryptor drawing its randomness from prng.
func NewEncryptor(params Parameters, sk *SecretKey, prng sampling.PRNG) (*Encryptor, error) {
	if sk.N() != params.N() {
		return nil, fmt.Errorf("%w: secret of dimension %d, parameters of dimension %d", ErrDimensionMismatch, sk.N(), params.N())
	}
	xe, err := ring.NewSampler(prng, params.RingKey(), params.Xe(), false)
	if err != nil {
		return nil, fmt.Errorf("lwe: error sampler: %w", err)
	}
	return &Encryptor{
		params: params,
		sk:     sk.SwitchModulus(params.Q()),
		prng:   prng,
		xe:     xe,
	}, nil
}

// EncryptNew encrypts m mod p as b = <a, s> + m*q/p + e.
func (enc *Encryptor) EncryptNew(m uint64) (*Ciphertext, error) {
	return enc.EncryptPhaseNew((m % enc.params.P()) * enc.params.Delta())
}

// EncryptPhaseNew encrypts an already scaled value of Z_q.
func (enc *Encryptor) EncryptPhaseNew(mu uint64) (ct *Ciphertext, err error) {
	q := enc.params.Q()
	ct = NewCiphertext(enc.params.N(), q)

	enc.mu.Lock()
	defer enc.mu.Unlock()

	if err = enc.sampleUniform(ct.A); err != nil {
		return nil, err
	}
	e := enc.sampleError()
	ct.B = (innerProduct(ct.A, enc.sk, q) + mu%q + e) % q
	return ct, nil
}

// sampleUniform fills a with uniform elements of Z_q by rejection sampling.
func (enc *Encryptor) sampleUniform(a []uint64) error {
	q := enc.params.Q()
	limit := (uint64(1) << 32) / q * q
	buf := make([]byte, 4*len(a))
	if _, err := io.ReadFull(enc.prng, buf); err != nil {
		return fmt.Errorf("lwe: reading randomness: %w", err)
	}
	var extra [4]byte
	for i := range a {
		v := uint64(binary.LittleEndian.Uint32(buf[4*i:]))
		for v >= limit {
			if _, err := io.ReadFull(enc.prng, extra[:]); err != nil {
				return fmt.Errorf("lwe: reading randomness: %w", err)
			}
			v = uint64(binary.LittleEndian.Uint32(extra[:]))
		}
		a[i] = v % q
	}
	return nil
}

// sampleError returns one error sample in Z_q. Samples are drawn a polynomial at
// a time and buffered.
func (enc *Encryptor) sampleError() uint64 {
	if len(enc.noise) == 0 {
		pol := enc.xe.ReadNew()
		enc.noise = append(enc.noise[:0], pol.Coeffs[0]...)
	}
	last := len(enc.noise) - 1
	c := enc.noise[last]
	enc.noise = enc.noise[:last]

	q, qKey := enc.params.Q(), enc.params.KeyModulus()
	if c > qKey>>1 {
		return (q - (qKey-c)%q) % q
	}
	return c % q
}

func innerProduct(a, s []uint64, q uint64) (sum uint64) {
	for i := range a {
		sum = (sum + a[i]*s[i]%q) % q
	}
	return
}
