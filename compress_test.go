package cfhe

import (
	"math/big"
	"math/rand/v2"
	"testing"

	"github.com/ontanj/cfhe/lwe"
	"github.com/ontanj/cfhe/paillier"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	engine, ks := newTestEngine(t, wideParams, "round trip")
	lweEngine := engine.LWE()
	p := lweEngine.MaxPlaintextSpace()
	require.Equal(t, uint64(4096), p)

	step := uint64(1)
	if testing.Short() {
		step = 61
	}
	ck := ks.Public()
	for m := uint64(0); m < p; m += step {
		ct, err := lweEngine.Encrypt(ks.LWE, m)
		require.NoError(t, err)
		cc, err := Compress(ck, ct)
		require.NoError(t, err)
		got, err := DecryptCompressed(ks.Paillier.Private, cc, p)
		require.NoError(t, err)
		require.Equal(t, m, got)
	}
}

func TestCompressAfterLUT(t *testing.T) {
	engine, ks := newTestEngine(t, smallParams, "lut")
	lweEngine := engine.LWE()
	p := lweEngine.MaxPlaintextSpace()

	cube := func(m, p uint64) uint64 { return m * m * m % p }
	lut, err := lweEngine.GenerateLUT(cube, p)
	require.NoError(t, err)

	for m := uint64(0); m < p; m++ {
		ct, err := lweEngine.Encrypt(ks.LWE, m)
		require.NoError(t, err)
		ct, err = lweEngine.EvalFunc(ct, lut)
		require.NoError(t, err)
		cc, err := engine.Compress(ks.Public(), ct)
		require.NoError(t, err)
		got, err := engine.DecryptCompressed(ks, cc)
		require.NoError(t, err)
		require.Equal(t, cube(m, p), got, "f(%d)", m)
	}
}

// phase computes b - <a, s> mod q in the clear.
func phase(ct *lwe.Ciphertext, s []uint64) uint64 {
	q := ct.Q
	acc := ct.B % q
	for i, a := range ct.A {
		acc = (acc + q - a*s[i]%q) % q
	}
	return acc
}

func TestCompressLinearity(t *testing.T) {
	const q, k = 1 << 10, 12
	kp := getPaillierKey(t)
	pk := kp.Public
	rng := rand.New(rand.NewPCG(1, 2))

	s := make([]uint64, k)
	values := make([]*big.Int, k)
	for i := range s {
		s[i] = rng.Uint64N(q)
		values[i] = new(big.Int).SetUint64(s[i])
	}
	enc, err := pk.EncryptVector(values)
	require.NoError(t, err)
	ck := &CompressionKey{PublicKey: pk, Value: enc, Q: q}

	randomCiphertext := func() *lwe.Ciphertext {
		ct := lwe.NewCiphertext(k, q)
		for i := range ct.A {
			ct.A[i] = rng.Uint64N(q)
		}
		ct.B = rng.Uint64N(q)
		return ct
	}
	decrypt := func(c *big.Int) *big.Int {
		m, err := kp.Private.Decrypt(c)
		require.NoError(t, err)
		return m
	}
	modQ := func(x *big.Int) uint64 {
		return new(big.Int).Mod(x, big.NewInt(q)).Uint64()
	}

	x, y := randomCiphertext(), randomCiphertext()
	cx, err := Compress(ck, x)
	require.NoError(t, err)
	cy, err := Compress(ck, y)
	require.NoError(t, err)

	t.Run("Phase", func(t *testing.T) {
		// the plaintext is the exact integer b + sum (q - a_i) s_i
		want := new(big.Int).SetUint64(x.B)
		for i, a := range x.A {
			term := new(big.Int).SetUint64((q - a) % q)
			want.Add(want, term.Mul(term, values[i]))
		}
		require.Equal(t, 0, want.Cmp(decrypt(cx.Value)))
		require.Equal(t, phase(x, s), modQ(decrypt(cx.Value)))
	})

	t.Run("Sum", func(t *testing.T) {
		sum, err := pk.Add(cx.Value, cy.Value)
		require.NoError(t, err)
		require.Equal(t, (phase(x, s)+phase(y, s))%q, modQ(decrypt(sum)))
	})

	t.Run("SummedCiphertext", func(t *testing.T) {
		sum := lwe.NewCiphertext(k, q)
		for i := range sum.A {
			sum.A[i] = (x.A[i] + y.A[i]) % q
		}
		sum.B = (x.B + y.B) % q
		cs, err := Compress(ck, sum)
		require.NoError(t, err)

		want := new(big.Int).SetUint64(sum.B)
		for i, a := range sum.A {
			term := new(big.Int).SetUint64((q - a) % q)
			want.Add(want, term.Mul(term, values[i]))
		}
		got := decrypt(cs.Value)
		require.Equal(t, 0, want.Cmp(got))
		require.Equal(t, (phase(x, s)+phase(y, s))%q, modQ(got))
	})

	t.Run("Scalar", func(t *testing.T) {
		scaled, err := pk.ScalarMultiply(cx.Value, big.NewInt(5))
		require.NoError(t, err)
		require.Equal(t, 5*phase(x, s)%q, modQ(decrypt(scaled)))
	})

	t.Run("Workers", func(t *testing.T) {
		for _, workers := range []int{1, 2, 5, 12, 40} {
			engine := NewCompressedEngine(nil, nil, Setting{Workers: workers})
			cc, err := engine.Compress(ck, x)
			require.NoError(t, err)
			require.Equal(t, 0, decrypt(cx.Value).Cmp(decrypt(cc.Value)), "%d workers", workers)
		}
	})
}

func TestCompressInvalidInput(t *testing.T) {
	const q, k = 1 << 10, 4
	pk := getPaillierKey(t).Public
	enc, err := pk.EncryptVector([]*big.Int{big.NewInt(1), big.NewInt(0), big.NewInt(q - 1), big.NewInt(1)})
	require.NoError(t, err)
	ck := &CompressionKey{PublicKey: pk, Value: enc, Q: q}

	_, err = Compress(ck, lwe.NewCiphertext(k-1, q))
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = Compress(ck, lwe.NewCiphertext(k+1, q))
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = Compress(ck, lwe.NewCiphertext(k, 2*q))
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = Compress(ck, nil)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = Compress(&CompressionKey{PublicKey: pk, Q: q}, lwe.NewCiphertext(0, q))
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = DecryptCompressed(getPaillierKey(t).Private, &CompressedCiphertext{Value: enc[0], Q: q}, 0)
	require.ErrorIs(t, err, ErrInvalidInput)

	engine := NewCompressedEngine(nil, nil, Setting{Workers: 2})
	_, err = engine.CompressBatch(ck, []*lwe.Ciphertext{lwe.NewCiphertext(k, q), lwe.NewCiphertext(k-1, q)})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCompressBatch(t *testing.T) {
	engine, ks := newTestEngine(t, smallParams, "batch")
	lweEngine := engine.LWE()
	p := lweEngine.MaxPlaintextSpace()

	cts := make([]*lwe.Ciphertext, p)
	for m := range cts {
		ct, err := lweEngine.Encrypt(ks.LWE, uint64(m))
		require.NoError(t, err)
		cts[m] = ct
	}
	ccs, err := engine.CompressBatch(ks.Public(), cts)
	require.NoError(t, err)
	require.Len(t, ccs, len(cts))
	for m, cc := range ccs {
		got, err := engine.DecryptCompressed(ks, cc)
		require.NoError(t, err)
		require.Equal(t, uint64(m), got)
	}
}

func TestThresholdDecryptCompressed(t *testing.T) {
	engine, ks := newTestEngine(t, smallParams, "threshold")
	lweEngine := engine.LWE()
	p := lweEngine.MaxPlaintextSpace()
	private := ks.Paillier.Private

	ct, err := lweEngine.Encrypt(ks.LWE, 11)
	require.NoError(t, err)
	cc, err := engine.Compress(ks.Public(), ct)
	require.NoError(t, err)

	// every decryptor holds one share and returns its part on decChannel
	shares := private.Shares()
	decChannel := make(chan *paillier.DecryptionShare, len(shares))
	errChannel := make(chan error, len(shares))
	for _, share := range shares {
		go func(share paillier.KeyShare) {
			part, err := PartialDecryptCompressed(share, cc)
			if err != nil {
				errChannel <- err
				return
			}
			decChannel <- part
		}(share)
	}
	parts := make([]*paillier.DecryptionShare, 0, len(shares))
	for range shares {
		select {
		case part := <-decChannel:
			parts = append(parts, part)
		case err := <-errChannel:
			require.NoError(t, err)
		}
	}

	got, err := CombineCompressed(ks.Paillier.Public, cc, parts[:private.Threshold()], p)
	require.NoError(t, err)
	require.Equal(t, uint64(11), got)
}

func TestCompressionRatio(t *testing.T) {
	// default parameters: 513 elements of 14 bits against one 2048-bit Paillier ciphertext mod N^2
	ct := lwe.NewCiphertext(512, 1<<14)
	cc := &CompressedCiphertext{ModulusBits: 4096}
	require.Equal(t, 4096, cc.BitSize())
	require.InDelta(t, 7182.0/4096.0, CompressionRatio(ct, cc), 1e-9)

	engine, ks := newTestEngine(t, smallParams, "ratio")
	small, err := engine.LWE().Encrypt(ks.LWE, 1)
	require.NoError(t, err)
	compressed, err := Compress(ks.Public(), small)
	require.NoError(t, err)
	require.Equal(t, ks.Paillier.Public.CiphertextBitSize(), compressed.BitSize())
	t.Logf("LWE ciphertext %d bits, compressed %d bits", small.BitSize(), compressed.BitSize())
}

func TestDecode(t *testing.T) {
	const q, p = 1 << 14, 16
	// a phase congruent to 3*q/p, far above q
	phase := new(big.Int).Lsh(big.NewInt(1), 100)
	phase.Add(phase, big.NewInt(3*q/p+7))
	require.Equal(t, uint64(3), Decode(phase, q, p))
	require.Equal(t, uint64(0), Decode(big.NewInt(q-1), q, p))
	require.Equal(t, uint64(p-1), Decode(big.NewInt(q-q/p), q, p))
}
