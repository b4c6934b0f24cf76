package cfhe

import (
	"errors"
	"math/big"
	"reflect"
	"runtime"
	"sync"
	"testing"

	"github.com/ontanj/cfhe/lwe"
	"github.com/ontanj/cfhe/paillier"
	"github.com/stretchr/testify/require"
)

var (
	smallParams = lwe.ParametersLiteral{LogN: 6, Q: 1 << 14, P: 16, LogNBR: 10}
	wideParams  = lwe.ParametersLiteral{LogN: 6, Q: 1 << 20, P: 4096}
)

var (
	testKeyOnce sync.Once
	testKey     *paillier.KeyPair
	testKeyErr  error
)

// getPaillierKey generates one 512-bit key pair shared by all tests.
func getPaillierKey(t *testing.T) *paillier.KeyPair {
	testKeyOnce.Do(func() {
		testKey, testKeyErr = paillier.Scheme{BitSize: 512, Shares: 3, Threshold: 2}.GenerateKeyPair()
	})
	require.NoError(t, testKeyErr)
	return testKey
}

// fixedScheme hands out the same key pair every time.
type fixedScheme struct {
	kp  *paillier.KeyPair
	err error
}

func (f fixedScheme) GenerateKeyPair() (*paillier.KeyPair, error) {
	return f.kp, f.err
}

func newLWEEngine(t *testing.T, pl lwe.ParametersLiteral, seed string) *lwe.Engine {
	params, err := lwe.NewParametersFromLiteral(pl)
	require.NoError(t, err)
	engine, err := lwe.NewEngineFromSeed(params, []byte(seed))
	require.NoError(t, err)
	return engine
}

func newTestEngine(t *testing.T, pl lwe.ParametersLiteral, seed string) (*CompressedEngine, *KeySet) {
	engine := NewCompressedEngine(newLWEEngine(t, pl, seed), fixedScheme{kp: getPaillierKey(t)}, Setting{Workers: 4})
	ks, err := engine.GenerateKeySet()
	require.NoError(t, err)
	if engine.LWE().Parameters().Bootstrappable() {
		require.NoError(t, engine.BTKeyGen(ks))
	}
	return engine, ks
}

// oddPlaintextEngine advertises a plaintext space that does not divide q.
type oddPlaintextEngine struct {
	*lwe.Engine
}

func (oddPlaintextEngine) MaxPlaintextSpace() uint64 {
	return 3
}

// countingScheme records how often a key pair was requested.
type countingScheme struct {
	calls int
}

func (c *countingScheme) GenerateKeyPair() (*paillier.KeyPair, error) {
	c.calls++
	return nil, errors.New("unexpected Paillier key generation")
}

func TestCompressTakesNoSecretKey(t *testing.T) {
	secret := reflect.TypeOf((*lwe.SecretKey)(nil))
	for _, fn := range []any{Compress, (*CompressedEngine).Compress, (*CompressedEngine).CompressBatch} {
		typ := reflect.TypeOf(fn)
		for i := 0; i < typ.NumIn(); i++ {
			require.NotEqual(t, secret, typ.In(i), "%v takes a secret key", typ)
		}
	}
}

func TestValidateModuli(t *testing.T) {
	n := new(big.Int).Lsh(big.NewInt(1), 40)
	require.NoError(t, validateModuli(n, 64, 1<<14, 16))
	// q only has to be a multiple of 2p
	require.NoError(t, validateModuli(n, 64, 96, 16))

	cases := map[string]struct {
		k    int
		q, p uint64
	}{
		"NotMultipleOf2p": {64, 1000, 16},
		"QEqualsP":        {64, 16, 16},
		"PZero":           {64, 1 << 14, 0},
		"WrapsAroundN":    {64, 1 << 20, 4096},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, validateModuli(n, c.k, c.q, c.p), ErrInvalidParameters)
		})
	}
}

func TestValidatePlaintext(t *testing.T) {
	require.NoError(t, validatePlaintext(1<<14, 16))
	require.ErrorIs(t, validatePlaintext(1<<14, 0), ErrInvalidParameters)
	require.ErrorIs(t, validatePlaintext(3<<13, 1<<13), ErrInvalidParameters)
}

func TestSetting(t *testing.T) {
	require.Equal(t, runtime.NumCPU(), Setting{}.workers())
	require.Equal(t, runtime.NumCPU(), Setting{Workers: -2}.workers())
	require.Equal(t, 3, Setting{Workers: 3}.workers())
}

func TestGenerateKeySet(t *testing.T) {
	engine, ks := newTestEngine(t, smallParams, "keyset")
	q := engine.LWE().Parameters().Q()
	ck := ks.Public()
	require.Same(t, ks.CompressionKey, ck)
	require.Equal(t, ks.LWE.N(), ck.Len())
	require.Equal(t, q, ck.Q)
	require.Same(t, ks.Paillier.Public, ck.PublicKey)

	plain, err := ks.Paillier.Private.DecryptVector(ck.Value)
	require.NoError(t, err)
	for i, s := range ks.LWE.SwitchModulus(q) {
		require.Equal(t, s, plain[i].Uint64())
	}
}

func TestGenerateKeySetErrors(t *testing.T) {
	errKeyGen := errors.New("key generation failed")
	engine := NewCompressedEngine(newLWEEngine(t, smallParams, "errors"), fixedScheme{err: errKeyGen}, Setting{})
	_, err := engine.GenerateKeySet()
	require.ErrorIs(t, err, errKeyGen)

	engine = NewCompressedEngine(newLWEEngine(t, smallParams, "errors"), paillier.Scheme{BitSize: 512, Shares: 1, Threshold: 2}, Setting{})
	_, err = engine.GenerateKeySet()
	require.Error(t, err)

	// q = 2^14 is not a multiple of 2p = 6: rejected before any key is generated
	counter := &countingScheme{}
	engine = NewCompressedEngine(oddPlaintextEngine{newLWEEngine(t, smallParams, "errors")}, counter, Setting{})
	_, err = engine.GenerateKeySet()
	require.ErrorIs(t, err, ErrInvalidParameters)
	require.Zero(t, counter.calls)
}

func TestGenerateKeySetSmallPaillierModulus(t *testing.T) {
	// a 64-bit N is far below k*(q-1)^2 for k = 1024 and q = 2^32
	kp, err := paillier.Scheme{BitSize: 64, Shares: 2, Threshold: 2}.GenerateKeyPair()
	require.NoError(t, err)
	require.Equal(t, 0, kp.Public.PlaintextModulus().Cmp(kp.Public.N))

	pl := lwe.ParametersLiteral{LogN: 10, Q: 1 << 32, P: 16}
	engine := NewCompressedEngine(newLWEEngine(t, pl, "small modulus"), fixedScheme{kp: kp}, Setting{})
	_, err = engine.GenerateKeySet()
	require.ErrorIs(t, err, ErrInvalidParameters)

	// the bound is checked against N itself
	require.ErrorIs(t, validateModuli(kp.Public.PlaintextModulus(), 1024, 1<<32, 16), ErrInvalidParameters)
	require.NoError(t, validateModuli(getPaillierKey(t).Public.PlaintextModulus(), 1024, 1<<32, 16))
}
