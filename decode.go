package cfhe

import (
	"fmt"
	"math/big"

	"github.com/ontanj/cfhe/lwe"
	"github.com/ontanj/cfhe/paillier"
)

// Decode reduces a decrypted phase mod q and rounds it to the nearest message of
// Z_p. Too much noise yields a wrong message, not an error.
func Decode(phase *big.Int, q, p uint64) uint64 {
	r := new(big.Int).Mod(phase, new(big.Int).SetUint64(q))
	return lwe.Decode(r.Uint64(), q, p)
}

// DecryptCompressed decrypts cc with the Paillier private key and decodes the
// message of Z_p.
func DecryptCompressed(sk *paillier.PrivateKey, cc *CompressedCiphertext, p uint64) (uint64, error) {
	if err := checkDecodable(cc, p); err != nil {
		return 0, err
	}
	phase, err := sk.Decrypt(cc.Value)
	if err != nil {
		return 0, fmt.Errorf("cfhe: decrypting compressed ciphertext: %w", err)
	}
	return Decode(phase, cc.Q, p), nil
}

// DecryptCompressed decrypts cc with the Paillier key of ks, using the plaintext
// space of the engine.
func (e *CompressedEngine) DecryptCompressed(ks *KeySet, cc *CompressedCiphertext) (uint64, error) {
	return DecryptCompressed(ks.Paillier.Private, cc, e.lwe.MaxPlaintextSpace())
}

// PartialDecryptCompressed computes the contribution of one Paillier key share
// to the decryption of cc.
func PartialDecryptCompressed(share paillier.KeyShare, cc *CompressedCiphertext) (*paillier.DecryptionShare, error) {
	ds, err := share.PartialDecrypt(cc.Value)
	if err != nil {
		return nil, fmt.Errorf("cfhe: partial decryption: %w", err)
	}
	return ds, nil
}

// CombineCompressed combines at least threshold decryption shares of cc and
// decodes the message of Z_p.
func CombineCompressed(pk *paillier.PublicKey, cc *CompressedCiphertext, shares []*paillier.DecryptionShare, p uint64) (uint64, error) {
	if err := checkDecodable(cc, p); err != nil {
		return 0, err
	}
	phase, err := pk.CombineShares(shares...)
	if err != nil {
		return 0, fmt.Errorf("cfhe: combining decryption shares: %w", err)
	}
	return Decode(phase, cc.Q, p), nil
}

func checkDecodable(cc *CompressedCiphertext, p uint64) error {
	switch {
	case cc == nil:
		return fmt.Errorf("%w: nil ciphertext", ErrInvalidInput)
	case p == 0:
		return fmt.Errorf("%w: plaintext modulus 0", ErrInvalidInput)
	case cc.Q == 0:
		return fmt.Errorf("%w: ciphertext modulus 0", ErrInvalidInput)
	}
	return nil
}
