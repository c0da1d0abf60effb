package util

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// PubkeyCmp orders pubkeys by their big-endian byte value. Used wherever a
// deterministic ordering over pubkeys is needed.
func PubkeyCmp(a solana.PublicKey, b solana.PublicKey) bool {
	for i := uint64(0); i < 4; i++ {
		a1 := binary.BigEndian.Uint64(a[8*i:])
		b1 := binary.BigEndian.Uint64(b[8*i:])
		if a1 != b1 {
			return a1 < b1
		}
	}
	return false
}
