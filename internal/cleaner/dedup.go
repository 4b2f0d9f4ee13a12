package cleaner

import (
	"github.com/zeebo/xxh3"
)

// keySep separates identity fields inside the hashed key.
const keySep = '\x1f'

// identityKey hashes the identity tuple of a row. Fields are joined with
// keySep so ("ab","c") and ("a","bc") hash differently.
func identityKey(buf []byte, fields ...string) ([]byte, xxh3.Uint128) {
	buf = buf[:0]
	for i, f := range fields {
		if i > 0 {
			buf = append(buf, keySep)
		}
		buf = append(buf, f...)
	}
	return buf, xxh3.Hash128(buf)
}

// keepFirst tracks identity keys already emitted.
type keepFirst struct {
	seen map[xxh3.Uint128]struct{}
	buf  []byte
}

func newKeepFirst(n int) *keepFirst {
	return &keepFirst{seen: make(map[xxh3.Uint128]struct{}, n)}
}

// admit reports whether the tuple is new and records it.
func (k *keepFirst) admit(fields ...string) bool {
	var h xxh3.Uint128
	k.buf, h = identityKey(k.buf, fields...)
	if _, dup := k.seen[h]; dup {
		return false
	}
	k.seen[h] = struct{}{}
	return true
}
