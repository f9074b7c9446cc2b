package group

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"hash"

	"github.com/zeebo/blake3"
)

// HashToScalar feeds the input to the given hash constructor, expands by
// repeated hashing with an incrementing counter suffix until the output
// is at least as wide as the group's scalar width, then reduces modulo
// the order by loading the digest with kyber's Scalar().SetBytes
// (wide-enough input makes the reduction bias negligible at these
// widths).
//
// newHash selects the expansion primitive: SHA-256 for most schemes,
// SHA-512 for FROST variants. A nil newHash defaults to blake3, used for
// FROST's own nonce derivation.
func HashToScalar(g Group, newHash func() hash.Hash, domain string, input []byte) SizedBigInt {
	width := g.ScalarLen()
	digest := expand(newHash, domain, input, width)
	s := g.dlGroup().Scalar().SetBytes(digest)
	return SizedBigInt{group: g, s: s}
}

// expand produces at least n bytes of hash output by hashing
// domain||input||counter repeatedly with an incrementing big-endian u32
// counter, concatenating the blocks.
func expand(newHash func() hash.Hash, domain string, input []byte, n int) []byte {
	out := make([]byte, 0, n+32)
	var counter uint32
	for len(out) < n {
		var block []byte
		if newHash == nil {
			h := blake3.New()
			_, _ = h.WriteString(domain)
			_, _ = h.Write(input)
			var ctr [4]byte
			binary.BigEndian.PutUint32(ctr[:], counter)
			_, _ = h.Write(ctr[:])
			block = h.Sum(nil)
		} else {
			h := newHash()
			_, _ = h.Write([]byte(domain))
			_, _ = h.Write(input)
			var ctr [4]byte
			binary.BigEndian.PutUint32(ctr[:], counter)
			_, _ = h.Write(ctr[:])
			block = h.Sum(nil)
		}
		out = append(out, block...)
		counter++
	}
	return out[:n]
}

// HashToScalarSHA256 is the common case: the default expansion hash.
func HashToScalarSHA256(g Group, domain string, input []byte) SizedBigInt {
	return HashToScalar(g, sha256.New, domain, input)
}

// HashToScalarSHA512 is the FROST-variant expansion hash.
func HashToScalarSHA512(g Group, domain string, input []byte) SizedBigInt {
	return HashToScalar(g, sha512.New, domain, input)
}

// HashToPoint implements the BLS-family "hash to curve" used by BLS04 and
// CKS05 to map an arbitrary message/name to a point in the base group: it
// delegates to kyber's suite-native Pick, which for kyber-bls12381 and
// bn256 performs the IETF hash-to-curve construction internally, keyed by
// domain||input as the Pick stream's seed.
func HashToPoint(g Group, sub SubGroup, domain string, input []byte) GroupElement {
	seed := expand(sha256.New, domain, input, 64)
	p := kyberGroupFor(g, sub).Point().Pick(&seededStream{seed: seed})
	return GroupElement{group: g, sub: sub, p: p}
}

// seededStream is a deterministic cipher.Stream seeded from a fixed byte
// string, used so HashToPoint is a pure function of its input rather than
// drawing from crypto/rand.
type seededStream struct {
	seed []byte
	pos  int
}

func (s *seededStream) XORKeyStream(dst, src []byte) {
	h := blake3.New()
	_, _ = h.Write(s.seed)
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], uint64(s.pos))
	_, _ = h.Write(ctr[:])
	block := h.Sum(nil)
	for i := range dst {
		dst[i] = src[i] ^ block[i%len(block)]
	}
	s.pos++
}
