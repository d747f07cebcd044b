package membrane

import (
	"encoding/binary"
	"hash/crc32"
)

// crcTable is the Castagnoli polynomial table, matching the teacher's
// slot-header checksum (pkg/slotcache/format.go used the same table for its
// header CRC). Here it is the avalanche core for the fingerprint/canary
// mixer rather than a whole-header checksum.
var crcTable = crc32.MakeTable(crc32.Castagnoli)

// fingerprintDomain and canaryDomain separate the two derivations so that
// H1 and H2 are injective independently of one another on the same triple,
// per spec §4.1's "implementations may split derivation into H1/H2" clause.
const (
	fingerprintDomain = 0x4642 // "FB" - fingerprint-before
	canaryDomain      = 0x4341 // "CA" - canary-after
)

// mixTriple packs (userBase, userSize, generation, domain) into a 22-byte
// big-endian buffer and runs it through two rounds of CRC32C, using the
// first round's output to perturb the second. This is a non-cryptographic
// avalanche mixer: distinct triples are astronomically unlikely to collide,
// but the construction does not aim for cryptographic hardness, matching
// spec §1's "non-cryptographic mixer" note on the quarantine hash chain.
func mixTriple(userBase uint64, userSize uint64, generation uint32, domain uint16) [FingerprintSize]byte {
	var buf [22]byte
	binary.BigEndian.PutUint64(buf[0:8], userBase)
	binary.BigEndian.PutUint64(buf[8:16], userSize)
	binary.BigEndian.PutUint32(buf[16:20], generation)
	binary.BigEndian.PutUint16(buf[20:22], domain)

	round1 := crc32.Checksum(buf[:], crcTable)

	var buf2 [26]byte
	copy(buf2[:22], buf[:])
	binary.BigEndian.PutUint32(buf2[22:26], round1)
	round2 := crc32.Checksum(buf2[:], crcTable)

	var out [FingerprintSize]byte
	binary.BigEndian.PutUint32(out[0:4], round1)
	binary.BigEndian.PutUint32(out[4:8], round2)
	binary.BigEndian.PutUint32(out[8:12], round1^round2)
	binary.BigEndian.PutUint32(out[12:16], ^(round1 + round2))
	return out
}

// fingerprintFor derives H1: the leading header written at
// userBase - FingerprintSize, verified on every Fingerprint pipeline stage.
func fingerprintFor(userBase uint64, userSize uint64, generation uint32) [FingerprintSize]byte {
	return mixTriple(userBase, userSize, generation, fingerprintDomain)
}

// canaryFor derives H2: the trailing canary written at userBase + userSize,
// verified at free time (mismatch is reported but never blocks the free,
// per spec §3.1).
func canaryFor(userBase uint64, userSize uint64, generation uint32) [FingerprintSize]byte {
	return mixTriple(userBase, userSize, generation, canaryDomain)
}
