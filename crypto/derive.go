package crypto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// Protocol-derived addresses are computed as
//
//	keccak256(len(s0) || s0 || ... || len(sN) || sN || bump || program || marker)[12:]
//
// Each seed is length-prefixed so that moving bytes between adjacent seeds
// always changes the digest. A candidate landing in the reserved system range
// is rejected and the caller retries with the next lower bump.

const (
	// MaxSeedLength bounds the size of a single derivation seed.
	MaxSeedLength = 32
	// MaxSeeds bounds the number of seeds, bump included.
	MaxSeeds = 16

	derivationMarker  = "ProgramDerivedAddress"
	reservedPrefixLen = 18
)

var (
	// ErrReservedAddress is returned when a candidate derivation lands in the
	// reserved system range.
	ErrReservedAddress = errors.New("derive: candidate address is reserved")
	// ErrNoViableBump is returned when every bump from 255 down to 0 yields a
	// reserved address.
	ErrNoViableBump = errors.New("derive: unable to find a viable bump seed")
	// ErrSeedTooLong is returned for seeds longer than MaxSeedLength.
	ErrSeedTooLong = errors.New("derive: seed exceeds maximum length")
	// ErrTooManySeeds is returned when more than MaxSeeds seeds are supplied.
	ErrTooManySeeds = errors.New("derive: too many seeds")
)

// reservedCheck is swapped by tests to force bump iteration.
var reservedCheck = IsReservedAddress

// IsReservedAddress reports whether addr falls inside the system range: the
// zero address and every address whose first 18 bytes are zero. Native
// programs and system accounts live there, so derived records never may.
func IsReservedAddress(addr [AddressLength]byte) bool {
	for i := 0; i < reservedPrefixLen; i++ {
		if addr[i] != 0 {
			return false
		}
	}
	return true
}

// SystemAddress returns the reserved address with the supplied trailing id.
// Native programs are identified by system addresses.
func SystemAddress(id uint16) [AddressLength]byte {
	var out [AddressLength]byte
	binary.BigEndian.PutUint16(out[reservedPrefixLen:], id)
	return out
}

// CreateProgramAddress hashes the seeds (the last of which is normally the
// bump) under program. It fails with ErrReservedAddress when the result is in
// the reserved range.
func CreateProgramAddress(seeds [][]byte, program [AddressLength]byte) ([AddressLength]byte, error) {
	var out [AddressLength]byte
	if len(seeds) > MaxSeeds {
		return out, ErrTooManySeeds
	}
	var buf bytes.Buffer
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return out, fmt.Errorf("%w: seed %d has %d bytes", ErrSeedTooLong, i, len(seed))
		}
		buf.WriteByte(byte(len(seed)))
		buf.Write(seed)
	}
	buf.Write(program[:])
	buf.WriteString(derivationMarker)
	digest := crypto.Keccak256(buf.Bytes())
	copy(out[:], digest[12:])
	if reservedCheck(out) {
		return out, ErrReservedAddress
	}
	return out, nil
}

// FindProgramAddress searches bumps from 255 downwards and returns the first
// viable derived address together with the bump that produced it.
func FindProgramAddress(seeds [][]byte, program [AddressLength]byte) ([AddressLength]byte, uint8, error) {
	if len(seeds)+1 > MaxSeeds {
		return [AddressLength]byte{}, 0, ErrTooManySeeds
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, program)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrReservedAddress) {
			return [AddressLength]byte{}, 0, err
		}
	}
	return [AddressLength]byte{}, 0, ErrNoViableBump
}

// DerivedSigner is the authority proof a program presents in place of a
// private-key signature: the derivation inputs for an address it controls.
// Anyone can verify the proof by re-deriving the address; only the program
// named in the proof may present it.
type DerivedSigner struct {
	Program [AddressLength]byte
	Seeds   [][]byte
	Bump    uint8
}

// Address re-derives the authority address described by the proof.
func (s DerivedSigner) Address() ([AddressLength]byte, error) {
	seeds := make([][]byte, len(s.Seeds)+1)
	copy(seeds, s.Seeds)
	seeds[len(s.Seeds)] = []byte{s.Bump}
	return CreateProgramAddress(seeds, s.Program)
}

// Proves reports whether the proof re-derives exactly authority.
func (s DerivedSigner) Proves(authority [AddressLength]byte) bool {
	addr, err := s.Address()
	if err != nil {
		return false
	}
	return addr == authority
}

// Uint64Seed encodes v as an 8-byte big-endian seed.
func Uint64Seed(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}
