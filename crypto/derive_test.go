package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func testProgram(fill byte) [AddressLength]byte {
	var program [AddressLength]byte
	copy(program[:], bytes.Repeat([]byte{fill}, AddressLength))
	return program
}

func TestFindProgramAddressDeterministic(t *testing.T) {
	program := testProgram(0x11)
	seeds := [][]byte{[]byte("MARKETPLACE"), bytes.Repeat([]byte{0x01}, 20), bytes.Repeat([]byte{0x02}, 20)}

	first, bump, err := FindProgramAddress(seeds, program)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	second, bumpAgain, err := FindProgramAddress(seeds, program)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if first != second || bump != bumpAgain {
		t.Fatalf("derivation not deterministic: %x/%d vs %x/%d", first, bump, second, bumpAgain)
	}
	if bump != 255 {
		t.Fatalf("expected first bump to be viable, got %d", bump)
	}

	recreated, err := CreateProgramAddress(append(seeds, []byte{bump}), program)
	if err != nil {
		t.Fatalf("CreateProgramAddress: %v", err)
	}
	if recreated != first {
		t.Fatalf("re-derivation mismatch: %x vs %x", recreated, first)
	}
}

func TestFindProgramAddressSensitiveToEveryComponent(t *testing.T) {
	program := testProgram(0x11)
	base := [][]byte{[]byte("MARKETPLACE_LISTING"), {0x01}, Uint64Seed(500), {0x03}}
	baseline, _, err := FindProgramAddress(base, program)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}

	for i := range base {
		mutated := make([][]byte, len(base))
		for j := range base {
			mutated[j] = append([]byte(nil), base[j]...)
		}
		mutated[i] = append(mutated[i], 0xFF)
		addr, _, err := FindProgramAddress(mutated, program)
		if err != nil {
			t.Fatalf("FindProgramAddress mutated %d: %v", i, err)
		}
		if addr == baseline {
			t.Fatalf("changing seed %d did not change the address", i)
		}
	}

	other, _, err := FindProgramAddress(base, testProgram(0x12))
	if err != nil {
		t.Fatalf("FindProgramAddress other program: %v", err)
	}
	if other == baseline {
		t.Fatalf("changing program did not change the address")
	}
}

func TestCreateProgramAddressLengthPrefixesSeeds(t *testing.T) {
	program := testProgram(0x21)
	a, err := CreateProgramAddress([][]byte{[]byte("ab"), []byte("c")}, program)
	if err != nil {
		t.Fatalf("CreateProgramAddress: %v", err)
	}
	b, err := CreateProgramAddress([][]byte{[]byte("a"), []byte("bc")}, program)
	if err != nil {
		t.Fatalf("CreateProgramAddress: %v", err)
	}
	if a == b {
		t.Fatalf("seed boundaries must affect the derived address")
	}
}

func TestFindProgramAddressSkipsReservedCandidates(t *testing.T) {
	program := testProgram(0x31)
	seeds := [][]byte{[]byte("FEE")}

	rejected := 0
	reservedCheck = func(addr [AddressLength]byte) bool {
		if rejected < 3 {
			rejected++
			return true
		}
		return false
	}
	t.Cleanup(func() { reservedCheck = IsReservedAddress })

	addr, bump, err := FindProgramAddress(seeds, program)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if bump != 252 {
		t.Fatalf("expected bump 252 after three rejections, got %d", bump)
	}

	reservedCheck = IsReservedAddress
	recreated, err := CreateProgramAddress([][]byte{[]byte("FEE"), {bump}}, program)
	if err != nil {
		t.Fatalf("CreateProgramAddress: %v", err)
	}
	if recreated != addr {
		t.Fatalf("stored bump must reproduce the address")
	}
}

func TestFindProgramAddressExhaustsBumps(t *testing.T) {
	reservedCheck = func([AddressLength]byte) bool { return true }
	t.Cleanup(func() { reservedCheck = IsReservedAddress })

	if _, _, err := FindProgramAddress([][]byte{[]byte("x")}, testProgram(0x41)); !errors.Is(err, ErrNoViableBump) {
		t.Fatalf("expected ErrNoViableBump, got %v", err)
	}
}

func TestCreateProgramAddressRejectsOversizedSeeds(t *testing.T) {
	if _, err := CreateProgramAddress([][]byte{bytes.Repeat([]byte{1}, MaxSeedLength+1)}, testProgram(1)); !errors.Is(err, ErrSeedTooLong) {
		t.Fatalf("expected ErrSeedTooLong, got %v", err)
	}
	seeds := make([][]byte, MaxSeeds)
	for i := range seeds {
		seeds[i] = []byte{byte(i)}
	}
	if _, _, err := FindProgramAddress(seeds, testProgram(1)); !errors.Is(err, ErrTooManySeeds) {
		t.Fatalf("expected ErrTooManySeeds, got %v", err)
	}
}

func TestDerivedSignerProves(t *testing.T) {
	program := testProgram(0x51)
	seeds := [][]byte{[]byte("MARKETPLACE"), []byte("MARKETPLACE_SIGNER")}
	addr, bump, err := FindProgramAddress(seeds, program)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	signer := DerivedSigner{Program: program, Seeds: seeds, Bump: bump}
	if !signer.Proves(addr) {
		t.Fatalf("expected proof to verify")
	}
	forged := DerivedSigner{Program: testProgram(0x52), Seeds: seeds, Bump: bump}
	if forged.Proves(addr) {
		t.Fatalf("proof under another program must not verify")
	}
	wrongBump := DerivedSigner{Program: program, Seeds: seeds, Bump: bump - 1}
	if wrongBump.Proves(addr) {
		t.Fatalf("proof with a different bump must not verify")
	}
}

func TestSystemAddressIsReserved(t *testing.T) {
	if !IsReservedAddress(SystemAddress(7)) {
		t.Fatalf("system address must be reserved")
	}
	if IsReservedAddress(testProgram(0x01)) {
		t.Fatalf("non-system address reported as reserved")
	}
}
