package dynlink

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2020 vorteil.io Pty Ltd
 */

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeSym describes one dynamic symbol table entry for a synthetic library.
// undefined true means SHN_UNDEF (an import this library needs satisfied
// elsewhere); undefined false means the library defines the symbol itself.
type fakeSym struct {
	name      string
	bind      elf.SymBind
	vis       elf.SymVis
	undefined bool
}

// fakeLib describes one synthetic shared object written by writeFakeLib:
// its NEEDED/RPATH/RUNPATH dynamic entries and its dynamic symbol table.
// The dependency-walk and symbol-resolution tests only need control over
// these fields, never over instructions or real code, so writeFakeLib
// never emits a PT_LOAD segment or any executable bytes.
type fakeLib struct {
	needed  []string
	rpath   string
	runpath string
	syms    []fakeSym
}

// writeFakeLib builds a minimal but valid ELF64 little-endian shared
// object at path: a NULL section, a section header string table, a
// .dynstr string table, a .dynamic section referencing it, and (when
// lib.syms is non-empty) a .dynsym symbol table referencing it. This is
// enough for elf.NewFile, File.DynString, File.ImportedLibraries and
// File.DynamicSymbols to parse it the same way they parse a real
// library, without needing a real compiler to produce one -- a synthetic
// fixture gives tests full control over NEEDED/RPATH/RUNPATH entries and
// the dynamic symbol table's exact bind/visibility/section shape, which
// a compiled binary would not.
func writeFakeLib(t *testing.T, path string, lib fakeLib) {
	t.Helper()

	var dynstr bytes.Buffer
	dynstr.WriteByte(0) // index 0 is always the empty string

	strIndex := func(s string) uint32 {
		if s == "" {
			return 0
		}
		idx := uint32(dynstr.Len())
		dynstr.WriteString(s)
		dynstr.WriteByte(0)
		return idx
	}

	type dynEntry struct {
		tag elf.DynTag
		val uint64
	}
	var dyn []dynEntry
	for _, n := range lib.needed {
		dyn = append(dyn, dynEntry{elf.DT_NEEDED, uint64(strIndex(n))})
	}
	if lib.rpath != "" {
		dyn = append(dyn, dynEntry{elf.DT_RPATH, uint64(strIndex(lib.rpath))})
	}
	if lib.runpath != "" {
		dyn = append(dyn, dynEntry{elf.DT_RUNPATH, uint64(strIndex(lib.runpath))})
	}
	dyn = append(dyn, dynEntry{elf.DT_NULL, 0})

	var dynSection bytes.Buffer
	for _, e := range dyn {
		require.NoError(t, binary.Write(&dynSection, binary.LittleEndian, elf.Dyn64{Tag: int64(e.tag), Val: e.val}))
	}

	var dynsymSection bytes.Buffer
	// Index 0 is always the all-zero null symbol.
	require.NoError(t, binary.Write(&dynsymSection, binary.LittleEndian, elf.Sym64{}))
	for _, s := range lib.syms {
		shndx := uint16(1)
		if s.undefined {
			shndx = uint16(elf.SHN_UNDEF)
		}
		sym := elf.Sym64{
			Name:  strIndex(s.name),
			Info:  byte(s.bind) << 4,
			Other: byte(s.vis),
			Shndx: shndx,
		}
		require.NoError(t, binary.Write(&dynsymSection, binary.LittleEndian, sym))
	}

	sections := []struct {
		name    string
		typ     elf.SectionType
		link    uint32
		entsize uint64
		data    []byte
	}{
		{"", elf.SHT_NULL, 0, 0, nil},
		{".shstrtab", elf.SHT_STRTAB, 0, 0, nil}, // data filled in below
		{".dynstr", elf.SHT_STRTAB, 0, 0, dynstr.Bytes()},
		{".dynamic", elf.SHT_DYNAMIC, 2, 16, dynSection.Bytes()},
	}
	if len(lib.syms) > 0 {
		sections = append(sections, struct {
			name    string
			typ     elf.SectionType
			link    uint32
			entsize uint64
			data    []byte
		}{".dynsym", elf.SHT_DYNSYM, 2, elf.Sym64Size, dynsymSection.Bytes()})
	}

	var shstrtab bytes.Buffer
	shstrtab.WriteByte(0)
	nameOffsets := make([]uint32, len(sections))
	for i, s := range sections {
		if s.name == "" {
			continue
		}
		nameOffsets[i] = uint32(shstrtab.Len())
		shstrtab.WriteString(s.name)
		shstrtab.WriteByte(0)
	}
	sections[1].data = shstrtab.Bytes()

	const ehsize = 64
	const shentsize = 64

	offset := uint64(ehsize)
	type placedSection struct {
		hdr elf.Section64
	}
	placed := make([]placedSection, len(sections))
	for i, s := range sections {
		placed[i].hdr = elf.Section64{
			Name:    nameOffsets[i],
			Type:    uint32(s.typ),
			Link:    s.link,
			Entsize: s.entsize,
			Off:     offset,
			Size:    uint64(len(s.data)),
		}
		offset += uint64(len(s.data))
	}
	shoff := offset

	var body bytes.Buffer
	for _, s := range sections {
		body.Write(s.data)
	}

	var out bytes.Buffer
	ident := [16]byte{0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT)}
	hdr := elf.Header64{
		Ident:     ident,
		Type:      uint16(elf.ET_DYN),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     shoff,
		Ehsize:    ehsize,
		Shentsize: shentsize,
		Shnum:     uint16(len(sections)),
		Shstrndx:  1,
	}
	require.NoError(t, binary.Write(&out, binary.LittleEndian, hdr))
	out.Write(body.Bytes())
	for _, p := range placed {
		require.NoError(t, binary.Write(&out, binary.LittleEndian, p.hdr))
	}

	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o644))
}

// fakeDir is a small filesystem-path helper so scenario tests can build a
// tree of fake libraries under t.TempDir() without repeating filepath.Join.
func fakeDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

func libPath(dir, name string) string {
	return filepath.Join(dir, name)
}
