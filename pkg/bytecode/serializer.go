package bytecode

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// magicNumber and formatVersion identify the on-disk object file
// format ("HYDR" as a big-endian u32).
const (
	magicNumber  uint32 = 0x48594452
	formatVersion uint32 = 1
)

// Save writes b to path in the object-file format: a magic/version
// header, the raw instruction stream, the constant and string pools,
// and the run-length-encoded debug table.
func Save(b Bytecode, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeU32(w, magicNumber); err != nil {
		return err
	}
	if err := writeU32(w, formatVersion); err != nil {
		return err
	}

	if err := writeU32(w, uint32(len(b.Instructions))); err != nil {
		return err
	}
	if _, err := w.Write(b.Instructions); err != nil {
		return err
	}

	if err := writeConstants(w, b.Constants); err != nil {
		return err
	}
	if err := writeStrings(w, b.Strings); err != nil {
		return err
	}
	if err := writeDebugInfo(w, b.Debug); err != nil {
		return err
	}

	return w.Flush()
}

// Load reads a bytecode object file previously written by Save.
func Load(path string) (Bytecode, error) {
	f, err := os.Open(path)
	if err != nil {
		return Bytecode{}, err
	}
	defer f.Close()

	r := bufio.NewReader(f)

	magic, err := readU32(r)
	if err != nil {
		return Bytecode{}, err
	}
	if magic != magicNumber {
		return Bytecode{}, fmt.Errorf("invalid magic number: expected %#x, got %#x", magicNumber, magic)
	}

	version, err := readU32(r)
	if err != nil {
		return Bytecode{}, err
	}
	if version != formatVersion {
		return Bytecode{}, fmt.Errorf("version mismatch: expected %d, got %d", formatVersion, version)
	}

	instrLen, err := readU32(r)
	if err != nil {
		return Bytecode{}, err
	}
	instructions := make([]byte, instrLen)
	if _, err := io.ReadFull(r, instructions); err != nil {
		return Bytecode{}, err
	}

	constants, err := readConstants(r)
	if err != nil {
		return Bytecode{}, err
	}
	strs, err := readStrings(r)
	if err != nil {
		return Bytecode{}, err
	}
	debug, err := readDebugInfo(r)
	if err != nil {
		return Bytecode{}, err
	}

	return Bytecode{
		Instructions: instructions,
		Constants:    constants,
		Strings:      strs,
		Debug:        debug,
	}, nil
}

func writeConstants(w io.Writer, constants []Constant) error {
	if err := writeU32(w, uint32(len(constants))); err != nil {
		return err
	}
	for _, c := range constants {
		if err := binary.Write(w, binary.BigEndian, byte(c.Kind)); err != nil {
			return err
		}
		switch c.Kind {
		case ConstInt:
			if err := binary.Write(w, binary.BigEndian, c.Int); err != nil {
				return err
			}
		case ConstFloat:
			if err := binary.Write(w, binary.BigEndian, c.Float); err != nil {
				return err
			}
		case ConstBool:
			b := byte(0)
			if c.Bool {
				b = 1
			}
			if err := binary.Write(w, binary.BigEndian, b); err != nil {
				return err
			}
		case ConstString:
			if err := writeString(w, c.String); err != nil {
				return err
			}
		}
	}
	return nil
}

func readConstants(r io.Reader) ([]Constant, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	constants := make([]Constant, 0, n)
	for i := uint32(0); i < n; i++ {
		var kindByte byte
		if err := binary.Read(r, binary.BigEndian, &kindByte); err != nil {
			return nil, err
		}
		kind := ConstantKind(kindByte)
		c := Constant{Kind: kind}
		switch kind {
		case ConstInt:
			if err := binary.Read(r, binary.BigEndian, &c.Int); err != nil {
				return nil, err
			}
		case ConstFloat:
			if err := binary.Read(r, binary.BigEndian, &c.Float); err != nil {
				return nil, err
			}
		case ConstBool:
			var b byte
			if err := binary.Read(r, binary.BigEndian, &b); err != nil {
				return nil, err
			}
			c.Bool = b != 0
		case ConstString:
			s, err := readString(r)
			if err != nil {
				return nil, err
			}
			c.String = s
		default:
			return nil, fmt.Errorf("unknown constant kind %d", kindByte)
		}
		constants = append(constants, c)
	}
	return constants, nil
}

func writeStrings(w io.Writer, strs []string) error {
	if err := writeU32(w, uint32(len(strs))); err != nil {
		return err
	}
	for _, s := range strs {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func readStrings(r io.Reader) ([]string, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	strs := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		strs = append(strs, s)
	}
	return strs, nil
}

func writeDebugInfo(w io.Writer, d *DebugInfo) error {
	if err := writeChanges(w, d.lineChanges); err != nil {
		return err
	}
	if err := writeChanges(w, d.startColChanges); err != nil {
		return err
	}
	return writeChanges(w, d.endColChanges)
}

func readDebugInfo(r io.Reader) (*DebugInfo, error) {
	d := newDebugInfo()
	var err error
	if d.lineChanges, err = readChanges(r); err != nil {
		return nil, err
	}
	if d.startColChanges, err = readChanges(r); err != nil {
		return nil, err
	}
	if d.endColChanges, err = readChanges(r); err != nil {
		return nil, err
	}
	return d, nil
}

func writeChanges(w io.Writer, changes []change) error {
	if err := writeU32(w, uint32(len(changes))); err != nil {
		return err
	}
	for _, ch := range changes {
		if err := writeU32(w, uint32(ch.offset)); err != nil {
			return err
		}
		if err := writeU32(w, uint32(ch.value)); err != nil {
			return err
		}
	}
	return nil
}

func readChanges(r io.Reader) ([]change, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	changes := make([]change, 0, n)
	for i := uint32(0); i < n; i++ {
		offset, err := readU32(r)
		if err != nil {
			return nil, err
		}
		value, err := readU32(r)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change{offset: int(offset), value: int(value)})
	}
	return changes, nil
}

func writeString(w io.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeU32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.BigEndian, v)
}

func readU32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}
