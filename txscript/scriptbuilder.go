// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txscript provides the small subset of script construction the
// mining core needs: building a coinbase's signature script out of pushed
// integers and data, the way the lineage's txscript.ScriptBuilder does.
package txscript

import (
	"github.com/pkg/errors"
)

// OP_0 pushes the empty array onto the stack, used as the fork and
// standard coinbase's trailing opcode (spec §4.2, §4.5).
const OP_0 = 0x00

// MaxScriptElementSize is the consensus limit on a single pushed data
// element.
const MaxScriptElementSize = 520

// ErrScriptNotCanonical is returned when an operation on a ScriptBuilder
// would not produce a canonical script, mirroring the lineage's error.
var ErrScriptNotCanonical = errors.New("script is not canonical")

// ScriptBuilder provides a facility for building custom scripts.  It
// allows you to push opcodes, ints, and data while respecting canonical
// encoding.  In general it does not ensure the script will execute
// correctly, only that it is canonically encoded.
type ScriptBuilder struct {
	script []byte
	err    error
}

// NewScriptBuilder returns a new instance of a script builder.
func NewScriptBuilder() *ScriptBuilder {
	return &ScriptBuilder{script: make([]byte, 0, 32)}
}

// AddOp pushes the passed opcode to the end of the script.
func (b *ScriptBuilder) AddOp(opcode byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	b.script = append(b.script, opcode)
	return b
}

// AddInt64 pushes the passed integer to the end of the script using the
// minimal number of bytes, the way CScriptNum push-encoding does:
// little-endian magnitude with a sign bit in the high bit of the final
// byte, padded with an extra zero byte when the magnitude alone would
// already set that bit.
func (b *ScriptBuilder) AddInt64(val int64) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	if val == 0 {
		return b.AddData(nil)
	}
	return b.AddData(serializeScriptNum(val))
}

func serializeScriptNum(val int64) []byte {
	if val == 0 {
		return nil
	}

	negative := val < 0
	absVal := val
	if negative {
		absVal = -val
	}

	var result []byte
	for absVal > 0 {
		result = append(result, byte(absVal&0xff))
		absVal >>= 8
	}

	if result[len(result)-1]&0x80 != 0 {
		if negative {
			result = append(result, 0x80)
		} else {
			result = append(result, 0x00)
		}
	} else if negative {
		result[len(result)-1] |= 0x80
	}

	return result
}

// AddData pushes the passed data to the end of the script, automatically
// choosing canonical opcodes depending on the length of the data.
func (b *ScriptBuilder) AddData(data []byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	if len(data) > MaxScriptElementSize {
		b.err = errors.Wrapf(ErrScriptNotCanonical, "adding data of length %d would exceed the maximum allowed script element size of %d",
			len(data), MaxScriptElementSize)
		return b
	}

	b.script = append(b.script, addDataPrefix(len(data))...)
	b.script = append(b.script, data...)
	return b
}

// addDataPrefix returns the canonical push opcode(s) for a data push of
// the given length.  Direct pushes (length fits in the opcode byte
// itself) are all this core ever needs.
func addDataPrefix(dataLen int) []byte {
	switch {
	case dataLen == 0:
		return []byte{0x00}
	case dataLen < 0x4c:
		return []byte{byte(dataLen)}
	case dataLen <= 0xff:
		return []byte{0x4c, byte(dataLen)}
	default:
		return []byte{0x4d, byte(dataLen), byte(dataLen >> 8)}
	}
}

// Script returns the currently built script.  When any errors occurred
// while building the script, the script will be returned up to the point
// of the first error along with the error.
func (b *ScriptBuilder) Script() ([]byte, error) {
	return b.script, b.err
}
