// Package bytecode lowers DFAs into the linear instruction stream executed
// by the runtime matcher. One blob encodes one machine; blobs are
// independently addressable and may be concatenated into sections of a
// single file.
//
// The interpreter contract: execution starts at offset 0 (the root state's
// block) with the subject URL bytes followed by one end-of-line sentinel
// (0x00). Entering a state appends its matching actions, then dispatches on
// the current input byte through the state's check instructions; a check
// that matches jumps to the target state's block and consumes the byte; a
// Terminate halts the machine. Every consumed byte passes through at most
// one state block, so interpretation is linear in the subject length.
package bytecode

import "encoding/binary"

// Opcode is the one-byte instruction tag.
type Opcode byte

const (
	// OpTerminate halts the machine.
	OpTerminate Opcode = iota
	// OpCheckValue jumps to a u32 offset if the input byte equals a value.
	OpCheckValue
	// OpCheckRange jumps to a u32 offset if the input byte is within
	// [lo, hi].
	OpCheckRange
	// OpAppendAction appends the action at a u32 action-table offset.
	OpAppendAction
	// OpTestFlagsAndAppendAction appends the action at a u32 action-table
	// offset if the u32 flag word intersects the request's flags.
	OpTestFlagsAndAppendAction
)

// Instruction sizes in bytes, opcode included.
const (
	terminateSize                = 1
	checkValueSize               = 1 + 1 + 4
	checkRangeSize               = 1 + 2 + 4
	appendActionSize             = 1 + 4
	testFlagsAndAppendActionSize = 1 + 4 + 4
)

// All multi-byte operands are little-endian.
var byteOrder = binary.LittleEndian
