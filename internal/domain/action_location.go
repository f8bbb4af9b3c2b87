package domain

// ActionLocationAndFlags packs everything an accepting automaton state needs
// to know about one rule into a single 64-bit value:
//
//   - bits 0-31:  byte offset of the serialized action in the action table
//   - bits 32-62: the trigger's ResourceFlags
//   - bit 63:     if-condition marker (domain conditions use if-domain
//     polarity rather than unless-domain)
//
// The layout is the binary compatibility contract between the bytecode
// compiler and the runtime interpreter; neither side may move a bit.
type ActionLocationAndFlags uint64

const (
	// ActionLocationMask covers the action-table offset bits.
	ActionLocationMask ActionLocationAndFlags = 0x00000000FFFFFFFF
	// ActionFlagMask covers the flag bits, if-condition marker included.
	ActionFlagMask ActionLocationAndFlags = 0xFFFFFFFF00000000
	// IfConditionFlag marks if-domain polarity. It lives in the flag word,
	// above every ResourceFlags bit.
	IfConditionFlag ActionLocationAndFlags = 1 << 63
)

// PackActionLocation combines a trigger's resource flags with the byte offset
// of its serialized action. Flags colliding with the if-condition bit are a
// programming error.
func PackActionLocation(flags ResourceFlags, location uint32) ActionLocationAndFlags {
	packed := ActionLocationAndFlags(flags)<<32 | ActionLocationAndFlags(location)
	if packed&IfConditionFlag != 0 {
		panic("domain: resource flags collide with the if-condition bit")
	}
	return packed
}

// Location returns the byte offset into the serialized action table.
func (a ActionLocationAndFlags) Location() uint32 {
	return uint32(a & ActionLocationMask)
}

// Flags returns the trigger's resource flags, without the if-condition bit.
func (a ActionLocationAndFlags) Flags() ResourceFlags {
	return ResourceFlags((a &^ IfConditionFlag) >> 32)
}

// FlagWord returns the full 32-bit flag half, if-condition bit included.
// This is the value the bytecode compiler embeds in flag-test instructions.
func (a ActionLocationAndFlags) FlagWord() uint32 {
	return uint32(a >> 32)
}

// HasIfCondition reports whether the if-domain polarity marker is set.
func (a ActionLocationAndFlags) HasIfCondition() bool {
	return a&IfConditionFlag != 0
}

// WithIfCondition returns the value with the if-domain polarity marker set.
func (a ActionLocationAndFlags) WithIfCondition() ActionLocationAndFlags {
	return a | IfConditionFlag
}
