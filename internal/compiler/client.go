package compiler

// Client is the sink for compiled output. Compile invokes it in a fixed
// order: WriteActions once, then zero or more of each bytecode writer in
// declaration order, then Finalize once. Each byte slice is an opaque,
// independently addressable blob; callers may write the blobs of one stream
// into one contiguous section.
//
// A client that has received partial writes must discard everything written
// so far when Compile returns an error.
type Client interface {
	WriteActions(actions []byte)
	WriteFiltersWithoutConditionsBytecode(bytecode []byte)
	WriteFiltersWithConditionsBytecode(bytecode []byte)
	WriteConditionedFiltersBytecode(bytecode []byte)
	Finalize()
}
