package merge

// State is a Whole-Target State: a fully-decoded delta held
// as {byte arena, instruction vector, length}. It represents one delta
// against a named source — either the external source S (for a state
// built by AppendWindow straight off the wire) or, after a merge, the
// same source as the merge's own source state.
//
// A State is exclusively owned by its current holder. Ownership moves
// by swapping the two buffer fields (Swap), never by aliasing.
type State struct {
	arena  byteArena
	insts  instVec
	Length uint64
}

// Init prepares a zero-valued State for use. Mirrors whole_state_init;
// in Go there is no allocation failure to report, so it has no error
// return, unlike a C-shaped allocator contract.
func (s *State) Init() {
	s.arena = newByteArena()
	s.insts = newInstVec()
	s.Length = 0
}

// Free releases the State's buffers. Go's GC reclaims the memory; Free
// exists for API parity with whole_state_free and so callers can drop
// a reference without relying on scope exit.
func (s *State) Free() {
	s.arena = byteArena{}
	s.insts = instVec{}
	s.Length = 0
}

// Swap exchanges ownership of a and b's buffers in place.
func Swap(a, b *State) {
	*a, *b = *b, *a
}

// NumInsts returns the number of instructions currently in the state.
func (s *State) NumInsts() int {
	return s.insts.len()
}

// Inst returns the i'th instruction.
func (s *State) Inst(i int) Winst {
	return s.insts.at(i)
}

// ArenaBytes returns the size bytes of immediate data starting at off.
func (s *State) ArenaBytes(off uint64, size uint32) []byte {
	return s.arena.slice(off, size)
}

// AppendRun appends a RUN instruction of the given size, whose repeat
// byte is recorded in the arena: RUN consumes exactly one byte from the
// data cursor regardless of its logical size.
func (s *State) AppendRun(size uint32, repeatByte byte) {
	addr := s.arena.appendByte(repeatByte)
	s.push(KindRun, CopyModeTarget, size, addr)
}

// AppendAdd appends an ADD instruction whose payload is copied into the
// arena in full.
func (s *State) AppendAdd(data []byte) {
	addr := s.arena.append(data)
	s.push(KindAdd, CopyModeTarget, uint32(len(data)), addr)
}

// AppendCopy appends a COPY instruction. addr's meaning depends on mode,
// per Winst's doc comment.
func (s *State) AppendCopy(mode CopyMode, addr uint64, size uint32) {
	s.push(KindCopy, mode, size, addr)
}

func (s *State) push(kind InstKind, mode CopyMode, size uint32, addr uint64) {
	s.insts.append(Winst{
		Kind:     kind,
		Mode:     mode,
		Size:     size,
		Position: s.Length,
		Addr:     addr,
	})
	s.Length += uint64(size)
}
