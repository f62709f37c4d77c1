package merge

// DecodedInstruction is one window-local (type, size, addr) triple as
// handed to the Window Appender by the wire decoder. Addr is only
// meaningful for KindCopy; RUN and ADD instead draw their bytes from
// DecodedWindow.Data via an internal cursor, matching the wire
// decoder's own data-section walk.
type DecodedInstruction struct {
	Kind InstKind
	Size uint32
	Addr uint64
}

// DecodedWindow is everything the Window Appender needs from one
// decoded VCDIFF window: the window's source span (if any), whether
// that span addresses the external source or an earlier window's
// target, the window's immediate-data section, and the window-local
// instruction triples. Two triples per macro-op (e.g. an ADD+COPY code
// table entry) are expected to already have been split out by the
// decoder; KindNoop is a permitted placeholder and is skipped here.
type DecodedWindow struct {
	SrcOff  uint64
	SrcLen  uint64
	SrcMode CopyMode // CopyModeSource or CopyModeTargetWindow
	Data    []byte
	Insts   []DecodedInstruction
}

// AppendWindow consumes one decoded window and appends it to state,
// rewriting copy addresses into state's flat target-absolute or
// source-absolute form.
//
// A decoded COPY's addr is window-local. If addr < window's SrcLen (the
// "source-or-target window"), the produced Winst has Mode = SrcMode and
// Addr = SrcOff + addr. Otherwise the copy targets this window's own
// already-produced output, and the produced Winst has Mode =
// CopyModeTarget and Addr = baseTargetLen + (addr - SrcLen), where
// baseTargetLen is state.Length as it stood before this call.
func AppendWindow(state *State, w DecodedWindow) error {
	baseTargetLen := state.Length
	cursor := 0

	for _, di := range w.Insts {
		switch di.Kind {
		case KindNoop:
			continue

		case KindRun:
			if cursor >= len(w.Data) {
				return wrapInvalid("window appender: RUN requires 1 data byte but none remain (cursor %d, data len %d)", cursor, len(w.Data))
			}
			state.AppendRun(di.Size, w.Data[cursor])
			cursor++

		case KindAdd:
			end := cursor + int(di.Size)
			if end > len(w.Data) {
				return wrapInvalid("window appender: ADD requires %d data bytes but only %d remain", di.Size, len(w.Data)-cursor)
			}
			state.AppendAdd(w.Data[cursor:end])
			cursor = end

		case KindCopy:
			if di.Addr < w.SrcLen {
				state.AppendCopy(w.SrcMode, w.SrcOff+di.Addr, di.Size)
			} else {
				state.AppendCopy(CopyModeTarget, baseTargetLen+(di.Addr-w.SrcLen), di.Size)
			}

		default:
			return wrapInternal("window appender: unknown instruction kind %v", di.Kind)
		}
	}

	return nil
}
