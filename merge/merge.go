package merge

// MergeInputs composes source = Δ(S→M) and input = Δ(M→T) into a fresh
// output = Δ(S→T), without materializing M or T. On success,
// output.Length == input.Length and output's instructions are strictly
// ordered, contiguous, and cover [0, output.Length).
//
// For every instruction in input, in order:
//   - RUN/ADD: its bytes are copied into output's arena and an
//     identical RUN/ADD is emitted.
//   - COPY with Mode CopyModeTarget or CopyModeTargetWindow: already
//     references T (or an earlier window's target); emitted unchanged.
//   - COPY with Mode CopyModeSource: resolved against source, since
//     source describes M in terms of S (see resolveSourceCopy).
func MergeInputs(source, input *State) (*State, error) {
	var output State
	output.Init()

	for i := 0; i < input.NumInsts(); i++ {
		if err := mergeOneInstruction(&output, source, input, input.Inst(i)); err != nil {
			return nil, err
		}
	}

	return &output, nil
}

// mergeOneInstruction applies the per-input-instruction merge dispatch
// for a single instruction, appending the result to output. It touches
// only source (read-only) and input (read-only) besides output, which
// is exactly the independence an optional concurrent path relies on:
// callers may run this for many instructions concurrently as long as
// each gets its own output.
func mergeOneInstruction(output, source, input *State, iinst Winst) error {
	switch iinst.Kind {
	case KindRun:
		repeatByte := input.ArenaBytes(iinst.Addr, 1)[0]
		output.AppendRun(iinst.Size, repeatByte)
		return nil

	case KindAdd:
		data := input.ArenaBytes(iinst.Addr, iinst.Size)
		output.AppendAdd(data)
		return nil

	case KindCopy:
		switch iinst.Mode {
		case CopyModeTarget, CopyModeTargetWindow:
			output.AppendCopy(iinst.Mode, iinst.Addr, iinst.Size)
			return nil

		case CopyModeSource:
			return resolveSourceCopy(output, source, iinst.Addr, iinst.Size)

		default:
			return wrapInternal("merge: COPY instruction has unrecognized mode %v", iinst.Mode)
		}

	default:
		return wrapInternal("merge: input instruction has unexpected kind %v", iinst.Kind)
	}
}

// resolveSourceCopy translates "copy size bytes starting at offset a in
// M" into one or more instructions on S. source describes M in terms
// of S, so a source-instruction-by-source-instruction walk
// starting at a splits the input copy at every source-instruction
// boundary it crosses — the union of input-copy and source-instruction
// boundaries, which is the canonical minimal split.
func resolveSourceCopy(output, source *State, a uint64, remaining uint32) error {
	for remaining > 0 {
		j, err := Find(source, a)
		if err != nil {
			return err
		}
		sinst := source.Inst(j)

		segOff := uint32(a - sinst.Position)
		segLeft := sinst.Size - segOff

		take := remaining
		if segLeft < take {
			take = segLeft
		}

		switch sinst.Kind {
		case KindRun:
			repeatByte := source.ArenaBytes(sinst.Addr, 1)[0]
			output.AppendRun(take, repeatByte)

		case KindAdd:
			data := source.ArenaBytes(sinst.Addr+uint64(segOff), take)
			output.AppendAdd(data)

		case KindCopy:
			// SOURCE copies collapse: a Δ(M→T) copy from M composed
			// with a Δ(S→M) copy from S yields a Δ(S→T) copy from S
			// directly. A chained TARGET-mode copy is propagated
			// as-is (mode preserved) rather than resolved further.
			output.AppendCopy(sinst.Mode, sinst.Addr+uint64(segOff), take)

		default:
			return wrapInternal("merge: source instruction %d has unexpected kind %v", j, sinst.Kind)
		}

		a += uint64(take)
		remaining -= take
	}

	return nil
}
