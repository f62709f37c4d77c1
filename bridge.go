package vcdiff

import "github.com/ably/vcdiff-merge/merge"

// windowToDecodedWindow walks a window's instruction stream the same
// way decodeWindow does — consulting the address cache in instruction
// order so HERE/NEAR/SAME modes resolve exactly as they would during a
// real decode — but instead of materializing target bytes it only
// tracks how many the window has produced so far. The result is handed
// to the merge engine's Window Appender, which never needs M or T's
// bytes to compose two deltas.
func windowToDecodedWindow(window *Window) (merge.DecodedWindow, error) {
	addressCache := NewAddressCache(NearCacheSize, SameCacheSize)
	addressCache.Reset(window.AddressSection)

	instructions, err := parseInstructions(window.InstructionSection, window.DataSection, addressCache)
	if err != nil {
		return merge.DecodedWindow{}, err
	}

	var sourceLength uint32
	if window.WinIndicator&(VCDSource|VCDTarget) != 0 {
		sourceLength = window.SourceSegmentSize
	}

	srcMode := merge.CopyModeSource
	if window.WinIndicator&VCDTarget != 0 {
		srcMode = merge.CopyModeTargetWindow
	}

	dw := merge.DecodedWindow{
		SrcOff:  uint64(window.SourceSegmentPosition),
		SrcLen:  uint64(sourceLength),
		SrcMode: srcMode,
		Data:    window.DataSection,
		Insts:   make([]merge.DecodedInstruction, 0, len(instructions)),
	}

	var targetLen uint32

	for _, inst := range instructions {
		switch inst.Type {
		case NoOp:
			continue

		case Add:
			dw.Insts = append(dw.Insts, merge.DecodedInstruction{Kind: merge.KindAdd, Size: inst.Size})
			targetLen += inst.Size

		case Run:
			dw.Insts = append(dw.Insts, merge.DecodedInstruction{Kind: merge.KindRun, Size: inst.Size})
			targetLen += inst.Size

		case Copy:
			here := targetLen + sourceLength
			addr, err := addressCache.DecodeAddress(here, inst.Mode)
			if err != nil {
				return merge.DecodedWindow{}, err
			}
			dw.Insts = append(dw.Insts, merge.DecodedInstruction{
				Kind: merge.KindCopy,
				Size: inst.Size,
				Addr: uint64(addr),
			})
			targetLen += inst.Size

		default:
			return merge.DecodedWindow{}, errInvalidValue("instruction type", 0, inst.Type, "unrecognized instruction type during bridge translation")
		}
	}

	if targetLen != window.TargetWindowLength {
		return merge.DecodedWindow{}, errInvalidValue("target window length", 0, targetLen,
			"does not match declared TargetWindowLength")
	}

	return dw, nil
}

// DeltaToState parses delta and translates every window in it into the
// merge engine's flat State representation, ready to be folded into a
// chain with merge.Reduce. The caller owns the returned State and must
// eventually call its Free method (directly, or implicitly via Reduce).
func DeltaToState(delta []byte) (*merge.State, error) {
	parsed, err := ParseDelta(delta)
	if err != nil {
		return nil, err
	}

	state := new(merge.State)
	state.Init()

	for i := range parsed.Windows {
		dw, err := windowToDecodedWindow(&parsed.Windows[i])
		if err != nil {
			return nil, err
		}
		if err := merge.AppendWindow(state, dw); err != nil {
			return nil, err
		}
	}

	return state, nil
}
