package merge

import "fmt"

// Materialize walks state's instructions and applies them against
// source to produce the target bytes state describes. It is not part
// of the core merge contract — the merge engine itself never
// reconstructs M or T — but it is a useful property-testing and CLI
// convenience built on the same State representation, in the same
// spirit as the wire decoder's own decodeWindow byte walk.
//
// CopyModeTargetWindow instructions (an earlier window's target,
// propagated but never resolved against an outer source) cannot be
// materialized by this function, since it has no access to that
// earlier target's bytes; it returns an error instead of guessing.
func Materialize(source []byte, state *State) ([]byte, error) {
	target := make([]byte, 0, state.Length)

	for i := 0; i < state.NumInsts(); i++ {
		inst := state.Inst(i)

		switch inst.Kind {
		case KindRun:
			b := state.ArenaBytes(inst.Addr, 1)[0]
			for k := uint32(0); k < inst.Size; k++ {
				target = append(target, b)
			}

		case KindAdd:
			target = append(target, state.ArenaBytes(inst.Addr, inst.Size)...)

		case KindCopy:
			switch inst.Mode {
			case CopyModeSource:
				end := inst.Addr + uint64(inst.Size)
				if end > uint64(len(source)) {
					return nil, wrapInvalid("materialize: source copy [%d:%d] exceeds source length %d", inst.Addr, end, len(source))
				}
				target = append(target, source[inst.Addr:end]...)

			case CopyModeTarget:
				end := inst.Addr + uint64(inst.Size)
				if end > uint64(len(target)) {
					return nil, wrapInvalid("materialize: target copy [%d:%d] exceeds emitted target length %d", inst.Addr, end, len(target))
				}
				// The check above admits only bytes already emitted, so an
				// overlapping self-copy (one reaching past the current end
				// of target) is rejected rather than expanded.
				for k := uint64(0); k < uint64(inst.Size); k++ {
					target = append(target, target[inst.Addr+k])
				}

			case CopyModeTargetWindow:
				return nil, fmt.Errorf("materialize: instruction %d copies from an earlier window's target, which this state does not carry bytes for", i)

			default:
				return nil, wrapInternal("materialize: instruction %d has unrecognized copy mode %v", i, inst.Mode)
			}

		default:
			return nil, wrapInternal("materialize: instruction %d has unexpected kind %v", i, inst.Kind)
		}
	}

	return target, nil
}
