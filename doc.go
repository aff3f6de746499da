// Package verity compares data against declarative requirements and
// reports every difference in one error.
//
// It provides:
//
//   - A difference taxonomy (Missing/Extra/Invalid/Deviation) with value
//     equality across numeric widths
//   - Requirement dispatch over predicates, sets, ordered sequences and
//     per-key mappings (NewRequirement/Validate/CheckRequirement)
//   - An allowance algebra for filtering expected differences out of a
//     failure (Allow*/Apply/Guard)
//
// Design policy:
//   - Keep only public APIs in the root package; put the fingerprint
//     encoding under internal/.
//   - Place requirement documents under reqdoc/ and the CLI under
//     cmd/verity.
//   - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	req := verity.NewRequirement(map[string]any{
//		"name":  "alpha",
//		"count": verity.RequiredInterval(1, 100),
//	})
//	if err := verity.Validate(data, req); err != nil {
//		var ve *verity.ValidationError
//		if errors.As(err, &ve) {
//			fmt.Println(ve.Differences().Len(), "differences")
//		}
//	}
//
//	allow := verity.AllowExtra().WithMessage("legacy rows")
//	err := allow.Guard(func() error {
//		return verity.Validate(rows, verity.RequiredSet(want))
//	})
package verity
