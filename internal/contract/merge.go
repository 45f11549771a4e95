package contract

// Merge combines two contracts under the coalesce merge algebra:
//
//   - the result takes the more restrictive of the two modes
//     (fixed < flexible < observed);
//   - a field present in both inputs must carry the identical value type,
//     otherwise the merge fails with a MergeError naming the field and
//     both types;
//   - a field present in only one input is carried over but becomes
//     non-required;
//   - for fields present in both, required is the logical OR;
//   - a declared source wins over an inferred one;
//   - the result is locked if either input is locked.
//
// The algebra is associative and commutative over the field set; only the
// field order depends on operand order (receiver order first, then unseen
// argument fields in the argument's order), which keeps multi-branch folds
// deterministic in branch-declaration order.
func (c *Contract) Merge(other *Contract) (*Contract, error) {
	mode := c.mode
	if other.mode < mode {
		mode = other.mode
	}

	var fields []Field
	for _, left := range c.fields {
		right, both := other.FieldByName(left.NormalizedName)
		if !both {
			left.Required = false
			fields = append(fields, left)
			continue
		}
		if left.Type != right.Type {
			return nil, &MergeError{Field: left.NormalizedName, Left: left.Type, Right: right.Type}
		}
		merged := left
		merged.Required = left.Required || right.Required
		if left.Source == SourceInferred && right.Source == SourceDeclared {
			merged.Source = SourceDeclared
			merged.OriginalName = right.OriginalName
		}
		fields = append(fields, merged)
	}
	for _, right := range other.fields {
		if _, both := c.FieldByName(right.NormalizedName); both {
			continue
		}
		right.Required = false
		fields = append(fields, right)
	}

	out, err := New(mode, fields...)
	if err != nil {
		return nil, err
	}
	out.locked = c.locked || other.locked
	return out, nil
}
