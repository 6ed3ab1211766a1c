package grammar

// Statement is a candidate that passed validation and is permitted for
// execution.
//
// The zero Statement is empty and unusable; the only way to obtain a
// non-zero one is Spec.Admit, which validates first. Downstream code can
// therefore take a Statement as proof that the text is in the grammar's
// language, instead of re-checking or trusting a bare string.
type Statement struct {
	text string
}

// Text returns the statement exactly as validated. The executor submits
// this verbatim to the store.
func (s Statement) Text() string {
	return s.text
}

// IsZero reports whether the statement is the unusable zero value.
func (s Statement) IsZero() bool {
	return s.text == ""
}
