package types

import "errors"

var (
	ErrUndefinedType   = errors.New("Type is malformed or undefined")
	ErrDuplicateAlias  = errors.New("Type alias is already defined with a different meaning")
	ErrAliasCycle      = errors.New("Type alias refers back to itself")
	ErrIllegalType     = errors.New("Illegal combination of dataio and public type")
	ErrFloatFactor     = errors.New("Float type is missing its float factor")
	ErrInvalidSize     = errors.New("Array size declaration is invalid")
	ErrUnknownConstant = errors.New("Array size refers to an unknown constant")
	ErrMissingSize     = errors.New("Type needs a size but none was declared")
	ErrComplexVector   = errors.New("Vectors of complex element types are not supported")
	ErrUnsizedValue    = errors.New("Type has no size and cannot carry values")
	ErrActualSizeField = errors.New("Array size field has no usable value")
)
