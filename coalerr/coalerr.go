// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package coalerr defines the error taxonomy shared across the
// module: violations of a function's preconditions, loss of
// numerical precision in the big-float kernels, and requests for
// functionality the module does not implement.
package coalerr

import "fmt"

// A ContractError reports that a caller violated a function's stated
// preconditions: n < m in a coalescent kernel call, a negative epoch
// duration or population size, an unknown substitution variable, an
// out-of-order event time, a graph with more than one root, or a
// configuration whose derived+ancestral totals exceed a leaf's sample
// count. ContractErrors are fatal: the caller passed data the engine
// was never meant to make sense of.
type ContractError struct {
	Op  string
	Msg string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// NewContractError builds a ContractError for operation op.
func NewContractError(op, format string, args ...any) *ContractError {
	return &ContractError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// A PrecisionError reports that a big-float computation produced NaN
// or an infinite result where the caller required a finite one,
// signaling either insufficient working precision (see package
// bigfloat's SetPrecision) or malformed input parameters.
type PrecisionError struct {
	Op  string
	Msg string
}

func (e *PrecisionError) Error() string {
	return fmt.Sprintf("%s: precision failure: %s", e.Op, e.Msg)
}

// NewPrecisionError builds a PrecisionError for operation op.
func NewPrecisionError(op, format string, args ...any) *PrecisionError {
	return &PrecisionError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// A NotImplementedError reports a request for functionality outside
// the module's scope: continuous migration between populations, or
// non-diploid ploidy when reading a VCF-derived configuration.
type NotImplementedError struct {
	Feature string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("not implemented: %s", e.Feature)
}

// NewNotImplementedError builds a NotImplementedError for the named
// unsupported feature.
func NewNotImplementedError(feature string) *NotImplementedError {
	return &NotImplementedError{Feature: feature}
}
