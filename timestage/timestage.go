// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package timestage implements a set of event times,
// in generations before present,
// used to collect and order the distinct
// population-split, admixture, and size-change times
// of a demography.
package timestage

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"
)

// A Stager is an interface for types
// that return a list of event times,
// in generations before present.
type Stager interface {
	Stages() []int64
}

// Stages is a set of event times, in generations before present.
type Stages map[int64]bool

// New returns an empty set of event times.
func New() Stages {
	return Stages(make(map[int64]bool))
}

// Read reads one or more event times from a TSV file.
//
// The TSV must be without header
// and the first column should indicate the time
// (in generations before present)
// of each event.
// Any other columns will be ignored.
//
// Here is an example file
//
//	# event times
//	0
//	1000
//	5000
//	12000
func Read(r io.Reader) (Stages, error) {
	tsv := csv.NewReader(r)
	tsv.Comma = '\t'
	tsv.Comment = '#'

	st := New()
	for {
		row, err := tsv.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tsv.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on line %d: %v", ln, err)
		}

		as := strings.TrimSpace(row[0])
		if as == "" {
			continue
		}
		a, err := strconv.ParseInt(as, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("on line %d: read %q: %v", ln, as, err)
		}
		st.AddStage(a)
	}

	return st, nil
}

// Add adds event times from a stager.
func (s Stages) Add(ts Stager) {
	for _, a := range ts.Stages() {
		s[a] = true
	}
}

// AddStage adds an event time.
func (s Stages) AddStage(a int64) {
	s[a] = true
}

// ClosestStageAge returns the closest event time
// for a given time
// (i.e., the age of the oldest event
// younger than, or equal to, the indicated time).
func (s Stages) ClosestStageAge(age int64) int64 {
	st := s.Stages()
	if i, ok := slices.BinarySearch(st, age); !ok {
		return st[i-1]
	}
	return age
}

// Stages returns a sorted slice
// of the defined event times,
// ascending in generations before present.
func (s Stages) Stages() []int64 {
	st := make([]int64, 0, len(s))
	for a := range s {
		st = append(st, a)
	}
	slices.Sort(st)

	return st
}

// Write writes event times into a tab-delimited file.
func (s Stages) Write(w io.Writer) (err error) {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# event times\n")
	fmt.Fprintf(bw, "# data save on: %s\n", time.Now().Format(time.RFC3339))

	tsv := csv.NewWriter(bw)
	tsv.Comma = '\t'
	tsv.UseCRLF = true

	st := s.Stages()
	for _, a := range st {
		row := []string{
			strconv.FormatInt(a, 10),
		}
		if err := tsv.Write(row); err != nil {
			return err
		}
	}
	tsv.Flush()
	if err := tsv.Error(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	return nil
}
