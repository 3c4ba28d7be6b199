// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package validate implements a command that checks a demography file
// (and, optionally, a configuration file) against this package's
// structural invariants without evaluating any likelihood.
package validate

import (
	"fmt"
	"os"

	"github.com/js-arias/command"

	"github.com/coalsfs/coalsfs/sfsio"
)

var Command = &command.Command{
	Usage: "validate <demography-file> [<config-file>]",
	Short: "check a demography file for structural errors",
	Long: `
Command validate reads a demography file (see "coalsfs help
demography-file") and reports any violation of its invariants: exactly
one root population, event times consistent with the populations they
connect, and disjoint leaf sets beneath every merge whose children do
not descend from an admixture pulse.

If a configuration file is given (see "coalsfs help config-file"), it
is also checked: every leaf population named in the demography must
have an entry in every configuration, and no configuration may assign
more lineages to a leaf than its declared sample size.

The command prints "ok", followed by a line listing the demography's
distinct event times, and exits with status 0 if every check passes,
or prints the first violation found and exits with a non-zero status.
	`,
	Run: run,
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting demography file")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	g, err := sfsio.ReadDemography(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("on file %q: %v", args[0], err)
	}

	if len(args) > 1 {
		cf, err := os.Open(args[1])
		if err != nil {
			return err
		}
		configs, err := sfsio.ReadConfigs(cf)
		cf.Close()
		if err != nil {
			return fmt.Errorf("on file %q: %v", args[1], err)
		}
		for _, cfg := range configs {
			if err := sfsio.Apply(g, cfg); err != nil {
				return fmt.Errorf("configuration %q: %v", cfg.ID, err)
			}
		}
	}

	fmt.Println("ok")
	times := g.EventTimes().Stages()
	fmt.Printf("%d event time(s):", len(times))
	for _, t := range times {
		fmt.Printf(" %d", t)
	}
	fmt.Println()
	return nil
}
