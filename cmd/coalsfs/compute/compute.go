// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package compute implements a command that evaluates the joint
// site-frequency-spectrum likelihood of a batch of observed
// configurations over a demography.
package compute

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/js-arias/command"

	"github.com/coalsfs/coalsfs/demography"
	"github.com/coalsfs/coalsfs/likelihood"
	"github.com/coalsfs/coalsfs/project"
	"github.com/coalsfs/coalsfs/sfsio"
)

var Command = &command.Command{
	Usage: `compute [--cpu <number>] [-o|--output <file>] <project-file>`,
	Short: "perform a likelihood evaluation",
	Long: `
Command compute reads a coalsfs project (see "coalsfs help
demography-file" and "coalsfs help config-file" for the datasets it
references), evaluates the joint site-frequency-spectrum likelihood of
every configuration in the project's batch, and writes a tab-delimited
file with one row per configuration.

By default, all available CPUs are used to evaluate the batch of
configurations concurrently; set --cpu to use a different number.

Results are written to the project's "output" path suffixed with
"-like.tab", or to the file named with --output (or -o).
	`,
	SetFlags: setFlags,
	Run:      run,
}

var numCPU int
var output string

func setFlags(c *command.Command) {
	c.Flags().IntVar(&numCPU, "cpu", runtime.GOMAXPROCS(0), "")
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}

	demFile := p.Path(project.Demography)
	if demFile == "" {
		return c.UsageError(fmt.Sprintf("demography not defined in project %q", args[0]))
	}
	g, err := readDemography(demFile)
	if err != nil {
		return err
	}

	cfgFile := p.Path(project.Configs)
	if cfgFile == "" {
		return c.UsageError(fmt.Sprintf("configurations not defined in project %q", args[0]))
	}
	configs, err := readConfigs(cfgFile)
	if err != nil {
		return err
	}

	graphs := make([]*demography.Graph, len(configs))
	for i, cfg := range configs {
		gc, err := sfsio.Clone(g, cfg)
		if err != nil {
			return fmt.Errorf("configuration %q: %v", cfg.ID, err)
		}
		graphs[i] = gc
	}

	results := likelihood.ComputeSFSBatch(graphs, numCPU)

	name := output
	if name == "" {
		name = p.Path(project.Output)
		if name == "" {
			name = args[0]
		}
		name += "-like.tab"
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeResults(f, demFile, cfgFile, configs, results)
}

func readDemography(name string) (*demography.Graph, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := sfsio.ReadDemography(f)
	if err != nil {
		return nil, fmt.Errorf("on file %q: %v", name, err)
	}
	return g, nil
}

func readConfigs(name string) ([]sfsio.Config, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfgs, err := sfsio.ReadConfigs(f)
	if err != nil {
		return nil, fmt.Errorf("on file %q: %v", name, err)
	}
	return cfgs, nil
}

func writeResults(out *os.File, demFile, cfgFile string, configs []sfsio.Config, results []likelihood.BatchResult) (err error) {
	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "# coalsfs compute on demography %q, configurations %q\n", demFile, cfgFile)
	fmt.Fprintf(w, "# date: %s\n", time.Now().Format(time.RFC3339))

	tsv := csv.NewWriter(w)
	tsv.Comma = '\t'
	tsv.UseCRLF = true
	if err := tsv.Write([]string{"config", "likelihood", "error"}); err != nil {
		return err
	}

	for i, cfg := range configs {
		r := results[i]
		errMsg := ""
		if r.Err != nil {
			errMsg = r.Err.Error()
		}
		row := []string{cfg.ID, strconv.FormatFloat(r.Value, 'g', 17, 64), errMsg}
		if err := tsv.Write(row); err != nil {
			return err
		}
	}

	tsv.Flush()
	if err := tsv.Error(); err != nil {
		return err
	}
	return w.Flush()
}
