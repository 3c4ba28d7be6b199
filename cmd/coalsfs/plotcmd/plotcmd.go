// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package plotcmd implements a command that renders a bar chart of
// the joint site-frequency-spectrum likelihoods of a batch of
// configurations, as a quick visual diagnostic of a compute run.
package plotcmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/js-arias/command"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/coalsfs/coalsfs/demography"
	"github.com/coalsfs/coalsfs/likelihood"
	"github.com/coalsfs/coalsfs/project"
	"github.com/coalsfs/coalsfs/sfsio"
)

var Command = &command.Command{
	Usage: `plot [--cpu <number>] [-o|--output <file>] <project-file>`,
	Short: "plot a batch of configuration likelihoods",
	Long: `
Command plot reads a coalsfs project (see "coalsfs help
demography-file" and "coalsfs help config-file"), evaluates the joint
site-frequency-spectrum likelihood of every configuration in its batch,
and saves a bar chart of the results as a PNG image.

By default, the image is saved at the project's "output" path suffixed
with "-like.png"; use --output (or -o) to set a different file name.
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
	df, err := os.Open(demFile)
	if err != nil {
		return err
	}
	g, err := sfsio.ReadDemography(df)
	df.Close()
	if err != nil {
		return fmt.Errorf("on file %q: %v", demFile, err)
	}

	cfgFile := p.Path(project.Configs)
	if cfgFile == "" {
		return c.UsageError(fmt.Sprintf("configurations not defined in project %q", args[0]))
	}
	cf, err := os.Open(cfgFile)
	if err != nil {
		return err
	}
	configs, err := sfsio.ReadConfigs(cf)
	cf.Close()
	if err != nil {
		return fmt.Errorf("on file %q: %v", cfgFile, err)
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

	vals := make(plotter.Values, len(results))
	for i, r := range results {
		if r.Err != nil {
			return fmt.Errorf("configuration %q: %v", configs[i].ID, r.Err)
		}
		vals[i] = r.Value
	}

	plt := plot.New()
	plt.Y.Label.Text = "joint SFS likelihood"
	plt.X.Label.Text = "configuration index"

	bars, err := plotter.NewBarChart(vals, vg.Points(6))
	if err != nil {
		return fmt.Errorf("while building chart: %v", err)
	}
	plt.Add(bars)

	name := output
	if name == "" {
		name = p.Path(project.Output)
		if name == "" {
			name = args[0]
		}
		name += "-like.png"
	}
	return plt.Save(6*vg.Inch, 4*vg.Inch, name)
}
