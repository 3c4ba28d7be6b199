// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package main

import "github.com/js-arias/command"

func init() {
	app.Add(projectFileGuide)
	app.Add(demographyFileGuide)
	app.Add(configFileGuide)
}

var projectFileGuide = &command.Command{
	Usage: "project-file",
	Short: "about project files",
	Long: `
coalsfs commands that operate on a batch of configurations, such as
"compute" and "plot", read a project file rather than taking input
files as arguments directly. A project file is a tab-delimited file
with the fields "dataset" and "path":

	# coalsfs project files
	dataset	path
	demography	demo.json
	configs	configs.tab
	output	result

The valid dataset keywords are:

	- demography  a demography file (see "coalsfs help demography-file")
	- configs     a configuration file (see "coalsfs help config-file")
	- output      a path prefix used for command output

The "output" dataset is optional; if not set, output files are named
after the project file itself.
	`,
}

var demographyFileGuide = &command.Command{
	Usage: "demography-file",
	Short: "about demography files",
	Long: `
A demography file is a JSON document describing the rooted graph of
populations that coalsfs evaluates: their size histories, and the
events (leaf origins, merges, admixture pulses) that connect them.

Each population has an id, a leaf flag, and a list of epochs ordered
from most recent to most ancient:

	{
	  "populations": [
	    {"id": "A", "leaf": true, "n_leaf": 10, "epochs": [
	      {"t_start": 0, "tau": 1000, "n_bottom": 5000, "n_top": 5000}
	    ]},
	    {"id": "B", "leaf": true, "n_leaf": 10, "epochs": [
	      {"t_start": 0, "tau": 1000, "n_bottom": 5000, "n_top": 5000}
	    ]},
	    {"id": "AB", "leaf": false, "epochs": [
	      {"t_start": 1000, "tau": null, "n_bottom": 8000, "n_top": 8000}
	    ]}
	  ],
	  "events": [
	    {"kind": "merge", "time": 1000, "children": ["A", "B"], "parent": "AB"}
	  ]
	}

An epoch's tau is null only for the final, open-ended epoch of a
population's history (the one that reaches the root or an event). An
epoch may instead decay exponentially in size by adding a
"growth_rate" field, in which case n_top must equal
n_bottom*exp(-growth_rate*tau).

Event kinds are "leaf", "merge", and "admixture". A merge event names
two children and one parent; an admixture event names one child, two
parents, and a split_probs map giving each parent's share of the
child's lineages (the two shares must sum to 1).
	`,
}

var configFileGuide = &command.Command{
	Usage: "config-file",
	Short: "about configuration files",
	Long: `
A configuration file is a tab-delimited file listing the observed
allele counts at each leaf population, for one or more independent
site configurations:

	config	population	n_ancestral	n_derived
	cfg1	A	4	1
	cfg1	B	5	0
	cfg2	A	3	2
	cfg2	B	5	0

Every leaf population named in the demography file must have exactly
one row for each configuration id.
	`,
}
