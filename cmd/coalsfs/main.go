// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// CoalSFS evaluates Kingman coalescent site-frequency-spectrum
// likelihoods over a demographic history.
package main

import (
	"github.com/js-arias/command"

	"github.com/coalsfs/coalsfs/cmd/coalsfs/compute"
	"github.com/coalsfs/coalsfs/cmd/coalsfs/plotcmd"
	"github.com/coalsfs/coalsfs/cmd/coalsfs/validate"
)

var app = &command.Command{
	Usage: "coalsfs <command> [<argument>...]",
	Short: "evaluate coalescent site-frequency-spectrum likelihoods",
}

func init() {
	app.Add(compute.Command)
	app.Add(plotcmd.Command)
	app.Add(validate.Command)
}

func main() {
	app.Main()
}
