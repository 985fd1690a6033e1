package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/AgnopraxLab/LineFuzz/flags"
)

// linefuzz mutate --operator swap_line --count 5 --file ./seed.txt --hex

var (
	app = initApp()
)

func initApp() *cli.App {
	app := cli.NewApp()
	app.Name = filepath.Base(os.Args[0])
	app.Usage = "Line-oriented test-case mutator"
	app.Flags = append(app.Flags, flags.VerbosityFlag)
	app.Commands = []*cli.Command{
		{
			Name:  "mutate",
			Usage: "Apply line operators to a single input file",
			Flags: []cli.Flag{
				flags.FileFlag,
				flags.OperatorFlag,
				flags.CursorFlag,
				flags.CountFlag,
				flags.SeedFlag,
				flags.MaxRepetitionsFlag,
				flags.LocationFlag,
				flags.HexFlag,
			},
			Action: mutate,
		},
		{
			Name:  "campaign",
			Usage: "Run a configured mutation campaign over a corpus directory",
			Flags: []cli.Flag{
				flags.ConfigFlag,
				flags.CorpusFlag,
				flags.LocationFlag,
				flags.SeedFlag,
				flags.CountFlag,
				flags.ThreadFlag,
			},
			Action: campaign,
		},
	}
	return app
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
