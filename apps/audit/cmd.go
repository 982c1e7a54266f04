package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/pipeline"
	"github.com/trezcool/darasa/core/record"
	"github.com/trezcool/darasa/core/review"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	rows      core.RowSource
	reviewLog review.Log
	report    core.ReportSink
	port      core.EscalationPort
	log       core.Logger
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  run [-date YYYY-MM-DD] [-once] - audit progress, escalating unresolved errors to the operator")
	fmt.Println("  report [-date YYYY-MM-DD]      - single non-interactive pass")
	fmt.Println("  reviews                        - list the saved operator reviews")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	runDate := runCmd.String("date", "", "Audit reference date (YYYY-MM-DD); defaults to today.")
	runOnce := runCmd.Bool("once", false, "Disable the escalation loop; stop after one pass.")

	reportCmd := flag.NewFlagSet("report", flag.ExitOnError)
	reportDate := reportCmd.String("date", "", "Audit reference date (YYYY-MM-DD); defaults to today.")

	switch args[1] {
	case "run":
		if err := runCmd.Parse(args[2:]); err != nil {
			return err
		}
		if err := setDate(*runDate); err != nil {
			runCmd.Usage()
			return errHelp
		}
		return cli.audit(!*runOnce)
	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if err := setDate(*reportDate); err != nil {
			reportCmd.Usage()
			return errHelp
		}
		return cli.audit(false)
	case "reviews":
		return cli.listReviews()
	default:
		cli.printUsage()
		return errHelp
	}
}

func setDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := record.ParseDate(date); err != nil {
		return err
	}
	core.Conf.Set("currentDate", date)
	return nil
}

func (cli *commandLine) newDriver() *pipeline.Driver {
	engine := review.NewEngine(cli.log)
	engine.RegisterDefaults()
	return pipeline.NewDriver(record.NewStore(), engine, cli.rows, cli.reviewLog, cli.report, cli.port, cli.log)
}

func (cli *commandLine) audit(interactive bool) error {
	state, err := cli.newDriver().Run(interactive)
	if err != nil {
		return err
	}
	fmt.Printf("audit finished: %s\n", state)
	return nil
}

func (cli *commandLine) listReviews() error {
	reviews, err := cli.reviewLog.LoadReviews()
	if err != nil {
		return err
	}
	if len(reviews) == 0 {
		fmt.Println("no reviews recorded")
		return nil
	}
	for _, rev := range reviews {
		status := ""
		if rev.IsIgnored() {
			status = " (ignored)"
		}
		fmt.Printf("%s  %s  %s[%s]%s  %s\n",
			rev.ID, record.FormatDate(rev.Date), rev.BaseType(),
			strings.Join(rev.Params, ", "), status, rev.Comment)
	}
	return nil
}
