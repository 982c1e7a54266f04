package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/trezcool/darasa/core"
	escsvc "github.com/trezcool/darasa/services/escalate"
	logsvc "github.com/trezcool/darasa/services/logger"
	tabsvc "github.com/trezcool/darasa/services/tabular"
)

func main() {
	defer os.Exit(0)

	logger, err := logsvc.NewZapLogger()
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	defer logger.Sync()

	dataDir := filepath.Join(core.Getwd(), core.Conf.GetString("dataDir"))
	cli := commandLine{
		rows:      tabsvc.NewFileSource(dataDir),
		reviewLog: tabsvc.NewReviewLog(filepath.Join(dataDir, core.Conf.GetString("reviewFile"))),
		report:    tabsvc.NewFileSink(filepath.Join(dataDir, "reports")),
		port:      escsvc.NewConsolePort(),
		log:       logger,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("audit failed", "err", err)
		}
		os.Exit(1)
	}
}
