package main

import (
	"flag"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/quantex/exchange-core/config"
	"github.com/quantex/exchange-core/pkg/infra"
	"github.com/quantex/exchange-core/pkg/logging"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}
	if _, err := logging.Init(cfg.LogLevel, cfg.ServiceName+"-migrate"); err != nil {
		panic(err)
	}

	mgTool := infra.GetMigrateTool()
	mgTool.Migrate("file://migration/sql", cfg.TradesDB.MigrationConnURL)
}
