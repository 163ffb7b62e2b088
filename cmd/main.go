package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"alphamonitor/cmd/admin"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "AlphaMonitor CMD"
	app.Usage = "The AlphaMonitor command line interface"

	app.Commands = []cli.Command{
		migrateCMD,
		seedAdminCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	migrateCMD = cli.Command{
		Name:        "migrate",
		Usage:       "run schema migrations",
		Action:      migrateAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Apply the database schema and exit`,
	}
	seedAdminCMD = cli.Command{
		Name:        "seed-admin",
		Usage:       "seed the admin account",
		Action:      seedAdminAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Create the configured operator account if absent`,
	}
)

func migrateAction(_ *cli.Context) error {
	logrus.Info("Starting migrate CMD")

	ops := &admin.Admin{}
	if err := ops.Migrate(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func seedAdminAction(_ *cli.Context) error {
	logrus.Info("Starting seed-admin CMD")

	ops := &admin.Admin{}
	if err := ops.SeedAdmin(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}
