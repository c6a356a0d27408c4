// Package main launches a follower node that replicates the state of a
// rollup chain from its main node, re-executing sealed batches locally and
// verifying them against the commitments recorded on L1.
package main

import (
	"fmt"
	"os"
	"runtime"

	joonix "github.com/joonix/log"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/syncstack/follower/cmd/follower/flags"
	"github.com/syncstack/follower/node"
	"github.com/syncstack/follower/shared/cmd"
	"github.com/syncstack/follower/shared/logutil"
	"github.com/syncstack/follower/shared/version"
)

var log = logrus.WithField("prefix", "main")

func startNode(cliCtx *cli.Context) error {
	verbosity := cliCtx.String(cmd.VerbosityFlag.Name)
	level, err := logrus.ParseLevel(verbosity)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	follower, err := node.New(cliCtx)
	if err != nil {
		return err
	}
	follower.Start()
	return nil
}

var appFlags = []cli.Flag{
	flags.ComponentsFlag,
	flags.MainNodeURLFlag,
	flags.MainNodeRateLimitFlag,
	flags.L1EndpointFlag,
	flags.L2ChainIDFlag,
	flags.L1ChainIDFlag,
	flags.DatabaseURLFlag,
	flags.DatabaseMaxConnectionsFlag,
	flags.SlowQueryThresholdFlag,
	flags.HealthCheckPortFlag,
	flags.HealthCheckSlowLimitFlag,
	flags.HealthCheckHardLimitFlag,
	flags.SealQueueCapacityFlag,
	flags.ProtectiveReadsFlag,
	flags.APINamespacesFlag,
	flags.HTTPPortFlag,
	flags.WSPortFlag,
	flags.PruningEnabledFlag,
	flags.PruningRemovalDelayFlag,
	flags.PruningChunkSizeFlag,
	flags.PruningDataRetentionFlag,
	flags.CommitmentModeFlag,
	flags.CommitmentParallelismFlag,
	flags.StateCacheBlockCapacityFlag,
	flags.StateCacheMaxOpenFilesFlag,
	flags.ConsensusSecretsFlag,
	flags.ConsensusPublicAddrFlag,
	cmd.VerbosityFlag,
	cmd.DataDirFlag,
	cmd.ConfigFileFlag,
	cmd.LogFormat,
	cmd.LogFileName,
	cmd.EnableTracingFlag,
	cmd.TracingProcessNameFlag,
	cmd.TracingEndpointFlag,
	cmd.TraceSampleFractionFlag,
	cmd.MonitoringHostFlag,
	cmd.MonitoringPortFlag,
}

func init() {
	appFlags = cmd.WrapFlags(appFlags)
}

func main() {
	app := cli.App{}
	app.Name = "follower"
	app.Usage = "launches a rollup follower node that replicates and verifies the chain state from a main node"
	app.Version = version.GetVersion()
	app.Flags = appFlags
	app.Action = startNode
	app.Before = func(ctx *cli.Context) error {
		// Load any flags from file, if specified.
		if ctx.IsSet(cmd.ConfigFileFlag.Name) {
			if err := altsrc.InitInputSourceWithContext(
				appFlags,
				altsrc.NewYamlSourceFromFlagFunc(
					cmd.ConfigFileFlag.Name))(ctx); err != nil {
				return err
			}
		}

		format := ctx.String(cmd.LogFormat.Name)
		switch format {
		case "text":
			formatter := new(prefixed.TextFormatter)
			formatter.TimestampFormat = "2006-01-02 15:04:05"
			formatter.FullTimestamp = true
			// If persistent log files are written - we disable the log messages coloring because
			// the colors are ANSI codes and seen as Gibberish in the log files.
			formatter.DisableColors = ctx.String(cmd.LogFileName.Name) != ""
			logrus.SetFormatter(formatter)
		case "fluentd":
			logrus.SetFormatter(joonix.NewFormatter())
		case "json":
			logrus.SetFormatter(&logrus.JSONFormatter{})
		default:
			return fmt.Errorf("unknown log format %s", format)
		}

		logFileName := ctx.String(cmd.LogFileName.Name)
		if logFileName != "" {
			if err := logutil.ConfigurePersistentLogging(logFileName); err != nil {
				log.WithError(err).Error("Failed to configuring logging to disk.")
			}
		}

		runtime.GOMAXPROCS(runtime.NumCPU())
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
