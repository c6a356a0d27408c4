// This code was adapted from https://github.com/ethereum/go-ethereum/blob/master/cmd/geth/usage.go
package main

import (
	"io"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/syncstack/follower/cmd/follower/flags"
	"github.com/syncstack/follower/shared/cmd"
)

var appHelpTemplate = `NAME:
   {{.App.Name}} - {{.App.Usage}}
USAGE:
   {{.App.HelpName}} [options]{{if .App.Commands}} command [command options]{{end}} {{if .App.ArgsUsage}}{{.App.ArgsUsage}}{{else}}[arguments...]{{end}}
   {{if .App.Version}}
AUTHOR:
   {{range .App.Authors}}{{ . }}{{end}}
   {{end}}{{if .App.Commands}}
GLOBAL OPTIONS:
   {{range .App.Commands}}{{join .Names ", "}}{{ "\t" }}{{.Usage}}
   {{end}}{{end}}{{if .FlagGroups}}
{{range .FlagGroups}}{{.Name}} OPTIONS:
   {{range .Flags}}{{.}}
   {{end}}
{{end}}{{end}}{{if .App.Copyright }}
COPYRIGHT:
   {{.App.Copyright}}
VERSION:
   {{.App.Version}}
   {{end}}{{if len .App.Authors}}
   {{end}}
`

type flagGroup struct {
	Name  string
	Flags []cli.Flag
}

var appHelpFlagGroups = []flagGroup{
	{
		Name: "cmd",
		Flags: []cli.Flag{
			cmd.DataDirFlag,
			cmd.VerbosityFlag,
			cmd.ConfigFileFlag,
			cmd.EnableTracingFlag,
			cmd.TracingProcessNameFlag,
			cmd.TracingEndpointFlag,
			cmd.TraceSampleFractionFlag,
			cmd.MonitoringHostFlag,
			cmd.MonitoringPortFlag,
		},
	},
	{
		Name: "follower",
		Flags: []cli.Flag{
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
			flags.CommitmentModeFlag,
			flags.CommitmentParallelismFlag,
			flags.StateCacheBlockCapacityFlag,
			flags.StateCacheMaxOpenFilesFlag,
		},
	},
	{
		Name: "api",
		Flags: []cli.Flag{
			flags.APINamespacesFlag,
			flags.HTTPPortFlag,
			flags.WSPortFlag,
		},
	},
	{
		Name: "pruning",
		Flags: []cli.Flag{
			flags.PruningEnabledFlag,
			flags.PruningRemovalDelayFlag,
			flags.PruningChunkSizeFlag,
			flags.PruningDataRetentionFlag,
		},
	},
	{
		Name: "consensus",
		Flags: []cli.Flag{
			flags.ConsensusSecretsFlag,
			flags.ConsensusPublicAddrFlag,
		},
	},
	{
		Name: "log",
		Flags: []cli.Flag{
			cmd.LogFormat,
			cmd.LogFileName,
		},
	},
}

func init() {
	cli.AppHelpTemplate = appHelpTemplate

	type helpData struct {
		App        interface{}
		FlagGroups []flagGroup
	}

	originalHelpPrinter := cli.HelpPrinter
	cli.HelpPrinter = func(w io.Writer, tmpl string, data interface{}) {
		if tmpl == appHelpTemplate {
			for _, group := range appHelpFlagGroups {
				sort.Sort(cli.FlagsByName(group.Flags))
			}
			originalHelpPrinter(w, tmpl, helpData{data, appHelpFlagGroups})
		} else {
			originalHelpPrinter(w, tmpl, data)
		}
	}
}
