package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/recstore/cmd/lottery"
	"github.com/ValentinKolb/recstore/cmd/serve"
	"github.com/ValentinKolb/recstore/cmd/util"
	"github.com/ValentinKolb/recstore/cmd/vote"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "recstore",
		Short: "record store for lottery and voting services",
		Long: fmt.Sprintf(`recstore (v%s)

A typed record store written in Go. It keeps lottery tickets, draws and
votes in a key-value store, either locally or replicated with RAFT,
and serves them over HTTP.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of recstore",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("recstore v%s\n", Version)
		},
	}
)

func init() {
	// Read .env files and RECSTORE_* variables before any command runs
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(lottery.LotteryCommands)
	RootCmd.AddCommand(vote.VoteCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "msgpack", util.WrapString("serializer to use (json, gob, msgpack), client and server must agree"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
