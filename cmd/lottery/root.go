package lottery

import (
	"github.com/ValentinKolb/recstore/cmd/util"
	"github.com/ValentinKolb/recstore/lib/lottery"
	"github.com/ValentinKolb/recstore/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcLottery lottery.ILottery

	// LotteryCommands represents the lottery command group
	LotteryCommands = &cobra.Command{
		Use:               "lottery",
		Short:             "Buy tickets and conduct draws",
		PersistentPreRunE: setupLotteryClient,
	}
)

func init() {
	// Add common RPC flags to the lottery command
	util.SetupRPCClientFlags(LotteryCommands, 100)

	// Add subcommands
	LotteryCommands.AddCommand(buyCmd)
	LotteryCommands.AddCommand(checkCmd)
	LotteryCommands.AddCommand(updateCmd)
	LotteryCommands.AddCommand(deleteCmd)
	LotteryCommands.AddCommand(ticketsCmd)
	LotteryCommands.AddCommand(ownerCmd)
	LotteryCommands.AddCommand(clearTicketsCmd)
	LotteryCommands.AddCommand(drawCmd)
	LotteryCommands.AddCommand(getDrawCmd)
	LotteryCommands.AddCommand(joinCmd)
	LotteryCommands.AddCommand(drawsCmd)
	LotteryCommands.AddCommand(resultsCmd)
	LotteryCommands.AddCommand(clearDrawsCmd)
}

// setupLotteryClient initializes the RPC lottery client
func setupLotteryClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	rpcLottery, err = client.NewRPCLottery(
		util.GetServiceID(),
		*util.GetClientConfig(),
		util.GetTransport(),
		s,
	)
	return err
}
