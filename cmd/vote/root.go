package vote

import (
	"github.com/ValentinKolb/recstore/cmd/util"
	"github.com/ValentinKolb/recstore/lib/voting"
	"github.com/ValentinKolb/recstore/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcVoting voting.IVoting

	// VoteCommands represents the vote command group
	VoteCommands = &cobra.Command{
		Use:               "vote",
		Short:             "Cast votes and query the tally",
		PersistentPreRunE: setupVotingClient,
	}
)

func init() {
	// Add common RPC flags to the vote command (default service differs from lottery)
	util.SetupRPCClientFlags(VoteCommands, 200)

	// Add subcommands
	VoteCommands.AddCommand(addCmd)
	VoteCommands.AddCommand(getCmd)
	VoteCommands.AddCommand(updateCmd)
	VoteCommands.AddCommand(deleteCmd)
	VoteCommands.AddCommand(clearCmd)
	VoteCommands.AddCommand(listCmd)
	VoteCommands.AddCommand(totalCmd)
	VoteCommands.AddCommand(byCandidateCmd)
	VoteCommands.AddCommand(byVoterCmd)
	VoteCommands.AddCommand(latestCmd)
	VoteCommands.AddCommand(candidatesCmd)
	VoteCommands.AddCommand(tallyCmd)
	VoteCommands.AddCommand(rangeCmd)
	VoteCommands.AddCommand(mostCmd)
	VoteCommands.AddCommand(leastCmd)
	VoteCommands.AddCommand(sortedCmd)
	VoteCommands.AddCommand(perfTestCmd)
}

// setupVotingClient initializes the RPC voting client
func setupVotingClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	rpcVoting, err = client.NewRPCVoting(
		util.GetServiceID(),
		*util.GetClientConfig(),
		util.GetTransport(),
		s,
	)
	return err
}
