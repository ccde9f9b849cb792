package vote

import (
	"fmt"

	"github.com/ValentinKolb/recstore/cmd/util"
	"github.com/spf13/cobra"
)

var (
	addCmd = &cobra.Command{
		Use:   "add [candidate] [voter]",
		Short: "Casts a vote for a candidate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vote, err := rpcVoting.AddVote(args[0], args[1])
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), vote)
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [vote]",
		Short: "Shows a vote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := util.ParseID("vote", args[0])
			if err != nil {
				return err
			}
			vote, err := rpcVoting.GetVote(id)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), vote)
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [vote] [candidate] [voter]",
		Short: "Replaces candidate and voter of a vote",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := util.ParseID("vote", args[0])
			if err != nil {
				return err
			}
			vote, err := rpcVoting.UpdateVote(id, args[1], args[2])
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), vote)
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [vote]",
		Short: "Deletes a vote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := util.ParseID("vote", args[0])
			if err != nil {
				return err
			}
			vote, err := rpcVoting.DeleteVote(id)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), vote)
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Deletes all votes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcVoting.ClearVotes(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "votes cleared")
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all votes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			votes, err := rpcVoting.Votes()
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), votes)
		},
	}
	totalCmd = &cobra.Command{
		Use:   "total",
		Short: "Prints the number of votes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := rpcVoting.TotalVotes()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), total)
			return nil
		},
	}
	byCandidateCmd = &cobra.Command{
		Use:   "by-candidate [candidate]",
		Short: "Lists the votes for a candidate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			votes, err := rpcVoting.VotesByCandidate(args[0])
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), votes)
		},
	}
	byVoterCmd = &cobra.Command{
		Use:   "by-voter [voter]",
		Short: "Lists the votes of a voter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			votes, err := rpcVoting.VotesByVoter(args[0])
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), votes)
		},
	}
	latestCmd = &cobra.Command{
		Use:   "latest",
		Short: "Prints the timestamp of the newest vote (0 without votes)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := rpcVoting.LatestVoteTimestamp()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ts)
			return nil
		},
	}
	candidatesCmd = &cobra.Command{
		Use:   "candidates",
		Short: "Lists every candidate with at least one vote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			candidates, err := rpcVoting.Candidates()
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), candidates)
		},
	}
	tallyCmd = &cobra.Command{
		Use:   "tally",
		Short: "Prints the number of votes per candidate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tally, err := rpcVoting.CandidateVotes()
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), tally)
		},
	}
	rangeCmd = &cobra.Command{
		Use:   "range [start] [end]",
		Short: "Lists the votes cast between two timestamps (inclusive)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := util.ParseID("start", args[0])
			if err != nil {
				return err
			}
			end, err := util.ParseID("end", args[1])
			if err != nil {
				return err
			}
			votes, err := rpcVoting.VotesInTimeRange(start, end)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), votes)
		},
	}
	mostCmd = &cobra.Command{
		Use:   "most",
		Short: "Prints the candidate with the most votes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			candidate, err := rpcVoting.MostVotedCandidate()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), candidate)
			return nil
		},
	}
	leastCmd = &cobra.Command{
		Use:   "least",
		Short: "Prints the candidate with the fewest votes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			candidate, err := rpcVoting.LeastVotedCandidate()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), candidate)
			return nil
		},
	}
	sortedCmd = &cobra.Command{
		Use:   "sorted",
		Short: "Lists all votes, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			votes, err := rpcVoting.VotesSortedByTimestamp()
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), votes)
		},
	}
)
