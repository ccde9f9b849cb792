package lottery

import (
	"fmt"

	"github.com/ValentinKolb/recstore/cmd/util"
	"github.com/spf13/cobra"
)

var (
	buyCmd = &cobra.Command{
		Use:   "buy [owner] [numbers...]",
		Short: "Buys a ticket with six numbers between 1 and 49",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			numbers, err := util.ParseNumbers(args[1:])
			if err != nil {
				return err
			}
			ticket, err := rpcLottery.BuyTicket(args[0], numbers)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), ticket)
		},
	}
	checkCmd = &cobra.Command{
		Use:   "check [ticket]",
		Short: "Shows a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := util.ParseID("ticket", args[0])
			if err != nil {
				return err
			}
			ticket, err := rpcLottery.CheckTicket(id)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), ticket)
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [ticket] [numbers...]",
		Short: "Replaces the numbers of a ticket",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := util.ParseID("ticket", args[0])
			if err != nil {
				return err
			}
			numbers, err := util.ParseNumbers(args[1:])
			if err != nil {
				return err
			}
			ticket, err := rpcLottery.UpdateTicket(id, numbers)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), ticket)
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [ticket]",
		Short: "Deletes a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := util.ParseID("ticket", args[0])
			if err != nil {
				return err
			}
			ticket, err := rpcLottery.DeleteTicket(id)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), ticket)
		},
	}
	ticketsCmd = &cobra.Command{
		Use:   "tickets",
		Short: "Lists all tickets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tickets, err := rpcLottery.AllTickets()
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), tickets)
		},
	}
	ownerCmd = &cobra.Command{
		Use:   "owner [owner]",
		Short: "Lists the tickets of an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tickets, err := rpcLottery.TicketsByOwner(args[0])
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), tickets)
		},
	}
	clearTicketsCmd = &cobra.Command{
		Use:   "clear-tickets",
		Short: "Deletes all tickets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcLottery.ClearTickets(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "tickets cleared")
			return nil
		},
	}
	drawCmd = &cobra.Command{
		Use:   "draw [numbers...]",
		Short: "Conducts a draw with the given winning numbers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			numbers, err := util.ParseNumbers(args)
			if err != nil {
				return err
			}
			draw, err := rpcLottery.ConductDraw(numbers)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), draw)
		},
	}
	getDrawCmd = &cobra.Command{
		Use:   "get-draw [draw]",
		Short: "Shows a draw",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := util.ParseID("draw", args[0])
			if err != nil {
				return err
			}
			draw, err := rpcLottery.GetDraw(id)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), draw)
		},
	}
	joinCmd = &cobra.Command{
		Use:   "join [ticket] [draw]",
		Short: "Lets a ticket participate in a draw",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticketID, err := util.ParseID("ticket", args[0])
			if err != nil {
				return err
			}
			drawID, err := util.ParseID("draw", args[1])
			if err != nil {
				return err
			}
			draw, err := rpcLottery.Participate(ticketID, drawID)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), draw)
		},
	}
	drawsCmd = &cobra.Command{
		Use:   "draws",
		Short: "Lists all draws",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draws, err := rpcLottery.AllDraws()
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), draws)
		},
	}
	resultsCmd = &cobra.Command{
		Use:   "results [draw]",
		Short: "Shows the matching numbers of every ticket in a draw",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := util.ParseID("draw", args[0])
			if err != nil {
				return err
			}
			results, err := rpcLottery.DrawResults(id)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), results)
		},
	}
	clearDrawsCmd = &cobra.Command{
		Use:   "clear-draws",
		Short: "Deletes all draws",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcLottery.ClearDraws(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "draws cleared")
			return nil
		},
	}
)
