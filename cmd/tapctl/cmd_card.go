package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/beepcard/beep-tap/internal/domain/card"
	"github.com/beepcard/beep-tap/internal/infrastructure/cardapi"
	taprequest "github.com/beepcard/beep-tap/internal/interfaces/httpserver/requests/tap"
)

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Show or change the card the agent publishes",
}

var cardShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the selected card",
	Args:  cobra.NoArgs,
	RunE:  agentCall(http.MethodGet, "/tap/card"),
}

var cardSetCmd = &cobra.Command{
	Use:   "set <card-number>",
	Short: "Select the card published by the next session",
	Args:  cobra.ExactArgs(1),
	RunE:  runCardSet,
}

var historyCmd = &cobra.Command{
	Use:   "history [attempt-id]",
	Short: "List recent tap attempts or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "List cards known to the card manager",
	Args:  cobra.NoArgs,
	RunE:  runCards,
}

var transactionsCmd = &cobra.Command{
	Use:   "transactions <card-number>",
	Short: "Show the latest fare transaction of a card",
	Args:  cobra.ExactArgs(1),
	RunE:  runTransactions,
}

func init() {
	cardCmd.AddCommand(cardShowCmd)
	cardCmd.AddCommand(cardSetCmd)

	historyCmd.Flags().String("card", "", "Only attempts for this card")
	historyCmd.Flags().String("result", "", "Only attempts with this result: success, failure")
	historyCmd.Flags().Int("limit", 0, "Maximum number of attempts")

	for _, c := range []*cobra.Command{cardsCmd, transactionsCmd} {
		c.Flags().String("card-api", envOr("CARD_API_URL", "http://localhost:3000"), "Card manager base URL")
	}
}

func runCardSet(cmd *cobra.Command, args []string) error {
	raw, err := agentFromCmd(cmd).do(http.MethodPut, "/tap/card", taprequest.SelectCardRequest{CardID: args[0]}, nil)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), raw)
}

func runHistory(cmd *cobra.Command, args []string) error {
	agent := agentFromCmd(cmd)
	if len(args) == 1 {
		raw, err := agent.do(http.MethodGet, "/tap/history/"+args[0], nil, nil)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), raw)
	}

	query := map[string]string{}
	if v, _ := cmd.Flags().GetString("card"); v != "" {
		query["card_id"] = v
	}
	if v, _ := cmd.Flags().GetString("result"); v != "" {
		query["result"] = v
	}
	if v, _ := cmd.Flags().GetInt("limit"); v > 0 {
		query["limit"] = strconv.Itoa(v)
	}
	raw, err := agent.do(http.MethodGet, "/tap/history", nil, query)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), raw)
}

func cardServiceFromCmd(cmd *cobra.Command) card.Service {
	baseURL, _ := cmd.Flags().GetString("card-api")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	token, _ := cmd.Flags().GetString("token")
	return card.NewService(cardapi.NewClient(baseURL, timeout, token), zerolog.Nop())
}

func runCards(cmd *cobra.Command, _ []string) error {
	cards, err := cardServiceFromCmd(cmd).List(context.Background())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CARD\tBALANCE\tACTIVE")
	for _, c := range cards {
		fmt.Fprintf(w, "%s\t%s\t%t\n", c.ID(), c.Balance.StringFixed(2), c.IsActive)
	}
	return w.Flush()
}

func runTransactions(cmd *cobra.Command, args []string) error {
	tx, err := cardServiceFromCmd(cmd).LatestTransaction(context.Background(), args[0])
	if errors.Is(err, card.ErrNoTransactions) {
		fmt.Fprintln(cmd.OutOrStdout(), "no transactions")
		return nil
	}
	if err != nil {
		return err
	}

	direction := "tap out"
	if tx.TapIn {
		direction = "tap in"
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "card\t%d\n", tx.UUIC)
	fmt.Fprintf(w, "direction\t%s\n", direction)
	fmt.Fprintf(w, "route\t%s -> %s\n", tx.PrevStation, tx.CurrStation)
	fmt.Fprintf(w, "distance\t%s km\n", tx.Distance.StringFixed(2))
	fmt.Fprintf(w, "fare\t%s\n", tx.Fare.StringFixed(2))
	fmt.Fprintf(w, "balance\t%s -> %s\n", tx.InitialBalance.StringFixed(2), tx.CurrBalance.StringFixed(2))
	fmt.Fprintf(w, "at\t%s\n", tx.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	return w.Flush()
}
