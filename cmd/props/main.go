package main

import (
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/propslab/props"
	"github.com/propslab/props/chain"
	"github.com/propslab/props/pkg/logger"
	"github.com/propslab/props/pkg/stacks"
)

var (
	version = "dev"
	date    = "unknown"
)

// Persistent flags shared by all subcommands
var (
	flagNodeURL   string
	flagContract  string
	flagSender    string
	flagRetries   int
	flagBaseDelay time.Duration
	flagLogLevel  string
)

// Subcommand flags
var (
	flagWindow        uint64
	flagConcurrency   int
	flagView          string
	flagHistoryWindow uint64
	flagReceivedLimit int
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:     "props",
		Short:   "Query the props contract leaderboard and player history",
		Version: fmt.Sprintf("%s (built %s)", version, date),
	}

	root.PersistentFlags().StringVar(&flagNodeURL, "node-url", "http://localhost:3999", "node API base URL")
	root.PersistentFlags().StringVar(&flagContract, "contract", "SP000000000000000000002Q6VF78.props-v1", "fully qualified contract identifier")
	root.PersistentFlags().StringVar(&flagSender, "sender", "SP000000000000000000002Q6VF78", "sender principal for read-only calls")
	root.PersistentFlags().IntVar(&flagRetries, "retries", props.DefaultRetries, "attempts per chain lookup")
	root.PersistentFlags().DurationVar(&flagBaseDelay, "base-delay", props.DefaultBaseDelay, "base delay between chain lookups")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newLeaderboardCmd(), newHistoryCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Scan the most recent props and print the ranked leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			aggregator := newAggregator(
				props.WithLeaderboardWindow(flagWindow),
				props.WithConcurrency(flagConcurrency),
			)

			report, err := aggregator.Leaderboard(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tPLAYER\tRECEIVED\tGIVEN")
			for _, entry := range report.Entries {
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", entry.Rank, entry.Player, entry.Received, entry.Given)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Uint64Var(&flagWindow, "window", props.DefaultLeaderboardWindow, "how many recent props to scan")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 1, "parallel chain lookups (1 = sequential)")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <player>",
		Short: "Print a player's props history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := props.ParseView(flagView)
			if err != nil {
				return err
			}

			aggregator := newAggregator(
				props.WithHistoryWindow(flagHistoryWindow),
				props.WithReceivedLimit(flagReceivedLimit),
			)

			history, err := aggregator.History(cmd.Context(), args[0], view)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tDIRECTION\tGIVER\tRECEIVER\tMEMO")
			for _, entry := range history {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", entry.Index, entry.Direction, entry.Giver, entry.Receiver, entry.Memo)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&flagView, "view", "all", "history view (received, given, all)")
	cmd.Flags().Uint64Var(&flagHistoryWindow, "window", props.DefaultHistoryWindow, "how many recent props to scan for given/all views")
	cmd.Flags().IntVar(&flagReceivedLimit, "received-limit", props.DefaultReceivedLimit, "how many received props to fetch")
	return cmd
}

// newAggregator wires the chain reader with the persistent flags
func newAggregator(opts ...props.Option) *props.Aggregator {
	log := logger.NewFromConfig(logger.Config{
		LogLevel:         flagLogLevel,
		LogHumanFriendly: true,
	})

	httpClient := &http.Client{Timeout: 10 * time.Second}
	client := stacks.NewClient(httpClient, flagNodeURL)
	reader := chain.NewReader(client, flagContract, flagSender)

	base := []props.Option{
		props.WithLogger(log),
		props.WithRetries(flagRetries),
		props.WithBaseDelay(flagBaseDelay),
	}
	return props.New(reader, append(base, opts...)...)
}
