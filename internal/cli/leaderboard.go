package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aura-network/aura/internal/app/leaderboard"
)

func init() {
	rootCmd.AddCommand(leaderboardCmd)

	leaderboardCmd.Flags().StringP("board", "b", "monthly", "Board to show: monthly or all_time")
	leaderboardCmd.Flags().StringP("query", "q", "", "Only show users whose id contains this text")
	leaderboardCmd.Flags().IntP("limit", "n", 10, "Maximum rows (0 = all)")
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the monthly league or the all-time ranking",
	Args:  cobra.NoArgs,
	RunE:  runLeaderboard,
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	board, _ := cmd.Flags().GetString("board")
	query, _ := cmd.Flags().GetString("query")
	limit, _ := cmd.Flags().GetInt("limit")

	typ, err := leaderboard.ParseType(board)
	if err != nil {
		return err
	}

	d, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	entries, err := d.Leaderboard().Board(cmd.Context(), typ, query, limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No ranked users yet.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tUSER\tSCORE\tSTREAK")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", e.Rank, e.UserID, e.Score, e.StreakLength)
	}
	return tw.Flush()
}
