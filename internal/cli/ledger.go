package cli

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aura-network/aura/internal/domain"
)

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerShowCmd)
	ledgerCmd.AddCommand(ledgerEarnCmd)
	ledgerCmd.AddCommand(ledgerSpendCmd)
	ledgerCmd.AddCommand(ledgerActivityCmd)
	ledgerCmd.AddCommand(ledgerRestoreCmd)

	ledgerEarnCmd.Flags().StringP("reason", "r", "Manual credit", "Reason shown in the notification and audit trail")
	ledgerSpendCmd.Flags().StringP("reason", "r", "Manual debit", "Reason recorded in the audit trail")
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and adjust a user's ledger",
}

// ─── ledger show ────────────────────────────────────────────────────────────

var ledgerShowCmd = &cobra.Command{
	Use:   "show USER",
	Short: "Show a user's points, streak and inventory",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerShow,
}

func runLedgerShow(cmd *cobra.Command, args []string) error {
	d, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	e, err := d.Ledgers().Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printLedger(cmd.OutOrStdout(), e.View())
	return nil
}

// ─── ledger earn / spend ────────────────────────────────────────────────────

var ledgerEarnCmd = &cobra.Command{
	Use:   "earn USER AMOUNT",
	Short: "Credit points to a user",
	Args:  cobra.ExactArgs(2),
	RunE:  runLedgerEarn,
}

func runLedgerEarn(cmd *cobra.Command, args []string) error {
	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	reason, _ := cmd.Flags().GetString("reason")

	d, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	e, err := d.Ledgers().Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := e.EarnPoints(cmd.Context(), amount, reason); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ +%d points for %s\n", amount, args[0])
	printLedger(cmd.OutOrStdout(), e.View())
	return nil
}

var ledgerSpendCmd = &cobra.Command{
	Use:   "spend USER AMOUNT",
	Short: "Debit points from a user",
	Args:  cobra.ExactArgs(2),
	RunE:  runLedgerSpend,
}

func runLedgerSpend(cmd *cobra.Command, args []string) error {
	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	reason, _ := cmd.Flags().GetString("reason")

	d, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	e, err := d.Ledgers().Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := e.SpendPoints(cmd.Context(), amount, reason); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ -%d points for %s\n", amount, args[0])
	printLedger(cmd.OutOrStdout(), e.View())
	return nil
}

// ─── ledger activity ────────────────────────────────────────────────────────

var ledgerActivityCmd = &cobra.Command{
	Use:   "activity USER",
	Short: "Record today's activity for a user's streak",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerActivity,
}

func runLedgerActivity(cmd *cobra.Command, args []string) error {
	d, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	e, err := d.Ledgers().Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	change := e.RecordDailyActivity(cmd.Context())

	out := cmd.OutOrStdout()
	switch {
	case change.NoOp:
		fmt.Fprintf(out, "Already active today. Streak: %d\n", change.After)
	case change.FreezeUsed:
		fmt.Fprintf(out, "🧊 Streak freeze used. Streak: %d → %d\n", change.Before, change.After)
	case change.Reset:
		fmt.Fprintf(out, "Streak reset. Streak: %d\n", change.After)
	default:
		fmt.Fprintf(out, "🔥 Streak: %d → %d\n", change.Before, change.After)
	}
	return nil
}

// ─── ledger restore ─────────────────────────────────────────────────────────

var ledgerRestoreCmd = &cobra.Command{
	Use:   "restore USER",
	Short: "Repair a lapsed streak without charging points",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerRestore,
}

func runLedgerRestore(cmd *cobra.Command, args []string) error {
	d, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	e, err := d.Ledgers().Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := e.RestoreStreak(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Streak repaired for %s\n", args[0])
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func parseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("amount must be a positive integer, got %q", s)
	}
	return n, nil
}

func printLedger(w io.Writer, v domain.LedgerView) {
	fmt.Fprintf(w, "User:          %s\n", v.UserID)
	fmt.Fprintf(w, "Total points:  %d\n", v.TotalPoints)
	fmt.Fprintf(w, "Monthly (%s): %d\n", v.ActiveMonth, v.MonthlyPoints)
	last := v.LastActiveDate
	if last == "" {
		last = "never"
	}
	fmt.Fprintf(w, "Streak:        %d (last active %s)\n", v.StreakCount, last)
	if len(v.Inventory) > 0 {
		items := make([]string, 0, len(v.Inventory))
		for id, n := range v.Inventory {
			if n > 0 {
				items = append(items, fmt.Sprintf("%s×%d", id, n))
			}
		}
		if len(items) > 0 {
			slices.Sort(items)
			fmt.Fprintf(w, "Inventory:     %s\n", strings.Join(items, ", "))
		}
	}
	if len(v.UnlockedAchievements) > 0 {
		fmt.Fprintf(w, "Achievements:  %s\n", strings.Join(v.UnlockedAchievements, ", "))
	}
}
