package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(shopCmd)
	shopCmd.AddCommand(shopListCmd)
	shopCmd.AddCommand(shopBuyCmd)
}

var shopCmd = &cobra.Command{
	Use:   "shop",
	Short: "Browse and buy shop items",
}

// ─── shop list ──────────────────────────────────────────────────────────────

var shopListCmd = &cobra.Command{
	Use:   "list [USER]",
	Short: "List shop items, annotated for a user when given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShopList,
}

func runShopList(cmd *cobra.Command, args []string) error {
	d, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	var userID string
	if len(args) == 1 {
		userID = args[0]
	}
	offers, err := d.Shop().Listing(cmd.Context(), userID)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tNAME\tKIND\tCOST\tOWNED\tSTATUS")
	for _, o := range offers {
		status := "available"
		switch {
		case !o.Available:
			status = "unavailable"
		case userID != "" && !o.Affordable:
			status = "too expensive"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", o.ID, o.Name, o.Kind, o.Cost, o.Owned, status)
	}
	return tw.Flush()
}

// ─── shop buy ───────────────────────────────────────────────────────────────

var shopBuyCmd = &cobra.Command{
	Use:   "buy USER ITEM",
	Short: "Buy an item for a user",
	Args:  cobra.ExactArgs(2),
	RunE:  runShopBuy,
}

func runShopBuy(cmd *cobra.Command, args []string) error {
	d, err := openDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	rcpt, err := d.Shop().Buy(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %s bought %s for %d points (%d left)\n",
		rcpt.UserID, rcpt.Item.Name, rcpt.Item.Cost, rcpt.Remaining)
	return nil
}
