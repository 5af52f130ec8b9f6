package cmd

import (
	"lending/pkg/number"

	"github.com/spf13/cobra"
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "manage reserve prices",
}

var priceSetCmd = &cobra.Command{
	Use:   "set <reserve> <price>",
	Short: "publish the price of one whole token at the current slot, admin only",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		price, err := number.NewFromString(args[1])
		if err != nil {
			return err
		}

		source, _ := cmd.Flags().GetString("source")
		p, err := provideClient().SetPrice(cmd.Context(), args[0], price, source)
		if err != nil {
			return err
		}

		printRecord(cmd.OutOrStdout(), p)
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "rescan obligations and report attributed borrow divergences, admin only",
	RunE: func(cmd *cobra.Command, args []string) error {
		divergences, err := provideClient().Audit(cmd.Context())
		if err != nil {
			return err
		}

		if len(divergences) == 0 {
			cmd.Println("no divergence")
			return nil
		}

		for _, d := range divergences {
			cmd.Printf("%-8s recorded %s expected %s\n", d.Symbol, d.Recorded, d.Expected)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(priceCmd, auditCmd)

	priceSetCmd.Flags().String("source", "cli", "price source")
	priceCmd.AddCommand(priceSetCmd)
}
