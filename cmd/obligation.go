package cmd

import (
	"lending/handler/views"

	"github.com/spf13/cobra"
)

var obligationCmd = &cobra.Command{
	Use:     "obligation",
	Aliases: []string{"o"},
	Short:   "manage obligations",
}

var obligationInitCmd = &cobra.Command{
	Use:   "init <owner>",
	Short: "open an empty obligation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		obligation, err := provideClient().InitObligation(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		printObligation(cmd, obligation)
		return nil
	},
}

var obligationShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "show obligation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		obligation, err := provideClient().Obligation(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		printJSON(cmd.OutOrStdout(), obligation)
		return nil
	},
}

var obligationRefreshCmd = &cobra.Command{
	Use:   "refresh <id>",
	Short: "revalue the obligation at the current slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		obligation, err := provideClient().RefreshObligation(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		printObligation(cmd, obligation)
		return nil
	},
}

var obligationDepositCmd = &cobra.Command{
	Use:   "deposit <id> <reserve> <amount>",
	Short: "deposit collateral",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[2])
		if err != nil {
			return err
		}

		obligation, err := provideClient().DepositCollateral(cmd.Context(), args[0], args[1], amount)
		if err != nil {
			return err
		}

		printObligation(cmd, obligation)
		return nil
	},
}

var obligationWithdrawCmd = &cobra.Command{
	Use:   "withdraw <id> <reserve> <amount>",
	Short: "withdraw collateral",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[2])
		if err != nil {
			return err
		}

		obligation, err := provideClient().WithdrawCollateral(cmd.Context(), args[0], args[1], amount)
		if err != nil {
			return err
		}

		printObligation(cmd, obligation)
		return nil
	},
}

var obligationBorrowCmd = &cobra.Command{
	Use:   "borrow <id> <reserve> <amount>",
	Short: "borrow reserve liquidity",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[2])
		if err != nil {
			return err
		}

		result, err := provideClient().Borrow(cmd.Context(), args[0], args[1], amount)
		if err != nil {
			return err
		}

		printRecord(cmd.OutOrStdout(), result)
		return nil
	},
}

var obligationRepayCmd = &cobra.Command{
	Use:   "repay <id> <reserve> <amount>",
	Short: "repay borrowed liquidity",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[2])
		if err != nil {
			return err
		}

		result, err := provideClient().Repay(cmd.Context(), args[0], args[1], amount)
		if err != nil {
			return err
		}

		printRecord(cmd.OutOrStdout(), result)
		return nil
	},
}

func printObligation(cmd *cobra.Command, o *views.Obligation) {
	cmd.Printf("%s owner %s deposited %s borrowed %s allowed %s ltv %s healthy %v\n",
		o.ID,
		o.Owner,
		o.DepositedValue,
		o.BorrowedValue,
		o.AllowedBorrowValue,
		o.LoanToValue,
		o.Healthy,
	)

	for _, d := range o.Deposits {
		cmd.Printf("  deposit %-36s %d value %s attributed %s\n", d.ReserveID, d.DepositedAmount, d.MarketValue, d.AttributedBorrowValue)
	}

	for _, b := range o.Borrows {
		cmd.Printf("  borrow  %-36s %s value %s\n", b.ReserveID, b.BorrowedAmountWads, b.MarketValue)
	}
}

func init() {
	rootCmd.AddCommand(obligationCmd)

	obligationCmd.AddCommand(
		obligationInitCmd,
		obligationShowCmd,
		obligationRefreshCmd,
		obligationDepositCmd,
		obligationWithdrawCmd,
		obligationBorrowCmd,
		obligationRepayCmd,
	)
}
