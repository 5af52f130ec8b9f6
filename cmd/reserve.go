package cmd

import (
	"encoding/json"
	"os"

	"lending/core"
	"lending/pkg/lending"
	"lending/pkg/number"
	"lending/pkg/ratelimiter"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

var reserveCmd = &cobra.Command{
	Use:     "reserve",
	Aliases: []string{"r"},
	Short:   "manage reserves",
}

var reserveInitCmd = &cobra.Command{
	Use:   "init <symbol> <decimals> <price>",
	Short: "init a reserve, admin only",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		decimals, err := cast.ToUint8E(args[1])
		if err != nil {
			return err
		}

		price, err := number.NewFromString(args[2])
		if err != nil {
			return err
		}

		req := &core.InitReserveRequest{
			Symbol:       args[0],
			MintDecimals: decimals,
			Price:        price,
			Config:       lending.DefaultReserveConfig(),
			RateLimiter:  ratelimiter.DefaultConfig(),
		}

		if file, _ := cmd.Flags().GetString("file"); file != "" {
			if err := readReserveConfig(file, &req.Config, &req.RateLimiter); err != nil {
				return err
			}
		}

		reserve, err := provideClient().InitReserve(cmd.Context(), req)
		if err != nil {
			return err
		}

		printRecord(cmd.OutOrStdout(), reserve)
		return nil
	},
}

var reserveListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "list reserves",
	RunE: func(cmd *cobra.Command, args []string) error {
		reserves, err := provideClient().Reserves(cmd.Context())
		if err != nil {
			return err
		}

		for _, r := range reserves {
			cmd.Printf("%-36s %-8s supply %s utilization %s borrow rate %s attributed %s / %s\n",
				r.ID,
				r.Symbol,
				r.TotalSupply,
				r.UtilizationRate,
				r.BorrowRate,
				r.AttributedBorrowValue,
				r.Config.AttributedBorrowLimit,
			)
		}

		return nil
	},
}

var reserveShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "show reserve",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reserve, err := provideClient().Reserve(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		printJSON(cmd.OutOrStdout(), reserve)
		return nil
	},
}

var reserveDepositCmd = &cobra.Command{
	Use:   "deposit <id> <amount>",
	Short: "deposit liquidity into the reserve",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}

		reserve, err := provideClient().DepositLiquidity(cmd.Context(), args[0], amount)
		if err != nil {
			return err
		}

		printRecord(cmd.OutOrStdout(), reserve)
		return nil
	},
}

var reserveRefreshCmd = &cobra.Command{
	Use:   "refresh <id>",
	Short: "accrue interest and reprice the reserve",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reserve, err := provideClient().RefreshReserve(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		printRecord(cmd.OutOrStdout(), reserve)
		return nil
	},
}

var reserveUpdateConfigCmd = &cobra.Command{
	Use:   "update-config <id> <file>",
	Short: "replace the reserve config with the json file, admin only",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c := provideClient()

		reserve, err := c.Reserve(ctx, args[0])
		if err != nil {
			return err
		}

		cfg, limiter := reserve.Config, reserve.RateLimiter.Config
		if err := readReserveConfig(args[1], &cfg, &limiter); err != nil {
			return err
		}

		updated, err := c.UpdateReserveConfig(ctx, args[0], cfg, limiter)
		if err != nil {
			return err
		}

		printJSON(cmd.OutOrStdout(), updated.Config)
		return nil
	},
}

// readReserveConfig overlay {"config": {...}, "rate_limiter": {...}} from file
func readReserveConfig(file string, cfg *core.ReserveConfig, limiter *ratelimiter.Config) error {
	b, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	body := struct {
		Config      *core.ReserveConfig `json:"config"`
		RateLimiter *ratelimiter.Config `json:"rate_limiter"`
	}{cfg, limiter}

	return json.Unmarshal(b, &body)
}

func init() {
	rootCmd.AddCommand(reserveCmd)

	reserveInitCmd.Flags().StringP("file", "f", "", "json file with config and rate_limiter")

	reserveCmd.AddCommand(
		reserveInitCmd,
		reserveListCmd,
		reserveShowCmd,
		reserveDepositCmd,
		reserveRefreshCmd,
		reserveUpdateConfigCmd,
	)
}
