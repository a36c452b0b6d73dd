package cli

import (
	"github.com/LeJamon/goMarketd/internal/rpc"
	"github.com/spf13/cobra"
)

var (
	buyValue string
	buyAsset string
)

var buyCmd = &cobra.Command{
	Use:   "buy",
	Short: "Purchase an offer",
}

var buyNativeCmd = &cobra.Command{
	Use:   "native <offer-id>",
	Short: "Pay with the native asset",
	Long: `Attach --value of the native asset to the purchase. Anything above the
required payment is refunded. Run "offer quote" first to see the amount.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseOfferID(args[0])
		if err != nil {
			return err
		}
		value, err := parseUnits("value", buyValue)
		if err != nil {
			return err
		}
		return callSigned(cmd, "buy_with_native", map[string]interface{}{
			"offer_id": id,
			"value":    rpc.NewAmount(value),
		})
	},
}

var buyTokenCmd = &cobra.Command{
	Use:   "token <offer-id>",
	Short: "Pay with a settlement token",
	Long: `Pay with an allowlisted token. The marketplace must hold an allowance
covering the quoted amount.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseOfferID(args[0])
		if err != nil {
			return err
		}
		return callSigned(cmd, "buy_with_token", map[string]interface{}{
			"offer_id": id,
			"asset":    buyAsset,
		})
	},
}

func init() {
	rootCmd.AddCommand(buyCmd)
	buyCmd.AddCommand(buyNativeCmd, buyTokenCmd)

	buyNativeCmd.Flags().StringVar(&buyValue, "value", "", "native amount attached, e.g. 0.02")
	_ = buyNativeCmd.MarkFlagRequired("value")

	buyTokenCmd.Flags().StringVar(&buyAsset, "asset", "", "settlement token symbol")
	_ = buyTokenCmd.MarkFlagRequired("asset")
}
