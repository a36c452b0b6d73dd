package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var feeCmd = &cobra.Command{
	Use:   "fee",
	Short: "Show or change the marketplace fee",
}

var feeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the fee rate, recipient and owner",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, "fee_config", nil)
	},
}

var feeSetRateCmd = &cobra.Command{
	Use:   "set-rate <percent>",
	Short: "Set the fee rate (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rate, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid fee rate %q", args[0])
		}
		return callSigned(cmd, "set_fee_rate", map[string]interface{}{"fee_rate": uint32(rate)})
	},
}

var feeSetRecipientCmd = &cobra.Command{
	Use:   "set-recipient <address>",
	Short: "Set the fee recipient (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recipient, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		return callSigned(cmd, "set_recipient", map[string]interface{}{"recipient": recipient})
	},
}

func init() {
	rootCmd.AddCommand(feeCmd)
	feeCmd.AddCommand(feeShowCmd, feeSetRateCmd, feeSetRecipientCmd)
}
