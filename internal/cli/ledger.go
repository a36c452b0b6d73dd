package cli

import (
	"fmt"
	"strings"

	"github.com/LeJamon/goMarketd/internal/rpc"
	"github.com/spf13/cobra"
)

var (
	ledgerAsset    string
	ledgerContract string
	ledgerTokenID  string
	ledgerSpender  string
	ledgerOperator string
	ledgerRevoke   bool
	ledgerItems    []string
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Administer the in-process ledger of a standalone daemon",
}

var ledgerFundCmd = &cobra.Command{
	Use:   "fund <account> <amount>",
	Short: "Credit native units",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		amount, err := parseUnits("amount", args[1])
		if err != nil {
			return err
		}
		return call(cmd, "ledger_fund", map[string]interface{}{
			"account": acc,
			"amount":  rpc.NewAmount(amount),
		})
	},
}

var ledgerMintCmd = &cobra.Command{
	Use:   "mint <account> <amount>",
	Short: "Credit settlement tokens, or item units with --token-id",
	Long: `Mint fungible tokens of --asset (or --contract), scaled by --decimals. With
--token-id, mint that many raw units of a multi-token item in --contract.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		params, err := ledgerAssetParams()
		if err != nil {
			return err
		}
		params["account"] = acc

		if ledgerTokenID != "" {
			tokenID, err := parseInt("token id", ledgerTokenID)
			if err != nil {
				return err
			}
			units, err := parseInt("amount", args[1])
			if err != nil {
				return err
			}
			params["token_id"] = rpc.NewAmount(tokenID)
			params["amount"] = rpc.NewAmount(units)
			return call(cmd, "ledger_mint", params)
		}

		amount, err := parseUnits("amount", args[1])
		if err != nil {
			return err
		}
		params["amount"] = rpc.NewAmount(amount)
		return call(cmd, "ledger_mint", params)
	},
}

var ledgerApproveCmd = &cobra.Command{
	Use:   "approve <owner> <amount>",
	Short: "Set a token allowance, to the marketplace unless --spender is given",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		amount, err := parseUnits("amount", args[1])
		if err != nil {
			return err
		}
		params, err := ledgerAssetParams()
		if err != nil {
			return err
		}
		params["owner"] = owner
		params["amount"] = rpc.NewAmount(amount)
		if ledgerSpender != "" {
			spender, err := parseAddress(ledgerSpender)
			if err != nil {
				return err
			}
			params["spender"] = spender
		}
		return call(cmd, "ledger_approve", params)
	},
}

var ledgerOperatorCmd = &cobra.Command{
	Use:   "operator <contract> <owner>",
	Short: "Approve the marketplace, or --operator, for an owner's items",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		contract, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		owner, err := parseAddress(args[1])
		if err != nil {
			return err
		}
		params := map[string]interface{}{
			"contract": contract,
			"owner":    owner,
			"approved": !ledgerRevoke,
		}
		if ledgerOperator != "" {
			operator, err := parseAddress(ledgerOperator)
			if err != nil {
				return err
			}
			params["operator"] = operator
		}
		return call(cmd, "ledger_set_operator", params)
	},
}

var ledgerBalancesCmd = &cobra.Command{
	Use:   "balances <account>",
	Short: "Show native, settlement token and item balances",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		items := make([]map[string]interface{}, 0, len(ledgerItems))
		for _, it := range ledgerItems {
			contract, id, ok := strings.Cut(it, ":")
			if !ok {
				return fmt.Errorf("item %q must be <contract>:<token-id>", it)
			}
			c, err := parseAddress(contract)
			if err != nil {
				return err
			}
			tokenID, err := parseInt("token id", id)
			if err != nil {
				return err
			}
			items = append(items, map[string]interface{}{
				"contract": c,
				"token_id": rpc.NewAmount(tokenID),
			})
		}
		return call(cmd, "ledger_balances", map[string]interface{}{
			"account": acc,
			"items":   items,
		})
	},
}

// ledgerAssetParams names the token by --contract or --asset.
func ledgerAssetParams() (map[string]interface{}, error) {
	params := make(map[string]interface{})
	switch {
	case ledgerContract != "":
		c, err := parseAddress(ledgerContract)
		if err != nil {
			return nil, err
		}
		params["contract"] = c
	case ledgerAsset != "":
		params["asset"] = ledgerAsset
	default:
		return nil, fmt.Errorf("--asset or --contract is required")
	}
	return params, nil
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerFundCmd, ledgerMintCmd, ledgerApproveCmd, ledgerOperatorCmd, ledgerBalancesCmd)

	for _, c := range []*cobra.Command{ledgerMintCmd, ledgerApproveCmd} {
		c.Flags().StringVar(&ledgerAsset, "asset", "", "settlement token symbol")
		c.Flags().StringVar(&ledgerContract, "contract", "", "token contract address; overrides --asset")
	}
	ledgerMintCmd.Flags().StringVar(&ledgerTokenID, "token-id", "", "mint multi-token units of this id")
	ledgerApproveCmd.Flags().StringVar(&ledgerSpender, "spender", "", "spender address (default the marketplace)")
	ledgerOperatorCmd.Flags().StringVar(&ledgerOperator, "operator", "", "operator address (default the marketplace)")
	ledgerOperatorCmd.Flags().BoolVar(&ledgerRevoke, "revoke", false, "revoke instead of approve")
	ledgerBalancesCmd.Flags().StringSliceVar(&ledgerItems, "item", nil, "item to report as <contract>:<token-id>; repeatable")
}
