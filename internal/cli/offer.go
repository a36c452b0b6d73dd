package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/LeJamon/goMarketd/internal/rpc"
	"github.com/spf13/cobra"
)

var (
	offerContract string
	offerTokenID  string
	offerAmount   string
	offerPrice    string
	offerTTL      time.Duration
	offerDeadline string
	quoteAsset    string
	quotePrice    string
	listStatus    string
	listSeller    string
	listMarker    uint64
	listLimit     int
)

var offerCmd = &cobra.Command{
	Use:   "offer",
	Short: "List, cancel and inspect offers",
}

var offerCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "List token units for sale",
	Long: `List --amount units of --token-id held in --contract at --price units of
account. The marketplace must be an approved operator on the contract.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		contract, err := parseAddress(offerContract)
		if err != nil {
			return err
		}
		tokenID, err := parseInt("token id", offerTokenID)
		if err != nil {
			return err
		}
		amount, err := parseInt("amount", offerAmount)
		if err != nil {
			return err
		}
		price, err := parseUnits("price", offerPrice)
		if err != nil {
			return err
		}
		deadline, err := offerDeadlineTime(time.Now())
		if err != nil {
			return err
		}
		return callSigned(cmd, "create_offer", map[string]interface{}{
			"token_contract": contract,
			"token_id":       rpc.NewAmount(tokenID),
			"amount":         rpc.NewAmount(amount),
			"deadline":       deadline.Unix(),
			"price":          rpc.NewAmount(price),
		})
	},
}

// offerDeadlineTime resolves --deadline (RFC 3339) or now plus --ttl.
func offerDeadlineTime(now time.Time) (time.Time, error) {
	if offerDeadline != "" {
		t, err := time.Parse(time.RFC3339, offerDeadline)
		if err != nil {
			return time.Time{}, errors.New("deadline must be RFC 3339, e.g. 2026-01-02T15:04:05Z")
		}
		return t, nil
	}
	if offerTTL <= 0 {
		return time.Time{}, errors.New("ttl must be positive")
	}
	return now.Add(offerTTL), nil
}

var offerCancelCmd = &cobra.Command{
	Use:   "cancel <offer-id>",
	Short: "Cancel one of your active offers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseOfferID(args[0])
		if err != nil {
			return err
		}
		return callSigned(cmd, "cancel_offer", map[string]interface{}{"offer_id": id})
	},
}

var offerGetCmd = &cobra.Command{
	Use:   "get <offer-id>",
	Short: "Show an offer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseOfferID(args[0])
		if err != nil {
			return err
		}
		return call(cmd, "get_offer", map[string]interface{}{"offer_id": id})
	},
}

var offerQuoteCmd = &cobra.Command{
	Use:   "quote [offer-id]",
	Short: "Price an offer, or --price, in an asset",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{"asset": quoteAsset}
		switch {
		case len(args) == 1:
			id, err := parseOfferID(args[0])
			if err != nil {
				return err
			}
			params["offer_id"] = id
		case quotePrice != "":
			price, err := parseUnits("price", quotePrice)
			if err != nil {
				return err
			}
			params["price"] = rpc.NewAmount(price)
		default:
			return errors.New("an offer id or --price is required")
		}
		return call(cmd, "quote", params)
	},
}

var offerHistoryCmd = &cobra.Command{
	Use:   "history <offer-id>",
	Short: "Show the journaled events of an offer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseOfferID(args[0])
		if err != nil {
			return err
		}
		return call(cmd, "offer_history", map[string]interface{}{"offer_id": id})
	},
}

var offerListCmd = &cobra.Command{
	Use:   "list",
	Short: "Page through offers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{"marker": listMarker, "limit": listLimit}
		if listStatus != "" {
			params["status"] = listStatus
		}
		if listSeller != "" {
			seller, err := parseAddress(listSeller)
			if err != nil {
				return err
			}
			params["seller"] = seller
		}
		return call(cmd, "list_offers", params)
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events [limit]",
	Short: "Show the most recent journaled events",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit := 0
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid limit %q", args[0])
			}
			limit = n
		}
		return call(cmd, "recent_events", map[string]interface{}{"limit": limit})
	},
}

func init() {
	rootCmd.AddCommand(offerCmd, eventsCmd)
	offerCmd.AddCommand(offerCreateCmd, offerCancelCmd, offerGetCmd, offerQuoteCmd, offerHistoryCmd, offerListCmd)

	f := offerCreateCmd.Flags()
	f.StringVar(&offerContract, "contract", "", "multi-token contract address")
	f.StringVar(&offerTokenID, "token-id", "", "token id")
	f.StringVar(&offerAmount, "amount", "1", "number of units")
	f.StringVar(&offerPrice, "price", "", "price in units of account, e.g. 12.5")
	f.DurationVar(&offerTTL, "ttl", 24*time.Hour, "time until the offer expires")
	f.StringVar(&offerDeadline, "deadline", "", "absolute expiry in RFC 3339; overrides --ttl")
	_ = offerCreateCmd.MarkFlagRequired("contract")
	_ = offerCreateCmd.MarkFlagRequired("token-id")
	_ = offerCreateCmd.MarkFlagRequired("price")

	offerQuoteCmd.Flags().StringVar(&quoteAsset, "asset", "", "asset symbol to quote in")
	offerQuoteCmd.Flags().StringVar(&quotePrice, "price", "", "quote a bare price in units of account")
	_ = offerQuoteCmd.MarkFlagRequired("asset")

	f = offerListCmd.Flags()
	f.StringVar(&listStatus, "status", "", "only offers in this status")
	f.StringVar(&listSeller, "seller", "", "only offers of this seller")
	f.Uint64Var(&listMarker, "marker", 0, "resume from this offer id")
	f.IntVar(&listLimit, "limit", 0, "page size (server default when 0)")
}
