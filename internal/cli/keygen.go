package cli

import (
	"fmt"

	"github.com/LeJamon/goMarketd/internal/crypto"
	"github.com/spf13/cobra"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a secp256k1 signing key",
	Long: `Generate a new secp256k1 key pair and print its account address. Pass the
private key with --key or export it as MARKETD_KEY to sign requests.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := crypto.GenerateKeyPair()
		if err != nil {
			return err
		}
		defer key.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "address:     %s\n", key.Address())
		fmt.Fprintf(out, "public key:  %s\n", key.PublicKeyHex())
		fmt.Fprintf(out, "private key: %s\n", key.PrivateKeyHex())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
