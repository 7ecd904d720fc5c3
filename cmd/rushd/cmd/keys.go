package cmd

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	cryptocodec "github.com/cosmos/cosmos-sdk/crypto/codec"
	"github.com/cosmos/cosmos-sdk/crypto/hd"
	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/go-bip39"
	"github.com/spf13/cobra"

	"github.com/solrush/rush/app"
)

const (
	keyringBackendTest = keyring.BackendTest

	flagMnemonicLength = "mnemonic-length"
	flagNoBackup       = "no-backup"
	flagAccount        = "account"
	flagIndex          = "index"
)

// KeysCmd manages the local keyring. Keys only name accounts for --from and
// address arguments; engine operations are not signed.
func KeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage named accounts with BIP39 mnemonics",
	}

	cmd.AddCommand(
		AddKeyCommand(),
		RecoverKeyCommand(),
		ListKeysCommand(),
		ShowKeyCommand(),
	)
	return cmd
}

// AddKeyCommand creates a new key from a freshly generated mnemonic.
func AddKeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a new key with BIP39 mnemonic generation",
		Long: `Add a new key to the keyring with a BIP39 mnemonic phrase.

Examples:
  rushd keys add alice                         # 24-word mnemonic (default)
  rushd keys add alice --mnemonic-length 12    # 12-word mnemonic`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kr, err := openKeyring(cmd)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			if name == "" {
				return fmt.Errorf("argument 'name' cannot be empty")
			}

			mnemonicLength, _ := cmd.Flags().GetInt(flagMnemonicLength)
			noBackup, _ := cmd.Flags().GetBool(flagNoBackup)

			// 12 words = 128 bits, 24 words = 256 bits
			var entropySize int
			switch mnemonicLength {
			case 12:
				entropySize = 128 / 8
			case 24:
				entropySize = 256 / 8
			default:
				return fmt.Errorf("mnemonic length must be 12 or 24 words")
			}

			entropy := make([]byte, entropySize)
			if _, err := rand.Read(entropy); err != nil {
				return fmt.Errorf("failed to generate secure entropy: %w", err)
			}
			mnemonic, err := bip39.NewMnemonic(entropy)
			if err != nil {
				return fmt.Errorf("failed to generate mnemonic: %w", err)
			}

			addr, err := newAccount(cmd, kr, name, mnemonic)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "- name: %s\n  address: %s\n", name, addr)
			if !noBackup {
				fmt.Fprintf(out, "\n**IMPORTANT** Write this mnemonic phrase in a safe place.\n\n%s\n", mnemonic)
			}
			return nil
		},
	}

	cmd.Flags().Int(flagMnemonicLength, 24, "Mnemonic length (12 or 24 words)")
	cmd.Flags().Bool(flagNoBackup, false, "Do not print the mnemonic")
	addHDFlags(cmd)
	return cmd
}

// RecoverKeyCommand restores a key from a mnemonic read from stdin.
func RecoverKeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover [name]",
		Short: "Recover a key from a BIP39 mnemonic read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kr, err := openKeyring(cmd)
			if err != nil {
				return err
			}

			reader := bufio.NewReader(cmd.InOrStdin())
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read mnemonic: %w", err)
			}
			mnemonic := strings.Join(strings.Fields(line), " ")
			if !bip39.IsMnemonicValid(mnemonic) {
				return fmt.Errorf("invalid mnemonic")
			}

			addr, err := newAccount(cmd, kr, args[0], mnemonic)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "- name: %s\n  address: %s\n", args[0], addr)
			return nil
		},
	}
	addHDFlags(cmd)
	return cmd
}

func ListKeysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kr, err := openKeyring(cmd)
			if err != nil {
				return err
			}
			records, err := kr.List()
			if err != nil {
				return err
			}
			for _, record := range records {
				addr, err := record.GetAddress()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "- name: %s\n  address: %s\n", record.Name, addr)
			}
			return nil
		},
	}
}

func ShowKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show the address of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kr, err := openKeyring(cmd)
			if err != nil {
				return err
			}
			record, err := kr.Key(args[0])
			if err != nil {
				return err
			}
			addr, err := record.GetAddress()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr.String())
			return nil
		},
	}
}

func addHDFlags(cmd *cobra.Command) {
	cmd.Flags().Uint32(flagAccount, 0, "Account number for HD derivation")
	cmd.Flags().Uint32(flagIndex, 0, "Address index number for HD derivation")
}

func newAccount(cmd *cobra.Command, kr keyring.Keyring, name, mnemonic string) (sdk.AccAddress, error) {
	account, _ := cmd.Flags().GetUint32(flagAccount)
	index, _ := cmd.Flags().GetUint32(flagIndex)

	hdPath := hd.CreateHDPath(app.CoinType, account, index)
	record, err := kr.NewAccount(name, mnemonic, keyring.DefaultBIP39Passphrase, hdPath.String(), hd.Secp256k1)
	if err != nil {
		return nil, fmt.Errorf("failed to create key: %w", err)
	}
	return record.GetAddress()
}

func openKeyring(cmd *cobra.Command) (keyring.Keyring, error) {
	s, err := stateFromCmd(cmd)
	if err != nil {
		return nil, err
	}
	backend, err := cmd.Flags().GetString(flagKeyringBackend)
	if err != nil {
		return nil, err
	}

	registry := codectypes.NewInterfaceRegistry()
	cryptocodec.RegisterInterfaces(registry)
	return keyring.New(sdk.KeyringServiceName(), backend, s.cfg.Home, cmd.InOrStdin(), codec.NewProtoCodec(registry))
}

// resolveAddress accepts a bech32 address or the name of a key in the
// keyring.
func resolveAddress(cmd *cobra.Command, value string) (sdk.AccAddress, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("empty address")
	}
	if addr, err := sdk.AccAddressFromBech32(value); err == nil {
		return addr, nil
	}

	kr, err := openKeyring(cmd)
	if err != nil {
		return nil, err
	}
	record, err := kr.Key(value)
	if err != nil {
		return nil, fmt.Errorf("%q is neither an address nor a known key: %w", value, err)
	}
	return record.GetAddress()
}

// fromAddress resolves the --from flag.
func fromAddress(cmd *cobra.Command) (sdk.AccAddress, error) {
	from, _ := cmd.Flags().GetString(flagFrom)
	if from == "" {
		return nil, fmt.Errorf("--%s is required", flagFrom)
	}
	return resolveAddress(cmd, from)
}
