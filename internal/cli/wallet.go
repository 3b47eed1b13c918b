package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/msgledger/internal/ledger"
)

// KeygenOptions holds flags for the keygen command.
type KeygenOptions struct {
	*RootOptions
	Outfile string
	Force   bool
}

// KeygenResult is the output of keygen.
type KeygenResult struct {
	Address string `json:"address"`
	Path    string `json:"path"`
}

func (r KeygenResult) renderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Wrote keypair to %s\nAddress: %s\n", r.Path, r.Address)
	return err
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeygenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signer keypair",
		Long: `Generate a new ed25519 keypair and write it as a JSON array of the
64 secret key bytes.

The keypair is written to --outfile, or to the configured keypair path.
An existing file is kept unless --force is given.

Examples:
  msgledger keygen
  msgledger keygen --outfile ./payer.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Outfile, "outfile", "o", "", "keypair file to write (default: configured keypair)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing keypair file")

	return cmd
}

func runKeygen(opts *KeygenOptions, cmd *cobra.Command) error {
	path := opts.Outfile
	if path == "" {
		path = opts.Config.Keypair
	}

	if _, err := os.Stat(path); err == nil && !opts.Force {
		return NewExitError(ExitCommandError, fmt.Sprintf("keypair file %s already exists (use --force to overwrite)", path))
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return WrapExitError(ExitCommandError, "failed to check keypair file", err)
	}

	kp, err := ledger.GenerateKeypair()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to generate keypair", err)
	}
	if err := ledger.SaveKeypair(path, kp); err != nil {
		return WrapExitError(ExitCommandError, "failed to save keypair", err)
	}

	return newFormatter(opts.RootOptions, cmd).Success(KeygenResult{Address: kp.Address(), Path: path})
}

// BalanceResult is the output of airdrop and balance.
type BalanceResult struct {
	Address  string `json:"address"`
	Lamports int64  `json:"lamports"`
	Seq      int64  `json:"seq,omitempty"`
}

func (r BalanceResult) renderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s: %d lamports\n", r.Address, r.Lamports)
	return err
}

// NewAirdropCommand creates the airdrop command.
func NewAirdropCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "airdrop <lamports> [address]",
		Short: "Mint lamports into an account",
		Long: `Mint lamports into a wallet account on the local ledger.

The recipient defaults to the address of the configured keypair.

Examples:
  msgledger airdrop 10000000
  msgledger airdrop 5000 8LyUD5qQzYLBYPVa4JYBm4GapUffLg9MGfQuJwCEQWtR`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAirdrop(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runAirdrop(opts *RootOptions, cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	lamports, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid lamports %q", args[0]), err)
	}

	sess, err := openSession(ctx, opts.Config)
	if err != nil {
		return err
	}
	defer sess.Close()

	recipient, err := addressArg(sess, args[1:])
	if err != nil {
		return err
	}

	out := newFormatter(opts, cmd)
	tx, err := ledger.NewTransaction(ledger.AirdropInstruction(recipient, lamports), ledger.UUIDv7Generator{}.Generate())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build transaction", err)
	}
	receipt, err := sess.rt.Submit(ctx, tx)
	if err != nil {
		return out.LedgerError("airdrop", err)
	}

	balance, _ := receipt.Result.Int("balance")
	out.VerboseLog("airdrop committed: tx %s seq %d", receipt.TransactionID, receipt.Seq)
	return out.Success(BalanceResult{Address: recipient, Lamports: balance, Seq: receipt.Seq})
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance [address]",
		Short: "Show the lamports held by an account",
		Long: `Show the lamports held by an account. A missing account holds 0.

The address defaults to the address of the configured keypair.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalance(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runBalance(opts *RootOptions, cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	sess, err := openSession(ctx, opts.Config)
	if err != nil {
		return err
	}
	defer sess.Close()

	address, err := addressArg(sess, args)
	if err != nil {
		return err
	}

	lamports, err := sess.rt.Balance(ctx, address)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read balance", err)
	}
	return newFormatter(opts, cmd).Success(BalanceResult{Address: address, Lamports: lamports})
}

// addressArg returns the single optional address argument, defaulting to
// the configured keypair's address.
func addressArg(sess *session, args []string) (string, error) {
	if len(args) > 0 {
		if _, err := ledger.ParsePublicKey(args[0]); err != nil {
			return "", WrapExitError(ExitCommandError, "invalid address", err)
		}
		return args[0], nil
	}
	kp, err := sess.signer()
	if err != nil {
		return "", err
	}
	return kp.Address(), nil
}
