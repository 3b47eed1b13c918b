package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/msgledger/internal/ir"
	"github.com/roach88/msgledger/internal/ledger"
	"github.com/roach88/msgledger/internal/message"
)

// RecordResult is a message record as shown by create, update and show.
type RecordResult struct {
	Address       string `json:"address"`
	Author        string `json:"author"`
	Timestamp     int64  `json:"timestamp"`
	Content       string `json:"content"`
	TransactionID string `json:"transaction_id,omitempty"`
	Seq           int64  `json:"seq,omitempty"`
	Keypair       string `json:"keypair,omitempty"` // where the message keypair was saved
}

func (r RecordResult) renderText(w io.Writer) error {
	fmt.Fprintf(w, "Address:   %s\n", r.Address)
	fmt.Fprintf(w, "Author:    %s\n", r.Author)
	fmt.Fprintf(w, "Timestamp: %d (%s)\n", r.Timestamp, time.Unix(r.Timestamp, 0).UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Content:   %s\n", r.Content)
	if r.TransactionID != "" {
		fmt.Fprintf(w, "Tx:        %s (seq %d)\n", r.TransactionID, r.Seq)
	}
	if r.Keypair != "" {
		fmt.Fprintf(w, "Keypair:   %s\n", r.Keypair)
	}
	return nil
}

func recordFromReceipt(receipt ir.Receipt) RecordResult {
	r := RecordResult{TransactionID: receipt.TransactionID, Seq: receipt.Seq}
	r.Address, _ = receipt.Result.String("address")
	r.Author, _ = receipt.Result.String("author")
	r.Timestamp, _ = receipt.Result.Int("timestamp")
	r.Content, _ = receipt.Result.String("content")
	return r
}

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Payer          string // payer keypair file
	MessageKeypair string // existing message keypair file
	Save           string // where to write a generated message keypair
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <content>",
		Short: "Create a message record",
		Long: `Create a message record at a fresh address.

The configured keypair is the author. The record account's address is a new
keypair, which co-signs the transaction; pass --message-keypair to use an
existing one, or --save to keep the generated one. The payer funds the
account's rent-exempt balance and defaults to the author.

Exit codes:
  0 - Record created
  1 - Transaction failed (AuthenticationError, AllocationError, CapacityError)
  2 - Command error

Examples:
  msgledger create "hello"
  msgledger create "hello" --payer ./payer.json --save ./msg.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Payer, "payer", "", "payer keypair file (default: the author)")
	cmd.Flags().StringVar(&opts.MessageKeypair, "message-keypair", "", "message account keypair file (default: generate one)")
	cmd.Flags().StringVar(&opts.Save, "save", "", "write the generated message keypair to this file")
	cmd.MarkFlagsMutuallyExclusive("message-keypair", "save")

	return cmd
}

func runCreate(opts *CreateOptions, cmd *cobra.Command, content string) error {
	ctx := context.Background()

	sess, err := openSession(ctx, opts.Config)
	if err != nil {
		return err
	}
	defer sess.Close()

	author, err := sess.signer()
	if err != nil {
		return err
	}
	payer := author
	if opts.Payer != "" {
		if payer, err = loadKeypair(opts.Payer); err != nil {
			return err
		}
	}

	var msgKey *ledger.Keypair
	if opts.MessageKeypair != "" {
		if msgKey, err = loadKeypair(opts.MessageKeypair); err != nil {
			return err
		}
	} else {
		if msgKey, err = ledger.GenerateKeypair(); err != nil {
			return WrapExitError(ExitCommandError, "failed to generate message keypair", err)
		}
	}

	out := newFormatter(opts.RootOptions, cmd)
	receipt, err := sess.client().Create(ctx, payer, author, msgKey, content)
	if err != nil {
		logFailedReceipt(out, "create", receipt)
		return out.LedgerError("create", err)
	}

	result := recordFromReceipt(receipt)
	if opts.Save != "" {
		if err := ledger.SaveKeypair(opts.Save, msgKey); err != nil {
			return WrapExitError(ExitCommandError, "record created but the message keypair could not be saved", err)
		}
		result.Keypair = opts.Save
	}
	return out.Success(result)
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <address> <content>",
		Short: "Overwrite a message record",
		Long: `Overwrite the content of an existing message record.

The configured keypair signs and becomes the record's author; the timestamp
is set to the ledger clock. The record keeps its original account size.

Exit codes:
  0 - Record updated
  1 - Transaction failed (AuthenticationError, NotFoundError, CapacityError)
  2 - Command error`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(rootOpts, cmd, args[0], args[1])
		},
	}
	return cmd
}

func runUpdate(opts *RootOptions, cmd *cobra.Command, address, content string) error {
	ctx := context.Background()

	if _, err := ledger.ParsePublicKey(address); err != nil {
		return WrapExitError(ExitCommandError, "invalid address", err)
	}

	sess, err := openSession(ctx, opts.Config)
	if err != nil {
		return err
	}
	defer sess.Close()

	author, err := sess.signer()
	if err != nil {
		return err
	}

	out := newFormatter(opts, cmd)
	receipt, err := sess.client().Update(ctx, address, author, content)
	if err != nil {
		logFailedReceipt(out, "update", receipt)
		return out.LedgerError("update", err)
	}
	return out.Success(recordFromReceipt(receipt))
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <address>",
		Short: "Show a message record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runShow(opts *RootOptions, cmd *cobra.Command, address string) error {
	ctx := context.Background()

	sess, err := openSession(ctx, opts.Config)
	if err != nil {
		return err
	}
	defer sess.Close()

	out := newFormatter(opts, cmd)
	rec, err := sess.client().Fetch(ctx, address)
	if err != nil {
		return out.LedgerError("show", err)
	}
	return out.Success(recordView(address, rec))
}

func recordView(address string, rec message.Record) RecordResult {
	return RecordResult{
		Address:   address,
		Author:    rec.Author,
		Timestamp: rec.Timestamp,
		Content:   rec.Content,
	}
}

// logFailedReceipt notes where a failed transaction landed in the log.
// Transactions rejected before logging carry no receipt.
func logFailedReceipt(out *OutputFormatter, action string, receipt ir.Receipt) {
	if receipt.ID == "" {
		out.VerboseLog("%s rejected before logging", action)
		return
	}
	out.VerboseLog("%s failed at seq %d (transaction %s)", action, receipt.Seq, receipt.TransactionID)
}
