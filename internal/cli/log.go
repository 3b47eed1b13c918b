package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/roach88/msgledger/internal/ir"
	"github.com/roach88/msgledger/internal/ledger"
	"github.com/roach88/msgledger/internal/queryir"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Limit       int    // show only the last N entries
	Failures    bool   // show only failed transactions
	Instruction string // show only this instruction
	Signer      string // show only transactions signed by this address
}

// LogRow is one logged transaction.
type LogRow struct {
	Seq           int64       `json:"seq"`
	Timestamp     int64       `json:"timestamp"`
	Program       string      `json:"program"`
	Instruction   string      `json:"instruction"`
	Outcome       string      `json:"outcome"`
	TransactionID string      `json:"transaction_id"`
	Signers       []string    `json:"signers"`
	Result        ir.IRObject `json:"result"`
}

// LogResult is the output of log.
type LogResult struct {
	Entries []LogRow `json:"entries"`
	Total   int      `json:"total"`
}

func (r LogResult) renderText(w io.Writer) error {
	if len(r.Entries) == 0 {
		_, err := fmt.Fprintln(w, "No transactions logged.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Seq", "Time", "Instruction", "Outcome", "Transaction"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, e := range r.Entries {
		table.Append([]string{
			strconv.FormatInt(e.Seq, 10),
			time.Unix(e.Timestamp, 0).UTC().Format(time.RFC3339),
			e.Instruction,
			e.Outcome,
			e.TransactionID,
		})
	}
	table.Render()

	_, err := fmt.Fprintf(w, "\n%d of %d transaction(s)\n", len(r.Entries), r.Total)
	return err
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List the transaction log",
		Long: `List every logged transaction in seq order, including failures.

Examples:
  msgledger log
  msgledger log --limit 20 --failures
  msgledger log --instruction update_message --signer <address>
  msgledger log --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "show only the last N entries (0 = all)")
	cmd.Flags().BoolVar(&opts.Failures, "failures", false, "show only failed transactions")
	cmd.Flags().StringVar(&opts.Instruction, "instruction", "", "show only this instruction")
	cmd.Flags().StringVar(&opts.Signer, "signer", "", "show only transactions signed by this address")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid limit %d", opts.Limit))
	}

	sess, err := openSession(ctx, opts.Config)
	if err != nil {
		return err
	}
	defer sess.Close()

	q := logQuery(opts)
	matching, err := sess.rt.QueryLog(ctx, q)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read log", err)
	}
	total := len(matching)
	if opts.Limit > 0 {
		q.Last = opts.Limit
		if matching, err = sess.rt.QueryLog(ctx, q); err != nil {
			return WrapExitError(ExitCommandError, "failed to read log", err)
		}
	}

	rows := make([]LogRow, 0, len(matching))
	for _, e := range matching {
		rows = append(rows, logRow(e))
	}

	return newFormatter(opts.RootOptions, cmd).Success(LogResult{Entries: rows, Total: total})
}

// logQuery translates the log flags into a query with no limit.
func logQuery(opts *LogOptions) queryir.Select {
	var failures, instruction, signer queryir.Predicate
	if opts.Failures {
		failures = queryir.NotEquals{Field: queryir.FieldOutcome, Value: ir.IRString(ir.OutcomeSuccess)}
	}
	if opts.Instruction != "" {
		instruction = queryir.Equals{Field: queryir.FieldInstruction, Value: ir.IRString(opts.Instruction)}
	}
	if opts.Signer != "" {
		signer = queryir.SignedBy{Address: opts.Signer}
	}
	return queryir.Select{Filter: queryir.Where(failures, instruction, signer)}
}

func logRow(e ir.LogEntry) LogRow {
	signers := make([]string, len(e.Transaction.Signatures))
	for i, s := range e.Transaction.Signatures {
		signers[i] = s.Signer
	}
	program := e.Transaction.Instruction.ProgramID
	if program == ledger.SystemProgramID {
		program = "system"
	}
	return LogRow{
		Seq:           e.Receipt.Seq,
		Timestamp:     e.Receipt.UnixTimestamp,
		Program:       program,
		Instruction:   e.Transaction.Instruction.Name,
		Outcome:       e.Receipt.Outcome,
		TransactionID: e.Transaction.ID,
		Signers:       signers,
		Result:        e.Receipt.Result,
	}
}
