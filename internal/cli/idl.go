package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/msgledger/internal/idl"
	"github.com/roach88/msgledger/internal/ir"
	"github.com/roach88/msgledger/internal/message"
)

// IDLOptions holds flags for the idl command.
type IDLOptions struct {
	*RootOptions
	File string // compile this CUE file instead of the builtin interface
}

// IDLResult is the compiled interface of a program.
type IDLResult struct {
	ProgramID string          `json:"program_id,omitempty"`
	Spec      *ir.ProgramSpec `json:"spec"`
	source    []byte
}

func (r IDLResult) renderText(w io.Writer) error {
	if r.ProgramID != "" {
		fmt.Fprintf(w, "// program id: %s\n", r.ProgramID)
	}
	_, err := w.Write(r.source)
	return err
}

// NewIDLCommand creates the idl command.
func NewIDLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IDLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "idl",
		Short: "Print the message program interface",
		Long: `Print the interface of the message program: its account layout,
instructions, account roles and outcome cases.

Text output is the CUE source; JSON output is the compiled interface.
With --file, a CUE interface file is compiled and validated instead.

Exit codes:
  0 - Interface valid
  2 - Interface file missing or invalid

Examples:
  msgledger idl
  msgledger idl --format json
  msgledger idl --file ./message.cue`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIDL(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "CUE interface file to compile")

	return cmd
}

func runIDL(opts *IDLOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	if opts.File != "" {
		spec, err := idl.CompileFile(opts.File)
		if err != nil {
			if ferr := out.Error("E_IDL", err.Error(), nil); ferr != nil {
				return ferr
			}
			return WrapExitError(ExitCommandError, "invalid interface", err)
		}
		if errs := spec.Validate(); len(errs) > 0 {
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Error()
			}
			if ferr := out.Error("E_IDL", "interface is not valid", msgs); ferr != nil {
				return ferr
			}
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid interface: %s", msgs[0]))
		}
		src, err := os.ReadFile(opts.File)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read interface file", err)
		}
		return out.Success(IDLResult{Spec: spec, source: src})
	}

	prog, err := message.New(opts.Config.Program.ID, opts.Config.Program.RecordSpace)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid message program", err)
	}
	spec := prog.Spec()
	return out.Success(IDLResult{ProgramID: prog.ID(), Spec: &spec, source: message.IDL()})
}
