package cmd

import (
	"encoding/json"
	"fmt"

	"bindiff/core"

	"github.com/spf13/cobra"
)

// UpsertOptions holds flags for the upsert command.
type UpsertOptions struct {
	*RootOptions
	ID   int64
	Side string
	Data string
}

type upsertOutput struct {
	ID   int64  `json:"id"`
	Side string `json:"side"`
}

func NewUpsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpsertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "upsert --id N --side left|right --data BASE64",
		Short: "Write one side of a record",
		Example: `  bindiff upsert --id 1 --side left --data dGV4dCEh
  STORAGE_TYPE=sqlite bindiff upsert --id 1 --side right --data VEVYVCEh`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			side, ok := core.ParseSide(opts.Side)
			if !ok {
				return fmt.Errorf("invalid side %q: must be left or right", opts.Side)
			}
			svc, release, err := openService(cmd.Context(), opts.Config)
			if err != nil {
				return err
			}
			defer release()

			if err := svc.Upsert(cmd.Context(), opts.ID, side, opts.Data); err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(upsertOutput{ID: opts.ID, Side: side.String()})
		},
	}

	cmd.Flags().Int64Var(&opts.ID, "id", 0, "record id")
	cmd.Flags().StringVar(&opts.Side, "side", "", "side to write (left|right)")
	cmd.Flags().StringVar(&opts.Data, "data", "", "base64 payload")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("side")

	return cmd
}

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions
	ID int64
}

func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff --id N",
		Short: "Compare the two sides of a record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, release, err := openService(cmd.Context(), opts.Config)
			if err != nil {
				return err
			}
			defer release()

			result, err := svc.Compare(cmd.Context(), opts.ID)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
		},
	}

	cmd.Flags().Int64Var(&opts.ID, "id", 0, "record id")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
