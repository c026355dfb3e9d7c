package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Capacity int
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the record store if it does not exist",
		Long: `Create the JSON record store with a default profile and a few seeded
readings. An existing store is left untouched, including its capacity.

Example:
  cardiowatch init --db ./mock_db.json --capacity 500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Capacity, "capacity", 0, "history bound for a new store (default from config)")
	return cmd
}

func runInit(cmd *cobra.Command, opts *InitOptions) error {
	cfg := opts.Config()
	if opts.Capacity != 0 {
		cfg.Store.Capacity = opts.Capacity
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	doc, err := st.Read()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "store %s: %d readings, capacity %d\n",
		st.Path(), len(doc.History), doc.MaxEntries)
	return nil
}
