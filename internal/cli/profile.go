package cli

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/xtxerr/cardiowatch/internal/errors"
	"github.com/xtxerr/cardiowatch/internal/store"
	"github.com/xtxerr/cardiowatch/internal/validation"
)

// NewProfileCommand creates the profile command group.
func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the patient profile",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the patient profile as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(rootOpts.Config())
			if err != nil {
				return err
			}
			doc, err := st.Read()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(doc.Profile, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set key=value...",
		Short: "Merge fields into the patient profile",
		Long: `Merge fields into the patient profile. Values are parsed as JSON when
possible and stored as strings otherwise.

Example:
  cardiowatch profile set name="Maria Silva" age=72
  cardiowatch profile set 'conditions=["Hypertension","Diabetes"]'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			partial, err := parseAssignments(args)
			if err != nil {
				return WrapExitError(ExitCommandError, "parse arguments", err)
			}
			st, err := openStore(rootOpts.Config())
			if err != nil {
				return err
			}
			if err := st.MergeProfile(partial); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d field(s)\n", len(partial))
			return nil
		},
	})

	return cmd
}

func parseAssignments(args []string) (store.Profile, error) {
	out := make(store.Profile, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, errors.NewInvalidValue("assignment", arg, "expected key=value")
		}
		key = strings.TrimSpace(key)

		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		out[key] = v
	}
	if err := validation.ValidateProfile(out); err != nil {
		return nil, err
	}
	return out, nil
}
