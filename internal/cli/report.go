package cli

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/xtxerr/cardiowatch/internal/archive"
	"github.com/xtxerr/cardiowatch/internal/export"
	"github.com/xtxerr/cardiowatch/internal/loader"
	"github.com/xtxerr/cardiowatch/internal/monitor"
	"github.com/xtxerr/cardiowatch/internal/report"
)

// ArtifactOptions holds flags for the report and export commands.
type ArtifactOptions struct {
	*RootOptions
	Output string
	Upload bool

	// Now is the clock used for file and object names. Nil means time.Now.
	Now func() time.Time
}

func (o *ArtifactOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArtifactOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a PDF report of the current history",
		Long: `Analyse the store once and write a PDF report with the patient profile and
a summary of the history.

Example:
  cardiowatch report -o report.pdf
  cardiowatch report --upload`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArtifact(cmd, opts, "report", ".pdf", "application/pdf",
				func(cfg *loader.Config, a *monitor.Analysis, now time.Time) ([]byte, error) {
					var buf bytes.Buffer
					err := report.Generate(&buf, a, now.In(cfg.Monitor.Location()))
					return buf.Bytes(), err
				})
		},
	}

	addArtifactFlags(cmd, opts)
	return cmd
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArtifactOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the classified history as Parquet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArtifact(cmd, opts, "history", ".parquet", export.ContentType,
				func(cfg *loader.Config, a *monitor.Analysis, _ time.Time) ([]byte, error) {
					return export.WriteAnalysis(a, exportOptions(cfg))
				})
		},
	}

	addArtifactFlags(cmd, opts)
	return cmd
}

func addArtifactFlags(cmd *cobra.Command, opts *ArtifactOptions) {
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default cardiowatch-<kind>-<time><ext>)")
	cmd.Flags().BoolVar(&opts.Upload, "upload", false, "also upload to the configured archive bucket")
}

type renderFunc func(cfg *loader.Config, a *monitor.Analysis, now time.Time) ([]byte, error)

func runArtifact(cmd *cobra.Command, opts *ArtifactOptions, kind, ext, contentType string, render renderFunc) error {
	cfg := opts.Config()
	now := opts.now()

	a, err := analyzeOnce(cfg)
	if err != nil {
		return err
	}
	data, err := render(cfg, a, now)
	if err != nil {
		return err
	}

	out := opts.Output
	if out == "" {
		out = fmt.Sprintf("cardiowatch-%s-%s%s", kind, now.Format("20060102-1504"), ext)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return WrapExitError(ExitFailure, "write "+kind, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))

	if !opts.Upload {
		return nil
	}
	client, err := newArchive(cfg)
	if err != nil {
		return err
	}
	obj, err := client.Upload(cmd.Context(), archive.ObjectName(kind, now, ext), data, contentType)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "uploaded s3://%s/%s\n", obj.Bucket, obj.Key)
	return nil
}

// analyzeOnce runs a single analysis without notifying anyone.
func analyzeOnce(cfg *loader.Config) (*monitor.Analysis, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	doc, err := st.Read()
	if err != nil {
		return nil, err
	}
	return monitor.Analyze(doc, newDetector(cfg), monitorConfig(cfg), time.Now()), nil
}
