package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riboseqorg/ribocollate/internal/pipeline"
)

var reconcileOpts pipeline.Options

// reconcileCmd runs the full reconciliation pipeline.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile metadata sources into a fixture file",
	Long: `Reconcile loads the cleaned master metadata and the optional platform,
verification, collapsed-accession and vocabulary sources, joins them on
canonical run accessions, and writes schema-conformant fixture records.

Only --metadata and --output are required; stages without a source file are
skipped. A missing required column in any supplied file aborts the run.`,
	Example: `  ribocollate reconcile \
    --metadata data/Cleaned_Metadata_For_Upload.csv \
    --trips data/Sample_Matching-Trips-Viz.csv \
    --gwips data/Sample_Matching-GWIPS-Viz.csv \
    --ribocrypt data/ribocrypt_metadata.csv \
    --collapsed data/collapsed_accessions.tsv \
    --verified data/verified.csv \
    --clean data/Main_Name_Cleaning.csv \
    --output data/riboseqorg_metadata.json`,
	RunE: runReconcile,
}

func init() {
	flags := reconcileCmd.Flags()

	flags.StringVarP(&reconcileOpts.MetadataPath, "metadata", "i", "", "cleaned master metadata CSV (required)")
	flags.StringVarP(&reconcileOpts.OutputPath, "output", "o", "", "output fixture file (required)")
	flags.StringVarP(&reconcileOpts.TripsPath, "trips", "t", "", "Trips sample-matching CSV")
	flags.StringVarP(&reconcileOpts.GWIPSPath, "gwips", "g", "", "GWIPS sample-matching CSV")
	flags.StringVarP(&reconcileOpts.RiboCryptPath, "ribocrypt", "r", "", "RiboCrypt sample-matching CSV")
	flags.StringVarP(&reconcileOpts.CollapsedPath, "collapsed", "f", "", "collapsed-accessions TSV")
	flags.StringVar(&reconcileOpts.VerifiedPath, "verified", "", "manually-checked samples CSV")
	flags.StringVarP(&reconcileOpts.CleanPath, "clean", "c", "", "vocabulary name-cleaning CSV")
	flags.StringVar(&reconcileOpts.SchemaPath, "schema", "", "YAML schema descriptor (default built-in)")
	flags.StringVar(&reconcileOpts.Format, "format", "json", "fixture output format (json or yaml)")
	flags.StringVar(&reconcileOpts.ReportPath, "report", "", "write a Markdown data-quality report to this path")
	flags.StringVar(&reconcileOpts.SQLiteDir, "sqlite-dir", "", "write per-study open-column sqlite databases into this directory")
	flags.BoolVar(&reconcileOpts.StrictVocab, "strict-vocab", false, "fail on vocabulary terms with no canonical mapping")

	_ = reconcileCmd.MarkFlagRequired("metadata")
	_ = reconcileCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	opts := reconcileOpts
	opts.Logger = logger

	if opts.SchemaPath == "" && appConfig != nil {
		opts.SchemaPath = appConfig.SchemaFile
	}

	result, err := pipeline.Run(opts)
	if err != nil {
		logger.Error().Err(err).Msg("Reconciliation failed")
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
	return nil
}
