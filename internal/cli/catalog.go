package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/PACSamericana/poly/internal/catalog"
	"github.com/PACSamericana/poly/internal/model"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the section catalog",
	Long: `Inspect the anatomical sections a report is built from.

Without a subcommand the sections are listed in report order.`,
	RunE: runCatalogList,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sections in report order",
	Args:  cobra.NoArgs,
	RunE:  runCatalogList,
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Show the templates of one section",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}

		section, ok := cat.Lookup(model.SectionKey(args[0]))
		if !ok {
			return fmt.Errorf("unknown section %q (see 'poly catalog list')", args[0])
		}

		data, err := yaml.Marshal(section)
		if err != nil {
			return fmt.Errorf("error marshaling section: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (catalog v%d, %d sections)\n\n", cat.StudyType, cat.Version, cat.Len())
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for i, s := range cat.Sections {
		structure := ""
		if len(s.Subsections) > 0 {
			structure = fmt.Sprintf("%d subsections", len(s.Subsections))
		} else if len(s.Options) > 0 {
			structure = fmt.Sprintf("%d options", len(s.Options))
		}
		fmt.Fprintf(tw, "%2d\t%s\t%s\t%s\n", i+1, s.Key, s.DisplayTitle(), structure)
	}
	return tw.Flush()
}

// loadCatalog returns the configured catalog without building a provider
func loadCatalog() (*catalog.Catalog, error) {
	if path := viper.GetString("catalog.path"); path != "" {
		return catalog.Load(path)
	}
	return catalog.Default(), nil
}
