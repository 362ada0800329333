package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openglide/skysearch/pkg/search"
)

func newSearchCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <text>...",
		Short: "Run a ranked search and print the results",
		Long: `Search scores every configured kind against the given text and prints the
best matches, highest weight first. Use * as a wildcard inside a token.`,
		Example: `  skysearch-cli search --url postgres://localhost/skylines lv aachen
  skysearch-cli search --driver sqlite3 --url ./skylines.db --explain "sch*en"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			explain, _ := cmd.Flags().GetBool("explain")
			asJSON, _ := cmd.Flags().GetBool("json")

			if limit < 0 {
				return fmt.Errorf("limit must not be negative")
			}

			registry, err := loadRegistry(v)
			if err != nil {
				return err
			}

			cm, err := openStore(cmd.Context(), v, registry)
			if err != nil {
				return err
			}
			defer cm.Close()

			svc := search.NewService(
				search.NewEngine(cm, cm.Dialect(), registry),
				search.NewEnricher(cm, cm.Dialect(), registry),
			)

			resp, err := svc.Search(cmd.Context(), search.Request{
				Text:    strings.Join(args, " "),
				Limit:   limit,
				Explain: explain,
			})
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			return printResults(cmd.OutOrStdout(), resp, explain)
		},
	}

	cmd.Flags().Int("limit", 0, fmt.Sprintf("maximum number of results (default %d, at most %d)", search.DefaultLimit, search.MaxLimit))
	cmd.Flags().Bool("explain", false, "print the per-pattern score breakdown")
	cmd.Flags().Bool("json", false, "output the response as JSON")

	return cmd
}

// printResults writes one row per result: kind, id, name, weight and the
// attributes in key order.
func printResults(out io.Writer, resp *search.Response, explain bool) error {
	if resp.Count == 0 {
		fmt.Fprintf(out, "No results for %q\n", resp.Query)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tID\tNAME\tWEIGHT\tDETAILS")
	for _, r := range resp.Results {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\n", r.Kind, r.ID, r.Name, r.Weight, formatFields(r.Fields))
		if explain {
			for _, c := range r.Explain {
				fmt.Fprintf(w, "\t\t  %s %q\t+%d\t\n", c.Class, c.Pattern, c.Weight)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d result(s)\n", resp.Count)
	return nil
}

func formatFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + fields[k]
	}
	return strings.Join(parts, " ")
}
