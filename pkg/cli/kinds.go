package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newKindsCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List the searchable kinds",
		Long: `Kinds prints every configured entity kind with its table and attributes.
With --check the kinds are verified against the store and row counts shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			check, _ := cmd.Flags().GetBool("check")

			registry, err := loadRegistry(v)
			if err != nil {
				return err
			}

			var counts map[string]int64
			if check {
				cm, err := openStore(cmd.Context(), v, registry)
				if err != nil {
					return err
				}
				defer cm.Close()

				counts, err = registry.CountRows(cmd.Context(), cm.Primary())
				if err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if check {
				fmt.Fprintln(w, "TAG\tTABLE\tATTRIBUTES\tROWS")
			} else {
				fmt.Fprintln(w, "TAG\tTABLE\tATTRIBUTES")
			}

			for _, k := range registry.Kinds() {
				attrs := make([]string, len(k.Attributes))
				for i, a := range k.Attributes {
					attrs[i] = a.Name
				}
				if check {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", k.Tag, k.Table, strings.Join(attrs, ","), counts[k.Tag])
				} else {
					fmt.Fprintf(w, "%s\t%s\t%s\n", k.Tag, k.Table, strings.Join(attrs, ","))
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().Bool("check", false, "verify the kinds against the store and count rows")

	return cmd
}
