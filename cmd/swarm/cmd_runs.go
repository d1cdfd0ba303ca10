package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs <file.db>",
		Short: "List the runs stored in a SQLite file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f, err := format(args[0]); err != nil || f != formatSQLite {
				return fmt.Errorf("%s is not a SQLite file", args[0])
			}
			s, err := openStore(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.Runs(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				type entry struct {
					ID        int64     `json:"id"`
					Name      string    `json:"name"`
					Particles int       `json:"particles"`
					Frames    int       `json:"frames"`
					CreatedAt time.Time `json:"created_at"`
				}
				entries := make([]entry, len(runs))
				for i, r := range runs {
					entries[i] = entry{r.ID, r.Name, r.Particles, r.Frames, r.CreatedAt}
				}
				return json.NewEncoder(w).Encode(entries)
			}

			tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPARTICLES\tFRAMES\tBOUNDARY\tCREATED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\n",
					r.ID, r.Name, r.Particles, r.Frames, r.Params.Boundary, r.CreatedAt.Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}
