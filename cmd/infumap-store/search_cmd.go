package main

import (
	"github.com/spf13/cobra"

	"github.com/infumap/storage-core/internal/types"
)

var (
	searchOwner string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search an owner's items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		idx, err := s.SearchIndex(cmd.Context(), types.Uid(searchOwner))
		if err != nil {
			return err
		}
		results, err := idx.Search(cmd.Context(), args[0], searchLimit)
		if err != nil {
			return err
		}
		plain := ""
		for _, r := range results {
			plain += r.Id.String() + " (" + r.ItemType + ")\n"
		}
		printResult(results, plain)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchOwner, "owner", "", "owning user uid")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum number of results")
	searchCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(searchCmd)
}
