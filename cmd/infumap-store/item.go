package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/infumap/storage-core/internal/errs"
	"github.com/infumap/storage-core/internal/types"
)

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage items within an owner's item database",
}

func readItemJSON(path string) (*types.Item, error) {
	var data []byte
	var err error
	if path == "-" || path == "" {
		data, err = readAllStdin()
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return types.ItemFromJSON(m)
}

func readAllStdin() ([]byte, error) {
	info, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		n, err := os.Stdin.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if err != nil {
			break
		}
	}
	_ = info
	return buf, nil
}

var itemAddCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Add a new item from a JSON file (or stdin if omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		item, err := readItemJSON(path)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		db, err := s.ItemDb(item.OwnerId)
		if err != nil {
			return err
		}
		if err := db.Add(item); err != nil {
			return err
		}
		printResult(item, "added item "+item.Id.String())
		return nil
	},
}

var itemUpdateCmd = &cobra.Command{
	Use:   "update [file]",
	Short: "Update an existing item from a JSON file (or stdin if omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		item, err := readItemJSON(path)
		if err != nil {
			return err
		}
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		db, err := s.ItemDb(item.OwnerId)
		if err != nil {
			return err
		}
		if err := db.Update(item); err != nil {
			return err
		}
		printResult(item, "updated item "+item.Id.String())
		return nil
	},
}

var itemGetOwner string

var itemGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print an item by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		db, err := s.ItemDb(types.Uid(itemGetOwner))
		if err != nil {
			return err
		}
		item, ok := db.Get(types.Uid(args[0]))
		if !ok {
			return errItemNotFound(args[0])
		}
		printResult(item, item.Id.String())
		return nil
	},
}

var itemRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an item by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		db, err := s.ItemDb(types.Uid(itemGetOwner))
		if err != nil {
			return err
		}
		if err := db.Remove(types.Uid(args[0])); err != nil {
			return err
		}
		printResult(map[string]string{"removed": args[0]}, "removed item "+args[0])
		return nil
	},
}

var itemChildrenCmd = &cobra.Command{
	Use:   "children <parent-id>",
	Short: "List a parent item's children, ordered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		db, err := s.ItemDb(types.Uid(itemGetOwner))
		if err != nil {
			return err
		}
		children := db.Children(types.Uid(args[0]))
		printResult(children, itemListPlain(children))
		return nil
	},
}

var itemAttachmentsCmd = &cobra.Command{
	Use:   "attachments <parent-id>",
	Short: "List a parent item's attachments, ordered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		db, err := s.ItemDb(types.Uid(itemGetOwner))
		if err != nil {
			return err
		}
		attachments := db.Attachments(types.Uid(args[0]))
		printResult(attachments, itemListPlain(attachments))
		return nil
	},
}

func itemListPlain(items []*types.Item) string {
	out := ""
	for _, it := range items {
		out += it.Id.String() + "\n"
	}
	return out
}

func errItemNotFound(id string) error {
	return errs.New(errs.NotFound, "item not found: %s", id)
}

func init() {
	for _, c := range []*cobra.Command{itemGetCmd, itemRemoveCmd, itemChildrenCmd, itemAttachmentsCmd} {
		c.Flags().StringVar(&itemGetOwner, "owner", "", "owner uid whose item database to query")
		c.MarkFlagRequired("owner")
	}
	itemCmd.AddCommand(itemAddCmd, itemUpdateCmd, itemGetCmd, itemRemoveCmd, itemChildrenCmd, itemAttachmentsCmd)
	rootCmd.AddCommand(itemCmd)
}
