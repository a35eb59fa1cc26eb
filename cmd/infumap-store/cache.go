package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/infumap/storage-core/internal/errs"
	"github.com/infumap/storage-core/internal/imagecache"
	"github.com/infumap/storage-core/internal/types"
)

var (
	cacheOwner string
	cacheItem  string
	cacheWidth int64
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the image derivative cache",
}

var cacheLookupCmd = &cobra.Command{
	Use:   "lookup <out-file>",
	Short: "Find the closest cached derivative to a requested width and write it out",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		size, data, ok := s.Images().Lookup(types.Uid(cacheItem), cacheWidth, types.Uid(cacheOwner))
		if !ok {
			return errs.New(errs.NotFound, "no cached derivative within the acceptance band of width %d for item %s", cacheWidth, cacheItem)
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			return err
		}
		printResult(map[string]string{"matchedWidth": strconv.FormatInt(size.WidthPx, 10), "wrote": args[0]}, "matched width "+size.String())
		return nil
	},
}

var cacheResolveCmd = &cobra.Command{
	Use:   "resolve <out-file>",
	Short: "Serve a derivative of the requested width, filling the cache on miss",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		ownerId, itemId := types.Uid(cacheOwner), types.Uid(cacheItem)
		db, err := s.ItemDb(ownerId)
		if err != nil {
			return err
		}
		item, ok := db.Get(itemId)
		if !ok {
			return errs.New(errs.NotFound, "item %s not found", itemId)
		}
		if item.ImageSizePx == nil {
			return errs.New(errs.InvalidArg, "item %s is not an image item", itemId)
		}

		size, data, err := s.Images().Resolve(cmd.Context(), itemId, ownerId, cacheWidth, item.ImageSizePx.W, s.Objects(), imagecache.PassthroughResizer{})
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			return err
		}
		printResult(map[string]string{"servedSize": size.String(), "wrote": args[0]}, "served size "+size.String())
		return nil
	},
}

var cacheDeleteAllCmd = &cobra.Command{
	Use:   "delete-all",
	Short: "Delete every cached derivative for an item",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Images().DeleteAll(types.Uid(cacheItem), types.Uid(cacheOwner)); err != nil {
			return err
		}
		printResult(map[string]string{"item": cacheItem}, "deleted all derivatives for "+cacheItem)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{cacheLookupCmd, cacheResolveCmd, cacheDeleteAllCmd} {
		c.Flags().StringVar(&cacheOwner, "owner", "", "owning user uid")
		c.Flags().StringVar(&cacheItem, "item", "", "item uid")
		c.MarkFlagRequired("owner")
		c.MarkFlagRequired("item")
	}
	cacheLookupCmd.Flags().Int64Var(&cacheWidth, "width", 0, "requested derivative width in pixels")
	cacheLookupCmd.MarkFlagRequired("width")
	cacheResolveCmd.Flags().Int64Var(&cacheWidth, "width", 0, "requested derivative width in pixels")
	cacheResolveCmd.MarkFlagRequired("width")
	cacheCmd.AddCommand(cacheLookupCmd, cacheResolveCmd, cacheDeleteAllCmd)
	rootCmd.AddCommand(cacheCmd)
}
