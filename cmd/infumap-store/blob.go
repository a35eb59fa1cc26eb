package main

import (
	"os"

	"github.com/spf13/cobra"
)

var blobOwner, blobItem string

var blobCmd = &cobra.Command{
	Use:   "blob",
	Short: "Put, get, and delete encrypted blob content",
}

var blobPutCmd = &cobra.Command{
	Use:   "put <file>",
	Short: "Encrypt and store a file's contents as a blob",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Objects().Put(cmd.Context(), blobOwner, blobItem, data); err != nil {
			return err
		}
		printResult(map[string]string{"owner": blobOwner, "item": blobItem}, "stored blob for "+blobItem)
		return nil
	},
}

var blobGetCmd = &cobra.Command{
	Use:   "get <out-file>",
	Short: "Fetch and decrypt a blob's contents to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		data, err := s.Objects().Get(cmd.Context(), blobOwner, blobItem)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			return err
		}
		printResult(map[string]string{"wrote": args[0]}, "wrote "+args[0])
		return nil
	},
}

var blobDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a blob from every configured backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Objects().Delete(cmd.Context(), blobOwner, blobItem); err != nil {
			return err
		}
		printResult(map[string]string{"deleted": blobItem}, "deleted blob for "+blobItem)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{blobPutCmd, blobGetCmd, blobDeleteCmd} {
		c.Flags().StringVar(&blobOwner, "owner", "", "owning user uid")
		c.Flags().StringVar(&blobItem, "item", "", "item uid")
		c.MarkFlagRequired("owner")
		c.MarkFlagRequired("item")
	}
	blobCmd.AddCommand(blobPutCmd, blobGetCmd, blobDeleteCmd)
	rootCmd.AddCommand(blobCmd)
}
