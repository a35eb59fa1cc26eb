package main

import (
	"encoding/base64"
	"os"

	"github.com/spf13/cobra"

	"github.com/infumap/storage-core/internal/objectstore"
)

var keygenOut string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a fresh master encryption key",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := objectstore.GenerateMasterKey()
		if err != nil {
			return err
		}
		if keygenOut == "" {
			printResult(map[string]string{"key": base64.StdEncoding.EncodeToString(key)}, base64.StdEncoding.EncodeToString(key))
			return nil
		}
		if err := os.WriteFile(keygenOut, key, 0o600); err != nil {
			return err
		}
		printResult(map[string]string{"wrote": keygenOut}, "wrote master key to "+keygenOut)
		return nil
	},
}

func init() {
	keygenCmd.Flags().StringVar(&keygenOut, "out", "", "file to write the raw key to (prints base64 to stdout if omitted)")
	rootCmd.AddCommand(keygenCmd)
}
