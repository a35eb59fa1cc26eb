// Command infumap-store is the CLI front end for the storage core: item,
// blob, cache, migrate, search and context subcommands operating on a
// local data directory.
package main

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitWithClassifiedError(err)
	}
}
