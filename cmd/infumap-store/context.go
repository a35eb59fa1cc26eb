package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/infumap/storage-core/internal/config"
	"github.com/infumap/storage-core/internal/errs"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "List and switch between configured storage-core server contexts",
}

func serversPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return config.ServersPath(home)
}

var contextListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every configured context",
	RunE: func(cmd *cobra.Command, args []string) error {
		servers, err := config.LoadServers(serversPath())
		if err != nil {
			return err
		}
		plain := ""
		for _, e := range servers.Server {
			marker := ""
			if e.Default {
				marker = " (default)"
			}
			plain += e.Name + marker + " -> " + e.DataDir + "\n"
		}
		printResult(servers.Server, plain)
		return nil
	},
}

var contextUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the default context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := serversPath()
		servers, err := config.LoadServers(path)
		if err != nil {
			return err
		}
		found := false
		for i := range servers.Server {
			servers.Server[i].Default = servers.Server[i].Name == args[0]
			found = found || servers.Server[i].Default
		}
		if !found {
			return errs.New(errs.NotFound, "no context named %q", args[0])
		}
		if err := config.SaveServers(path, servers); err != nil {
			return err
		}
		printResult(map[string]string{"default": args[0]}, "default context set to "+args[0])
		return nil
	},
}

var (
	contextAddName    string
	contextAddDataDir string
)

var contextAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new context",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := serversPath()
		servers, err := config.LoadServers(path)
		if err != nil {
			return err
		}
		servers.Server = append(servers.Server, config.ServerEntry{Name: contextAddName, DataDir: contextAddDataDir})
		if err := config.SaveServers(path, servers); err != nil {
			return err
		}
		printResult(map[string]string{"added": contextAddName}, "added context "+contextAddName)
		return nil
	},
}

func init() {
	contextAddCmd.Flags().StringVar(&contextAddName, "name", "", "context name")
	contextAddCmd.Flags().StringVar(&contextAddDataDir, "data-dir", "", "data directory for this context")
	contextAddCmd.MarkFlagRequired("name")
	contextAddCmd.MarkFlagRequired("data-dir")
	contextCmd.AddCommand(contextListCmd, contextUseCmd, contextAddCmd)
	rootCmd.AddCommand(contextCmd)
}
