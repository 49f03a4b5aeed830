package commands

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bigbrett/wolfHSM/whsm"
	"github.com/bigbrett/wolfHSM/whsm/keyid"
	"github.com/bigbrett/wolfHSM/whsm/keystore"
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

func InitKeyCommands(rootCmd *cobra.Command) {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Manage keys held by the module",
	}

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Cache a key file on the module and print its id",
		RunE:  keyCacheCmd,
	}
	cacheCmd.Flags().String("key-file", "", "raw key bytes")
	cacheCmd.Flags().String("label", "", "label, at most 24 bytes")
	cacheCmd.Flags().String("id", "", "key id to use; the module picks one if empty")
	cacheCmd.Flags().Bool("non-exportable", false, "forbid export")
	_ = cacheCmd.MarkFlagRequired("key-file")

	exportCmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Print a key in hex",
		Args:  cobra.ExactArgs(1),
		RunE:  keyExportCmd,
	}

	keyCmd.AddCommand(cacheCmd, exportCmd,
		idCommand("evict", "Drop a key from the cache", (*keystore.Client).Evict),
		idCommand("commit", "Persist a cached key", (*keystore.Client).Commit),
		idCommand("erase", "Remove a key from cache and NVM", (*keystore.Client).Erase),
	)
	rootCmd.AddCommand(keyCmd)
}

func idCommand(use, short string, op func(*keystore.Client, keyid.KeyID) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := keyid.Parse(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd, func(c *whsm.Client) error {
				return op(c.Keys(), id)
			})
		},
	}
}

func keyCacheCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	path, _ := flags.GetString("key-file")
	label, _ := flags.GetString("label")
	idStr, _ := flags.GetString("id")
	nonExportable, _ := flags.GetBool("non-exportable")

	id := keyid.Erased
	if idStr != "" {
		var err error
		if id, err = keyid.Parse(idStr); err != nil {
			return err
		}
	}
	var keyFlags uint16
	if nonExportable {
		keyFlags |= protocol.NvmFlagsNonExportable
	}
	key, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}

	return withClient(cmd, func(c *whsm.Client) error {
		got, err := c.Keys().Cache(keyFlags, []byte(label), key, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), got)
		return nil
	})
}

func keyExportCmd(cmd *cobra.Command, args []string) error {
	id, err := keyid.Parse(args[0])
	if err != nil {
		return err
	}
	return withClient(cmd, func(c *whsm.Client) error {
		out := make([]byte, c.Comm().MTU())
		n, label, err := c.Keys().Export(id, out)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %q\n", hex.EncodeToString(out[:n]), label)
		return nil
	})
}
