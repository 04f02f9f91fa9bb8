package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/readium/xmlenc/keys"
)

var (
	loadKeysFile string
	loadKeyName  string
	loadPassword string
	loadPrivate  bool
)

var loadCmd = &cobra.Command{
	Use:   "load-pem [path]",
	Short: "Load a PEM-encoded key into a keys document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := keys.NewSimpleKeysManager(newLogger())
		if loadKeysFile != "" {
			if err := mgr.Load(loadKeysFile, false); err != nil {
				cmd.PrintErrln("warning: starting from an empty store:", err)
			}
		}
		var password []byte
		if loadPassword != "" {
			password = []byte(loadPassword)
		}
		key, err := mgr.LoadPEMKey(loadKeyName, args[0], password, loadPrivate)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "loaded key %q (%d bits)\n", key.Name, key.Size())
		if loadKeysFile != "" {
			return mgr.Save(loadKeysFile, keys.DataTypeAny)
		}
		return nil
	},
}

func init() {
	loadCmd.Flags().StringVar(&loadKeysFile, "keys-file", "", "XML Keys document to load into and save back to")
	loadCmd.Flags().StringVar(&loadKeyName, "name", "", "name to register the key under")
	loadCmd.Flags().StringVar(&loadPassword, "password", "", "password protecting the PEM file, if any")
	loadCmd.Flags().BoolVar(&loadPrivate, "private", false, "the PEM file contains a private key")
	_ = loadCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(loadCmd)
}
