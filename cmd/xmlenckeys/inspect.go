package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/readium/xmlenc/dom"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [path]",
	Short: "Print the root element, Id, Type and child element names of an EncryptedData/EncryptedKey document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		doc, err := dom.ReadDocument(f)
		if err != nil {
			return err
		}
		root := doc.Root()
		if root == nil {
			return fmt.Errorf("empty document")
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "root: %s\n", root.Tag())
		fmt.Fprintf(out, "Id: %s\n", root.AttrOr("Id", "(none)"))
		fmt.Fprintf(out, "Type: %s\n", root.AttrOr("Type", "(none)"))
		for _, child := range root.Children() {
			fmt.Fprintf(out, "  child: %s\n", child.Tag())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
