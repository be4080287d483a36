package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newKeysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the document keys in storage",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			keys, err := a.store.Keys()
			if err != nil {
				return err
			}
			return a.render(keys)
		},
	}
}

func newDumpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <key>",
		Short: "Print a stored document as is",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			raw, ok := a.store.Raw(args[0])
			if !ok {
				return fmt.Errorf("key %s not found", args[0])
			}
			if !json.Valid(raw) {
				_, err := a.out.Write(raw)
				return err
			}
			return a.render(json.RawMessage(raw))
		},
	}
}
