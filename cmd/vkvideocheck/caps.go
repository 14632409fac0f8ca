package main

import (
	"fmt"
	"slices"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/layer"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/server"
)

func newCapsCmd() *cobra.Command {
	var operation string
	cmd := &cobra.Command{
		Use:   "caps",
		Short: "Print the capabilities of the default profiles as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if operation != "" {
				if _, ok := vkvideo.ParseCodecOperation(operation); !ok {
					return fmt.Errorf("unknown operation %q", operation)
				}
			}
			views := server.Capabilities(layer.New(profile.DefaultProvider(), nil))
			if operation != "" {
				views = slices.DeleteFunc(views, func(v server.CapabilityView) bool { return v.Operation != operation })
			}
			out, err := json.MarshalIndent(views, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().StringVarP(&operation, "operation", "o", "", "only this operation, e.g. DECODE_H264")
	return cmd
}
