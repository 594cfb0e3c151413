package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/cuemby/cradle/pkg/client"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		apiAddr, _ := cmd.Flags().GetString("api-addr")
		status, _ := cmd.Flags().GetString("status")

		c := client.New(apiAddr)
		result, err := c.List(context.Background(), status)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tBUCKET\tPRE-WARMED\tEDITOR URL")
		for _, ws := range result.Workspaces {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", ws.ID, ws.Status, ws.Bucket, ws.IsPreWarmed, ws.URLs.Editor)
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().String("status", "", "Filter by status (starting, running, stopping, stopped, failed)")
}
