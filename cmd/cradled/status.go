package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/cuemby/cradle/pkg/client"
)

var statusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show the current status of a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		apiAddr, _ := cmd.Flags().GetString("api-addr")
		c := client.New(apiAddr)

		ws, err := c.Get(context.Background(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ID:            %s\n", ws.ID)
		fmt.Printf("Service:       %s\n", ws.ServiceName)
		fmt.Printf("Status:        %s\n", ws.Status)
		fmt.Printf("Bucket:        %s\n", ws.Bucket)
		fmt.Printf("Region:        %s\n", ws.Region)
		fmt.Printf("Pre-warmed:    %t\n", ws.IsPreWarmed)
		fmt.Printf("Editor URL:    %s\n", ws.URLs.Editor)
		fmt.Printf("Desktop URL:   %s\n", ws.URLs.Desktop)
		fmt.Printf("Web URL:       %s\n", ws.URLs.Web)
		return nil
	},
}
