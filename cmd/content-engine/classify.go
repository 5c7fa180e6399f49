// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/content-engine/internal/cache"
	"github.com/pdiddy/content-engine/internal/classify"
	"github.com/pdiddy/content-engine/pkg/types"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [query]",
	Short: "Classify a query without generating anything",
	Long: `Classify prints the type, expertise, format, and time sensitivity the
classifier assigns to a query, together with its cache key and the TTL a
document of average confidence would get.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		expertise, _ := cmd.Flags().GetString("expertise")
		q := classify.Classify(strings.Join(args, " "), types.Hints{
			Type:      types.QueryType(typ),
			Expertise: types.Expertise(expertise),
		})

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(q)
		}
		fmt.Printf("Text:           %s\n", q.Text)
		fmt.Printf("Type:           %s\n", q.Type)
		fmt.Printf("Expertise:      %s\n", q.Expertise)
		fmt.Printf("Format:         %s\n", q.Format)
		fmt.Printf("Time sensitive: %t\n", q.TimeSensitive)
		fmt.Printf("Cache key:      %s\n", cache.Key(q, nil))
		fmt.Printf("TTL at 0.7:     %dh\n", cache.TTL(q.Type, 0.7, q.Expertise))
		return nil
	},
}

func init() {
	classifyCmd.Flags().String("type", "", "query type hint")
	classifyCmd.Flags().String("expertise", "", "expertise hint")
	classifyCmd.Flags().Bool("json", false, "output the classified query as JSON")

	rootCmd.AddCommand(classifyCmd)
}
