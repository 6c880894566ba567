package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foliorank/foliorank/internal/config"
	"github.com/foliorank/foliorank/internal/jobtext"
)

// --- match ---

var matchCmd = &cobra.Command{
	Use:   "match [job description]",
	Short: "Match portfolio projects against a job description",
	Long: `Match portfolio projects against a job description.

Examples:
  foliorank match "Senior Go engineer, Kubernetes, Postgres"
  foliorank match --file ./posting.txt --top-k 3
  foliorank match --pdf ./posting.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		pdfPath, _ := cmd.Flags().GetString("pdf")
		topK, _ := cmd.Flags().GetInt("top-k")
		asJSON, _ := cmd.Flags().GetBool("json")

		var input jobtext.Input
		switch {
		case len(args) > 0:
			input = jobtext.Text(strings.Join(args, " "))
		case file != "":
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			input = jobtext.Text(string(data))
		case pdfPath != "":
			in, err := jobtext.FromPDF(pdfPath)
			if err != nil {
				return fmt.Errorf("reading pdf: %w", err)
			}
			input = in
		default:
			return fmt.Errorf("provide a job description as an argument, or use --file or --pdf")
		}
		if input.IsEmpty() {
			return fmt.Errorf("job description is empty")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{"text": input.Resolve()}
		if topK > 0 {
			body["top_k"] = topK
		}
		resp, err := client.post(cmd.Context(), "/match", body)
		if err != nil {
			return err
		}

		var result struct {
			Matches []struct {
				Name         string   `json:"name"`
				URL          string   `json:"url"`
				ThreeLiner   string   `json:"three_liner"`
				Technologies []string `json:"technologies"`
				Score        float64  `json:"score"`
				Semantic     float64  `json:"semantic_score"`
				Tech         float64  `json:"tech_score"`
				Recency      float64  `json:"recency_score"`
				Quality      float64  `json:"quality_score"`
			} `json:"matches"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result.Matches)
		}

		if len(result.Matches) == 0 {
			fmt.Println("No matching projects found.")
			return nil
		}

		for i, m := range result.Matches {
			fmt.Printf("\n%s %s [score: %.3f]\n",
				colorize(colorBold, fmt.Sprintf("%d.", i+1)),
				colorize(colorCyan, m.Name),
				m.Score,
			)
			if m.ThreeLiner != "" {
				fmt.Printf("   %s\n", m.ThreeLiner)
			}
			if len(m.Technologies) > 0 {
				fmt.Printf("   Tech: %s\n", strings.Join(m.Technologies, ", "))
			}
			fmt.Printf("   semantic %.2f | tech %.2f | recency %.2f | quality %.2f\n",
				m.Semantic, m.Tech, m.Recency, m.Quality)
			if m.URL != "" {
				fmt.Printf("   %s\n", m.URL)
			}
		}
		return nil
	},
}

func init() {
	matchCmd.Flags().String("file", "", "read the job description from a text file")
	matchCmd.Flags().String("pdf", "", "read the job description from a PDF file")
	matchCmd.Flags().Int("top-k", 0, "maximum number of matches to return (0 uses the server's matching.top_k)")
	matchCmd.Flags().Bool("json", false, "output raw JSON")
}

// --- rebuild ---

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Re-embed all visible projects and rebuild the search index",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/rebuild", nil)
		if err != nil {
			return err
		}

		var result struct {
			Status  string `json:"status"`
			Indexed int    `json:"indexed"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Indexed %d projects", result.Indexed)
		return nil
	},
}

// --- projects ---

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage portfolio projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all portfolio projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/projects")
		if err != nil {
			return err
		}

		var projects []struct {
			Name         string   `json:"name"`
			Technologies []string `json:"technologies"`
			Language     string   `json:"language"`
			Stars        int      `json:"stars"`
			UpdatedAt    string   `json:"updated_at"`
			Hidden       bool     `json:"hidden"`
		}
		if err := decodeJSON(resp, &projects); err != nil {
			return err
		}

		if len(projects) == 0 {
			fmt.Println("No projects found.")
			return nil
		}

		for _, p := range projects {
			name := colorize(colorCyan, p.Name)
			if p.Hidden {
				name += colorize(colorYellow, " (hidden)")
			}
			line := name
			if p.Language != "" {
				line += "  " + p.Language
			}
			if len(p.Technologies) > 0 {
				line += "  [" + strings.Join(p.Technologies, ", ") + "]"
			}
			fmt.Println(line)
		}
		return nil
	},
}

func setProjectHidden(cmd *cobra.Command, name string, hidden bool) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	resp, err := client.patch(cmd.Context(), "/projects/"+name, map[string]any{"hidden": hidden})
	if err != nil {
		return err
	}

	var result map[string]any
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}

	if hidden {
		printSuccess("Hid %s from matching (takes effect after rebuild)", name)
	} else {
		printSuccess("Unhid %s (takes effect after rebuild)", name)
	}
	return nil
}

var projectsHideCmd = &cobra.Command{
	Use:   "hide <name>",
	Short: "Exclude a project from matching",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setProjectHidden(cmd, args[0], true)
	},
}

var projectsUnhideCmd = &cobra.Command{
	Use:   "unhide <name>",
	Short: "Include a previously hidden project in matching",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setProjectHidden(cmd, args[0], false)
	},
}

func init() {
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsHideCmd)
	projectsCmd.AddCommand(projectsUnhideCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s  (env %s)\n", colorize(colorBold, k.Key), k.Value, k.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
