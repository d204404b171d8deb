// krishictl - CLI tool for the Krishi Sakhi API
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
	"github.com/mabhinav2955-coder/kisan-sub000/pkg/sdk"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	serverURL string
	output    string
	timeout   time.Duration
	page      int
	limit     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "krishictl",
		Short:        "Krishi Sakhi CLI - market prices, pest alerts, schemes and farm advice",
		Version:      fmt.Sprintf("%s (built %s)", Version, BuildTime),
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", envOr("KRISHI_SERVER", "http://localhost:5000"), "Krishi Sakhi server URL")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "Request timeout")

	pricesCmd := &cobra.Command{
		Use:   "prices",
		Short: "List mandi prices",
		Args:  cobra.NoArgs,
		RunE:  listPrices,
	}
	pricesCmd.Flags().String("crop", "", "Filter by crop")
	addPageFlags(pricesCmd)

	pestsCmd := &cobra.Command{
		Use:   "pests",
		Short: "List pest alerts",
		Args:  cobra.NoArgs,
		RunE:  listPests,
	}
	pestsCmd.Flags().String("crop", "", "Filter by crop")
	pestsCmd.Flags().String("district", "", "Filter by district")
	pestsCmd.Flags().String("date", "", "Only alerts on or after this date (YYYY-MM-DD)")
	pestsCmd.Flags().String("pest", "", "Filter by pest name")
	addPageFlags(pestsCmd)

	schemesCmd := &cobra.Command{
		Use:   "schemes",
		Short: "List government schemes",
		Args:  cobra.NoArgs,
		RunE:  listSchemes,
	}
	schemesCmd.Flags().String("type", "", "Filter by scheme type (subsidy, insurance, loan, ...)")
	schemesCmd.Flags().String("crop", "", "Filter by crop")
	addPageFlags(schemesCmd)

	chatCmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask the farming assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE:  chat,
	}
	chatCmd.Flags().StringP("language", "l", "english", "Reply language (english, malayalam)")
	chatCmd.Flags().Float64("lat", 0, "Latitude of the farm")
	chatCmd.Flags().Float64("lon", 0, "Longitude of the farm")
	chatCmd.Flags().Bool("context", false, "Show the data used to answer")
	chatCmd.Flags().Bool("mobile", false, "Use the mobile route with provider failover")

	// Activity commands
	activityCmd := &cobra.Command{
		Use:   "activity",
		Short: "Manage the farm activity log",
	}

	listActivityCmd := &cobra.Command{
		Use:   "list",
		Short: "List logged activities",
		Args:  cobra.NoArgs,
		RunE:  listActivities,
	}
	listActivityCmd.Flags().String("farmer", "", "Filter by farmer ID")
	addPageFlags(listActivityCmd)

	logActivityCmd := &cobra.Command{
		Use:   "log",
		Short: "Log farm work",
		Args:  cobra.NoArgs,
		RunE:  logActivity,
	}
	logActivityCmd.Flags().StringP("file", "f", "", "Activity definition file (YAML or JSON)")
	logActivityCmd.Flags().String("farmer", "", "Farmer ID")
	logActivityCmd.Flags().String("type", "", "Activity type (sowing, irrigation, fertilizer, pesticide, weeding, harvest, other)")
	logActivityCmd.Flags().String("crop", "", "Crop")
	logActivityCmd.Flags().String("description", "", "What was done")
	logActivityCmd.Flags().String("quantity", "", "Quantity used or harvested")
	logActivityCmd.Flags().String("date", "", "Date of the work (YYYY-MM-DD)")

	activityCmd.AddCommand(
		listActivityCmd,
		logActivityCmd,
		&cobra.Command{
			Use:   "get [activity-id]",
			Short: "Get activity details",
			Args:  cobra.ExactArgs(1),
			RunE:  getActivity,
		},
		&cobra.Command{
			Use:   "delete [activity-id]",
			Short: "Delete an activity",
			Args:  cobra.ExactArgs(1),
			RunE:  deleteActivity,
		},
	)

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE:  health,
	}

	rootCmd.AddCommand(pricesCmd, pestsCmd, schemesCmd, chatCmd, activityCmd, healthCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "Items per page")
}

func newClient() *sdk.Client {
	return sdk.NewClient(serverURL, sdk.WithTimeout(timeout), sdk.WithUserAgent("krishictl/"+Version))
}

func listOptions() sdk.ListOptions {
	return sdk.ListOptions{Page: page, Limit: limit}
}

// Output helpers

func printOutput(data interface{}) error {
	switch output {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(data)
	case "table":
		return nil
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func printPageSummary(noun string, total, page int, provenance models.Provenance) {
	fmt.Printf("Total: %d %s (page %d", total, noun, page)
	if provenance != "" {
		fmt.Printf(", source: %s", provenance)
	}
	fmt.Print(")\n\n")
}

// Data commands

func listPrices(cmd *cobra.Command, args []string) error {
	crop, _ := cmd.Flags().GetString("crop")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := newClient().MarketPrices(ctx, sdk.MarketQuery{Crop: crop, ListOptions: listOptions()})
	if err != nil {
		return err
	}

	if output != "table" {
		return printOutput(result.Items)
	}

	printPageSummary("prices", result.Total, result.Page, result.Provenance)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CROP\tMARKET\tDISTRICT\tMIN\tMAX\tMODAL\tTREND\tDATE")
	for _, p := range result.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%.0f\t%.0f\t%s\t%s\n",
			p.Crop, p.Market, dash(p.District), p.MinPrice, p.MaxPrice, p.ModalPrice, dash(string(p.Trend)), p.Date)
	}
	return w.Flush()
}

func listPests(cmd *cobra.Command, args []string) error {
	crop, _ := cmd.Flags().GetString("crop")
	district, _ := cmd.Flags().GetString("district")
	date, _ := cmd.Flags().GetString("date")
	pest, _ := cmd.Flags().GetString("pest")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := newClient().PestAlerts(ctx, sdk.PestQuery{
		Crop:        crop,
		District:    district,
		Date:        date,
		PestName:    pest,
		ListOptions: listOptions(),
	})
	if err != nil {
		return err
	}

	if output != "table" {
		return printOutput(result.Items)
	}

	printPageSummary("alerts", result.Total, result.Page, result.Provenance)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEVERITY\tPEST\tCROP\tDISTRICT\tDATE\tADVICE")
	for _, a := range result.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.Severity, a.Pest, a.Crop, dash(a.District), a.Date, truncate(a.RecommendedAction, 60))
	}
	return w.Flush()
}

func listSchemes(cmd *cobra.Command, args []string) error {
	schemeType, _ := cmd.Flags().GetString("type")
	crop, _ := cmd.Flags().GetString("crop")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := newClient().GovernmentAdvisories(ctx, sdk.AdvisoryQuery{
		SchemeType:  schemeType,
		Crop:        crop,
		ListOptions: listOptions(),
	})
	if err != nil {
		return err
	}

	if output != "table" {
		return printOutput(result.Items)
	}

	printPageSummary("schemes", result.Total, result.Page, result.Provenance)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRIORITY\tSCHEME\tTYPE\tDEADLINE\tDESCRIPTION")
	for _, a := range result.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			a.Priority, a.Scheme, dash(a.SchemeType), dash(a.Deadline), truncate(a.Description, 60))
	}
	return w.Flush()
}

// Chat commands

func chat(cmd *cobra.Command, args []string) error {
	language, _ := cmd.Flags().GetString("language")
	withContext, _ := cmd.Flags().GetBool("context")
	mobile, _ := cmd.Flags().GetBool("mobile")

	req := sdk.ChatRequest{
		Message:  strings.Join(args, " "),
		Language: language,
	}
	if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")
		req.Location = &models.Location{Lat: lat, Lon: lon}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := newClient()
	switch {
	case mobile:
		reply, err := client.MobileChat(ctx, req)
		if err != nil {
			return err
		}
		if output != "table" {
			return printOutput(reply)
		}
		fmt.Println(reply.Content)
		fmt.Printf("\n(provider: %s)\n", reply.Provider)
	case withContext:
		reply, err := client.ChatWithContext(ctx, req)
		if err != nil {
			return err
		}
		if output != "table" {
			return printOutput(reply)
		}
		fmt.Println(reply.Content)
		fmt.Printf("\n(provider: %s)\n", reply.Provider)
		if prov, ok := reply.Metadata["provenance"].(map[string]interface{}); ok {
			for source, p := range prov {
				fmt.Printf("  %-22s %v\n", source, p)
			}
		}
	default:
		reply, err := client.Chat(ctx, req)
		if err != nil {
			return err
		}
		if output != "table" {
			return printOutput(map[string]string{"reply": reply})
		}
		fmt.Println(reply)
	}
	return nil
}

// Activity commands

func listActivities(cmd *cobra.Command, args []string) error {
	farmer, _ := cmd.Flags().GetString("farmer")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := newClient().ListActivities(ctx, sdk.ActivityQuery{FarmerID: farmer, ListOptions: listOptions()})
	if err != nil {
		return err
	}

	if output != "table" {
		return printOutput(result.Items)
	}

	printPageSummary("activities", result.Total, result.Page, "")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tFARMER\tTYPE\tCROP\tDESCRIPTION")
	for _, a := range result.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(a.ID), a.Date.Format("2006-01-02"), a.FarmerID, a.Type, dash(a.Crop), truncate(a.Description, 50))
	}
	return w.Flush()
}

func logActivity(cmd *cobra.Command, args []string) error {
	var activity sdk.NewActivity

	if file, _ := cmd.Flags().GetString("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		if strings.HasSuffix(file, ".yaml") || strings.HasSuffix(file, ".yml") {
			if err := yaml.Unmarshal(data, &activity); err != nil {
				return fmt.Errorf("failed to parse YAML: %w", err)
			}
		} else {
			if err := json.Unmarshal(data, &activity); err != nil {
				return fmt.Errorf("failed to parse JSON: %w", err)
			}
		}
	}

	// Flags override file values.
	for flag, field := range map[string]*string{
		"farmer":      &activity.FarmerID,
		"type":        &activity.Type,
		"crop":        &activity.Crop,
		"description": &activity.Description,
		"quantity":    &activity.Quantity,
		"date":        &activity.Date,
	} {
		if cmd.Flags().Changed(flag) {
			*field, _ = cmd.Flags().GetString(flag)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	created, err := newClient().CreateActivity(ctx, &activity)
	if err != nil {
		return err
	}

	if output != "table" {
		return printOutput(created)
	}
	fmt.Printf("Activity logged: %s (%s)\n", created.Type, created.ID)
	return nil
}

func getActivity(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a, err := newClient().GetActivity(ctx, args[0])
	if err != nil {
		return err
	}

	if output != "table" {
		return printOutput(a)
	}

	fmt.Printf("ID:          %s\n", a.ID)
	fmt.Printf("Farmer:      %s\n", a.FarmerID)
	fmt.Printf("Type:        %s\n", a.Type)
	fmt.Printf("Crop:        %s\n", dash(a.Crop))
	fmt.Printf("Description: %s\n", a.Description)
	if a.Quantity != "" {
		fmt.Printf("Quantity:    %s\n", a.Quantity)
	}
	fmt.Printf("Date:        %s\n", a.Date.Local().Format("2006-01-02"))
	fmt.Printf("Logged:      %s\n", a.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}

func deleteActivity(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := newClient().DeleteActivity(ctx, args[0]); err != nil {
		return err
	}

	fmt.Println("Activity deleted")
	return nil
}

func health(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	status, err := newClient().Health(ctx)
	if err != nil {
		return err
	}

	if output != "table" {
		return printOutput(status)
	}
	fmt.Printf("Status:   %v\n", status["status"])
	fmt.Printf("Provider: %v\n", status["provider"])
	fmt.Printf("Cached:   %v datasets\n", status["cache_entries"])
	return nil
}

// Helpers

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
