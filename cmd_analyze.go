package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var analyzeQuery string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a local document",
	Long: `Processes one .pdf, .txt, .csv, .xlsx or .docx file and prints the model's
answer. Valid JSON is pretty-printed; anything else is printed as returned.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeQuery, "query", "q", "", "question to ask about the document (defaults to a JSON summary)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Logs go to stderr so stdout carries only the result.
	app, err := newApplication(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.registry.CheckSupported(path); err != nil {
		return err
	}

	session, err := app.assistant.ProcessDocument(ctx, path)
	if err != nil {
		return err
	}

	result, err := session.Analyze(ctx, analyzeQuery)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Analysis of "+session.Source))
	fmt.Fprintln(out, formatResult(result))
	return nil
}
