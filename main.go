package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docanalyzer",
	Short: "Analyze documents with retrieval-augmented generation",
	Long: `docanalyzer extracts text from .pdf, .txt, .csv, .xlsx and .docx files,
indexes it as embeddings and asks a language model for a JSON analysis
grounded in the most relevant passages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
