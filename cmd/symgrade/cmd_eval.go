package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/njchilds90/symgrade"
)

var (
	evalAnswer string
	evalLaTeX  bool

	evalCmd = &cobra.Command{
		Use:   "eval [response]",
		Short: "Grade a response against --answer and print the result as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEval,
	}

	previewSimplify bool
	previewLaTeX    bool

	previewCmd = &cobra.Command{
		Use:   "preview [response]",
		Short: "Show how a response is read",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreview,
	}
)

func init() {
	evalCmd.Flags().StringVar(&evalAnswer, "answer", "", "Reference answer")
	evalCmd.Flags().BoolVar(&evalLaTeX, "latex", false, "Read the response as LaTeX")
	evalCmd.Flags().StringVar(&paramsFile, "params", "", "Parameters file (.json, .yaml)")
	evalCmd.Flags().StringVar(&paramsJSON, "params-json", "", "Parameters as inline JSON, applied after --params")

	previewCmd.Flags().BoolVar(&previewSimplify, "simplify", false, "Simplify before rendering")
	previewCmd.Flags().BoolVar(&previewLaTeX, "latex", false, "Read the response as LaTeX")
}

func runEval(cmd *cobra.Command, args []string) error {
	params, err := loadParams()
	if err != nil {
		return err
	}
	response := symgrade.Response{IsLatex: evalLaTeX}
	if len(args) == 1 {
		response.Response = args[0]
	}

	g := symgrade.New(symgrade.WithLogger(slog.Default()))
	res, err := g.Evaluate(cmd.Context(), response, evalAnswer, params)
	if err != nil {
		var ce *symgrade.ConfigurationError
		if errors.As(err, &ce) {
			_ = printJSON(map[string]string{"error": ce.Reason, "tag": ce.Tag})
		}
		return err
	}
	return printJSON(res)
}

func runPreview(cmd *cobra.Command, args []string) error {
	g := symgrade.New(symgrade.WithLogger(slog.Default()))
	p, err := g.Preview(cmd.Context(), symgrade.Response{Response: args[0], IsLatex: previewLaTeX},
		symgrade.PreviewParams{Simplify: previewSimplify})
	if err != nil {
		return err
	}
	return printJSON(p)
}
