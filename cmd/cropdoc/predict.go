package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/Brownie44l1/cropdoc/internal/inference"
)

// Output formats of the predict command.
const (
	formatTable    = "table"
	formatMarkdown = "markdown"
	formatJSON     = "json"
	formatYAML     = "yaml"
)

// filePrediction is the outcome for one input file.
type filePrediction struct {
	File   string            `json:"file" yaml:"file"`
	Result *inference.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewPredictCmd creates the predict command.
func NewPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict <image>...",
		Short: "Classify leaf images and print the suggested solution",
		Example: `  cropdoc predict leaf.jpg
  cropdoc predict --format markdown field/*.png > report.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: runPredict,
	}

	cmd.Flags().StringP("format", "f", formatTable, "Output format: table, markdown, json or yaml")
	cmd.Flags().IntP("concurrency", "c", runtime.NumCPU(), "Images decoded in parallel")

	return cmd
}

func runPredict(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if !validFormat(format) {
		return fmt.Errorf("unknown format %q", format)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency < 1 {
		concurrency = 1
	}

	// Slots keep the output in argument order.
	predictions := make([]filePrediction, len(args))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, path := range args {
		g.Go(func() error {
			predictions[i] = a.predictFile(cmd.Context(), path)
			return nil
		})
	}
	_ = g.Wait()

	return writePredictions(cmd.OutOrStdout(), format, predictions)
}

func (a *app) predictFile(ctx context.Context, path string) filePrediction {
	p := filePrediction{File: filepath.Base(path)}

	data, err := os.ReadFile(path)
	if err != nil {
		p.Error = err.Error()
		return p
	}

	result, err := a.pipeline.PredictBytes(ctx, data)
	if err != nil {
		a.log.Debug("Prediction failed", "file", path, "error", err)
		p.Error = err.Error()
		return p
	}
	p.Result = &result
	return p
}

func validFormat(format string) bool {
	switch format {
	case formatTable, formatMarkdown, formatJSON, formatYAML:
		return true
	}
	return false
}

func writePredictions(w io.Writer, format string, predictions []filePrediction) error {
	switch format {
	case formatMarkdown:
		return writeMarkdown(w, predictions)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(predictions)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(predictions); err != nil {
			return err
		}
		return enc.Close()
	default:
		writeTable(w, predictions)
		return nil
	}
}

func writeTable(w io.Writer, predictions []filePrediction) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"File", "Class", "Confidence", "Solution"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, p := range predictions {
		table.Append(predictionRow(p))
	}
	table.Render()
}

func writeMarkdown(w io.Writer, predictions []filePrediction) error {
	md := markdown.NewMarkdown(w)
	md.H1("Crop Disease Report")
	md.PlainText("")

	rows := make([][]string, 0, len(predictions))
	for _, p := range predictions {
		rows = append(rows, predictionRow(p))
	}
	md.Table(markdown.TableSet{
		Header: []string{"File", "Class", "Confidence", "Solution"},
		Rows:   rows,
	})

	return md.Build()
}

func predictionRow(p filePrediction) []string {
	if p.Result == nil {
		return []string{p.File, "error", "-", p.Error}
	}
	confidence := "-"
	if p.Result.ModelLoaded {
		confidence = strconv.FormatFloat(float64(p.Result.Confidence)*100, 'f', 1, 64) + "%"
	}
	return []string{p.File, p.Result.Class, confidence, p.Result.Solution}
}
