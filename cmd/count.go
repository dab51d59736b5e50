package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ollama/pretok/chunk"
	"github.com/ollama/pretok/format"
	"github.com/ollama/pretok/metrics"
	"github.com/ollama/pretok/pretoken"
	"github.com/ollama/pretok/pretokenize"
	"github.com/ollama/pretok/progress"
)

func CountHandler(cmd *cobra.Command, args []string) error {
	path := args[0]

	opts, err := optionsFromFlags(cmd)
	if err != nil {
		return err
	}

	top, err := cmd.Flags().GetInt("top")
	if err != nil {
		return err
	}

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	metricsFile, err := cmd.Flags().GetString("metrics")
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	if metricsFile != "" {
		opts.Metrics = metrics.NewScan(reg)
	}

	ctx := cmd.Context()
	if term.IsTerminal(int(os.Stderr.Fd())) {
		p := progress.NewProgress(os.Stderr)
		defer p.StopAndClear()

		ctx = pretokenize.WithTrace(ctx, progressTrace(p))
	}

	tables, err := pretokenize.Pretokenize(ctx, path, opts)
	if err != nil {
		return err
	}

	merged := pretoken.Merge(tables...)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s pretokens, %s unique, %d chunks\n",
		format.HumanNumber(uint64(merged.Total())), format.HumanNumber(uint64(len(merged))), len(tables))

	if top > 0 && len(merged) > 0 {
		fmt.Fprintln(w)
		writeTop(w, pretoken.Top(merged, top))
	}

	if output != "" {
		if err := writeCounts(output, merged); err != nil {
			return err
		}
	}

	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	return nil
}

// progressTrace shows a spinner while boundaries are located, then a byte
// bar and a chunk bar while chunks are scanned.
func progressTrace(p *progress.Progress) *pretokenize.Trace {
	spinner := progress.NewSpinner("locating chunk boundaries")
	p.Add(spinner)

	var bar *progress.Bar
	var steps *progress.StepBar
	return &pretokenize.Trace{
		// called before any Update
		Boundaries: func(size int64, ranges []chunk.Range) {
			spinner.Stop()
			bar = progress.NewBar("pretokenizing", size, 0)
			steps = progress.NewStepBar("chunks", len(ranges))
			p.Add(bar)
			p.Add(steps)
		},
		Update: func(_ chunk.Range, n int64, err error) {
			switch {
			case err != nil:
				steps.Fail()
			case n >= 0:
				bar.Add(n)
				steps.Done()
			}
		},
	}
}

func writeTop(w io.Writer, entries []pretoken.Entry) {
	var data [][]string
	for i, e := range entries {
		data = append(data, []string{strconv.Itoa(i + 1), strconv.Quote(e.Pretoken), strconv.Itoa(e.Count)})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"RANK", "PRETOKEN", "COUNT"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.SetAutoWrapText(false)
	table.AppendBulk(data)
	table.Render()
}

func writeCounts(path string, counts pretoken.Counts) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(counts); err != nil {
		return fmt.Errorf("write counts: %w", err)
	}

	return f.Close()
}

func BoundariesHandler(cmd *cobra.Command, args []string) error {
	opts, err := optionsFromFlags(cmd)
	if err != nil {
		return err
	}

	b, err := pretokenize.Boundaries(args[0], opts)
	if err != nil {
		return err
	}

	var data [][]string
	for i, r := range chunk.Ranges(b) {
		data = append(data, []string{
			strconv.Itoa(i),
			strconv.FormatInt(r.Start, 10),
			strconv.FormatInt(r.End, 10),
			format.HumanBytes(r.Len()),
		})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"CHUNK", "START", "END", "SIZE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}
