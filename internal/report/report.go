// Package report prints what the user sees besides progress bars: fatal
// errors, warnings and the closing summary.
package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/forPelevin/lecturecut/internal/types"
)

type Reporter struct {
	Out  io.Writer
	Err  io.Writer
	Exit func(code int)
}

func New() *Reporter {
	return &Reporter{Out: os.Stdout, Err: os.Stderr, Exit: os.Exit}
}

func (r *Reporter) Error(msg string) {
	fmt.Fprintf(r.Err, "%s: %s\n\n", color.RedString("Error"), msg)
}

// Fatal prints msg and ends the process with status 1.
func (r *Reporter) Fatal(msg string) {
	r.Error(msg)
	r.Exit(1)
}

func (r *Reporter) Warn(msg string) {
	fmt.Fprintf(r.Err, "%s: %s\n", color.YellowString("⚠️"), msg)
}

func (r *Reporter) NotVideo() {
	r.Warn("The input file is not a video file.")
}

func (r *Reporter) NonMP4() {
	r.Warn("The input file is not an MP4 file. This may cause issues.")
}

func (r *Reporter) DirNotEmpty() {
	r.Warn("The output directory is not empty. Existing files will be skipped.\n")
}

func (r *Reporter) ReencodeMissing() {
	r.Warn("No reencode argument was provided. This may result in unpredictable behavior.\n")
}

func (r *Reporter) Modules(generatorVersion, renderVersion string) {
	fmt.Fprintf(r.Out, "Generator: %s | Render: %s\n\n", color.YellowString(generatorVersion), color.YellowString(renderVersion))
}

func (r *Reporter) Paths(input, output string) {
	fmt.Fprintf(r.Out, " Input: %s\n", color.YellowString(input))
	fmt.Fprintf(r.Out, "Output: %s\n\n", color.YellowString(output))
}

// Summary prints one row per processed file, a total row for batches and
// the elapsed time.
func (r *Reporter) Summary(rows []types.FileResult, elapsed time.Duration) {
	table := tablewriter.NewWriter(r.Out)
	table.SetHeader([]string{"Input File", "Size Changes", "Duration Changes", "Duration %"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoWrapText(false)

	var inSize, outSize uint64
	var inLen, outLen float64
	for _, row := range rows {
		in, out := fileSize(row.Input), fileSize(row.Output)
		table.Append(summaryRow(ellipsize(filepath.Base(row.Input), 20), in, out, row.Stats.LenPreCut, row.Stats.LenPostCut))
		inSize += in
		outSize += out
		inLen += row.Stats.LenPreCut
		outLen += row.Stats.LenPostCut
	}
	if len(rows) > 1 {
		table.SetFooter(summaryRow("Total", inSize, outSize, inLen, outLen))
	}
	table.Render()

	secs := int64(elapsed / time.Second)
	fmt.Fprintf(r.Out, "\n%s\n\n", color.GreenString("Processed %d files in %d min and %d seconds.", len(rows), secs/60, secs%60))
}

func summaryRow(name string, inSize, outSize uint64, inLen, outLen float64) []string {
	return []string{
		name,
		fmt.Sprintf("%s -> %s", humanize.IBytes(inSize), humanize.IBytes(outSize)),
		fmt.Sprintf("%s -> %s", minSec(inLen), minSec(outLen)),
		percent(outLen, inLen),
	}
}

func fileSize(path string) uint64 {
	fi, err := os.Stat(path)
	if err != nil || fi.Size() < 0 {
		return 0
	}
	return uint64(fi.Size())
}

func minSec(sec float64) string {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}
	s := int64(sec)
	return fmt.Sprintf("%d min %d sec", s/60, s%60)
}

func percent(part, whole float64) string {
	if whole <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f %%", part/whole*100)
}

func ellipsize(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max-3])) + "..."
}
