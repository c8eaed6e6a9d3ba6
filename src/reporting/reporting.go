/*
	the reporting package writes minimizer streams and benchmark results
*/
package reporting

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gopkg.in/vmihailenco/msgpack.v2"
)

// ErrUnknownFormat is returned by ParseFormat
var ErrUnknownFormat = errors.New("unknown output format")

// Format is an output encoding for minimizer records
type Format uint8

const (
	// TSV writes one tab separated line per minimizer
	TSV Format = iota
	// Msgpack writes one msgpack map per minimizer
	Msgpack
)

var formatNames = [...]string{"tsv", "msgpack"}

// String satisfies the stringer interface
func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("format(%d)", f)
}

// ParseFormat returns the format for a name
func ParseFormat(name string) (Format, error) {
	for i, n := range formatNames {
		if strings.EqualFold(name, n) {
			return Format(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Record is a minimizer of a named sequence, the strand is left empty for forward only hashing
type Record struct {
	SeqID  string `msgpack:"seq"`
	Pos    int    `msgpack:"pos"`
	Hash   uint64 `msgpack:"hash"`
	Strand string `msgpack:"strand"`
}

// MinimizerWriter encodes minimizer records to an underlying writer
type MinimizerWriter struct {
	format  Format
	buf     *bufio.Writer
	encoder *msgpack.Encoder
	count   int
}

// NewMinimizerWriter is the constructor
func NewMinimizerWriter(w io.Writer, format Format) (*MinimizerWriter, error) {
	mw := &MinimizerWriter{format: format, buf: bufio.NewWriter(w)}
	switch format {
	case TSV:
	case Msgpack:
		mw.encoder = msgpack.NewEncoder(mw.buf)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, format)
	}
	return mw, nil
}

// Write encodes one record
func (mw *MinimizerWriter) Write(record Record) error {
	mw.count++
	if mw.format == Msgpack {
		return mw.encoder.Encode(record)
	}
	strand := record.Strand
	if strand == "" {
		strand = "."
	}
	_, err := fmt.Fprintf(mw.buf, "%v\t%d\t%d\t%v\n", record.SeqID, record.Pos, record.Hash, strand)
	return err
}

// Count returns the number of records written so far
func (mw *MinimizerWriter) Count() int {
	return mw.count
}

// Flush writes any buffered records
func (mw *MinimizerWriter) Flush() error {
	return mw.buf.Flush()
}

// ReadMsgpack is a function to decode a stream written with the Msgpack format
func ReadMsgpack(r io.Reader) ([]Record, error) {
	decoder := msgpack.NewDecoder(bufio.NewReader(r))
	records := []Record{}
	for {
		var record Record
		if err := decoder.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return nil, err
		}
		records = append(records, record)
	}
}

// BenchResult is the timing of one variant over one input
type BenchResult struct {
	Variant  string
	K        int
	W        int
	Bases    int
	Duration time.Duration
	Agrees   bool
}

// Throughput returns the input bases processed per second, in millions
func (result BenchResult) Throughput() float64 {
	seconds := result.Duration.Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(result.Bases) / 1e6 / seconds
}

// WriteBenchTSV writes a table of benchmark results with a header line
func WriteBenchTSV(w io.Writer, results []BenchResult) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "variant\tk\tw\tbases\tseconds\tMB/s\tagrees")
	for _, result := range results {
		fmt.Fprintf(tw, "%v\t%d\t%d\t%d\t%.6f\t%.2f\t%v\n", result.Variant, result.K, result.W, result.Bases, result.Duration.Seconds(), result.Throughput(), result.Agrees)
	}
	return tw.Flush()
}

// PlotThroughput saves a bar chart of throughput per variant, the file extension picks the image format
func PlotThroughput(results []BenchResult, fileName string) error {
	if len(results) == 0 {
		return fmt.Errorf("no benchmark results to plot")
	}
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = "minimizer throughput"
	p.Y.Label.Text = "MB/s"
	values := make(plotter.Values, len(results))
	names := make([]string, len(results))
	for i, result := range results {
		values[i] = result.Throughput()
		names[i] = result.Variant
	}
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return err
	}
	p.Add(bars)
	p.NominalX(names...)
	width := vg.Length(len(results)+2) * vg.Inch
	return p.Save(width, 4*vg.Inch, fileName)
}
