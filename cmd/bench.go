// Copyright © 2017 Will Rowe <will.rowe@stfc.ac.uk>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/will-rowe/minimizers/src/canonical"
	"github.com/will-rowe/minimizers/src/minimizer"
	"github.com/will-rowe/minimizers/src/misc"
	"github.com/will-rowe/minimizers/src/nthash"
	"github.com/will-rowe/minimizers/src/packed"
	"github.com/will-rowe/minimizers/src/reporting"
	"github.com/will-rowe/minimizers/src/seqio"
	"github.com/will-rowe/minimizers/src/version"
)

// the command line arguments
var (
	benchK      *int    // size of k-mer
	benchW      *int    // number of consecutive k-mers in a window
	benchLanes  *int    // number of lanes for the lane variants
	benchLength *int    // length of the random sequence
	benchSeed   *int64  // seed for the random sequence
	benchRepeat *int    // number of timed runs per variant, the fastest is kept
	benchFasta  *string // optional FASTA file to benchmark on
	benchTable  *string // where to write the results table
	benchPlot   *string // optional throughput chart
)

// the bench command (used by cobra)
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Time every hashing and minimizer variant and check that they agree",
	Long:  `Time every hashing and minimizer variant and check that they agree`,
	Run: func(cmd *cobra.Command, args []string) {
		runBench()
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return misc.CheckRequiredFlags(cmd.Flags())
	},
}

// a function to initialise the command line arguments
func init() {
	benchK = benchCmd.Flags().IntP("kmerSize", "k", 21, "size of k-mer")
	benchW = benchCmd.Flags().IntP("windowSize", "w", 11, "number of consecutive k-mers in a window")
	benchLanes = benchCmd.Flags().IntP("lanes", "l", nthash.MaxLanes, "number of lanes for the lane variants")
	benchLength = benchCmd.Flags().IntP("length", "n", 10000000, "length of the random sequence")
	benchSeed = benchCmd.Flags().Int64("seed", 42, "seed for the random sequence")
	benchRepeat = benchCmd.Flags().IntP("repeats", "r", 3, "number of timed runs per variant")
	benchFasta = benchCmd.Flags().StringP("fasta", "i", "", "benchmark on the ACGT bases of a FASTA file instead of a random sequence")
	benchTable = benchCmd.Flags().StringP("out", "o", "", "file to write the results table to (default STDOUT)")
	benchPlot = benchCmd.Flags().String("plot", "", "save a throughput chart to this file (.png or .svg)")
	RootCmd.AddCommand(benchCmd)
}

//  a function to check user supplied parameters
func benchParamCheck() error {
	if *benchFasta != "" {
		if err := misc.CheckFile(*benchFasta); err != nil {
			return err
		}
	} else if *benchLength < 1 {
		return fmt.Errorf("sequence length must be at least 1")
	}
	if err := minimizer.Validate(*benchK, *benchW, *benchK); err != nil {
		return err
	}
	if *benchLanes < 1 || *benchLanes > nthash.MaxLanes {
		return fmt.Errorf("number of lanes must be between 1 and %d", nthash.MaxLanes)
	}
	if *benchRepeat < 1 {
		return fmt.Errorf("number of repeats must be at least 1")
	}
	if *benchPlot != "" {
		if err := misc.CheckExt(*benchPlot, []string{"png", "svg"}); err != nil {
			return err
		}
		if err := misc.CheckDir(filepath.Dir(*benchPlot)); err != nil {
			return err
		}
	}
	if *benchTable != "" {
		if err := misc.CheckDir(filepath.Dir(*benchTable)); err != nil {
			return err
		}
	}
	return nil
}

// benchVariant is one timed run that reports whether its output matched the reference
type benchVariant struct {
	name string
	run  func() (bool, error)
}

/*
  The main function for the bench command
*/
func runBench() {
	// set up profiling
	if *profiling == true {
		defer profile.Start(profile.ProfilePath("./")).Stop()
	}
	// start logging
	logFH := misc.StartLogging(*logFile)
	defer logFH.Close()
	log.SetOutput(logFH)
	log.Printf("minimizers (version %s)", version.GetVersion())
	log.Printf("starting the bench subcommand (output format v%s)", version.GetBaseVersion())
	log.Printf("checking parameters...")
	misc.ErrorCheck(benchParamCheck())
	log.Printf("	k-mer size: %d", *benchK)
	log.Printf("	window size: %d", *benchW)
	log.Printf("	lanes: %d", *benchLanes)
	log.Printf("	repeats: %d", *benchRepeat)

	// get the input
	log.Printf("preparing the input...")
	seq, err := benchInput()
	misc.ErrorCheck(err)
	log.Printf("	bases: %d", seq.Len())
	misc.ErrorCheck(minimizer.Validate(*benchK, *benchW, seq.Len()))

	// the references every other variant is checked against
	k, w, lanes := *benchK, *benchW, *benchLanes
	refHashes, err := nthash.Hashes(seq, k)
	misc.ErrorCheck(err)
	refMinimizers, err := minimizer.Minimizers(seq, k, w, minimizer.Naive)
	misc.ErrorCheck(err)
	refCanonical, err := canonical.Minimizers(seq, k, w, minimizer.Naive)
	misc.ErrorCheck(err)
	refRecords, err := canonical.Records(seq, k)
	misc.ErrorCheck(err)
	refCanonicalHashes := make([]uint64, len(refRecords))
	for i, r := range refRecords {
		refCanonicalHashes[i] = r.Hash
	}

	// collect the variants
	buffer := nthash.NewBuffer()
	hasher := nthash.NewLaneHasher[packed.Seq]()
	session := minimizer.NewSession[packed.Seq]()
	ascii := seq.Unpack()
	variants := []benchVariant{
		{"hash-forward", func() (bool, error) {
			hashes, err := nthash.Hashes(seq, k)
			return misc.SliceEqual(hashes, refHashes), err
		}},
		{"hash-buffer", func() (bool, error) {
			buffer.Reset()
			hashes, err := nthash.Fill(buffer, seq, k)
			return misc.SliceEqual(hashes, refHashes), err
		}},
		{"hash-lanes", func() (bool, error) {
			hasher.Reset()
			hashes, err := hasher.Hashes(seq, k, lanes)
			return misc.SliceEqual(hashes, refHashes), err
		}},
		{"hash-ext", func() (bool, error) {
			hashes, err := nthash.External(ascii, k, false)
			return misc.SliceEqual(hashes, refHashes), err
		}},
		{"hash-ext-canonical", func() (bool, error) {
			hashes, err := nthash.External(ascii, k, true)
			return misc.SliceEqual(hashes, refCanonicalHashes), err
		}},
	}
	for _, a := range minimizer.Algorithms {
		a := a
		variants = append(variants, benchVariant{a.String(), func() (bool, error) {
			minimizers, err := minimizer.Minimizers(seq, k, w, a)
			return misc.SliceEqual(minimizers, refMinimizers), err
		}})
	}
	variants = append(variants,
		benchVariant{"jumping", func() (bool, error) {
			minimizers, err := minimizer.Jumping(w, refHashes)
			if err != nil {
				return false, err
			}
			for i, m := range minimizers {
				if m != refMinimizers[i*w] {
					return false, nil
				}
			}
			return true, nil
		}},
		benchVariant{"lanes", func() (bool, error) {
			session.Reset()
			minimizers, err := session.Minimizers(seq, k, w, lanes, false)
			return misc.SliceEqual(minimizers, refMinimizers), err
		}},
		benchVariant{"canonical", func() (bool, error) {
			minimizers, err := canonical.Minimizers(seq, k, w, minimizer.Split)
			return misc.SliceEqual(minimizers, refCanonical), err
		}},
		benchVariant{"canonical-lanes", func() (bool, error) {
			session.Reset()
			minimizers, err := canonical.ParallelMinimizers(session, seq, k, w, lanes, false)
			return misc.SliceEqual(minimizers, refCanonical), err
		}},
	)

	// time them
	log.Printf("running %d variants...", len(variants))
	results := make([]reporting.BenchResult, 0, len(variants))
	for _, variant := range variants {
		result := reporting.BenchResult{Variant: variant.name, K: k, W: w, Bases: seq.Len(), Agrees: true}
		for r := 0; r < *benchRepeat; r++ {
			start := time.Now()
			agrees, err := variant.run()
			elapsed := time.Since(start)
			misc.ErrorCheck(err)
			result.Agrees = result.Agrees && agrees
			if r == 0 || elapsed < result.Duration {
				result.Duration = elapsed
			}
		}
		if !result.Agrees {
			log.Printf("	%v: output does not match the naive reference", variant.name)
		}
		log.Printf("	%v: %.2f MB/s", variant.name, result.Throughput())
		results = append(results, result)
	}

	// report
	var out io.Writer = os.Stdout
	if *benchTable != "" {
		fh, err := os.Create(*benchTable)
		misc.ErrorCheck(err)
		defer fh.Close()
		out = fh
		log.Printf("	results table: %v", *benchTable)
	}
	misc.ErrorCheck(reporting.WriteBenchTSV(out, results))
	if *benchPlot != "" {
		misc.ErrorCheck(reporting.PlotThroughput(results, *benchPlot))
		log.Printf("	throughput chart: %v", *benchPlot)
	}
	log.Printf("	%v", misc.PrintMemUsage())
	log.Println("finished")
}

// benchInput returns the ACGT bases of the FASTA file, or a random sequence
func benchInput() (packed.Seq, error) {
	if *benchFasta == "" {
		return packed.Random(*benchLength, rand.New(rand.NewSource(*benchSeed))), nil
	}
	sequences, err := seqio.ReadFASTA(*benchFasta)
	if err != nil {
		return packed.Seq{}, err
	}
	bases := []byte{}
	for _, seq := range sequences {
		seq.BaseCheck()
		for _, base := range seq.Seq {
			if base != 'N' {
				bases = append(bases, base)
			}
		}
	}
	return packed.Pack(bases), nil
}
