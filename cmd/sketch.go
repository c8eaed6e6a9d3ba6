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
	"os"
	"path/filepath"

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
	kSize         *int    // size of k-mer
	windowSize    *int    // number of consecutive k-mers in a window
	algName       *string // sliding window algorithm
	numLanes      *int    // number of lanes, 0 for the scalar path
	canonicalHash *bool   // use min(forward, reverse complement) hashes
	dedup         *bool   // collapse consecutive windows sharing a minimizer
	formatName    *string // output format
	fastaFile     *string // the input FASTA file
	outFile       *string // where to write the minimizers
	alg           minimizer.Algorithm
	format        reporting.Format
)

// the sketch command (used by cobra)
var sketchCmd = &cobra.Command{
	Use:   "sketch",
	Short: "Write the minimizers of every sequence in a FASTA file",
	Long:  `Write the minimizers of every sequence in a FASTA file`,
	Run: func(cmd *cobra.Command, args []string) {
		runSketch()
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return misc.CheckRequiredFlags(cmd.Flags())
	},
}

// a function to initialise the command line arguments
func init() {
	kSize = sketchCmd.Flags().IntP("kmerSize", "k", 21, "size of k-mer")
	windowSize = sketchCmd.Flags().IntP("windowSize", "w", 11, "number of consecutive k-mers in a window")
	algName = sketchCmd.Flags().StringP("alg", "a", "split", "sliding window algorithm (naive/queue/split/rescan)")
	numLanes = sketchCmd.Flags().IntP("lanes", "l", 0, "number of lanes to process in lockstep (1-8, 0 uses the scalar algorithm)")
	canonicalHash = sketchCmd.Flags().BoolP("canonical", "c", false, "use canonical (strand independent) hashes")
	dedup = sketchCmd.Flags().BoolP("dedup", "d", false, "report each minimizer once, not once per window")
	formatName = sketchCmd.Flags().StringP("format", "f", "tsv", "output format (tsv/msgpack)")
	fastaFile = sketchCmd.Flags().StringP("fasta", "i", "", "FASTA file to sketch (can be gzipped, - reads STDIN) - required")
	outFile = sketchCmd.Flags().StringP("out", "o", "", "file to write the minimizers to (default STDOUT)")
	sketchCmd.MarkFlagRequired("fasta")
	RootCmd.AddCommand(sketchCmd)
}

//  a function to check user supplied parameters
func sketchParamCheck() error {
	if *fastaFile == "-" {
		if err := misc.CheckSTDIN(); err != nil {
			return err
		}
	} else {
		if err := misc.CheckFile(*fastaFile); err != nil {
			return err
		}
		if err := misc.CheckExt(*fastaFile, []string{"fasta", "fna", "fa"}); err != nil {
			return err
		}
	}
	if *outFile != "" {
		if err := misc.CheckDir(filepath.Dir(*outFile)); err != nil {
			return err
		}
	}
	if *kSize < 1 || *kSize > nthash.MaxK {
		return fmt.Errorf("k-mer size must be between 1 and %d", nthash.MaxK)
	}
	if *windowSize < 1 {
		return fmt.Errorf("window size must be at least 1")
	}
	if *numLanes < 0 || *numLanes > nthash.MaxLanes {
		return fmt.Errorf("number of lanes must be between 0 and %d", nthash.MaxLanes)
	}
	var err error
	if alg, err = minimizer.ParseAlgorithm(*algName); err != nil {
		return err
	}
	if format, err = reporting.ParseFormat(*formatName); err != nil {
		return err
	}
	return nil
}

/*
  The main function for the sketch command
*/
func runSketch() {
	// set up profiling
	if *profiling == true {
		defer profile.Start(profile.ProfilePath("./")).Stop()
	}
	// start logging
	logFH := misc.StartLogging(*logFile)
	defer logFH.Close()
	log.SetOutput(logFH)
	log.Printf("minimizers (version %s)", version.GetVersion())
	log.Printf("starting the sketch subcommand (output format v%s)", version.GetBaseVersion())

	// check the supplied files and then log some stuff
	log.Printf("checking parameters...")
	misc.ErrorCheck(sketchParamCheck())
	log.Printf("	input file: %v", *fastaFile)
	log.Printf("	k-mer size: %d", *kSize)
	log.Printf("	window size: %d", *windowSize)
	if *numLanes == 0 {
		log.Printf("	algorithm: %v", alg)
	} else {
		log.Printf("	lanes: %d", *numLanes)
	}
	log.Printf("	canonical: %v", *canonicalHash)
	log.Printf("	deduplicate: %v", *dedup)
	log.Printf("	output format: %v", format)

	// set up the output
	var out io.Writer = os.Stdout
	if *outFile != "" {
		fh, err := os.Create(*outFile)
		misc.ErrorCheck(err)
		defer fh.Close()
		out = fh
		log.Printf("	output file: %v", *outFile)
	}
	writer, err := reporting.NewMinimizerWriter(out, format)
	misc.ErrorCheck(err)

	// sketch each sequence, skipping anything that isn't ACGT
	log.Printf("sketching...")
	var reader *seqio.Reader
	if *fastaFile == "-" {
		reader = seqio.NewReader(os.Stdin)
	} else {
		reader, err = seqio.Open(*fastaFile)
		misc.ErrorCheck(err)
	}
	defer reader.Close()
	session := minimizer.NewSession[packed.Seq]()
	seqCount, baseCount, maskedCount := 0, 0, 0
	for reader.Next() {
		seq := reader.Sequence()
		seqCount++
		baseCount += len(seq.Seq)
		maskedCount += seq.BaseCheck()
		for _, fragment := range seq.Fragments(*kSize + *windowSize - 1) {
			minimizers, err := minimizeFragment(session, fragment.Seq)
			misc.ErrorCheck(err)
			for _, m := range minimizers {
				record := reporting.Record{SeqID: string(seq.ID), Pos: m.Pos + fragment.Offset, Hash: m.Hash}
				if *canonicalHash {
					record.Strand = m.Strand.String()
				}
				misc.ErrorCheck(writer.Write(record))
			}
		}
	}
	misc.ErrorCheck(reader.Err())
	misc.ErrorCheck(writer.Flush())
	log.Printf("	sequences: %d", seqCount)
	log.Printf("	bases: %d", baseCount)
	log.Printf("	masked bases: %d", maskedCount)
	log.Printf("	minimizers written: %d", writer.Count())
	log.Printf("	%v", misc.PrintMemUsage())
	log.Println("finished")
}

// minimizeFragment runs the configured path over one unambiguous run of bases
func minimizeFragment(session *minimizer.Session[packed.Seq], seq packed.Seq) ([]canonical.Minimizer, error) {
	k, w := *kSize, *windowSize
	if *canonicalHash {
		if *numLanes > 0 {
			session.Reset()
			return canonical.ParallelMinimizers(session, seq, k, w, *numLanes, *dedup)
		}
		minimizers, err := canonical.Minimizers(seq, k, w, alg)
		if err != nil || !*dedup {
			return minimizers, err
		}
		return minimizer.Dedup(minimizers), nil
	}

	var minimizers []minimizer.Minimizer
	var err error
	if *numLanes > 0 {
		session.Reset()
		minimizers, err = session.Minimizers(seq, k, w, *numLanes, *dedup)
	} else {
		minimizers, err = minimizer.Minimizers(seq, k, w, alg)
		if *dedup {
			minimizers = minimizer.Dedup(minimizers)
		}
	}
	if err != nil {
		return nil, err
	}
	forward := make([]canonical.Minimizer, len(minimizers))
	for i, m := range minimizers {
		forward[i] = canonical.Minimizer{Minimizer: m, Strand: canonical.Forward}
	}
	return forward, nil
}
