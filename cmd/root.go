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
	"os"

	"github.com/spf13/cobra"
)

// the command line arguments
var (
	logFile   *string // file to write the log to
	profiling *bool   // create profile for go pprof
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "minimizers",
	Short: "compute ntHash minimizers of DNA sequences",
	Long: `
#####################################################################################
		minimizers: sampling k-mers from DNA with rolling hashes
#####################################################################################

 minimizers selects one k-mer from every window of w consecutive k-mers, using ntHash
 as the k-mer order.

 Sequences are 2-bit packed and hashed with a rolling ntHash (forward or canonical).
 The minimal hash of every window can be found with several interchangeable sliding
 window algorithms, or with up to 8 lanes of the sequence processed in lockstep.

 The sketch subcommand writes the minimizers of a FASTA file, the bench subcommand
 times every variant and checks they agree.`,
}

/*
  A function to add all child commands to the root command and sets flags appropriately
*/
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

/*
  A function to initalise the command line arguments
*/
func init() {
	logFile = RootCmd.PersistentFlags().String("log", "minimizers.log", "filename for log file")
	profiling = RootCmd.PersistentFlags().Bool("profiling", false, "create the files needed to profile minimizers using the go tool pprof")
}
