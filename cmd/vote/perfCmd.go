package vote

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/recstore/cmd/util"
	"github.com/ValentinKolb/recstore/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for voting services",
		Args:    cobra.NoArgs,
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfCandidatePrefix = "__perf"
	perfNumThreads      = 10
	perfSeedVotes       = 100
	perfSkip            = make([]string, 0)

	// voter names must be unique per candidate, the counter spans all benchmark runs
	perfVoterCounter atomic.Uint64
)

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. add,tally)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "votes"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many votes to create before the read benchmarks"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(_ *cobra.Command, _ []string) error {
	perfNumThreads = viper.GetInt("threads")
	perfSeedVotes = max(1, viper.GetInt("votes"))
	perfSkip = strings.Split(viper.GetString("skip"), ",")
	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for voting services")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	benchmarks := []struct {
		name string
		fn   func(b *testing.B)
	}{
		{"add", benchAdd},
		{"get", benchGet},
		{"by-candidate", benchByCandidate},
		{"tally", benchTally},
		{"most", benchMost},
		{"mixed", benchMixed},
	}

	results := make(map[string]testing.BenchmarkResult)
	for _, bm := range benchmarks {
		if shouldSkip(bm.name) {
			results[bm.name] = testing.BenchmarkResult{}
			printResult(bm.name, results[bm.name])
			continue
		}
		results[bm.name] = testing.Benchmark(bm.fn)
		printResult(bm.name, results[bm.name])
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Benchmarks
// --------------------------------------------------------------------------

func benchAdd(b *testing.B) {
	candidate := perfCandidate("add")
	b.Cleanup(func() { cleanup("add", candidate) })

	b.SetParallelism(perfNumThreads)
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := rpcVoting.AddVote(candidate, nextVoter()); err != nil {
				log.Printf("(add) - error adding vote: %v\n", err)
			}
		}
	})
}

func benchGet(b *testing.B) {
	candidate := perfCandidate("get")
	ids := seed("get", candidate)
	b.Cleanup(func() { cleanup("get", candidate) })

	b.SetParallelism(perfNumThreads)
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			if _, err := rpcVoting.GetVote(ids[counter%len(ids)]); err != nil {
				log.Printf("(get) - error getting vote: %v\n", err)
			}
			counter++
		}
	})
}

func benchByCandidate(b *testing.B) {
	candidate := perfCandidate("by-candidate")
	seed("by-candidate", candidate)
	b.Cleanup(func() { cleanup("by-candidate", candidate) })

	b.SetParallelism(perfNumThreads)
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := rpcVoting.VotesByCandidate(candidate); err != nil {
				log.Printf("(by-candidate) - error listing votes: %v\n", err)
			}
		}
	})
}

func benchTally(b *testing.B) {
	candidate := perfCandidate("tally")
	seed("tally", candidate)
	b.Cleanup(func() { cleanup("tally", candidate) })

	b.SetParallelism(perfNumThreads)
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := rpcVoting.CandidateVotes(); err != nil {
				log.Printf("(tally) - error counting votes: %v\n", err)
			}
		}
	})
}

func benchMost(b *testing.B) {
	candidate := perfCandidate("most")
	seed("most", candidate)
	b.Cleanup(func() { cleanup("most", candidate) })

	b.SetParallelism(perfNumThreads)
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := rpcVoting.MostVotedCandidate(); err != nil {
				log.Printf("(most) - error finding candidate: %v\n", err)
			}
		}
	})
}

func benchMixed(b *testing.B) {
	candidate := perfCandidate("mixed")
	ids := seed("mixed", candidate)
	b.Cleanup(func() { cleanup("mixed", candidate) })

	b.SetParallelism(perfNumThreads)
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			var err error
			switch counter % 4 {
			case 0: // add
				_, err = rpcVoting.AddVote(candidate, nextVoter())
			case 1: // get
				_, err = rpcVoting.GetVote(ids[counter%len(ids)])
			case 2: // by candidate
				_, err = rpcVoting.VotesByCandidate(candidate)
			case 3: // tally
				_, err = rpcVoting.CandidateVotes()
			}

			if err != nil {
				log.Printf("(mixed) - error performing operation (%d): %v\n", counter%4, err)
			}
			counter++
		}
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

func perfCandidate(test string) string {
	return fmt.Sprintf("%s-%s", perfCandidatePrefix, test)
}

func nextVoter() string {
	return fmt.Sprintf("%s-voter-%d", perfCandidatePrefix, perfVoterCounter.Add(1))
}

// seed creates perfSeedVotes votes for candidate and returns their ids
func seed(test, candidate string) []uint64 {
	ids := make([]uint64, 0, perfSeedVotes)
	for i := 0; i < perfSeedVotes; i++ {
		vote, err := rpcVoting.AddVote(candidate, nextVoter())
		if err != nil {
			log.Printf("(%s) - error adding vote: %v\n", test, err)
			continue
		}
		ids = append(ids, vote.ID)
	}
	if len(ids) == 0 {
		// keeps the modulo in the benchmarks valid, id 0 is never assigned
		ids = append(ids, 0)
	}
	return ids
}

// cleanup deletes every vote for candidate
func cleanup(test, candidate string) {
	votes, err := rpcVoting.VotesByCandidate(candidate)
	if err != nil {
		log.Printf("(%s) - error listing votes: %v\n", test, err)
		return
	}
	for _, v := range votes {
		if _, err := rpcVoting.DeleteVote(v.ID); err != nil {
			log.Printf("(%s) - error deleting vote: %v\n", test, err)
		}
	}
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount",
		"ServiceID", "Serializer",
		"Threads", "SeedVotes",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// sorted for a stable file
	tests := make([]string, 0, len(results))
	for test := range results {
		tests = append(tests, test)
	}
	slices.Sort(tests)

	for _, test := range tests {
		result := results[test]
		var nsPerOp, opsPerSec float64
		skipped := "true"

		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strings.Join(config.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			strconv.FormatUint(util.GetServiceID(), 10),
			viper.GetString("serializer"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfSeedVotes),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
