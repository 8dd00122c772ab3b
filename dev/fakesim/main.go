// Copyright 2026, Crucible Sciences, Inc.

// fakesim is a stand-in for a real simulation code. It reads key=value
// params from an input file, "computes" a result (the partial sums of a
// geometric series), and writes a result block to an output file. It can be
// told to fail a number of times before succeeding, leaving a checkpoint
// behind each time, which exercises restart and resume handling end to end.
//
// Params:
//
//	x          term ratio of the series (required)
//	n          number of terms to sum (default 10)
//	fail_times fail and checkpoint this many times before finishing
//	sleep_ms   sleep this long before writing output
//	restart    resume from the checkpoint in this directory
package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
)

const (
	inFile   = "fakesim.in"
	outFile  = "fakesim.out"
	ckptFile = "fakesim.ckpt"
)

var cmd struct {
	In  string `arg:"--in" help:"input file of key=value params"`
	Out string `arg:"--out" help:"output file for the result block"`
}

func main() {
	cmd.In = inFile
	cmd.Out = outFile
	arg.MustParse(&cmd)

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fakesim: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	params, err := readParams(cmd.In)
	if err != nil {
		return err
	}

	x, ok := params["x"]
	if !ok {
		return fmt.Errorf("param x is required")
	}
	ratio, err := strconv.ParseFloat(x, 64)
	if err != nil {
		return fmt.Errorf("param x: %s", err)
	}
	n := 10
	if v, ok := params["n"]; ok {
		if n, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("param n: %s", err)
		}
	}
	failTimes := 0
	if v, ok := params["fail_times"]; ok {
		if failTimes, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("param fail_times: %s", err)
		}
	}
	if v, ok := params["sleep_ms"]; ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("param sleep_ms: %s", err)
		}
		time.Sleep(time.Duration(ms) * time.Millisecond)
	}

	// Resume state: terms already summed, failures already spent. A fresh
	// run starts from zero; a restarted run picks up from the checkpoint
	// in the previous attempt's directory.
	start, sum, failed := 0, 0.0, 0
	if prev, ok := params["restart"]; ok {
		start, sum, failed, err = readCheckpoint(filepath.Join(prev, ckptFile))
		if err != nil {
			return err
		}
	}

	term := 1.0
	for i := 0; i < start; i++ {
		term *= ratio
	}
	for i := start; i < n; i++ {
		sum += term
		term *= ratio

		// Die at the halfway mark until the failure budget is spent.
		if failed < failTimes && i+1 >= n/2 {
			if err := writeCheckpoint(ckptFile, i+1, sum, failed+1); err != nil {
				return err
			}
			return fmt.Errorf("simulated crash after %d terms (failure %d of %d)", i+1, failed+1, failTimes)
		}
	}

	result := []string{
		"BEGIN RESULT",
		fmt.Sprintf("sum=%g", sum),
		fmt.Sprintf("terms=%d", n),
		fmt.Sprintf("x=%g", ratio),
		"END RESULT",
	}
	return ioutil.WriteFile(cmd.Out, []byte(strings.Join(result, "\n")+"\n"), 0644)
}

func readParams(file string) (map[string]string, error) {
	data, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, err
	}
	params := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("bad param line: %s", line)
		}
		params[kv[0]] = kv[1]
	}
	return params, nil
}

// writeCheckpoint records progress as "terms sum failures" so a restarted
// run can resume instead of starting over.
func writeCheckpoint(file string, terms int, sum float64, failed int) error {
	data := fmt.Sprintf("%d %g %d\n", terms, sum, failed)
	return ioutil.WriteFile(file, []byte(data), 0644)
}

func readCheckpoint(file string) (terms int, sum float64, failed int, err error) {
	data, err := ioutil.ReadFile(file)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("reading checkpoint: %s", err)
	}
	if _, err := fmt.Sscanf(string(data), "%d %g %d", &terms, &sum, &failed); err != nil {
		return 0, 0, 0, fmt.Errorf("bad checkpoint %s: %s", file, err)
	}
	return terms, sum, failed, nil
}
