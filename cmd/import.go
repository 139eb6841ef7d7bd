package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/brfoley76/PromptingHumanAgent/internal/engine"
)

var importCmd = &cobra.Command{
	Use:   "import <file.jsonl|->",
	Short: "Record attempts from a JSON Lines file",
	Long: `Record one attempt per line. Each line is an object with student_id,
item_id and/or module_id, domain_id, score or correct, and optionally weight,
timestamp and activity_type. Students are processed in parallel; attempts of
one student are applied in file order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}

		attempts, err := readAttempts(r)
		if err != nil {
			return err
		}

		svc, closeFn, err := newService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		results, err := svc.RecordBatch(cmd.Context(), attempts)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}

		failed := 0
		for i, res := range results {
			if res.Err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "line %d: %v\n", i+1, res.Err)
			}
		}
		fmt.Printf("%d attempts recorded, %d failed\n", len(results)-failed, failed)
		if failed > 0 {
			return fmt.Errorf("%d attempts failed", failed)
		}
		return nil
	},
}

func readAttempts(r io.Reader) ([]engine.Attempt, error) {
	var out []engine.Attempt
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var a engine.Attempt
		if err := json.Unmarshal(b, &a); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, a)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read attempts: %w", err)
	}
	return out, nil
}
