package cli

import (
	"fmt"
	"sync"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
	"github.com/imgapi/imgapi-cli/internal/uuid"
)

// batchConcurrency bounds concurrent remote calls in multi-target
// commands.
const batchConcurrency = 4

// runBatch applies fn to every UUID concurrently, with no ordering
// guarantee between the calls. All identifiers are validated before any
// network traffic. Results are reported in input order; a single failure
// surfaces as-is, two or more as one MultiError preserving input order.
func (c *CLI) runBatch(uuids []string, fn func(uuid string) (string, error)) error {
	for _, u := range uuids {
		if err := uuid.Check(u); err != nil {
			return err
		}
	}

	type result struct {
		msg string
		err error
	}
	results := make([]result, len(uuids))
	sem := make(chan struct{}, batchConcurrency)
	var wg sync.WaitGroup
	for i, u := range uuids {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			msg, err := fn(u)
			results[i] = result{msg: msg, err: err}
		}(i, u)
	}
	wg.Wait()

	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		if r.msg != "" {
			fmt.Fprintln(c.stdout, r.msg)
		}
	}
	return cmderr.Multi(errs)
}
