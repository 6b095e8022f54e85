package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/resolve"
)

// promptDecider asks on out and reads the answer from in. End of input
// abandons.
func promptDecider(in io.Reader, out io.Writer) resolve.Decider {
	reader := bufio.NewReader(in)
	return resolve.DeciderFunc(func(ctx context.Context, payload draft.Payload, conflict resolve.Outcome) (resolve.Decision, error) {
		title := payload.Title
		if title == "" {
			title = draft.ResolvePayloadIdentity(payload).String()
		}
		for {
			fmt.Fprintf(out, "The remote version of %q has changed since you opened it.\n", title)
			fmt.Fprint(out, "  [1] overwrite with my version\n  [2] save mine as a copy\n  [3] cancel\nChoice: ")

			line, err := reader.ReadString('\n')
			answer := strings.ToLower(strings.TrimSpace(line))
			if answer == "" && err != nil {
				return resolve.Abandon, nil
			}
			if d, perr := resolve.ParseDecision(answer); perr == nil {
				return d, nil
			}
			if err != nil {
				return resolve.Abandon, nil
			}
			fmt.Fprintf(out, "Unknown choice %q\n", answer)
		}
	})
}
