// Package password resolves protection on uploaded statements. Detection
// and resolution share the extraction call: the first attempt that no
// longer signals password-required both opens the document and yields its
// extraction result.
package password

import (
	"context"

	"statement-ingestion-backend/internal/extraction"
)

// State is the per-document password lifecycle.
type State string

const (
	StateUnknown       State = "unknown"
	StateClear         State = "clear"          // document is not protected
	StateProtected     State = "protected"      // protection detected, not yet resolved
	StateApplied       State = "applied"        // a candidate password worked
	StateManualPending State = "manual_pending" // all candidates failed, queued for manual entry
	StateFailed        State = "failed"         // user skipped manual entry
)

// SkipReason is the failure reason recorded when the user skips manual
// password entry.
const SkipReason = "password required but not provided"

// Resolver drives password detection and candidate probing through the
// extraction service.
type Resolver struct {
	client extraction.Client
}

func NewResolver(client extraction.Client) *Resolver {
	return &Resolver{client: client}
}

// Outcome reports how resolution ended. Result holds the extraction output
// of the successful attempt, so callers never extract twice.
type Outcome struct {
	State    State
	Password string
	Result   extraction.Result
}

// Candidates builds the probe order: previously-applied password first,
// then the matched account's stored password, then the filename hint.
// Empties and duplicates are dropped.
func Candidates(previouslyApplied, storedPassword, filenameHint string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range []string{previouslyApplied, storedPassword, filenameHint} {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// ResolveAndExtract probes the document. The first call runs without a
// password to detect protection; protected documents are then retried with
// each candidate in order. Exhausting the candidates yields
// StateManualPending, which the caller queues for manual entry.
func (r *Resolver) ResolveAndExtract(ctx context.Context, blob []byte, req extraction.Request, candidates []string) (Outcome, error) {
	req.Password = ""
	result, err := r.client.Extract(ctx, blob, req)
	if err != nil {
		return Outcome{State: StateUnknown}, err
	}
	if !result.RequiresPassword {
		return Outcome{State: StateClear, Result: result}, nil
	}

	for _, candidate := range candidates {
		req.Password = candidate
		result, err = r.client.Extract(ctx, blob, req)
		if err != nil {
			return Outcome{State: StateProtected}, err
		}
		if !result.RequiresPassword {
			return Outcome{State: StateApplied, Password: candidate, Result: result}, nil
		}
	}

	return Outcome{State: StateManualPending}, nil
}
