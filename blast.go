package wablaster

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nuid"

	"github.com/korospace/BE-WA-blaster/types"
)

// BlastFailure records one failed recipient send within a blast.
type BlastFailure struct {
	// Recipient is the raw recipient as passed to Blast.
	Recipient string

	// Err is the send error for this recipient.
	Err error
}

// BlastResult aggregates the per-recipient outcome of a blast.
//
// Sends are independent and best-effort: a failure for one recipient
// never aborts the remaining sends, and delivered messages are not
// rolled back.
type BlastResult struct {
	// InstanceID is the ready instance that performed the sends.
	InstanceID string

	// Delivered counts recipients whose send succeeded.
	Delivered int

	// Failed lists recipients whose send failed.
	Failed []BlastFailure
}

// Blast sends the text to every recipient through a ready instance of
// the tenant.
//
// Requires at least one instance of the tenant with a live session in
// ready state; absent one, returns ErrInstanceNotReady and sends
// nothing.
//
// Parameters:
//   - ctx: Context for cancellation
//   - tenantID: Owning tenant whose ready instance performs the sends
//   - recipients: Raw recipient phone numbers (formatted per send)
//   - text: Message body
//
// Returns:
//   - BlastResult: Per-recipient aggregated outcome
//   - error: ErrNotStarted, or ErrInstanceNotReady when no ready instance
func (m *Manager) Blast(ctx context.Context, tenantID string, recipients []string, text string) (BlastResult, error) {
	registry, store, err := m.running()
	if err != nil {
		return BlastResult{}, err
	}

	ready := types.StatusReady
	candidates, err := store.List(ctx, types.ListFilter{TenantID: tenantID, Status: &ready})
	if err != nil {
		return BlastResult{}, fmt.Errorf("list ready instances for tenant %s: %w", tenantID, err)
	}

	// The store status can lag the live handle; require both to agree
	// before sending anything.
	var sess *Session
	for _, inst := range candidates {
		if s := registry.Get(inst.InstanceID); s != nil && s.Status() == types.StatusReady {
			sess = s
			break
		}
	}

	if sess == nil {
		return BlastResult{}, fmt.Errorf("%w: tenant %s has no ready instance", ErrInstanceNotReady, tenantID)
	}

	result := BlastResult{InstanceID: sess.InstanceID()}
	for _, recipient := range recipients {
		if err := sess.SendMessage(ctx, recipient, text); err != nil {
			// Independent best-effort sends: collect and continue.
			result.Failed = append(result.Failed, BlastFailure{Recipient: recipient, Err: err})

			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}

			continue
		}
		result.Delivered++
	}

	return result, nil
}

// GenerateInstanceID returns a new opaque instance id.
//
// Ids are NUID-based: unique, ordered and safe for KV keys and NATS
// subject tokens.
func GenerateInstanceID() string {
	return "wai_" + nuid.Next()
}

// FormatRecipient converts a raw phone number into the provider's
// recipient address form.
//
// Strips every non-digit, rewrites a leading "0" to the "62" country
// prefix, and appends the "@c.us" chat suffix. Inputs already carrying a
// chat suffix are returned unchanged.
func FormatRecipient(number string) string {
	if strings.Contains(number, "@") {
		return number
	}

	var digits strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	formatted := digits.String()
	if strings.HasPrefix(formatted, "0") {
		formatted = "62" + formatted[1:]
	}

	return formatted + "@c.us"
}
