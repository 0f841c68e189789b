package postgres

import (
	"strings"
	"testing"
)

// Claiming must flip rows to processing and return them in one
// statement. A standalone SELECT FOR UPDATE releases its row locks when
// its implicit transaction ends, and two relays would then deliver the
// same message.
func TestOutboxClaimIsSingleStatement(t *testing.T) {
	if got := strings.Count(outboxClaimSQL, ";"); got != 0 {
		t.Fatalf("claim SQL contains %d statement separators, want a single statement", got)
	}

	update := strings.Index(outboxClaimSQL, "UPDATE sys_outbox")
	lock := strings.Index(outboxClaimSQL, "FOR UPDATE SKIP LOCKED")
	returning := strings.Index(outboxClaimSQL, "RETURNING")
	if update < 0 || lock < 0 || returning < 0 {
		t.Fatalf("claim SQL missing update, lock, or returning clause:\n%s", outboxClaimSQL)
	}
	if !(update < lock && lock < returning) {
		t.Errorf("claim SQL clauses out of order: update=%d lock=%d returning=%d", update, lock, returning)
	}

	if !strings.Contains(outboxClaimSQL, "SET status = $1") {
		t.Error("claim SQL must flip the claimed rows' status")
	}
}

// A relay that dies mid-batch leaves rows in processing. The claim query
// hands them out again once the lease recorded in next_retry_at expires.
func TestOutboxClaimReclaimsExpiredLeases(t *testing.T) {
	if !strings.Contains(outboxClaimSQL, "OR (status = $1 AND next_retry_at <= NOW())") {
		t.Errorf("claim SQL does not reclaim expired processing rows:\n%s", outboxClaimSQL)
	}
	if outboxClaimLease <= 0 {
		t.Errorf("claim lease = %v, want a positive duration", outboxClaimLease)
	}
}
