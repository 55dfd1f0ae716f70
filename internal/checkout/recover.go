package checkout

import (
	"context"
	"errors"
	"log"
	"time"
)

// ExpirePending fails pending intents the buyer walked away from. The source
// of truth for "walked away" is simply age: no callback arrived within ttl.
func (o *Orchestrator) ExpirePending(ctx context.Context, ttl time.Duration) {
	intents, err := o.repo.GetExpiredPendingIntents(ctx, ttl)
	if err != nil {
		log.Printf("failed to get expired intents: %v", err)
		return
	}

	for _, intent := range intents {
		if !intent.Status.IsPending() {
			continue
		}
		if err := o.repo.UpdateIntentStatus(ctx, intent.ID, IntentStatusFailed, "authorization window expired"); err != nil {
			log.Printf("failed to expire intent %v: %v", intent.ID, err)
			continue
		}
		log.Printf("intent %v expired after %v in %v", intent.ID, ttl, intent.Status)
	}
}

// RecoverVerified retries order persistence for intents whose payment was
// confirmed but whose order write failed. This is the reconciliation path
// for the payment-succeeded-order-missing case.
func (o *Orchestrator) RecoverVerified(ctx context.Context) {
	intents, err := o.repo.GetVerifiedUnpersisted(ctx)
	if err != nil {
		log.Printf("failed to get verified unpersisted intents: %v", err)
		return
	}

	for _, intent := range intents {
		log.Printf("recovering verified intent %v", intent.ID)
		if _, err := o.persist(ctx, intent); err != nil && !errors.Is(err, ErrConfirmationPending) {
			log.Printf("failed to recover intent %v: %v", intent.ID, err)
			continue
		}
	}
}
