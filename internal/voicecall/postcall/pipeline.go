package postcall

import (
	"context"

	"voicebridge-server/internal/extraction"
	"voicebridge-server/internal/observability"
	"voicebridge-server/internal/sessions"
)

// TranscriptExtractor turns a finished transcript into a structured record.
type TranscriptExtractor interface {
	Extract(ctx context.Context, transcript string) (extraction.CustomerDetails, error)
}

// Notifier delivers the post-call payload to the configured sink.
type Notifier interface {
	Notify(ctx context.Context, payload interface{})
}

// RawPayload is the webhook body when extraction is disabled.
type RawPayload struct {
	ClientInfo map[string]string `json:"clientInfo"`
	Transcript string            `json:"transcript"`
}

// Pipeline tears down a call's session and delivers its post-call payload.
// Termination can be triggered from two places, the media-stream socket
// closing and the telephony status callback reporting "completed"; the
// pipeline runs at most once per call regardless.
type Pipeline struct {
	store      *sessions.Store
	extractor  TranscriptExtractor
	notifier   Notifier
	extraction bool
	logger     *observability.Logger
}

// New creates a post-call pipeline. When extraction is true the webhook
// receives the extracted customer-detail record; otherwise it receives the
// raw client info and transcript.
func New(store *sessions.Store, extractor TranscriptExtractor, notifier Notifier, extraction bool,
	logger *observability.Logger) *Pipeline {
	return &Pipeline{
		store:      store,
		extractor:  extractor,
		notifier:   notifier,
		extraction: extraction,
		logger:     logger,
	}
}

// Finalize removes the session for callSID from the store and runs the
// post-call pipeline. Unknown call SIDs and repeated invocations are no-ops.
func (p *Pipeline) Finalize(ctx context.Context, callSID string) {
	sess, ok := p.store.Get(callSID)
	if !ok {
		return
	}
	p.store.Delete(callSID)

	ctx = observability.WithFields(ctx, observability.Field{Key: "call_sid", Value: callSID})
	sess.Finalize(func() {
		p.run(ctx, sess)
	})
}

func (p *Pipeline) run(ctx context.Context, sess *sessions.Session) {
	transcript := sess.Transcript()
	p.logger.Info(ctx, "Call terminated, running post-call pipeline")

	if !p.extraction {
		p.notifier.Notify(ctx, RawPayload{
			ClientInfo: sess.ClientInfo(),
			Transcript: transcript,
		})
		return
	}

	details, err := p.extractor.Extract(ctx, transcript)
	if err != nil {
		// No partial or garbage payload is ever forwarded.
		p.logger.Error(ctx, "Extraction failed, suppressing webhook delivery", err)
		return
	}
	p.notifier.Notify(ctx, details)
}
