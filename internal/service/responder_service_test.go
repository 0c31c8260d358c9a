package service

import (
	"context"
	"sync"
	"testing"

	"github.com/hanamilabs/frc-clock-bot/internal/config"
	"github.com/hanamilabs/frc-clock-bot/internal/domain"
	"github.com/hanamilabs/frc-clock-bot/internal/triggers"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResponder(t *testing.T, sender *testSender, reporter *testReporter) *ResponderService {
	t.Helper()
	rules := lo.Map(config.DefaultRules(), func(spec config.RuleSpec, _ int) triggers.Rule {
		return triggers.Rule{Name: spec.Name, Contains: spec.Contains, OrLacks: spec.OrLacks, Unless: spec.Unless, Replies: spec.Replies}
	})
	matcher, err := triggers.NewMatcher(rules)
	require.NoError(t, err)
	return NewResponderService(discardLogger(), matcher, sender, reporter, nil, "group-1", "ignored-user")
}

func defaultReplies(name string) []string {
	rule, _ := lo.Find(config.DefaultRules(), func(spec config.RuleSpec) bool { return spec.Name == name })
	return rule.Replies
}

func TestResponderIgnoresConfiguredSender(t *testing.T) {
	sender := &testSender{}
	responder := newTestResponder(t, sender, &testReporter{})

	responder.HandleMessage(context.Background(), domain.IncomingMessage{SenderID: "ignored-user", ChatID: "other", Body: "2212 robot רובוט 12"})

	assert.Empty(t, sender.sent)
}

func TestResponder2212DoesNotTrigger12(t *testing.T) {
	sender := &testSender{}
	responder := newTestResponder(t, sender, &testReporter{})

	responder.HandleMessage(context.Background(), domain.IncomingMessage{SenderID: "u1", Body: "go 2212"})

	texts := sender.texts()
	assert.Contains(t, texts, "2212!")
	assert.NotContains(t, texts, "12!")
}

func TestResponderBare12(t *testing.T) {
	sender := &testSender{}
	responder := newTestResponder(t, sender, &testReporter{})

	responder.HandleMessage(context.Background(), domain.IncomingMessage{SenderID: "u1", Body: "order 12 pizzas"})

	assert.Contains(t, sender.texts(), "12!")
}

func TestResponderSourceTriggerSendsDramaticSequenceInOrder(t *testing.T) {
	sender := &testSender{}
	responder := newTestResponder(t, sender, &testReporter{})

	responder.HandleMessage(context.Background(), domain.IncomingMessage{SenderID: "u1", Body: "ראיתי רובוט"})

	assert.Equal(t, defaultReplies("dramatic"), sender.texts())
}

func TestResponderExclusionSuppressesSourceTrigger(t *testing.T) {
	sender := &testSender{}
	responder := newTestResponder(t, sender, &testReporter{})

	responder.HandleMessage(context.Background(), domain.IncomingMessage{SenderID: "u1", Body: "מי בנה רובוט"})

	assert.Empty(t, sender.sent)
}

// The English sequence fires for any body lacking the source-language trigger.
// This is questionable but it is the observed behaviour and is kept on purpose.
func TestResponderEnglishSequenceFiresOnUnrelatedMessages(t *testing.T) {
	bodies := []string{"good morning", "anyone up for lunch?", "robot"}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			sender := &testSender{}
			responder := newTestResponder(t, sender, &testReporter{})

			responder.HandleMessage(context.Background(), domain.IncomingMessage{SenderID: "u1", Body: body})

			assert.Equal(t, defaultReplies("english"), sender.texts())
		})
	}
}

func TestResponderSendsToGroupNotSenderChat(t *testing.T) {
	sender := &testSender{}
	responder := newTestResponder(t, sender, &testReporter{})

	responder.HandleMessage(context.Background(), domain.IncomingMessage{SenderID: "u1", ChatID: "private-chat", Body: "3388"})

	require.NotEmpty(t, sender.sent)
	for _, msg := range sender.sent {
		assert.Equal(t, "group-1", msg.targetID)
	}
	assert.Contains(t, sender.texts(), "Flash!")
}

func TestResponderFailureInOneSequenceDoesNotStopOthers(t *testing.T) {
	sender := &testSender{failOn: map[string]bool{"Robot?": true}}
	reporter := &testReporter{}
	responder := newTestResponder(t, sender, reporter)

	responder.HandleMessage(context.Background(), domain.IncomingMessage{SenderID: "u1", Body: "2212"})

	assert.Equal(t, []string{"2212!"}, sender.texts())
	assert.Len(t, reporter.errs, 1)
}

func TestResponderSequencesDoNotInterleave(t *testing.T) {
	sender := &testSender{}
	responder := newTestResponder(t, sender, &testReporter{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			responder.HandleMessage(context.Background(), domain.IncomingMessage{SenderID: "u1", Body: "ראיתי רובוט"})
		}()
	}
	wg.Wait()

	dramatic := defaultReplies("dramatic")
	texts := sender.texts()
	require.Len(t, texts, 4*len(dramatic))
	for i := 0; i < len(texts); i += len(dramatic) {
		assert.Equal(t, dramatic, texts[i:i+len(dramatic)])
	}
	assert.Zero(t, responder.queue.pending())
}
