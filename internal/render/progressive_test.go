package render

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tripdeck/tui-go/internal/model"
)

// fixedStep makes reveal increments deterministic for tests.
func fixedStep(r *Renderer, n int) {
	r.step = func() int { return n }
}

func blocks(ids ...string) []model.ContentBlock {
	out := make([]model.ContentBlock, len(ids))
	for i, id := range ids {
		out[i] = model.Paragraph(id, "text for "+id)
	}
	return out
}

func TestRenderer_DisabledIsImmediate(t *testing.T) {
	r := New()
	bs := blocks("a", "b")

	delay, started := r.SetBlocks(bs, false)
	if started || delay != 0 {
		t.Fatalf("disabled SetBlocks scheduled a tick: %v, %v", delay, started)
	}
	if r.CurrentPhase() != PhaseDone {
		t.Fatalf("phase = %v, want done", r.CurrentPhase())
	}
	if diff := cmp.Diff(bs, r.Visible()); diff != "" {
		t.Errorf("visible mismatch (-want +got):\n%s", diff)
	}
	if !r.TakeCompletion() {
		t.Error("completion not signaled")
	}
	if r.TakeCompletion() {
		t.Error("completion signaled twice")
	}
}

func TestRenderer_IdentityReinvocationIsNoOp(t *testing.T) {
	r := New()
	fixedStep(r, 1)
	bs := blocks("a", "b")

	if _, started := r.SetBlocks(bs, true); !started {
		t.Fatal("first SetBlocks did not start")
	}
	session := r.Session()
	r.Advance()
	mid := r.Visible()

	// Same IDs in the same order: the running session must not restart.
	if _, started := r.SetBlocks(blocks("a", "b"), true); started {
		t.Fatal("identical list restarted the session")
	}
	if r.Session() != session {
		t.Errorf("session changed: %d -> %d", session, r.Session())
	}
	if diff := cmp.Diff(mid, r.Visible()); diff != "" {
		t.Errorf("visible progress reset (-want +got):\n%s", diff)
	}

	// A different list starts a new session.
	if _, started := r.SetBlocks(blocks("a", "c"), true); !started {
		t.Fatal("new list did not start a session")
	}
	if r.Session() == session {
		t.Error("session number not advanced for new list")
	}
}

func TestRenderer_ParagraphRevealOrder(t *testing.T) {
	r := New()
	fixedStep(r, 3)
	first := model.Paragraph("p1", "hello")
	second := model.Paragraph("p2", "world")

	delay, started := r.SetBlocks([]model.ContentBlock{first, second}, true)
	if !started {
		t.Fatal("session did not start")
	}
	if delay != CharInterval {
		t.Errorf("first delay = %v, want %v", delay, CharInterval)
	}

	// First tick reveals three runes of the first paragraph only.
	next, more := r.Advance()
	if !more || next != CharInterval {
		t.Fatalf("Advance = %v, %v", next, more)
	}
	vis := r.Visible()
	if len(vis) != 1 || vis[0].Text != "hel" {
		t.Fatalf("visible after one tick = %+v", vis)
	}

	// Second tick completes "hello"; the next delay is for the second block.
	next, more = r.Advance()
	if !more || next != CharInterval {
		t.Fatalf("Advance = %v, %v", next, more)
	}
	vis = r.Visible()
	if len(vis) != 1 || vis[0].Text != "hello" {
		t.Fatalf("visible after block one = %+v", vis)
	}

	// Finish the second paragraph.
	for i := 0; i < 10; i++ {
		if _, more = r.Advance(); !more {
			break
		}
	}
	if more {
		t.Fatal("session never finished")
	}
	if r.CurrentPhase() != PhaseDone {
		t.Fatalf("phase = %v, want done", r.CurrentPhase())
	}
	vis = r.Visible()
	if len(vis) != 2 || vis[1].Text != "world" {
		t.Fatalf("final visible = %+v", vis)
	}
	if !r.TakeCompletion() {
		t.Error("completion not signaled")
	}
}

func TestRenderer_NonParagraphBlocksAreAtomic(t *testing.T) {
	r := New()
	fixedStep(r, 1)
	card := model.ContentBlock{ID: "c1", Type: model.BlockSummaryCard, Title: "Budget"}
	para := model.Paragraph("p1", "ok")

	delay, started := r.SetBlocks([]model.ContentBlock{card, para}, true)
	if !started {
		t.Fatal("session did not start")
	}
	// Cards wait the inter-block delay, then appear whole.
	if delay != BlockDelay {
		t.Errorf("card delay = %v, want %v", delay, BlockDelay)
	}

	next, more := r.Advance()
	if !more {
		t.Fatal("session ended after the card")
	}
	if next != CharInterval {
		t.Errorf("post-card delay = %v, want %v (paragraph next)", next, CharInterval)
	}
	vis := r.Visible()
	if len(vis) != 1 || vis[0].ID != "c1" || vis[0].Title != "Budget" {
		t.Fatalf("card not shown whole: %+v", vis)
	}
}

func TestRenderer_EmptyListCompletesImmediately(t *testing.T) {
	r := New()
	if _, started := r.SetBlocks(nil, true); started {
		t.Fatal("empty list started a session")
	}
	if r.CurrentPhase() != PhaseDone || !r.TakeCompletion() {
		t.Error("empty list did not complete immediately")
	}
}

func TestRenderer_CancelInvalidatesSession(t *testing.T) {
	r := New()
	fixedStep(r, 1)
	r.SetBlocks(blocks("a"), true)
	session := r.Session()

	r.Cancel()
	if r.Session() == session {
		t.Error("session not advanced on cancel")
	}
	if r.CurrentPhase() != PhaseIdle {
		t.Errorf("phase = %v, want idle", r.CurrentPhase())
	}
	if vis := r.Visible(); vis != nil {
		t.Errorf("Visible after cancel = %+v, want nil", vis)
	}
	// A stale tick handler would compare its session against Session() and
	// drop itself; Advance on an idle renderer is also inert.
	if _, more := r.Advance(); more {
		t.Error("Advance on cancelled session requested another tick")
	}
	if r.TakeCompletion() {
		t.Error("cancelled session signaled completion")
	}
}

func TestRenderer_VisibleTextIsPrefix(t *testing.T) {
	r := New()
	fixedStep(r, 2)
	text := "多字节文本 reveal"
	r.SetBlocks([]model.ContentBlock{model.Paragraph("p", text)}, true)

	var prev string
	for i := 0; i < 20; i++ {
		_, more := r.Advance()
		vis := r.Visible()
		if len(vis) == 1 {
			cur := vis[0].Text
			if !strings.HasPrefix(text, cur) {
				t.Fatalf("visible %q is not a prefix of the source", cur)
			}
			if len(cur) < len(prev) {
				t.Fatalf("visible text shrank: %q -> %q", prev, cur)
			}
			prev = cur
		}
		if !more {
			break
		}
	}
	if prev != text && r.CurrentPhase() != PhaseDone {
		t.Fatalf("reveal never finished: %q", prev)
	}
}
