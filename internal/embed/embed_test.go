package embed

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/lorekeep/lorekeep/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *testutil.MockEmbedder) {
	t.Helper()
	g := genkit.Init(context.Background())
	mock := testutil.NewMockEmbedder(VectorDimension)
	svc, err := NewService(mock.Register(g))
	if err != nil {
		t.Fatalf("creating service: %v", err)
	}
	return svc, mock
}

func TestEmbed(t *testing.T) {
	svc, mock := newTestService(t)
	ctx := context.Background()

	want := make([]float32, VectorDimension)
	want[0] = 1
	mock.SetVector("a short note", want)

	vec, err := svc.Embed(ctx, "a short note")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got := vec.Slice(); !reflect.DeepEqual(got, want) {
		t.Errorf("Embed returned wrong vector (got[0]=%v)", got[0])
	}

	t.Run("deterministic", func(t *testing.T) {
		a, err := svc.Embed(ctx, "unmapped text")
		if err != nil {
			t.Fatalf("Embed: %v", err)
		}
		b, err := svc.Embed(ctx, "unmapped text")
		if err != nil {
			t.Fatalf("Embed: %v", err)
		}
		if !reflect.DeepEqual(a.Slice(), b.Slice()) {
			t.Error("same text produced different vectors")
		}
	})

	t.Run("empty text rejected", func(t *testing.T) {
		if _, err := svc.Embed(ctx, ""); err == nil {
			t.Error("Embed accepted empty text")
		}
	})
}

func TestEmbed_TruncatesLongText(t *testing.T) {
	svc, mock := newTestService(t)
	ctx := context.Background()

	long := strings.Repeat("x", MaxEmbedChars+100)
	want := make([]float32, VectorDimension)
	want[1] = 1
	// Only the truncated head should reach the embedder.
	mock.SetVector(long[:MaxEmbedChars], want)

	vec, err := svc.Embed(ctx, long)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got := vec.Slice(); !reflect.DeepEqual(got, want) {
		t.Error("long text was not truncated before embedding")
	}
}

func TestEmbedBatch(t *testing.T) {
	svc, mock := newTestService(t)
	ctx := context.Background()

	texts := []string{"first", "second", "third"}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, VectorDimension)
		v[i] = 1
		vectors[i] = v
		mock.SetVector(text, v)
	}

	got, err := svc.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(got) != len(texts) {
		t.Fatalf("EmbedBatch returned %d vectors, want %d", len(got), len(texts))
	}
	// Results hold position regardless of completion order.
	for i := range texts {
		if !reflect.DeepEqual(got[i].Slice(), vectors[i]) {
			t.Errorf("vector %d out of position", i)
		}
	}

	t.Run("empty input", func(t *testing.T) {
		got, err := svc.EmbedBatch(ctx, nil)
		if err != nil || got != nil {
			t.Errorf("EmbedBatch(nil) = (%v, %v), want (nil, nil)", got, err)
		}
	})

	t.Run("empty element fails the batch", func(t *testing.T) {
		if _, err := svc.EmbedBatch(ctx, []string{"ok", ""}); err == nil {
			t.Error("EmbedBatch accepted an empty element")
		}
	})
}
