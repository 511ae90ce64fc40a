package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/geronlab/biorag/internal/config"
	"github.com/geronlab/biorag/internal/errs"
)

func remoteFor(t *testing.T, url string) *Remote {
	t.Helper()
	cfg := config.GeneratorConfig{
		BaseURL:        url,
		Model:          "gpt-4",
		MaxTokens:      128,
		TimeoutSeconds: 5,
	}
	return NewRemote(cfg, "test-key", zap.NewNop())
}

func completionHandler(t *testing.T, answer string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: answer}}},
		})
	}
}

func TestRemote_Generate(t *testing.T) {
	srv := httptest.NewServer(completionHandler(t, "rapamycin extends lifespan (PMID:33495399)"))
	defer srv.Close()

	answer, err := remoteFor(t, srv.URL).Generate(context.Background(), "Question: rapamycin?", Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(answer, "33495399") {
		t.Errorf("unexpected answer %q", answer)
	}
}

func TestRemote_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		completionHandler(t, "ok")(w, r)
	}))
	defer srv.Close()

	answer, err := remoteFor(t, srv.URL).Generate(context.Background(), "q", Options{})
	if err != nil {
		t.Fatalf("Generate after retries: %v", err)
	}
	if answer != "ok" {
		t.Errorf("answer = %q", answer)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestRemote_AllAttemptsFail(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := remoteFor(t, srv.URL).Generate(context.Background(), "q", Options{})
	if !errs.HasCode(err, errs.CodeGeneration) {
		t.Fatalf("Generate = %v, want GENERATION_FAILED", err)
	}
	if calls.Load() != maxAttempts {
		t.Errorf("expected %d attempts, got %d", maxAttempts, calls.Load())
	}
}

func TestRemote_NoRetryOn400(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := remoteFor(t, srv.URL).Generate(context.Background(), "q", Options{})
	if !errs.HasCode(err, errs.CodeGeneration) {
		t.Fatalf("Generate = %v, want GENERATION_FAILED", err)
	}
	if calls.Load() != 1 {
		t.Errorf("client errors must not be retried, got %d attempts", calls.Load())
	}
}

func TestRemote_TemperatureOutOfRange(t *testing.T) {
	bad := 3.5
	_, err := remoteFor(t, "http://unused.invalid").Generate(context.Background(), "q", Options{Temperature: &bad})
	if !errs.HasCode(err, errs.CodeValidation) {
		t.Errorf("Generate = %v, want VALIDATION_ERROR", err)
	}
}

func TestRemote_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := remoteFor(t, srv.URL).Generate(ctx, "q", Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancellation did not cut the backoff short: %v", elapsed)
	}
}
