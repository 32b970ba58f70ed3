package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"testing"

	"github.com/desertthunder/likesync/internal/services"
	"github.com/desertthunder/likesync/internal/shared"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/oauth2"
)

type writeCall struct {
	Op   string
	URIs []string
}

// mockCollection records writes and fails according to its hooks.
type mockCollection struct {
	calls      []writeCall
	replaceErr error
	addErr     func(uris []string) error
}

func (m *mockCollection) ReplacePlaylistItems(_ context.Context, _ *oauth2.Token, _ string, uris []string) error {
	m.calls = append(m.calls, writeCall{Op: "replace", URIs: slices.Clone(uris)})
	return m.replaceErr
}

func (m *mockCollection) AddPlaylistItems(_ context.Context, _ *oauth2.Token, _ string, uris []string) error {
	m.calls = append(m.calls, writeCall{Op: "add", URIs: slices.Clone(uris)})
	if m.addErr != nil {
		return m.addErr(uris)
	}
	return nil
}

func makeURIs(n int) []string {
	uris := make([]string, n)
	for i := range uris {
		uris[i] = fmt.Sprintf("spotify:track:%d", i)
	}
	return uris
}

func TestCollectionWriter(t *testing.T) {
	ctx := context.Background()
	token := &oauth2.Token{AccessToken: "a"}

	t.Run("ReplaceAll", func(t *testing.T) {
		t.Run("clears then appends in batches of 100", func(t *testing.T) {
			api := &mockCollection{}
			w := NewCollectionWriter(api, WriterOpts{})
			uris := makeURIs(250)

			result, err := w.ReplaceAll(ctx, "pl", uris, token, WriteHooks{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.Written != 250 {
				t.Errorf("expected 250 written, got %d", result.Written)
			}

			want := []writeCall{
				{Op: "replace", URIs: []string{}},
				{Op: "add", URIs: uris[:100]},
				{Op: "add", URIs: uris[100:200]},
				{Op: "add", URIs: uris[200:]},
			}
			if diff := cmp.Diff(want, api.calls); diff != "" {
				t.Errorf("calls mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("empty list only clears", func(t *testing.T) {
			api := &mockCollection{}
			w := NewCollectionWriter(api, WriterOpts{})

			result, err := w.ReplaceAll(ctx, "pl", nil, token, WriteHooks{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.Written != 0 || len(api.calls) != 1 {
				t.Errorf("expected a single clear, got %+v", api.calls)
			}
		})

		t.Run("403 on clear is success", func(t *testing.T) {
			api := &mockCollection{replaceErr: services.NewAPIError(http.StatusForbidden, "Forbidden")}
			w := NewCollectionWriter(api, WriterOpts{})

			result, err := w.ReplaceAll(ctx, "pl", makeURIs(3), token, WriteHooks{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.Written != 3 {
				t.Errorf("expected 3 written, got %d", result.Written)
			}
		})

		t.Run("other clear failure aborts", func(t *testing.T) {
			api := &mockCollection{replaceErr: services.NewAPIError(http.StatusBadGateway, "bad gateway")}
			w := NewCollectionWriter(api, WriterOpts{})

			_, err := w.ReplaceAll(ctx, "pl", makeURIs(3), token, WriteHooks{})
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
			if len(api.calls) != 1 {
				t.Errorf("expected no appends after failed clear, got %d calls", len(api.calls))
			}
		})

		t.Run("batch failure aborts remaining batches", func(t *testing.T) {
			batch := 0
			api := &mockCollection{addErr: func(uris []string) error {
				batch++
				if batch == 2 {
					return services.NewAPIError(http.StatusBadRequest, "Invalid track uri")
				}
				return nil
			}}
			w := NewCollectionWriter(api, WriterOpts{})

			result, err := w.ReplaceAll(ctx, "pl", makeURIs(300), token, WriteHooks{})
			if err == nil {
				t.Fatal("expected error")
			}
			if result.Written != 0 {
				t.Errorf("expected no partial result, got %+v", result)
			}
			if len(api.calls) != 3 {
				t.Errorf("expected clear and two adds, got %d calls", len(api.calls))
			}
		})

		t.Run("hooks fire after clear and each batch", func(t *testing.T) {
			api := &mockCollection{}
			w := NewCollectionWriter(api, WriterOpts{BatchSize: 2})

			var events []string
			hooks := WriteHooks{
				Cleared: func() { events = append(events, fmt.Sprintf("cleared after %d calls", len(api.calls))) },
				Batch:   func(written, total int) { events = append(events, fmt.Sprintf("%d/%d", written, total)) },
			}
			if _, err := w.ReplaceAll(ctx, "pl", makeURIs(3), token, hooks); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			want := []string{"cleared after 1 calls", "2/3", "3/3"}
			if diff := cmp.Diff(want, events); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("hooks skipped when clear fails", func(t *testing.T) {
			api := &mockCollection{replaceErr: services.NewAPIError(http.StatusUnauthorized, "expired")}
			w := NewCollectionWriter(api, WriterOpts{})

			fired := false
			hooks := WriteHooks{Cleared: func() { fired = true }}
			if _, err := w.ReplaceAll(ctx, "pl", makeURIs(3), token, hooks); err == nil {
				t.Fatal("expected error")
			}
			if fired {
				t.Error("Cleared hook fired after failed clear")
			}
		})
	})

	t.Run("Item fallback", func(t *testing.T) {
		bad := "spotify:track:1"

		rejectBad := func(uris []string) error {
			if slices.Contains(uris, bad) {
				return services.NewAPIError(http.StatusBadRequest, "Track is not available in your market")
			}
			return nil
		}

		t.Run("retries rejected batch item by item", func(t *testing.T) {
			api := &mockCollection{addErr: rejectBad}
			w := NewCollectionWriter(api, WriterOpts{ItemFallback: true})

			result, err := w.ReplaceAll(ctx, "pl", makeURIs(3), token, WriteHooks{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.Written != 2 {
				t.Errorf("expected 2 written, got %d", result.Written)
			}
			if diff := cmp.Diff([]string{bad}, result.Rejected); diff != "" {
				t.Errorf("rejected mismatch (-want +got):\n%s", diff)
			}
			// clear, batch, then three single-item adds
			if len(api.calls) != 5 {
				t.Errorf("expected 5 calls, got %d", len(api.calls))
			}
		})

		t.Run("disabled by default", func(t *testing.T) {
			api := &mockCollection{addErr: rejectBad}
			w := NewCollectionWriter(api, WriterOpts{})

			if _, err := w.ReplaceAll(ctx, "pl", makeURIs(3), token, WriteHooks{}); err == nil {
				t.Error("expected error without fallback")
			}
		})

		t.Run("unrelated 400 aborts", func(t *testing.T) {
			api := &mockCollection{addErr: func([]string) error {
				return services.NewAPIError(http.StatusBadRequest, "Payload too large")
			}}
			w := NewCollectionWriter(api, WriterOpts{ItemFallback: true})

			if _, err := w.ReplaceAll(ctx, "pl", makeURIs(3), token, WriteHooks{}); err == nil {
				t.Error("expected error for non-availability 400")
			}
			if len(api.calls) != 2 {
				t.Errorf("expected no per-item retries, got %d calls", len(api.calls))
			}
		})

		t.Run("non-availability failure during fallback aborts", func(t *testing.T) {
			api := &mockCollection{addErr: func(uris []string) error {
				if len(uris) > 1 {
					return services.NewAPIError(http.StatusBadRequest, "Invalid base62 id")
				}
				return services.NewAPIError(http.StatusInternalServerError, "boom")
			}}
			w := NewCollectionWriter(api, WriterOpts{ItemFallback: true})

			_, err := w.ReplaceAll(ctx, "pl", makeURIs(3), token, WriteHooks{})
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	})

	t.Run("Append reports progress per batch", func(t *testing.T) {
		api := &mockCollection{}
		w := NewCollectionWriter(api, WriterOpts{BatchSize: 2})

		var seen []int
		_, err := w.Append(ctx, "pl", makeURIs(5), token, func(written, total int) {
			if total != 5 {
				t.Errorf("expected total 5, got %d", total)
			}
			seen = append(seen, written)
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if diff := cmp.Diff([]int{2, 4, 5}, seen); diff != "" {
			t.Errorf("progress mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestIsAvailabilityRejection(t *testing.T) {
	tt := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("not available"), want: false},
		{name: "400 unavailable", err: services.NewAPIError(400, "Track unavailable"), want: true},
		{name: "400 invalid uri", err: services.NewAPIError(400, "Invalid track uri: spotify:track:x"), want: true},
		{name: "400 other", err: services.NewAPIError(400, "Missing body"), want: false},
		{name: "500 unavailable", err: services.NewAPIError(500, "Service unavailable"), want: false},
		{name: "wrapped", err: fmt.Errorf("write: %w", services.NewAPIError(400, "not available")), want: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := isAvailabilityRejection(tc.err); got != tc.want {
				t.Errorf("isAvailabilityRejection(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
