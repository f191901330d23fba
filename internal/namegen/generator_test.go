package namegen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qiming/entity"
	"qiming/lib/apperr"
)

func testClient(url string) *Client {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(Config{
		Url:     url,
		Model:   "test-model",
		Key:     "test-key",
		Timeout: 5 * time.Second,
	}, log)
}

func completionBody(fullNames ...string) string {
	type entry struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
		Pinyin   string `json:"pinyin"`
	}
	entries := make([]entry, 0, len(fullNames))
	for _, fullName := range fullNames {
		entries = append(entries, entry{
			Name:     string([]rune(fullName)[1:]),
			FullName: fullName,
			Pinyin:   "pinyin",
		})
	}
	names, _ := json.Marshal(map[string]any{"names": entries})

	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": string(names)}},
		},
	})
	return string(body)
}

func TestGenerateMergesParallelBatches(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// two overlapping batches, the merged set holds five unique names
		if atomic.AddInt32(&calls, 1)%2 == 1 {
			fmt.Fprint(w, completionBody("李一诺", "李清扬", "李思源"))
		} else {
			fmt.Fprint(w, completionBody("李思源", "李沐宸", "李知夏"))
		}
	}))
	defer server.Close()

	names, err := testClient(server.URL).Generate(context.Background(), &entity.GenerateParams{
		Surname: "李",
		Gender:  "female",
	})
	require.NoError(t, err)
	require.Len(t, names, 5)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	seen := make(map[string]bool)
	for _, name := range names {
		assert.False(t, seen[name.FullName], "duplicate %s", name.FullName)
		seen[name.FullName] = true
	}
}

func TestGenerateTopsUpAfterSingleFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusInternalServerError)
		case 2:
			fmt.Fprint(w, completionBody("李一诺", "李清扬", "李思源"))
		default:
			fmt.Fprint(w, completionBody("李沐宸", "李知夏"))
		}
	}))
	defer server.Close()

	names, err := testClient(server.URL).Generate(context.Background(), &entity.GenerateParams{
		Surname: "李",
		Gender:  "male",
	})
	require.NoError(t, err)
	assert.Len(t, names, 5)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGenerateReturnsPartialWhenTopUpFails(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusInternalServerError)
		case 2:
			fmt.Fprint(w, completionBody("李一诺", "李清扬", "李思源"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	names, err := testClient(server.URL).Generate(context.Background(), &entity.GenerateParams{
		Surname: "李",
		Gender:  "male",
	})
	require.NoError(t, err)
	assert.Len(t, names, 3)
}

func TestGenerateFailsWhenBothBatchesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Generate(context.Background(), &entity.GenerateParams{
		Surname: "李",
		Gender:  "male",
	})
	require.Error(t, err)
	assert.Equal(t, "AI_RATE_LIMIT", apperr.From(err).Code)
}

func TestGenerateErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		code   string
	}{
		{http.StatusUnauthorized, "AI_AUTH_FAILED"},
		{http.StatusTooManyRequests, "AI_RATE_LIMIT"},
		{http.StatusBadGateway, "AI_SERVICE_ERROR"},
		{http.StatusBadRequest, "AI_ERROR"},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		_, err := testClient(server.URL).batch(context.Background(), &entity.GenerateParams{Surname: "李"}, 3, 1)
		require.Error(t, err)
		assert.Equal(t, tc.code, apperr.From(err).Code, "status %d", tc.status)
		server.Close()
	}
}

func TestGenerateWithoutKey(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient(Config{Url: "http://localhost:1"}, log)

	_, err := client.Generate(context.Background(), &entity.GenerateParams{Surname: "李"})
	require.Error(t, err)
	assert.Equal(t, "AI_SERVICE_UNAVAILABLE", apperr.From(err).Code)
}

func TestBatchEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": []}`)
	}))
	defer server.Close()

	_, err := testClient(server.URL).batch(context.Background(), &entity.GenerateParams{Surname: "李"}, 3, 1)
	require.Error(t, err)
	assert.Equal(t, "AI_EMPTY_RESPONSE", apperr.From(err).Code)
}
