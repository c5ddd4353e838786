package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaifllc/youyesyou-core/moderation"
	"github.com/vaifllc/youyesyou-core/moderation/visual"
	"github.com/vaifllc/youyesyou-core/store"
)

func TestExplicitImageBlocksPost(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	h := newHarness(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"success","nudity":{"sexual_activity":0.01,"sexual_display":0.4,"erotica":0.02,"suggestive":0.1}}`)
	}))
	defer srv.Close()
	h.pipeline.Visual = visual.NewClient(nil, srv.URL, "user", "secret")

	require.NoError(h.store.PutUser(ctx, &store.User{ID: "u1"}))
	res, err := h.pipeline.ProcessSubmission(ctx, Submission{
		UserID:    "u1",
		Kind:      moderation.KindPost,
		Body:      "beach day",
		ImageURLs: []string{"https://cdn.example.com/img1.jpg"},
	})
	require.NoError(err)
	require.True(res.Rejected)
	assert.Equal(RejectPolicy, res.Rejection)
	assert.Contains(res.Issues, moderation.IssueExplicitImage)
	assert.Contains(res.Issues, "sexual_display")
}

func TestClassifierOutageDoesNotBlock(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	h := newHarness(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
	}))
	defer srv.Close()
	h.pipeline.Visual = visual.NewClient(nil, srv.URL, "user", "secret")

	require.NoError(h.store.PutUser(ctx, &store.User{ID: "u1"}))
	res, err := h.pipeline.ProcessSubmission(ctx, Submission{
		UserID:    "u1",
		Kind:      moderation.KindPost,
		Body:      "beach day",
		ImageURLs: []string{"https://cdn.example.com/img1.jpg"},
	})
	require.NoError(err)
	require.False(res.Rejected)
	require.NotNil(res.Content)
}
