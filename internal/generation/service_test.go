package generation

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sejin-p/webforge/internal/db"
	"github.com/sejin-p/webforge/internal/db/sqlite"
	"github.com/sejin-p/webforge/internal/llm"
	"github.com/sejin-p/webforge/internal/task"
)

type fakeClient struct {
	response string
	err      error
	calls    int
	lastMsgs []llm.Message
}

func (f *fakeClient) Complete(ctx context.Context, system string, messages []llm.Message) (string, error) {
	f.calls++
	f.lastMsgs = messages
	return f.response, f.err
}

func (f *fakeClient) Stream(ctx context.Context, system string, messages []llm.Message, chunks chan<- string) (string, error) {
	f.calls++
	f.lastMsgs = messages
	if f.err != nil {
		return "", f.err
	}
	chunks <- f.response
	return f.response, nil
}

func (f *fakeClient) ModelName() string { return "fake-model" }

func newTestService(t *testing.T, client llm.Client, cacheTTL time.Duration) (*Service, db.Repository) {
	t.Helper()
	repo, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return NewService(repo, client, slog.New(slog.DiscardHandler), cacheTTL), repo
}

func createGeneration(t *testing.T, repo db.Repository, id, sessionID, prompt string) {
	t.Helper()
	ctx := context.Background()
	_, err := repo.CreateSession(ctx, sessionID)
	require.NoError(t, err)
	_, err = repo.CreateGeneration(ctx, db.CreateGenerationParams{
		ID: id, SessionID: sessionID, Prompt: prompt, Status: string(task.StatusPending), Model: "fake-model",
	})
	require.NoError(t, err)
}

const tsxResponse = "Here you go:\n```tsx\nimport React, { useState } from 'react'\nexport default function App() { return <div className=\"app\">hi</div> }\n```\n"

func TestGeneratePipeline(t *testing.T) {
	client := &fakeClient{response: tsxResponse}
	svc, repo := newTestService(t, client, 0)
	ctx := context.Background()

	createGeneration(t, repo, "gen-1", "sess-1", "build a counter")

	var deltas []string
	var statuses []task.Status
	res, err := svc.Generate(ctx, "gen-1", "sess-1", "build a counter", Hooks{
		OnStatus: func(s task.Status, _ string) { statuses = append(statuses, s) },
		OnDelta:  func(chunk string) { deltas = append(deltas, chunk) },
	})
	require.NoError(t, err)

	assert.Equal(t, tsxResponse, res.Response)
	assert.Equal(t, "tsx", res.PrimaryType)
	assert.Contains(t, res.PrimaryContent, "export default function App")
	assert.Equal(t, "react", res.Sandbox.Template)
	assert.False(t, res.Cached)
	assert.Empty(t, res.Issues)
	assert.Equal(t, []string{tsxResponse}, deltas)
	assert.Equal(t, []task.Status{task.StatusGenerating, task.StatusParsing}, statuses)

	// Record is terminal with the primary type filled in.
	gen, err := repo.GetGeneration(ctx, "gen-1")
	require.NoError(t, err)
	assert.Equal(t, string(task.StatusCompleted), gen.Status)
	assert.Equal(t, "tsx", gen.PrimaryType)
	assert.Equal(t, tsxResponse, gen.Response)

	// Both sides of the exchange landed in the history.
	msgs, err := repo.GetMessages(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleUser, msgs[0].Role)
	assert.Equal(t, "build a counter", msgs[0].Content)
	assert.Equal(t, llm.RoleAssistant, msgs[1].Role)
}

func TestGenerateIncludesHistory(t *testing.T) {
	client := &fakeClient{response: tsxResponse}
	svc, repo := newTestService(t, client, 0)
	ctx := context.Background()

	createGeneration(t, repo, "gen-1", "sess-1", "make it blue")
	_, err := repo.AppendMessage(ctx, db.AppendMessageParams{SessionID: "sess-1", Role: llm.RoleUser, Content: "build a counter"})
	require.NoError(t, err)
	_, err = repo.AppendMessage(ctx, db.AppendMessageParams{SessionID: "sess-1", Role: llm.RoleAssistant, Content: "```html\n<html></html>\n```"})
	require.NoError(t, err)

	_, err = svc.Generate(ctx, "gen-1", "sess-1", "make it blue", Hooks{})
	require.NoError(t, err)

	require.Len(t, client.lastMsgs, 3)
	assert.Equal(t, "build a counter", client.lastMsgs[0].Content)
	assert.Equal(t, llm.RoleAssistant, client.lastMsgs[1].Role)
	assert.Equal(t, "make it blue", client.lastMsgs[2].Content)
}

func TestGenerateFailureRecorded(t *testing.T) {
	client := &fakeClient{err: errors.New("model unavailable")}
	svc, repo := newTestService(t, client, 0)
	ctx := context.Background()

	createGeneration(t, repo, "gen-1", "sess-1", "build a page")

	_, err := svc.Generate(ctx, "gen-1", "sess-1", "build a page", Hooks{})
	require.Error(t, err)

	gen, err := repo.GetGeneration(ctx, "gen-1")
	require.NoError(t, err)
	assert.Equal(t, string(task.StatusFailed), gen.Status)
	require.True(t, gen.Error.Valid)
	assert.Equal(t, "model unavailable", gen.Error.String)

	// A failed exchange leaves no partial history behind.
	msgs, err := repo.GetMessages(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestGenerateServesCachedResponse(t *testing.T) {
	client := &fakeClient{response: tsxResponse}
	svc, repo := newTestService(t, client, time.Hour)
	ctx := context.Background()

	createGeneration(t, repo, "gen-1", "sess-1", "build a counter")
	res, err := svc.Generate(ctx, "gen-1", "sess-1", "build a counter", Hooks{})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, client.calls)

	// Same prompt in a fresh session hits the cache instead of the model.
	createGeneration(t, repo, "gen-2", "sess-2", "build a counter")
	var deltas []string
	res, err = svc.Generate(ctx, "gen-2", "sess-2", "build a counter", Hooks{
		OnDelta: func(chunk string) { deltas = append(deltas, chunk) },
	})
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, []string{tsxResponse}, deltas)
	assert.Equal(t, "tsx", res.PrimaryType)
}

func TestGenerateSkipsCacheWithHistory(t *testing.T) {
	client := &fakeClient{response: tsxResponse}
	svc, repo := newTestService(t, client, time.Hour)
	ctx := context.Background()

	createGeneration(t, repo, "gen-1", "sess-1", "build a counter")
	_, err := svc.Generate(ctx, "gen-1", "sess-1", "build a counter", Hooks{})
	require.NoError(t, err)

	// Follow-up in the same session must go to the model: the cached
	// entry belongs to the history-free prompt.
	createGeneration(t, repo, "gen-2", "sess-1", "build a counter")
	res, err := svc.Generate(ctx, "gen-2", "sess-1", "build a counter", Hooks{})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 2, client.calls)
}

func TestGenerateReportsQualityIssues(t *testing.T) {
	client := &fakeClient{response: "```html\n<html><body></body></html>\n```"}
	svc, repo := newTestService(t, client, 0)
	ctx := context.Background()

	createGeneration(t, repo, "gen-1", "sess-1", "bare page")
	res, err := svc.Generate(ctx, "gen-1", "sess-1", "bare page", Hooks{})
	require.NoError(t, err)

	assert.Equal(t, "html", res.PrimaryType)
	assert.NotEmpty(t, res.Issues)
}
