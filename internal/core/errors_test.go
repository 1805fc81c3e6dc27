package core_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/book-expert/story-studio/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpstreamError_Message(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *core.UpstreamError
		want string
	}{
		{
			name: "transport failure",
			err:  &core.UpstreamError{Service: "deepseek", Message: "connection refused"},
			want: "deepseek: connection refused",
		},
		{
			name: "status without code",
			err:  &core.UpstreamError{Service: "replicate", StatusCode: 422, Message: "bad input"},
			want: "replicate returned status 422: bad input",
		},
		{
			name: "status with code",
			err: &core.UpstreamError{
				Service: "deepseek", StatusCode: 402, Code: "insufficient_balance", Message: "no credit",
			},
			want: "deepseek returned status 402: no credit (code: insufficient_balance)",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, testCase.want, testCase.err.Error())
		})
	}
}

func TestTypedErrors_SurviveWrapping(t *testing.T) {
	t.Parallel()

	inner := errors.New("exit status 1")
	wrapped := fmt.Errorf("merge step: %w", &core.MergeError{
		Command: "ffmpeg", ExitCode: 1, Stderr: "list.txt: No such file", Err: inner,
	})

	var mergeErr *core.MergeError

	require.ErrorAs(t, wrapped, &mergeErr)
	assert.Equal(t, 1, mergeErr.ExitCode)
	require.ErrorIs(t, wrapped, inner)
	assert.Contains(t, wrapped.Error(), "No such file")

	formatErr := fmt.Errorf("script: %w", &core.FormatError{Reason: core.ReasonInvalidScriptFormat})

	var target *core.FormatError

	require.ErrorAs(t, formatErr, &target)
	assert.Equal(t, "invalid script format", target.Error())
}

func TestMergeError_TruncatesStderr(t *testing.T) {
	t.Parallel()

	err := &core.MergeError{Command: "ffmpeg", ExitCode: 1, Stderr: strings.Repeat("x", 2000) + "tail"}

	assert.True(t, strings.HasSuffix(err.Error(), "tail"))
	assert.Less(t, len(err.Error()), 600)
}

func TestSynthesisError_Message(t *testing.T) {
	t.Parallel()

	err := &core.SynthesisError{PredictionID: "p1", Status: "failed", ProviderError: "voice not found"}
	assert.Equal(t, "speech synthesis p1 ended with status failed: voice not found", err.Error())

	bare := &core.SynthesisError{PredictionID: "p2", Status: "canceled"}
	assert.Equal(t, "speech synthesis p2 ended with status canceled", bare.Error())
}
