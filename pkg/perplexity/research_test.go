package perplexity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkmill/partners-cli/internal/model"
	"github.com/linkmill/partners-cli/internal/research"
)

// stubClient returns a canned completion.
type stubClient struct {
	resp *ChatCompletionResponse
	err  error
	got  ChatCompletionRequest
}

func (s *stubClient) ChatCompletion(_ context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	s.got = req
	return s.resp, s.err
}

func completion(content string, citations ...string) *ChatCompletionResponse {
	return &ChatCompletionResponse{
		Choices:   []Choice{{Message: Message{Role: "assistant", Content: content}}},
		Citations: citations,
	}
}

func researchReq() research.Request {
	return research.Request{
		ProjectID: "proj-1",
		Item: model.Product{
			ProductID:    7,
			Name:         "스탠리 텀블러",
			Price:        45000,
			CategoryName: "주방용품",
		},
	}
}

func TestResearcher_Success(t *testing.T) {
	stub := &stubClient{resp: completion(`{
		"features": ["보온 7시간"],
		"benefits": ["내구성이 좋다"],
		"drawbacks": ["무겁다"],
		"popularBrands": ["스탠리"],
		"overview": "스테인리스 텀블러",
		"sources": ["https://stanley1913.com"],
		"status": "success"
	}`, "https://stanley1913.com", "https://example.com/review")}

	raw, err := NewResearcher(stub).Research(context.Background(), researchReq())
	require.NoError(t, err)

	assert.Equal(t, []string{"보온 7시간"}, raw.Features)
	assert.Equal(t, []string{"내구성이 좋다"}, raw.Benefits)
	// Citations merge without duplicating in-body sources.
	assert.Equal(t, []string{"https://stanley1913.com", "https://example.com/review"}, raw.Sources)

	require.Len(t, stub.got.Messages, 2)
	assert.Contains(t, stub.got.Messages[1].Content, "스탠리 텀블러")
	assert.Contains(t, stub.got.Messages[1].Content, "45000원")
}

func TestResearcher_FencedCompletion(t *testing.T) {
	stub := &stubClient{resp: completion("```json\n{\"features\":[\"f\"],\"status\":\"success\"}\n```")}

	raw, err := NewResearcher(stub).Research(context.Background(), researchReq())
	require.NoError(t, err)
	assert.Equal(t, []string{"f"}, raw.Features)
}

func TestResearcher_InsufficientSources(t *testing.T) {
	stub := &stubClient{resp: completion(`{
		"status": "insufficient_sources",
		"missing_fields": ["sources"],
		"suggested_queries": ["스탠리 공식 모델명"]
	}`)}

	_, err := NewResearcher(stub).Research(context.Background(), researchReq())
	require.Error(t, err)

	var insufficient *research.InsufficientSourcesError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, []string{"sources"}, insufficient.MissingFields)
	assert.Equal(t, []string{"스탠리 공식 모델명"}, insufficient.SuggestedQueries)
}

func TestResearcher_EmptyCompletion(t *testing.T) {
	stub := &stubClient{resp: &ChatCompletionResponse{}}

	_, err := NewResearcher(stub).Research(context.Background(), researchReq())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty completion")
}

func TestResearcher_MalformedCompletion(t *testing.T) {
	stub := &stubClient{resp: completion("출처를 찾지 못했습니다.")}

	_, err := NewResearcher(stub).Research(context.Background(), researchReq())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse research response")
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON("결과: {\"a\":1} 입니다"))
	assert.Equal(t, `{"a":1}`, extractJSON(` {"a":1} `))
}
