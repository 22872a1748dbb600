package openai

import (
	"context"
	"errors"
	"io"
	"sync"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/moltis-ai/moltis/internal/llm/model"
	"github.com/moltis-ai/moltis/internal/tools"
)

// openAIStreamer adapts a Chat Completions streaming response to the
// model.Streamer interface, accumulating tool-call argument fragments across
// chunks and emitting one ChunkTypeToolCall once a tool call closes.
type openAIStreamer struct {
	ctx    context.Context
	cancel context.CancelFunc
	stream *ssestream.Stream[sdk.ChatCompletionChunk]

	chunks chan model.Chunk

	errMu    sync.Mutex
	errSet   bool
	finalErr error

	provToCanon map[string]string
}

func newOpenAIStreamer(ctx context.Context, stream *ssestream.Stream[sdk.ChatCompletionChunk], provToCanon map[string]string) model.Streamer {
	cctx, cancel := context.WithCancel(ctx)
	s := &openAIStreamer{
		ctx:         cctx,
		cancel:      cancel,
		stream:      stream,
		chunks:      make(chan model.Chunk, 32),
		provToCanon: provToCanon,
	}
	go s.run()
	return s
}

func (s *openAIStreamer) Recv() (model.Chunk, error) {
	select {
	case chunk, ok := <-s.chunks:
		if ok {
			return chunk, nil
		}
		if err := s.err(); err != nil {
			return model.Chunk{}, err
		}
		return model.Chunk{}, io.EOF
	case <-s.ctx.Done():
		err := s.ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		s.setErr(err)
		return model.Chunk{}, err
	}
}

func (s *openAIStreamer) Close() error {
	s.cancel()
	if s.stream == nil {
		return nil
	}
	return s.stream.Close()
}

func (s *openAIStreamer) Metadata() map[string]any { return nil }

func (s *openAIStreamer) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if !s.errSet {
		return nil
	}
	return s.finalErr
}

func (s *openAIStreamer) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if !s.errSet {
		s.errSet = true
		s.finalErr = err
	}
}

// run drains the SSE stream, accumulating per-index tool call fragments and
// emitting chunks until the stream closes or the context is canceled.
func (s *openAIStreamer) run() {
	defer close(s.chunks)

	type pendingCall struct {
		id   string
		name string
		args []byte
	}
	pending := map[int64]*pendingCall{}

	emit := func(c model.Chunk) bool {
		select {
		case s.chunks <- c:
			return true
		case <-s.ctx.Done():
			return false
		}
	}

	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if delta := choice.Delta.Content; delta != "" {
			if !emit(model.Chunk{
				Type:    model.ChunkTypeText,
				Message: &model.Message{Role: model.ConversationRoleAssistant, Parts: []model.Part{model.TextPart{Text: delta}}},
			}) {
				return
			}
		}
		for _, tc := range choice.Delta.ToolCalls {
			idx := tc.Index
			pc, ok := pending[idx]
			if !ok {
				pc = &pendingCall{}
				pending[idx] = pc
			}
			if tc.ID != "" {
				pc.id = tc.ID
			}
			if tc.Function.Name != "" {
				pc.name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				pc.args = append(pc.args, []byte(tc.Function.Arguments)...)
				name := pc.name
				if canonical, ok := s.provToCanon[name]; ok {
					name = canonical
				}
				if !emit(model.Chunk{
					Type: model.ChunkTypeToolCallDelta,
					ToolCallDelta: &model.ToolCallDelta{
						Name:  tools.Ident(name),
						ID:    pc.id,
						Delta: tc.Function.Arguments,
					},
				}) {
					return
				}
			}
		}
		if choice.FinishReason != "" {
			for _, pc := range pending {
				name := pc.name
				if canonical, ok := s.provToCanon[name]; ok {
					name = canonical
				}
				if !emit(model.Chunk{
					Type:     model.ChunkTypeToolCall,
					ToolCall: &model.ToolCall{Name: tools.Ident(name), Payload: canonicalToolPayload(string(pc.args)), ID: pc.id},
				}) {
					return
				}
			}
			if u := chunk.Usage; u.TotalTokens != 0 {
				emit(model.Chunk{
					Type: model.ChunkTypeUsage,
					UsageDelta: &model.TokenUsage{
						InputTokens:  int(u.PromptTokens),
						OutputTokens: int(u.CompletionTokens),
						TotalTokens:  int(u.TotalTokens),
					},
				})
			}
			emit(model.Chunk{Type: model.ChunkTypeStop, StopReason: string(choice.FinishReason)})
		}
	}
	if err := s.stream.Err(); err != nil && !errors.Is(err, io.EOF) {
		s.setErr(err)
	}
}
