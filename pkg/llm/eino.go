package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/huddlehq/huddle/pkg/db"
	"github.com/huddlehq/huddle/pkg/utils"
)

// DefaultMaxRounds bounds tool-call rounds per turn so a model that keeps
// requesting tools cannot loop forever.
const DefaultMaxRounds = 8

// ErrRoundLimit is returned when a turn exhausts its round budget while
// the model is still requesting tools.
var ErrRoundLimit = errors.New("tool round limit reached")

// einoEngine implements Engine on top of an eino ToolCallingChatModel.
type einoEngine struct {
	model  einoModel.ToolCallingChatModel
	store  MessageStore
	logger *slog.Logger
}

// NewEngine creates an Engine backed by the given chat model. Messages the
// engine creates while streaming are persisted through store.
func NewEngine(model einoModel.ToolCallingChatModel, store MessageStore) Engine {
	return &einoEngine{
		model:  model,
		store:  store,
		logger: utils.GetLogger(),
	}
}

func (e *einoEngine) Respond(ctx context.Context, req Request) (<-chan RoundEvent, error) {
	maxRounds := req.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	toolInfos, toolsByName, err := describeTools(ctx, req.Tools)
	if err != nil {
		return nil, fmt.Errorf("describe tools: %w", err)
	}

	runModel := e.model
	if len(toolInfos) > 0 {
		runModel, err = e.model.WithTools(toolInfos)
		if err != nil {
			return nil, fmt.Errorf("bind tools: %w", err)
		}
	}

	messages := make([]*schema.Message, 0, len(req.Conversation)+1)
	if req.Instructions != "" {
		messages = append(messages, schema.SystemMessage(req.Instructions))
	}
	messages = append(messages, req.Conversation...)

	events := make(chan RoundEvent, 16)
	go func() {
		defer close(events)
		e.run(ctx, req.ChatID, runModel, toolsByName, messages, maxRounds, events)
	}()
	return events, nil
}

// run drives the bounded round loop: stream a model response, persist it,
// execute any requested tools synchronously, append their results and
// invoke the model again.
func (e *einoEngine) run(
	ctx context.Context,
	chatID string,
	runModel einoModel.ToolCallingChatModel,
	toolsByName map[string]tool.InvokableTool,
	messages []*schema.Message,
	maxRounds int,
	events chan<- RoundEvent,
) {
	for round := 0; round < maxRounds; round++ {
		aiMessage, err := e.streamRound(ctx, chatID, runModel, messages, events)
		if err != nil {
			events <- TurnError{Err: err}
			return
		}

		finishReason := ""
		if aiMessage.ResponseMeta != nil {
			finishReason = aiMessage.ResponseMeta.FinishReason
		}
		events <- RoundComplete{
			FinishReason: finishReason,
			ToolCalls:    len(aiMessage.ToolCalls),
		}
		messages = append(messages, aiMessage)

		if len(aiMessage.ToolCalls) == 0 {
			return
		}

		toolMessages, err := e.executeTools(ctx, chatID, toolsByName, aiMessage.ToolCalls, events)
		if err != nil {
			events <- TurnError{Err: err}
			return
		}
		messages = append(messages, toolMessages...)
	}

	events <- TurnError{Err: ErrRoundLimit}
}

// streamRound runs one model invocation: creates the message row, streams
// content increments and persists the concatenated result.
func (e *einoEngine) streamRound(
	ctx context.Context,
	chatID string,
	runModel einoModel.ToolCallingChatModel,
	messages []*schema.Message,
	events chan<- RoundEvent,
) (*schema.Message, error) {
	reader, err := runModel.Stream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("start stream: %w", err)
	}
	defer reader.Close()

	messageID, err := e.store.CreateMessage(chatID, db.RoleAssistant)
	if err != nil {
		return nil, fmt.Errorf("create assistant message: %w", err)
	}
	events <- NewMessage{MessageID: messageID, Role: db.RoleAssistant}

	chunks := make([]*schema.Message, 0)
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("stream recv: %w", err)
		}
		chunks = append(chunks, chunk)
		if chunk.ToolCalls == nil && chunk.Content != "" {
			events <- ContentChunk{Text: chunk.Content}
		}
	}

	aiMessage, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, fmt.Errorf("concat stream chunks: %w", err)
	}

	if err := e.store.SetMessageContent(messageID, aiMessage.Content); err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}
	return aiMessage, nil
}

// executeTools runs the round's tool calls one by one and returns the
// tool-result messages to feed the next round. Tool messages are persisted
// but produce no content events; they are never user visible.
func (e *einoEngine) executeTools(
	ctx context.Context,
	chatID string,
	toolsByName map[string]tool.InvokableTool,
	calls []schema.ToolCall,
	events chan<- RoundEvent,
) ([]*schema.Message, error) {
	results := make([]*schema.Message, 0, len(calls))
	for _, call := range calls {
		t, ok := toolsByName[call.Function.Name]
		if !ok {
			return nil, fmt.Errorf("model requested unknown tool %q", call.Function.Name)
		}

		e.logger.Info("executing tool", "chat_id", chatID, "tool", call.Function.Name)
		output, err := t.InvokableRun(ctx, call.Function.Arguments)
		if err != nil {
			// Feed the failure back to the model instead of aborting the
			// turn; the model can apologize or try another tool
			output = fmt.Sprintf("tool error: %s", err.Error())
			e.logger.Warn("tool execution failed", "chat_id", chatID, "tool", call.Function.Name, "error", err)
		}

		messageID, err := e.store.CreateMessage(chatID, db.RoleTool)
		if err != nil {
			return nil, fmt.Errorf("create tool message: %w", err)
		}
		if err := e.store.SetMessageContent(messageID, output); err != nil {
			return nil, fmt.Errorf("persist tool message: %w", err)
		}
		events <- NewMessage{MessageID: messageID, Role: db.RoleTool}

		results = append(results, schema.ToolMessage(output, call.ID, schema.WithToolName(call.Function.Name)))
	}
	return results, nil
}

// describeTools collects schemas for binding and indexes invokable tools
// by name for dispatch.
func describeTools(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, map[string]tool.InvokableTool, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	byName := make(map[string]tool.InvokableTool, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
		inv, ok := t.(tool.InvokableTool)
		if !ok {
			return nil, nil, fmt.Errorf("tool %q is not invokable", info.Name)
		}
		byName[info.Name] = inv
	}
	return infos, byName, nil
}
