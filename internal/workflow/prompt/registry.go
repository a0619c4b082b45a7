package prompt

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptDeviceSummaryV1 PromptID = "device_summary_v1"
	PromptSummaryRefineV1 PromptID = "summary_refine_v1"
	PromptNotesMarkdownV1 PromptID = "notes_markdown_v1"
	PromptNotesEntitiesV1 PromptID = "notes_entities_v1"
	PromptNotesQuizV1     PromptID = "notes_quiz_v1"
)

type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	systemPath, userPath, err := resolvePromptFiles(id)
	if err != nil {
		return nil, err
	}
	system, err := readEmbeddedText(systemPath)
	if err != nil {
		return nil, err
	}
	user, err := readEmbeddedText(userPath)
	if err != nil {
		return nil, err
	}

	tpl := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	r.cache[id] = tpl
	return tpl, nil
}

// Render 渲染模板，返回系统指令与用户提示词
func (r *Registry) Render(ctx context.Context, id PromptID, vars map[string]any) (system string, user string, err error) {
	tpl, err := r.ChatTemplate(id)
	if err != nil {
		return "", "", err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", "", fmt.Errorf("format prompt %s: %w", id, err)
	}
	if len(msgs) != 2 {
		return "", "", fmt.Errorf("prompt %s rendered %d messages, want 2", id, len(msgs))
	}
	return msgs[0].Content, msgs[1].Content, nil
}

func resolvePromptFiles(id PromptID) (systemFile string, userFile string, err error) {
	switch id {
	case PromptDeviceSummaryV1:
		return "templates/device_summary_v1.system.txt", "templates/device_summary_v1.user.txt", nil
	case PromptSummaryRefineV1:
		return "templates/summary_refine_v1.system.txt", "templates/summary_refine_v1.user.txt", nil
	case PromptNotesMarkdownV1:
		return "templates/notes_markdown_v1.system.txt", "templates/notes_v1.user.txt", nil
	case PromptNotesEntitiesV1:
		return "templates/notes_entities_v1.system.txt", "templates/notes_v1.user.txt", nil
	case PromptNotesQuizV1:
		return "templates/notes_quiz_v1.system.txt", "templates/notes_v1.user.txt", nil
	default:
		return "", "", fmt.Errorf("unknown prompt id: %s", id)
	}
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
