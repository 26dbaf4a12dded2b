package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/pranay-lamse/crimedigest/internal/models"
)

// GeminiVision sends one report page image plus a prompt to Gemini and
// returns the raw response text.
type GeminiVision struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
}

func NewGeminiVision(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*GeminiVision, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &GeminiVision{client: cl, modelName: modelName, timeout: timeout}, nil
}

func (g *GeminiVision) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// ExtractPage runs one inference call for a single page. The call carries a
// hard timeout; the page payload round-trip can be large but must never
// block a run indefinitely. Errors come back classified transient or fatal.
func (g *GeminiVision) ExtractPage(ctx context.Context, page models.PageImage, prompt string) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	m.SetTemperature(0.1)
	m.ResponseMIMEType = "application/json"

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := m.GenerateContent(callCtx, genai.Text(prompt), genai.ImageData("png", page.PNG))
	if err != nil {
		return "", classify(ctx, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", FatalError("no valid response from API", nil)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

// classify maps a transport error onto the transient/fatal taxonomy.
// 429 and 503/529 mean the service is rate limited or overloaded and the
// call is worth retrying; every other status is fatal for the attempt.
func classify(parent context.Context, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, 529:
			return TransientError(fmt.Sprintf("API overloaded (status %d)", gerr.Code), err)
		default:
			return FatalError(fmt.Sprintf("API request failed: %d", gerr.Code), err)
		}
	}
	// A per-call deadline counts as transient unless the caller itself is gone.
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return TransientError("inference call timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return FatalError("inference call failed", err)
}
