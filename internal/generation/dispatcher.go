// Package generation turns a parsed generate directive into a call against
// the generation endpoint and reconciles the outcome into the status frames
// the chat stream emits.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"skinny-studio-backend/internal/models"
)

// CollectImages walks the conversation newest-first and picks, per purpose,
// the most recently attached usable image from the user's messages.
// Assistant attachments are never forwarded.
func CollectImages(messages []models.ChatMessage) []models.ImageInput {
	seen := map[string]bool{}
	var collected []models.ImageInput

	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role != "user" {
			continue
		}
		for _, att := range m.Attachments {
			if att.Type != "image" && att.Type != "reference" {
				continue
			}
			if att.URL == "" && att.Base64 == "" {
				continue
			}
			purpose := att.Purpose
			if purpose == "" {
				purpose = models.PurposeReference
			}
			if seen[purpose] {
				continue
			}
			seen[purpose] = true
			collected = append(collected, models.ImageInput{
				URL:      att.URL,
				Base64:   att.Base64,
				MimeType: att.MimeType,
				Purpose:  purpose,
			})
		}
	}
	return collected
}

// Dispatcher POSTs generate directives to the generation endpoint. The chat
// handler and the endpoint live in the same process, but the hop stays HTTP
// so the endpoint keeps one auth and credit-check path for all callers.
type Dispatcher struct {
	endpoint   string
	httpClient *http.Client
}

func NewDispatcher(endpoint string) *Dispatcher {
	return &Dispatcher{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// ForwardHeaders is the subset of the inbound chat request's headers that
// carry identity to the generation endpoint.
var ForwardHeaders = []string{"Authorization", "Cookie", "X-User-Id"}

// Dispatch runs one directive and always returns a terminal-or-pending
// status; transport and downstream failures become error statuses rather
// than Go errors, because the chat stream must keep flowing either way.
func (d *Dispatcher) Dispatch(ctx context.Context, directive *models.GenerationDirective, images []models.ImageInput, inbound http.Header) models.GenerationStatus {
	body := models.GenerateRequest{
		Model:                     directive.Model,
		Prompt:                    directive.Prompt,
		Params:                    directive.Params,
		Duration:                  directive.Duration,
		Resolution:                directive.Resolution,
		SequentialImageGeneration: directive.SequentialImageGeneration,
		MaxImages:                 directive.MaxImages,
		Images:                    images,
		// The chat stream cannot sit behind the provider's blocking wait;
		// slow jobs come back as a pending hand-off instead.
		NoWait: true,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return errorStatus(directive, "failed to encode generation request", "AI_ERROR")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return errorStatus(directive, "failed to build generation request", "AI_ERROR")
	}
	req.Header.Set("Content-Type", "application/json")
	for _, h := range ForwardHeaders {
		if v := inbound.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		log.Printf("generation dispatch failed: %v", err)
		return errorStatus(directive, "Generation service is unreachable. Please try again.", "GENERATION_UNAVAILABLE")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return errorStatus(directive, "failed to read generation response", "AI_ERROR")
	}

	var out models.GenerateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		log.Printf("generation endpoint returned undecodable body (status %d)", resp.StatusCode)
		return errorStatus(directive, fmt.Sprintf("Generation failed with status %d.", resp.StatusCode), "AI_ERROR")
	}

	return Reconcile(directive, &out)
}

// Reconcile maps the endpoint's response onto the status union. Three
// outcomes are possible: the call finished with outputs, the provider
// accepted it but it is still running, or it failed.
func Reconcile(directive *models.GenerationDirective, resp *models.GenerateResponse) models.GenerationStatus {
	switch {
	case resp.Success && resp.ImageURL != "":
		urls := resp.OutputURLs
		if len(urls) == 0 {
			urls = []string{resp.ImageURL}
		}
		return models.GenerationStatus{
			Status: models.StatusComplete,
			Model:  directive.Model,
			Params: directive.Params,
			Result: &models.GenerationResult{
				ImageURL:   resp.ImageURL,
				OutputURLs: urls,
				Prompt:     directive.Prompt,
			},
		}

	case resp.Pending && resp.GenerationID != "":
		return models.GenerationStatus{
			Status:       models.StatusGenerating,
			Model:        directive.Model,
			Params:       directive.Params,
			GenerationID: resp.GenerationID,
		}

	default:
		msg := resp.Error
		if msg == "" {
			msg = "Generation failed."
		}
		code := resp.Code
		if code == "" {
			code = "AI_ERROR"
		}
		return models.GenerationStatus{
			Status:    models.StatusError,
			Model:     directive.Model,
			Params:    directive.Params,
			Error:     msg,
			Code:      code,
			Required:  resp.Required,
			Available: resp.Available,
		}
	}
}

func errorStatus(directive *models.GenerationDirective, msg, code string) models.GenerationStatus {
	return models.GenerationStatus{
		Status: models.StatusError,
		Model:  directive.Model,
		Params: directive.Params,
		Error:  msg,
		Code:   code,
	}
}
