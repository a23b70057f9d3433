// Package elevenlabs is a minimal HTTP client for the ElevenLabs
// text-to-speech and studio project APIs. Only the calls the pipeline needs
// are implemented.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/drshumard/Larynx/internal/settings"
	"github.com/drshumard/Larynx/internal/types"
)

// DefaultBaseURL is the public ElevenLabs API endpoint.
const DefaultBaseURL = "https://api.elevenlabs.io"

// Client calls the ElevenLabs API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. baseURL may be empty to use the public API.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	Speed           float64 `json:"speed"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize converts one text segment to audio bytes.
func (c *Client) Synthesize(ctx context.Context, text string, cfg settings.Settings) ([]byte, error) {
	body := synthesizeRequest{
		Text:    text,
		ModelID: cfg.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       cfg.Stability,
			SimilarityBoost: cfg.Similarity,
			Style:           cfg.Style,
			Speed:           cfg.Speed,
			UseSpeakerBoost: cfg.SpeakerBoost,
		},
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", c.baseURL, cfg.VoiceID, cfg.OutputFormat)
	data, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: synthesis returned no audio", types.ErrExternalService)
	}
	return data, nil
}

type createProjectRequest struct {
	Name                string   `json:"name"`
	Paragraphs          []string `json:"paragraphs"`
	VoiceID             string   `json:"default_voice_id"`
	ModelID             string   `json:"default_model_id"`
	Quality             string   `json:"quality_preset"`
	VolumeNormalization bool     `json:"volume_normalization"`
	TextNormalization   string   `json:"apply_text_normalization"`
}

type createProjectResponse struct {
	Project struct {
		ID string `json:"project_id"`
	} `json:"project"`
}

// CreateProject submits the whole structured text as a studio project and
// returns its opaque identifier.
func (c *Client) CreateProject(ctx context.Context, name string, paragraphs []string, cfg settings.Settings) (string, error) {
	body := createProjectRequest{
		Name:                name,
		Paragraphs:          paragraphs,
		VoiceID:             cfg.VoiceID,
		ModelID:             cfg.ModelID,
		Quality:             cfg.Quality,
		VolumeNormalization: cfg.VolumeNormalization,
		TextNormalization:   cfg.TextNormalization,
	}

	data, err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/studio/projects", body)
	if err != nil {
		return "", err
	}

	var resp createProjectResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("%w: failed to decode project response: %v", types.ErrExternalService, err)
	}
	if resp.Project.ID == "" {
		return "", fmt.Errorf("%w: project response missing project_id", types.ErrExternalService)
	}
	return resp.Project.ID, nil
}

type projectResponse struct {
	Project struct {
		State string `json:"state"`
	} `json:"project"`
}

// ProjectState reports the remote conversion state of a project.
func (c *Client) ProjectState(ctx context.Context, projectID string) (string, error) {
	data, err := c.do(ctx, http.MethodGet, c.baseURL+"/v1/studio/projects/"+projectID, nil)
	if err != nil {
		return "", err
	}

	var resp projectResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("%w: failed to decode project state: %v", types.ErrExternalService, err)
	}
	if resp.Project.State == "" {
		return "", fmt.Errorf("%w: project response missing state", types.ErrExternalService)
	}
	return resp.Project.State, nil
}

type snapshotsResponse struct {
	Snapshots []struct {
		ID string `json:"project_snapshot_id"`
	} `json:"snapshots"`
}

// LatestSnapshot returns the most recent output snapshot identifier of a
// finished project.
func (c *Client) LatestSnapshot(ctx context.Context, projectID string) (string, error) {
	data, err := c.do(ctx, http.MethodGet, c.baseURL+"/v1/studio/projects/"+projectID+"/snapshots", nil)
	if err != nil {
		return "", err
	}

	var resp snapshotsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("%w: failed to decode snapshots: %v", types.ErrExternalService, err)
	}
	if len(resp.Snapshots) == 0 {
		return "", fmt.Errorf("%w: project has no snapshots", types.ErrExternalService)
	}
	return resp.Snapshots[len(resp.Snapshots)-1].ID, nil
}

// DownloadSnapshot streams the finished audio of a project snapshot.
func (c *Client) DownloadSnapshot(ctx context.Context, projectID, snapshotID string) ([]byte, error) {
	url := fmt.Sprintf("%s/v1/studio/projects/%s/snapshots/%s/audio", c.baseURL, projectID, snapshotID)
	data, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: snapshot download returned no audio", types.ErrExternalService)
	}
	return data, nil
}

// do performs one API call and returns the raw response body. Any non-2xx
// status is an external service error carrying the response text.
func (c *Client) do(ctx context.Context, method, url string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrExternalService, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", types.ErrExternalService, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := string(data)
		if len(detail) > 200 {
			detail = detail[:200]
		}
		return nil, fmt.Errorf("%w: status %d: %s", types.ErrExternalService, resp.StatusCode, detail)
	}

	return data, nil
}
