package audioshake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"

	"stemsep/src/application/separation/entity"
	"stemsep/src/lib/cerr"
)

var _ entity.Separator = Client{}

const DefaultBaseURL = "https://api.audioshake.ai"

// DefaultPollInterval is the fixed delay between status polls.
const DefaultPollInterval = 5 * time.Second

// DefaultTimeout bounds the whole polling loop, measured from
// submission rather than from the last poll.
const DefaultTimeout = 600 * time.Second

// DefaultStems is what gets requested when the caller doesn't name
// any stems.
var DefaultStems = []string{"vocals", "instrumental"}

// ErrTaskCancelled reports a remote task that reached the cancelled
// status. Cancellation is deliberately kept apart from remote failure
// so it never falls through into an endless poll loop.
var ErrTaskCancelled = errors.New("separation task was cancelled remotely")

// ErrTimeout reports that the task was still not terminal when the
// client-side budget ran out. The remote task is left running, there
// is no cancellation channel once submitted.
var ErrTimeout = errors.New("separation did not finish within the time budget")

// SeparationFailedError carries the service-provided failure text.
type SeparationFailedError struct {
	Message string
}

func (e SeparationFailedError) Error() string {
	if e.Message == "" {
		return "separation task failed remotely"
	}

	return fmt.Sprintf("separation task failed remotely: %s", e.Message)
}

type Config struct {
	BaseURL      string
	PollInterval time.Duration
	Timeout      time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	return c
}

func NewClient(apiKey string, config Config, httpClient *http.Client, clock Clock) Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if clock == nil {
		clock = SystemClock{}
	}

	return Client{
		apiKey:     apiKey,
		config:     config.withDefaults(),
		httpClient: httpClient,
		clock:      clock,
	}
}

type Client struct {
	apiKey     string
	config     Config
	httpClient *http.Client
	clock      Clock
}

func (c Client) SeparateStems(ctx context.Context, audioURL string, stems []string, observer entity.StatusObserver) ([]entity.StemResult, error) {
	errctx := cerr.Field("audio_url", audioURL)

	// the service fetches the source itself, so anything that isn't
	// publicly HTTPS reachable is rejected before any network call
	if !strings.HasPrefix(audioURL, "https://") {
		return nil, errctx.Error("Audio URL must start with https:// for stem separation")
	}

	if len(stems) == 0 {
		stems = DefaultStems
	}

	taskID, err := c.submitTask(ctx, audioURL, stems)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to submit the separation task")
	}

	log.WithFields(log.Fields{
		"task_id": taskID,
		"stems":   stems,
	}).Info("Separation task submitted, polling until terminal")

	results, err := c.pollToCompletion(ctx, taskID, observer)
	if err != nil {
		return nil, errctx.Field("task_id", taskID).Wrap(err).Error("Separation task did not complete")
	}

	return results, nil
}

type submitTaskBody struct {
	URL     string             `json:"url"`
	Targets []submitTaskTarget `json:"targets"`
}

type submitTaskTarget struct {
	Model   string   `json:"model"`
	Formats []string `json:"formats"`
}

type submitTaskResponse struct {
	ID string `json:"id"`
}

func (c Client) submitTask(ctx context.Context, audioURL string, stems []string) (string, error) {
	targets := make([]submitTaskTarget, 0, len(stems))
	for _, stem := range stems {
		targets = append(targets, submitTaskTarget{
			Model:   stem,
			Formats: []string{"wav"},
		})
	}

	requestBody, err := json.Marshal(submitTaskBody{
		URL:     audioURL,
		Targets: targets,
	})
	if err != nil {
		return "", cerr.Wrap(err).Error("Failed to marshal the task submission")
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/tasks", bytes.NewReader(requestBody))
	if err != nil {
		return "", cerr.Wrap(err).Error("Failed to create the task submission request")
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("x-api-key", c.apiKey)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", cerr.Wrap(err).Error("Failed to reach the separation service")
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", cerr.Wrap(err).Error("Failed to read the submission response")
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", cerr.Field("status_code", response.StatusCode).
			Field("response_body", string(responseBody)).
			Error("The separation service rejected the task")
	}

	submitted := submitTaskResponse{}
	if err := json.Unmarshal(responseBody, &submitted); err != nil {
		return "", cerr.Wrap(err).Error("Failed to unmarshal the submission response")
	}

	if submitted.ID == "" {
		return "", cerr.Error("The separation service did not assign a task ID")
	}

	return submitted.ID, nil
}

func (c Client) pollToCompletion(ctx context.Context, taskID string, observer entity.StatusObserver) ([]entity.StemResult, error) {
	errctx := cerr.Field("task_id", taskID)

	deadline := c.clock.Now().Add(c.config.Timeout)

	for {
		task, err := c.getTask(ctx, taskID)
		if err != nil {
			return nil, errctx.Wrap(err).Error("Failed to check the task status")
		}

		if observer != nil {
			observer.OnStatus(task.Status)
		}

		switch task.Status {
		case entity.CompletedStatus:
			// a completed response should always carry results.
			// Tolerate an eventually consistent backend by treating a
			// results-less "completed" as not yet terminal and
			// polling again.
			if len(task.Stems) > 0 {
				return task.Stems, nil
			}

			log.WithField("task_id", taskID).Info("Task reports completed without stems yet, continuing to poll")

		case entity.FailedStatus:
			return nil, errctx.Wrap(SeparationFailedError{Message: task.ErrorMessage}).
				Error("The separation service reported a failure")

		case entity.CancelledStatus:
			return nil, errctx.Wrap(ErrTaskCancelled).Error("The separation task is gone")

		case entity.PendingStatus, entity.ProcessingStatus:
			// keep polling
		}

		// the budget bounds the whole loop regardless of the current
		// status, even one that is presumably still advancing
		if !c.clock.Now().Before(deadline) {
			return nil, errctx.Field("timeout", c.config.Timeout).
				Field("last_status", task.Status).
				Wrap(ErrTimeout).Error("Gave up waiting for the separation task")
		}

		c.clock.Sleep(c.config.PollInterval)
	}
}

type taskResponse struct {
	ID     string             `json:"id"`
	Status string             `json:"status"`
	Stems  []taskResponseStem `json:"stems"`
	Error  string             `json:"error"`
}

type taskResponseStem struct {
	Name   string              `json:"name"`
	Assets []taskResponseAsset `json:"assets"`
}

type taskResponseAsset struct {
	Format string `json:"format"`
	URL    string `json:"url"`
}

func (c Client) getTask(ctx context.Context, taskID string) (entity.SeparationTask, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/tasks/"+taskID, nil)
	if err != nil {
		return entity.SeparationTask{}, cerr.Wrap(err).Error("Failed to create the status request")
	}
	request.Header.Set("x-api-key", c.apiKey)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return entity.SeparationTask{}, cerr.Wrap(err).Error("Failed to reach the separation service")
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return entity.SeparationTask{}, cerr.Wrap(err).Error("Failed to read the status response")
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return entity.SeparationTask{}, cerr.Field("status_code", response.StatusCode).
			Field("response_body", string(responseBody)).
			Error("The separation service rejected the status check")
	}

	parsed := taskResponse{}
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return entity.SeparationTask{}, cerr.Wrap(err).Error("Failed to unmarshal the status response")
	}

	status, err := entity.ConvertToTaskStatus(parsed.Status)
	if err != nil {
		return entity.SeparationTask{}, cerr.Field("status", parsed.Status).
			Wrap(err).Error("The separation service reported an unknown status")
	}

	stems := make([]entity.StemResult, 0, len(parsed.Stems))
	for _, stem := range parsed.Stems {
		urls := map[string]string{}
		for _, asset := range stem.Assets {
			urls[asset.Format] = asset.URL
		}

		stems = append(stems, entity.StemResult{
			Name: stem.Name,
			URLs: urls,
		})
	}

	return entity.SeparationTask{
		ID:           parsed.ID,
		Status:       status,
		Stems:        stems,
		ErrorMessage: parsed.Error,
	}, nil
}
