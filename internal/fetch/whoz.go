package fetch

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/jonathan/cv-matcher/internal/types"
)

// DefaultWhozAPIBase is the public Whoz host serving shared tasks
const DefaultWhozAPIBase = "https://app.whoz.com"

// whozTaskPath is appended to the API base, followed by the task id
const whozTaskPath = "/api/shared/task/"

// whozTask is the subset of the shared-task payload the matcher uses
type whozTask struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Skills      []json.RawMessage `json:"skills"`
}

// WhozTaskURL maps a shared task link to its API endpoint.
func WhozTaskURL(apiBase, listingURL string) (string, error) {
	parsed, err := ValidateURL(listingURL)
	if err != nil {
		return "", err
	}

	taskID := lastPathSegment(parsed)
	if taskID == "" {
		return "", &Error{URL: listingURL, Message: "no task id in URL"}
	}

	if apiBase == "" {
		apiBase = DefaultWhozAPIBase
	}
	return strings.TrimRight(apiBase, "/") + whozTaskPath + url.PathEscape(taskID), nil
}

// FetchWhozTask reads a shared task through the Whoz API.
func FetchWhozTask(ctx context.Context, apiBase, listingURL string, opts *Options) (*types.JobListing, error) {
	apiURL, err := WhozTaskURL(apiBase, listingURL)
	if err != nil {
		return nil, err
	}

	if opts == nil {
		opts = DefaultOptions()
	}
	withJSON := *opts
	withJSON.Headers = map[string]string{"Accept": "application/json"}
	for k, v := range opts.Headers {
		withJSON.Headers[k] = v
	}

	result, err := URL(ctx, apiURL, &withJSON)
	if err != nil {
		return nil, err
	}

	var task whozTask
	if err := json.Unmarshal([]byte(result.Body), &task); err != nil {
		return nil, &Error{URL: apiURL, Message: "invalid task payload", Cause: err}
	}

	return &types.JobListing{
		URL:            listingURL,
		Name:           strings.TrimSpace(task.Name),
		Description:    HTMLToText(task.Description),
		RequiredSkills: whozSkillNames(task.Skills),
	}, nil
}

// whozSkillNames accepts skills either as plain strings or as objects
// carrying a name.
func whozSkillNames(raw []json.RawMessage) []string {
	names := make([]string, 0, len(raw))
	for _, item := range raw {
		var name string
		if err := json.Unmarshal(item, &name); err != nil {
			var obj struct {
				Name  string `json:"name"`
				Label string `json:"label"`
				Skill struct {
					Name string `json:"name"`
				} `json:"skill"`
			}
			if err := json.Unmarshal(item, &obj); err != nil {
				continue
			}
			switch {
			case obj.Name != "":
				name = obj.Name
			case obj.Label != "":
				name = obj.Label
			default:
				name = obj.Skill.Name
			}
		}
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
