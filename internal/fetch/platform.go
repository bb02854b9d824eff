package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known job listing source.
type Platform string

const (
	// PlatformWhoz is the Whoz staffing platform, read through its shared-task API
	PlatformWhoz Platform = "whoz"
	// PlatformGreenhouse is the Greenhouse ATS platform
	PlatformGreenhouse Platform = "greenhouse"
	// PlatformLever is the Lever ATS platform
	PlatformLever Platform = "lever"
	// PlatformGeneric is any other HTML page
	PlatformGeneric Platform = "generic"
)

func (p Platform) String() string {
	return string(p)
}

// DetectPlatform identifies the listing platform from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformGeneric
	}

	host := strings.ToLower(parsed.Hostname())
	switch {
	case host == "whoz.com" || strings.HasSuffix(host, ".whoz.com"):
		return PlatformWhoz
	case strings.HasSuffix(host, "greenhouse.io"):
		return PlatformGreenhouse
	case strings.HasSuffix(host, "lever.co"):
		return PlatformLever
	default:
		return PlatformGeneric
	}
}

// PlatformContentSelectors returns content selectors for an HTML platform.
func PlatformContentSelectors(platform Platform) []string {
	switch platform {
	case PlatformGreenhouse:
		return []string{
			".job__description.body",
			".job__description",
			"#content",
		}
	case PlatformLever:
		return []string{
			".posting-page",
			".posting-description",
			".content",
		}
	default:
		return JobPostingSelectors()
	}
}

// PlatformNoiseSelectors returns selectors removed before text extraction.
func PlatformNoiseSelectors(platform Platform) []string {
	common := []string{
		"form",
		".application-form",
		".apply-button-container",
		".eeo-statement",
		".social-share",
		".cookie-consent",
	}

	switch platform {
	case PlatformGreenhouse:
		return append(common, ".application--wrapper", ".post-apply")
	case PlatformLever:
		return append(common, ".apply-section", ".posting-apply")
	default:
		return common
	}
}

// lastPathSegment returns the final non-empty segment of a URL path,
// which identifies the task on share links.
func lastPathSegment(u *url.URL) string {
	path := strings.TrimRight(u.Path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
