// Package params extracts inline video generation directives from a
// prompt. Extraction is a pure function so the HTTP layer and the job
// bridge can both stay free of parsing concerns.
package params

import (
	"regexp"
	"strconv"
	"strings"
)

// VideoParams are the generation parameters for image-to-video models.
type VideoParams struct {
	Duration       string
	AspectRatio    string
	NegativePrompt string
	CFGScale       float64
}

// DefaultVideoParams returns the parameter defaults applied when the
// prompt carries no directives.
func DefaultVideoParams() VideoParams {
	return VideoParams{
		Duration:       "5",
		AspectRatio:    "16:9",
		NegativePrompt: "blur, distort, and low quality",
		CFGScale:       0.5,
	}
}

var (
	durationRe = regexp.MustCompile(`(?i)\s(?:duration|dur):\s*"?(5|10)"?\s`)
	aspectRe   = regexp.MustCompile(`(?i)\s(?:aspect_ratio|ar):\s*"?(16:9|9:16|1:1)"?\s`)
	cfgRe      = regexp.MustCompile(`(?i)\s(?:cfg_scale|cfg):\s*(\d*\.?\d+)\s`)
	// The negative prompt runs until the next directive keyword or the end
	// of the prompt. The trailing keyword is captured so it can be put
	// back after the directive is cut out.
	negativeRe = regexp.MustCompile(`(?i)\s(?:negative_prompt|np):\s*(?:"([^"]*)"|([^"\s]+(?:\s+[^"\s]+)*?))(?:\s+((?:duration|dur|aspect_ratio|ar|cfg_scale|cfg):)|\s*$)`)
)

// ExtractVideoParams parses directives like `dur: 5`, `ar: 16:9`,
// `np: "..."` and `cfg: 0.7` out of the prompt. It returns the resolved
// parameters and the prompt with all directives removed and whitespace
// collapsed.
func ExtractVideoParams(prompt string) (VideoParams, string) {
	params := DefaultVideoParams()
	s := " " + prompt + " "

	if m := durationRe.FindStringSubmatch(s); m != nil {
		params.Duration = m[1]
		s = strings.Replace(s, m[0], " ", 1)
	}
	if m := aspectRe.FindStringSubmatch(s); m != nil {
		params.AspectRatio = m[1]
		s = strings.Replace(s, m[0], " ", 1)
	}
	if m := negativeRe.FindStringSubmatchIndex(s); m != nil {
		var value string
		if m[2] >= 0 {
			value = s[m[2]:m[3]]
		} else if m[4] >= 0 {
			value = s[m[4]:m[5]]
		}
		if value = strings.TrimSpace(value); value != "" {
			params.NegativePrompt = value
		}
		if m[6] >= 0 {
			// keep the trailing directive keyword for later passes
			s = s[:m[0]] + " " + s[m[6]:]
		} else {
			s = s[:m[0]] + " "
		}
	}
	if m := cfgRe.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			params.CFGScale = v
			s = strings.Replace(s, m[0], " ", 1)
		}
	}

	cleaned := strings.Join(strings.Fields(s), " ")
	return params, cleaned
}
